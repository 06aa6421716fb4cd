package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/cart"
	"github.com/bakehouse/pos/internal/domain/order"
	"github.com/bakehouse/pos/internal/domain/pricing"
)

// defaultPaymentMethod is recorded on every order header. Card terminals are
// out of scope; sales settle in cash.
const defaultPaymentMethod = "cash"

// Service runs the checkout transaction against a Store.
type Service struct {
	store  Store
	now    func() time.Time
	newRef func() string
}

// NewService creates a checkout Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{
		store:  store,
		now:    time.Now,
		newRef: uuid.NewString,
	}
}

// Checkout atomically persists the cart as an order: it re-validates stock
// for every line inside the transaction, inserts the order header and line
// items, decrements stock, and commits. On any failure the transaction is
// rolled back in full; the store is left exactly as it was and the cart is
// untouched, so the caller decides whether to adjust and retry.
//
// Error kinds: ErrEmptyCart, *InsufficientStockError, *PersistenceError.
func (s *Service) Checkout(ctx context.Context, c *cart.Cart, operatorID string, taxRate decimal.Decimal) (*order.Order, error) {
	items := c.LineItems()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	totals := pricing.ComputeTotals(items, taxRate)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "begin transaction", Err: err}
	}
	// No-op after a successful commit.
	defer tx.Rollback(ctx) //nolint:errcheck

	// Re-validate every line against current stock before writing anything.
	// The add-time stock snapshot is stale by now; only the in-transaction
	// read counts.
	for _, li := range items {
		stock, err := tx.StockOnHand(ctx, li.ProductID)
		if err != nil {
			return nil, &PersistenceError{Op: "read stock", Err: err}
		}
		if stock.Cmp(li.Quantity) < 0 {
			return nil, &InsufficientStockError{
				ProductID: li.ProductID,
				Requested: li.Quantity,
				Available: stock,
			}
		}
	}

	draft := order.Draft{
		Ref:           s.newRef(),
		CreatedAt:     s.now(),
		OperatorID:    operatorID,
		PaymentMethod: defaultPaymentMethod,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
	}

	orderID, err := tx.InsertOrder(ctx, draft)
	if err != nil {
		return nil, &PersistenceError{Op: "insert order", Err: err}
	}

	for _, li := range items {
		if err := tx.InsertLineItem(ctx, orderID, li); err != nil {
			return nil, &PersistenceError{Op: "insert line item", Err: err}
		}
		if err := tx.DecrementStock(ctx, li.ProductID, li.Quantity); err != nil {
			return nil, &PersistenceError{Op: "decrement stock", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &PersistenceError{Op: "commit", Err: err}
	}

	return &order.Order{
		ID:            orderID,
		Ref:           draft.Ref,
		CreatedAt:     draft.CreatedAt,
		OperatorID:    operatorID,
		PaymentMethod: draft.PaymentMethod,
		Items:         items,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
	}, nil
}
