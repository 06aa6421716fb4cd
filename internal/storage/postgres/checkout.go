package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/cart"
	"github.com/bakehouse/pos/internal/domain/catalog"
	"github.com/bakehouse/pos/internal/domain/checkout"
	"github.com/bakehouse/pos/internal/domain/order"
)

const (
	// FOR UPDATE keeps the row locked until commit or rollback, so two
	// concurrent checkouts of overlapping products serialize on the stock
	// read and the loser sees the winner's decrement.
	stockForUpdateSQL = `SELECT stock FROM products WHERE id = $1 FOR UPDATE`

	decrementStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (ref, created_at, operator_id, payment_method, subtotal, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	insertLineItemSQL = `INSERT INTO order_items (order_id, product_id, product_name, unit_type, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

var _ checkout.Store = (*CheckoutStore)(nil)

// CheckoutStore implements checkout.Store backed by PostgreSQL.
type CheckoutStore struct {
	pool *pgxpool.Pool
}

// NewCheckoutStore returns a CheckoutStore that uses the given pool.
func NewCheckoutStore(pool *pgxpool.Pool) *CheckoutStore {
	return &CheckoutStore{pool: pool}
}

// Begin opens a database transaction for one checkout.
func (s *CheckoutStore) Begin(ctx context.Context) (checkout.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning checkout transaction: %w", err)
	}
	return &checkoutTx{tx: tx}, nil
}

type checkoutTx struct {
	tx pgx.Tx
}

// StockOnHand reads the product's current stock with a row lock.
func (t *checkoutTx) StockOnHand(ctx context.Context, productID string) (decimal.Decimal, error) {
	var stock decimal.Decimal
	err := t.tx.QueryRow(ctx, stockForUpdateSQL, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, catalog.ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("reading stock for %q: %w", productID, err)
	}
	return stock, nil
}

func (t *checkoutTx) DecrementStock(ctx context.Context, productID string, qty decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, decrementStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("decrementing stock for %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (t *checkoutTx) InsertOrder(ctx context.Context, draft order.Draft) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, insertOrderSQL,
		draft.Ref, draft.CreatedAt, draft.OperatorID, draft.PaymentMethod,
		draft.Subtotal.Decimal(), draft.Tax.Decimal(), draft.Total.Decimal(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting order %q: %w", draft.Ref, err)
	}
	return id, nil
}

func (t *checkoutTx) InsertLineItem(ctx context.Context, orderID int64, item cart.LineItem) error {
	_, err := t.tx.Exec(ctx, insertLineItemSQL,
		orderID, item.ProductID, item.Name, string(item.UnitType),
		item.Quantity, item.UnitPrice.Decimal(),
	)
	if err != nil {
		return fmt.Errorf("inserting line item %q for order %d: %w", item.ProductID, orderID, err)
	}
	return nil
}

func (t *checkoutTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback aborts the transaction. After a successful Commit pgx reports
// ErrTxClosed, which is mapped to nil so callers can defer unconditionally.
func (t *checkoutTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
