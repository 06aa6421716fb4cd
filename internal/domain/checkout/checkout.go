// Package checkout converts a cart into a persisted order plus stock
// decrements as a single atomic unit of work. All cross-session correctness
// lives here, at the store's transaction boundary: stock is re-validated
// inside the transaction, closing the race between cart assembly (which may
// span seconds of operator interaction) and concurrent sales of the same
// product from other terminals.
package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/cart"
	"github.com/bakehouse/pos/internal/domain/order"
)

// ErrEmptyCart is returned when checkout is attempted on an empty cart.
// No transaction is opened in that case.
var ErrEmptyCart = errors.New("cart is empty")

// InsufficientStockError indicates that a product's current stock, re-read
// inside the transaction, no longer covers the requested quantity. The
// transaction is rolled back and the cart is preserved so the operator can
// adjust the line.
type InsufficientStockError struct {
	ProductID string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %s, available %s",
		e.ProductID, e.Requested, e.Available)
}

// PersistenceError wraps any store-level failure (connectivity, constraint
// violation, timeout). The checkout is rolled back; retrying is an operator
// decision, never automatic.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store opens checkout transactions against the persistent store.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one checkout transaction. All operations either take effect together
// at Commit or not at all. Rollback after a successful Commit must be a
// no-op so callers can defer it unconditionally.
type Tx interface {
	// StockOnHand returns the product's current stock as seen by this
	// transaction. Implementations must read a value that is stable against
	// concurrent checkouts until Commit or Rollback (e.g. a locking read).
	StockOnHand(ctx context.Context, productID string) (decimal.Decimal, error)
	DecrementStock(ctx context.Context, productID string, qty decimal.Decimal) error
	InsertOrder(ctx context.Context, draft order.Draft) (int64, error)
	InsertLineItem(ctx context.Context, orderID int64, item cart.LineItem) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
