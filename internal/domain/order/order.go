// Package order defines the persisted order model and its read-side
// repository. Orders are created only by a successful checkout transaction
// and are never mutated afterwards.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/bakehouse/pos/internal/domain/cart"
	"github.com/bakehouse/pos/internal/domain/money"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order is a committed sale: the header plus the line items copied from the
// cart at commit time.
type Order struct {
	// ID is assigned by the store (unique, not necessarily monotonic).
	ID int64
	// Ref is a stable public identifier safe to expose outside the store.
	Ref        string
	CreatedAt  time.Time
	OperatorID string
	// PaymentMethod records how the sale was settled, e.g. "cash".
	PaymentMethod string
	Items         []cart.LineItem
	Subtotal      money.Money
	Tax           money.Money
	Total         money.Money
}

// Draft is the order header before the store has assigned an ID.
type Draft struct {
	Ref           string
	CreatedAt     time.Time
	OperatorID    string
	PaymentMethod string
	Subtotal      money.Money
	Tax           money.Money
	Total         money.Money
}

// Repository defines read operations for committed orders.
type Repository interface {
	// GetByID returns the order with its line items, or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*Order, error)
}
