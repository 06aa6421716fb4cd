// Package catalog defines the read side of product data: price, unit type,
// stock and availability. The checkout core only ever reads a point-in-time
// snapshot from the catalog; stock consistency is enforced later, inside the
// checkout transaction, not here.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/money"
)

var (
	// ErrNotFound is returned when a product does not exist or is not
	// flagged available.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateName is returned when creating or renaming a product
	// would collide with an existing product name.
	ErrDuplicateName = errors.New("product name already exists")
	// ErrUnknownCategory is returned when a product references a category
	// that has not been created.
	ErrUnknownCategory = errors.New("category does not exist")
	// ErrDuplicateCategory is returned when creating or renaming a
	// category would collide with an existing one.
	ErrDuplicateCategory = errors.New("category already exists")
	// ErrProductInUse is returned when deleting a product that past
	// orders still reference. Such products can only be retired by
	// marking them unavailable.
	ErrProductInUse = errors.New("product has recorded sales")
)

// UnitType describes how a product is measured and sold.
type UnitType string

const (
	// UnitWeight products are sold by weight and allow fractional
	// quantities with up to three decimal places (e.g. 0.250 kg).
	UnitWeight UnitType = "weight"
	// UnitCount products are sold per piece and require integral quantities.
	UnitCount UnitType = "count"
)

// Valid reports whether u is a known unit type.
func (u UnitType) Valid() bool {
	return u == UnitWeight || u == UnitCount
}

// Product is a catalog item. Price and stock are a snapshot taken at lookup
// time; the catalog holds no lock between lookup and checkout.
type Product struct {
	ID        string
	Name      string
	Category  string
	UnitPrice money.Money
	UnitType  UnitType
	Stock     decimal.Decimal
	Available bool
}

// Repository defines read operations for the product catalog.
// Implementations must only return products flagged available from
// FindAvailable and Search.
type Repository interface {
	// FindAvailable returns the product with the given ID if it exists and
	// is available. It returns ErrNotFound otherwise.
	FindAvailable(ctx context.Context, id string) (*Product, error)
	// List returns all products ordered by name.
	List(ctx context.Context) ([]Product, error)
	// Search returns available products whose name or category matches the
	// query, ordered by name.
	Search(ctx context.Context, query string) ([]Product, error)
}

// Category summarizes one product category.
type Category struct {
	Name     string
	Products int64
}

// AdminRepository defines catalog mutations used by the back-office surface.
type AdminRepository interface {
	Create(ctx context.Context, p Product) error
	Update(ctx context.Context, p Product) error
	// Delete removes a product. Products referenced by past orders
	// cannot be removed and map to ErrProductInUse.
	Delete(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]Category, error)
	// CreateCategory adds an empty category. A name collision maps to
	// ErrDuplicateCategory.
	CreateCategory(ctx context.Context, name string) error
	// RenameCategory renames a category; products in it follow. A
	// missing category maps to ErrNotFound, a collision to
	// ErrDuplicateCategory.
	RenameCategory(ctx context.Context, oldName, newName string) error
}
