// Package cart holds the in-memory line items of one in-progress sale.
// A Cart belongs to exactly one cashier session and is not safe for
// concurrent use; all cross-session safety lives at the checkout
// transaction boundary.
package cart

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/catalog"
	"github.com/bakehouse/pos/internal/domain/money"
)

// ErrLineNotFound is returned when removing a product that is not in the cart.
var ErrLineNotFound = errors.New("line item not found")

// InvalidQuantityError indicates a quantity that violates the product's
// quantity constraints. The cart is left unchanged.
type InvalidQuantityError struct {
	ProductID string
	Quantity  decimal.Decimal
	Reason    string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %s for product %s: %s", e.Quantity, e.ProductID, e.Reason)
}

// LineItem is one product's quantity and captured price within a cart or a
// committed order. UnitPrice is fixed at the time of the first add and never
// re-fetched, so a catalog price change cannot affect an open cart.
type LineItem struct {
	ProductID string
	Name      string
	UnitType  catalog.UnitType
	Quantity  decimal.Decimal
	UnitPrice money.Money
}

// LineTotal returns quantity x unit price, rounded to the cent.
func (li LineItem) LineTotal() money.Money {
	return li.UnitPrice.MulQuantity(li.Quantity)
}

// Cart is an ordered collection of line items keyed by product ID. Adding a
// product already in the cart merges quantities instead of duplicating the
// line. Insertion order is preserved for display.
type Cart struct {
	order []string
	items map[string]*LineItem
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{items: make(map[string]*LineItem)}
}

// AddItem adds qty of the given product to the cart, merging with an existing
// line for the same product. The merged line keeps the unit price captured at
// the first add. It returns an InvalidQuantityError when qty is not positive,
// when a count product gets a fractional quantity, or when a weight quantity
// carries more than three decimal places.
func (c *Cart) AddItem(p *catalog.Product, qty decimal.Decimal) error {
	if err := validateQuantity(p, qty); err != nil {
		return err
	}

	if line, ok := c.items[p.ID]; ok {
		line.Quantity = line.Quantity.Add(qty)
		return nil
	}

	c.items[p.ID] = &LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitType:  p.UnitType,
		Quantity:  qty,
		UnitPrice: p.UnitPrice,
	}
	c.order = append(c.order, p.ID)
	return nil
}

// RemoveItem deletes the line for the given product ID. It returns
// ErrLineNotFound when the product is not in the cart.
func (c *Cart) RemoveItem(productID string) error {
	if _, ok := c.items[productID]; !ok {
		return ErrLineNotFound
	}
	delete(c.items, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear empties the cart unconditionally.
func (c *Cart) Clear() {
	c.order = c.order[:0]
	clear(c.items)
}

// LineItems returns a copied snapshot of the lines in insertion order.
// Mutating the returned slice does not affect the cart.
func (c *Cart) LineItems() []LineItem {
	items := make([]LineItem, 0, len(c.order))
	for _, id := range c.order {
		items = append(items, *c.items[id])
	}
	return items
}

// Len returns the number of distinct lines in the cart.
func (c *Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func validateQuantity(p *catalog.Product, qty decimal.Decimal) error {
	if qty.Sign() <= 0 {
		return &InvalidQuantityError{
			ProductID: p.ID,
			Quantity:  qty,
			Reason:    "quantity must be greater than 0",
		}
	}
	switch p.UnitType {
	case catalog.UnitCount:
		if !qty.IsInteger() {
			return &InvalidQuantityError{
				ProductID: p.ID,
				Quantity:  qty,
				Reason:    "count products require a whole quantity",
			}
		}
	case catalog.UnitWeight:
		if !qty.Equal(qty.Truncate(3)) {
			return &InvalidQuantityError{
				ProductID: p.ID,
				Quantity:  qty,
				Reason:    "weight quantities allow at most 3 decimal places",
			}
		}
	}
	return nil
}
