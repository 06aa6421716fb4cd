// Package pricing computes sale totals from cart line items and a tax rate.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/cart"
	"github.com/bakehouse/pos/internal/domain/money"
)

// Totals holds the computed amounts for a sale. Tax is always derived from
// the subtotal through the configured rate, never stored independently.
type Totals struct {
	Subtotal money.Money
	Tax      money.Money
	Total    money.Money
}

// ComputeTotals returns subtotal, tax and total for the given line items.
// It is a pure function of its inputs and is valid for any cart state,
// including empty (all zeros). Callers recompute eagerly after every cart
// mutation; no cached totals are exposed anywhere.
func ComputeTotals(items []cart.LineItem, taxRate decimal.Decimal) Totals {
	subtotal := money.Zero()
	for _, li := range items {
		subtotal = subtotal.Add(li.LineTotal())
	}
	tax := subtotal.Percent(taxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
