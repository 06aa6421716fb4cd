// Package receipt projects a committed order into a display- and
// print-ready structure. Building a receipt never touches the store and
// never mutates the order.
package receipt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bakehouse/pos/internal/domain/order"
)

const (
	headerTitle = "Bakehouse POS Receipt"
	footerText  = "Thank you for your purchase!"
	lineWidth   = 40
	timeLayout  = "2006-01-02 15:04:05"
)

// Line is one printed item row.
type Line struct {
	Name      string
	Quantity  string
	UnitPrice string
	LineTotal string
}

// TotalRow is one labelled amount in the totals block.
type TotalRow struct {
	Label  string
	Amount string
}

// Receipt is an immutable snapshot of an order formatted for display.
type Receipt struct {
	Header []string
	Lines  []Line
	Totals []TotalRow
	Footer string
}

// Build projects the order into a Receipt.
func Build(o *order.Order) Receipt {
	header := []string{
		headerTitle,
		fmt.Sprintf("Order #: %d", o.ID),
		fmt.Sprintf("Date: %s", o.CreatedAt.Format(timeLayout)),
		fmt.Sprintf("Cashier: %s", o.OperatorID),
		fmt.Sprintf("Payment: %s", o.PaymentMethod),
	}

	lines := make([]Line, len(o.Items))
	for i, li := range o.Items {
		lines[i] = Line{
			Name:      li.Name,
			Quantity:  li.Quantity.String(),
			UnitPrice: li.UnitPrice.Format(),
			LineTotal: li.LineTotal().Format(),
		}
	}

	return Receipt{
		Header: header,
		Lines:  lines,
		Totals: []TotalRow{
			{Label: "Subtotal", Amount: o.Subtotal.Format()},
			{Label: "Tax", Amount: o.Tax.Format()},
			{Label: "Total", Amount: o.Total.Format()},
		},
		Footer: footerText,
	}
}

// Render returns the receipt as fixed-width text suitable for a thermal
// printer or terminal.
func (r Receipt) Render() string {
	var b strings.Builder
	rule := strings.Repeat("-", lineWidth)

	b.WriteString(center(r.Header[0]) + "\n")
	for _, h := range r.Header[1:] {
		b.WriteString(h + "\n")
	}
	b.WriteString(rule + "\n")

	for _, l := range r.Lines {
		b.WriteString(l.Name + "\n")
		detail := fmt.Sprintf("  %s x %s", l.Quantity, l.UnitPrice)
		b.WriteString(padBetween(detail, l.LineTotal) + "\n")
	}
	b.WriteString(rule + "\n")

	for _, row := range r.Totals {
		b.WriteString(padBetween(row.Label+":", row.Amount) + "\n")
	}
	b.WriteString(rule + "\n")
	b.WriteString(center(r.Footer) + "\n")

	return b.String()
}

// Width math counts runes, not bytes, so accented product names keep the
// column layout.
func center(s string) string {
	width := utf8.RuneCountInString(s)
	if width >= lineWidth {
		return s
	}
	pad := (lineWidth - width) / 2
	return strings.Repeat(" ", pad) + s
}

func padBetween(left, right string) string {
	gap := lineWidth - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
