// Package analytics defines the read models for the sales dashboard:
// per-product revenue, per-category order counts, and headline figures for a
// reporting period.
package analytics

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/money"
)

// ErrUnknownPeriod is returned for a period value outside the supported set.
var ErrUnknownPeriod = errors.New("unknown reporting period")

// Period selects the reporting window, anchored at the current day/week/
// month/year like the original dashboard filter.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod validates a period string. An empty string defaults to today.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodToday, nil
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return Period(s), nil
	default:
		return "", errors.Wrapf(ErrUnknownPeriod, "%q", s)
	}
}

// Start returns the inclusive lower bound of the period relative to now.
// Weeks start on Monday.
func (p Period) Start(now time.Time) time.Time {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodWeek:
		weekday := int(now.Weekday())
		if weekday == 0 { // Sunday
			weekday = 7
		}
		return midnight.AddDate(0, 0, -(weekday - 1))
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	case PeriodYear:
		return time.Date(y, 1, 1, 0, 0, 0, 0, now.Location())
	default:
		return midnight
	}
}

// ProductSales is the quantity and revenue one product generated in a period.
type ProductSales struct {
	Name     string
	Quantity decimal.Decimal
	Revenue  money.Money
}

// CategorySales counts the distinct orders a category participated in.
type CategorySales struct {
	Category string
	Orders   int64
}

// Summary is the full dashboard payload for one period.
type Summary struct {
	Period       Period
	TotalOrders  int64
	TotalRevenue money.Money
	AverageOrder money.Money
	TopProduct   string
	Products     []ProductSales
	Categories   []CategorySales
}

// Repository computes summaries from the committed order history.
type Repository interface {
	Summary(ctx context.Context, p Period) (*Summary, error)
}
