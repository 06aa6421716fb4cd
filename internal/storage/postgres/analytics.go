package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/analytics"
	"github.com/bakehouse/pos/internal/domain/money"
)

const (
	// Revenue is derived from committed line items, so it reflects what was
	// actually sold, pre-tax.
	productSalesSQL = `SELECT oi.product_name, SUM(oi.quantity), SUM(oi.quantity * oi.unit_price)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at >= $1
		GROUP BY oi.product_name
		ORDER BY SUM(oi.quantity * oi.unit_price) DESC`

	categorySalesSQL = `SELECT p.category, COUNT(DISTINCT o.id)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.created_at >= $1
		GROUP BY p.category
		ORDER BY COUNT(DISTINCT o.id) DESC`

	orderTotalsSQL = `SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(AVG(total), 0)
		FROM orders WHERE created_at >= $1`

	topProductSQL = `SELECT oi.product_name
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at >= $1
		GROUP BY oi.product_name
		ORDER BY SUM(oi.quantity) DESC
		LIMIT 1`
)

var _ analytics.Repository = (*AnalyticsRepository)(nil)

// AnalyticsRepository computes dashboard summaries from the committed order
// history. The period lower bound is computed in Go and passed as a
// parameter, keeping the SQL free of dialect-specific date arithmetic.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewAnalyticsRepository returns an AnalyticsRepository that uses the given pool.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool, now: time.Now}
}

// Summary returns the full dashboard payload for the period.
func (r *AnalyticsRepository) Summary(ctx context.Context, p analytics.Period) (*analytics.Summary, error) {
	since := p.Start(r.now())
	s := &analytics.Summary{Period: p}

	var revenue, avg decimal.Decimal
	err := r.pool.QueryRow(ctx, orderTotalsSQL, since).Scan(&s.TotalOrders, &revenue, &avg)
	if err != nil {
		return nil, fmt.Errorf("summarizing orders: %w", err)
	}
	s.TotalRevenue = money.FromDecimal(revenue)
	s.AverageOrder = money.FromDecimal(avg)

	rows, err := r.pool.Query(ctx, productSalesSQL, since)
	if err != nil {
		return nil, fmt.Errorf("summarizing product sales: %w", err)
	}
	s.Products, err = pgx.CollectRows(rows, scanProductSales)
	if err != nil {
		return nil, fmt.Errorf("summarizing product sales: %w", err)
	}

	rows, err = r.pool.Query(ctx, categorySalesSQL, since)
	if err != nil {
		return nil, fmt.Errorf("summarizing category sales: %w", err)
	}
	s.Categories, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (analytics.CategorySales, error) {
		var cs analytics.CategorySales
		err := row.Scan(&cs.Category, &cs.Orders)
		return cs, err
	})
	if err != nil {
		return nil, fmt.Errorf("summarizing category sales: %w", err)
	}

	if len(s.Products) > 0 {
		err = r.pool.QueryRow(ctx, topProductSQL, since).Scan(&s.TopProduct)
		if err != nil {
			return nil, fmt.Errorf("finding top product: %w", err)
		}
	}

	return s, nil
}

func scanProductSales(row pgx.CollectableRow) (analytics.ProductSales, error) {
	var (
		ps      analytics.ProductSales
		revenue decimal.Decimal
	)
	err := row.Scan(&ps.Name, &ps.Quantity, &revenue)
	ps.Revenue = money.FromDecimal(revenue)
	return ps, err
}
