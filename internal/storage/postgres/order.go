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
	"github.com/bakehouse/pos/internal/domain/money"
	"github.com/bakehouse/pos/internal/domain/order"
)

const (
	getOrderSQL = `SELECT id, ref, created_at, operator_id, payment_method, subtotal, tax, total
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT product_id, product_name, unit_type, quantity, unit_price
		FROM order_items WHERE order_id = $1
		ORDER BY product_name`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements the order read side backed by PostgreSQL.
// Orders are written exclusively through the CheckoutStore transaction.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID returns the order and its line items, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var (
		o        order.Order
		subtotal decimal.Decimal
		tax      decimal.Decimal
		total    decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.Ref, &o.CreatedAt, &o.OperatorID, &o.PaymentMethod,
		&subtotal, &tax, &total,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o.Subtotal = money.FromDecimal(subtotal)
	o.Tax = money.FromDecimal(tax)
	o.Total = money.FromDecimal(total)

	rows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %d: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, scanLineItem)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %d: %w", id, err)
	}

	return &o, nil
}

func scanLineItem(row pgx.CollectableRow) (cart.LineItem, error) {
	var (
		li       cart.LineItem
		unitType string
		price    decimal.Decimal
	)
	err := row.Scan(&li.ProductID, &li.Name, &unitType, &li.Quantity, &price)
	li.UnitType = catalog.UnitType(unitType)
	li.UnitPrice = money.FromDecimal(price)
	return li, err
}
