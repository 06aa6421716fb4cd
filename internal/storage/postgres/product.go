package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/catalog"
	"github.com/bakehouse/pos/internal/domain/money"
)

const (
	productColumns = `id, name, category, unit_price, unit_type, stock, available`

	findAvailableProductSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = $1 AND available`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products ORDER BY name`

	searchProductsSQL = `SELECT ` + productColumns + `
		FROM products
		WHERE available AND (name ILIKE '%' || $1 || '%' OR category ILIKE '%' || $1 || '%')
		ORDER BY name`

	createProductSQL = `INSERT INTO products (id, name, category, unit_price, unit_type, stock, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	updateProductSQL = `UPDATE products
		SET name = $2, category = $3, unit_price = $4, unit_type = $5, stock = $6, available = $7
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	listCategoriesSQL = `SELECT c.name, COUNT(p.id)
		FROM categories c
		LEFT JOIN products p ON p.category = c.name
		GROUP BY c.name
		ORDER BY c.name`

	createCategorySQL = `INSERT INTO categories (name) VALUES ($1)`

	renameCategorySQL = `UPDATE categories SET name = $2 WHERE name = $1`

	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

var (
	_ catalog.Repository      = (*ProductRepository)(nil)
	_ catalog.AdminRepository = (*ProductRepository)(nil)
)

// ProductRepository implements the catalog read and admin interfaces backed
// by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// FindAvailable returns the product with the given ID when it exists and is
// flagged available. Missing and unavailable products both map to
// catalog.ErrNotFound.
func (r *ProductRepository) FindAvailable(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, findAvailableProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("finding product %q: %w", id, err)
	}
	return &p, nil
}

// List returns all products ordered by name, including unavailable ones
// (the back-office needs to see them).
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Search returns available products whose name or category matches the query.
func (r *ProductRepository) Search(ctx context.Context, query string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, searchProductsSQL, query)
	if err != nil {
		return nil, fmt.Errorf("searching products %q: %w", query, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts a new product. A name collision maps to
// catalog.ErrDuplicateName; a nonexistent category to
// catalog.ErrUnknownCategory.
func (r *ProductRepository) Create(ctx context.Context, p catalog.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Category, p.UnitPrice.Decimal(), string(p.UnitType), p.Stock, p.Available,
	)
	if err != nil {
		return classifyProductErr("creating", p.ID, err)
	}
	return nil
}

// Update rewrites all mutable fields of a product.
func (r *ProductRepository) Update(ctx context.Context, p catalog.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Category, p.UnitPrice.Decimal(), string(p.UnitType), p.Stock, p.Available,
	)
	if err != nil {
		return classifyProductErr("updating", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// Delete removes a product. Products already referenced by order items
// cannot be removed and map to catalog.ErrProductInUse; retire those by
// flipping available off instead.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.ErrProductInUse
		}
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// CreateCategory adds an empty category.
func (r *ProductRepository) CreateCategory(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx, createCategorySQL, name)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicateCategory
		}
		return fmt.Errorf("creating category %q: %w", name, err)
	}
	return nil
}

// RenameCategory renames a category. Products referencing it follow via the
// schema's ON UPDATE CASCADE.
func (r *ProductRepository) RenameCategory(ctx context.Context, oldName, newName string) error {
	tag, err := r.pool.Exec(ctx, renameCategorySQL, oldName, newName)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicateCategory
		}
		return fmt.Errorf("renaming category %q: %w", oldName, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// Categories returns all categories with their product counts.
func (r *ProductRepository) Categories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var c catalog.Category
		err := row.Scan(&c.Name, &c.Products)
		return c, err
	})
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p        catalog.Product
		price    decimal.Decimal
		unitType string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Category, &price, &unitType, &p.Stock, &p.Available)
	p.UnitPrice = money.FromDecimal(price)
	p.UnitType = catalog.UnitType(unitType)
	return p, err
}

// classifyProductErr maps constraint violations from product writes to
// domain errors: unique (name) to ErrDuplicateName, foreign key (category)
// to ErrUnknownCategory.
func classifyProductErr(op, id string, err error) error {
	switch {
	case isUniqueViolation(err):
		return catalog.ErrDuplicateName
	case isForeignKeyViolation(err):
		return catalog.ErrUnknownCategory
	}
	return fmt.Errorf("%s product %q: %w", op, id, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}
