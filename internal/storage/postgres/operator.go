package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bakehouse/pos/internal/domain/auth"
)

const (
	findOperatorByKeyHashSQL = `SELECT id, name, role, key_hash, active
		FROM operators WHERE key_hash = $1 AND active`

	createOperatorSQL = `INSERT INTO operators (id, name, role, key_hash, active)
		VALUES ($1, $2, $3, $4, $5)`

	// NULLIF keeps the stored key when the caller passes an empty hash.
	updateOperatorSQL = `UPDATE operators
		SET name = $2, role = $3, active = $4,
		    key_hash = COALESCE(NULLIF($5, ''), key_hash)
		WHERE id = $1`

	listOperatorsSQL = `SELECT id, name, role, active FROM operators ORDER BY id`
)

var (
	_ auth.Repository      = (*OperatorRepository)(nil)
	_ auth.AdminRepository = (*OperatorRepository)(nil)
)

// OperatorRepository provides operator API key lookups and back-office
// operator management backed by PostgreSQL.
type OperatorRepository struct {
	pool *pgxpool.Pool
}

// NewOperatorRepository returns an OperatorRepository that uses the given pool.
func NewOperatorRepository(pool *pgxpool.Pool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

// FindByKeyHash returns the active operator for the given key hash. Any
// failure, including a missing row, maps to auth.ErrUnauthorized so callers
// cannot distinguish unknown keys from revoked ones.
func (r *OperatorRepository) FindByKeyHash(ctx context.Context, hash string) (*auth.Operator, error) {
	var op auth.Operator
	err := r.pool.QueryRow(ctx, findOperatorByKeyHashSQL, hash).Scan(
		&op.ID, &op.Name, &op.Role, &op.KeyHash, &op.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUnauthorized
		}
		return nil, errors.Wrap(err, "finding operator by key hash")
	}
	return &op, nil
}

// Create inserts a new operator. An ID or key hash collision maps to
// auth.ErrDuplicate.
func (r *OperatorRepository) Create(ctx context.Context, op auth.Operator) error {
	_, err := r.pool.Exec(ctx, createOperatorSQL,
		op.ID, op.Name, op.Role, op.KeyHash, op.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicate
		}
		return fmt.Errorf("creating operator %q: %w", op.ID, err)
	}
	return nil
}

// Update rewrites name, role and active state, rotating the key only when
// op.KeyHash is non-empty.
func (r *OperatorRepository) Update(ctx context.Context, op auth.Operator) error {
	tag, err := r.pool.Exec(ctx, updateOperatorSQL,
		op.ID, op.Name, op.Role, op.Active, op.KeyHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicate
		}
		return fmt.Errorf("updating operator %q: %w", op.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// List returns all operators ordered by ID. Key hashes are not selected.
func (r *OperatorRepository) List(ctx context.Context) ([]auth.Operator, error) {
	rows, err := r.pool.Query(ctx, listOperatorsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing operators: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (auth.Operator, error) {
		var op auth.Operator
		err := row.Scan(&op.ID, &op.Name, &op.Role, &op.Active)
		return op, err
	})
}
