// Package auth holds operator identities and API key lookups. Keys are
// stored as HMAC-SHA256 hashes; the plaintext key never reaches the store.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrUnauthorized is returned for any key that does not resolve to an
	// active operator. The cause is deliberately not distinguished.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned by admin mutations targeting an operator
	// that does not exist.
	ErrNotFound = errors.New("operator not found")
	// ErrDuplicate is returned when creating an operator would collide
	// with an existing ID or API key.
	ErrDuplicate = errors.New("operator already exists")
)

// Operator is a terminal user. Role gates the back-office surface:
// "admin" operators may mutate the catalog, "cashier" operators may only
// sell.
type Operator struct {
	ID      string
	Name    string
	Role    string
	KeyHash string
	Active  bool
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// ValidRole reports whether role is one an operator may hold.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCashier
}

// Repository provides operator lookups by hashed API key.
type Repository interface {
	// FindByKeyHash returns the active operator whose key hash matches,
	// or ErrUnauthorized.
	FindByKeyHash(ctx context.Context, hash string) (*Operator, error)
}

// AdminRepository defines operator mutations used by the back-office
// surface.
type AdminRepository interface {
	// Create inserts a new operator. An ID or key collision maps to
	// ErrDuplicate.
	Create(ctx context.Context, op Operator) error
	// Update rewrites name, role and active state. An empty KeyHash
	// keeps the stored key; a non-empty one rotates it. A missing
	// operator maps to ErrNotFound.
	Update(ctx context.Context, op Operator) error
	// List returns all operators ordered by ID, key hashes omitted.
	List(ctx context.Context) ([]Operator, error)
}
