package httpapi

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/bakehouse/pos/internal/domain/analytics"
	"github.com/bakehouse/pos/internal/domain/auth"
	"github.com/bakehouse/pos/internal/domain/cart"
	"github.com/bakehouse/pos/internal/domain/catalog"
	"github.com/bakehouse/pos/internal/domain/checkout"
	"github.com/bakehouse/pos/internal/domain/order"
)

// mapDomainError converts domain errors to HTTP statuses. Callers branch on
// error kind, mirroring the exhaustive taxonomy of the checkout core.
func mapDomainError(err error) (int, string) {
	var iqErr *cart.InvalidQuantityError
	if errors.As(err, &iqErr) {
		return http.StatusUnprocessableEntity, iqErr.Error()
	}

	var isErr *checkout.InsufficientStockError
	if errors.As(err, &isErr) {
		return http.StatusConflict, isErr.Error()
	}

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, catalog.ErrNotFound.Error()
	case errors.Is(err, catalog.ErrDuplicateName):
		return http.StatusConflict, catalog.ErrDuplicateName.Error()
	case errors.Is(err, catalog.ErrUnknownCategory):
		return http.StatusUnprocessableEntity, "category does not exist; create it first"
	case errors.Is(err, catalog.ErrDuplicateCategory):
		return http.StatusConflict, catalog.ErrDuplicateCategory.Error()
	case errors.Is(err, catalog.ErrProductInUse):
		return http.StatusConflict, "product has recorded sales; mark it unavailable instead"
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, auth.ErrNotFound.Error()
	case errors.Is(err, auth.ErrDuplicate):
		return http.StatusConflict, auth.ErrDuplicate.Error()
	case errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, analytics.ErrUnknownPeriod):
		return http.StatusBadRequest, err.Error()
	}

	return http.StatusInternalServerError, err.Error()
}
