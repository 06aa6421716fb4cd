// Package httpapi exposes the catalog, checkout, and analytics operations
// over a JSON HTTP API. It is one possible host for the domain core; the
// domain packages never depend on it.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bakehouse/pos/internal/domain/analytics"
	"github.com/bakehouse/pos/internal/domain/auth"
	"github.com/bakehouse/pos/internal/domain/catalog"
	"github.com/bakehouse/pos/internal/domain/checkout"
	"github.com/bakehouse/pos/internal/domain/order"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// TaxRate is applied to every sale, e.g. 0.15 for 15%.
	TaxRate decimal.Decimal
}

// Handler serves the JSON API, delegating business logic to the injected
// domain services and repositories.
type Handler struct {
	products  catalog.Repository
	admin     catalog.AdminRepository
	operators auth.AdminRepository
	checkout  *checkout.Service
	orders    order.Repository
	analytics analytics.Repository
	taxRate   decimal.Decimal
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	products catalog.Repository,
	admin catalog.AdminRepository,
	operators auth.AdminRepository,
	checkoutSvc *checkout.Service,
	orders order.Repository,
	analyticsRepo analytics.Repository,
) *Handler {
	return &Handler{
		products:  products,
		admin:     admin,
		operators: operators,
		checkout:  checkoutSvc,
		orders:    orders,
		analytics: analyticsRepo,
		taxRate:   cfg.TaxRate,
	}
}

// Routes mounts all API endpoints on a new mux. Selling and back-office
// endpoints require an authenticated operator; catalog mutations and
// analytics additionally require the admin role.
func (h *Handler) Routes(sec *Security) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /api/products", sec.Authenticate(http.HandlerFunc(h.listProducts)))
	mux.Handle("GET /api/products/{id}", sec.Authenticate(http.HandlerFunc(h.getProduct)))
	mux.Handle("GET /api/categories", sec.Authenticate(http.HandlerFunc(h.listCategories)))

	mux.Handle("POST /api/products", sec.RequireAdmin(http.HandlerFunc(h.createProduct)))
	mux.Handle("PUT /api/products/{id}", sec.RequireAdmin(http.HandlerFunc(h.updateProduct)))
	mux.Handle("DELETE /api/products/{id}", sec.RequireAdmin(http.HandlerFunc(h.deleteProduct)))

	mux.Handle("POST /api/categories", sec.RequireAdmin(http.HandlerFunc(h.createCategory)))
	mux.Handle("PUT /api/categories/{name}", sec.RequireAdmin(http.HandlerFunc(h.renameCategory)))

	mux.Handle("GET /api/operators", sec.RequireAdmin(http.HandlerFunc(h.listOperators)))
	mux.Handle("POST /api/operators", sec.RequireAdmin(h.createOperator(sec.HashKey)))
	mux.Handle("PUT /api/operators/{id}", sec.RequireAdmin(h.updateOperator(sec.HashKey)))

	mux.Handle("POST /api/orders", sec.Authenticate(http.HandlerFunc(h.placeOrder)))
	mux.Handle("GET /api/orders/{id}", sec.Authenticate(http.HandlerFunc(h.getOrder)))
	mux.Handle("GET /api/orders/{id}/receipt", sec.Authenticate(http.HandlerFunc(h.getReceipt)))

	mux.Handle("GET /api/analytics/summary", sec.RequireAdmin(http.HandlerFunc(h.analyticsSummary)))

	return mux
}

// errorResponse is the uniform error body for all endpoints.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Code: status, Message: msg})
}

// respondDomainError maps a domain error to an HTTP status. Unexpected
// errors are logged and hidden behind a generic 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapDomainError(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		msg = "internal server error"
	}
	respondError(w, status, msg)
}
