package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/catalog"
	"github.com/bakehouse/pos/internal/domain/money"
)

type productDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitPrice string          `json:"unitPrice"`
	UnitType  string          `json:"unitType"`
	Stock     decimal.Decimal `json:"stock"`
	Available bool            `json:"available"`
}

type productRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	UnitType  string          `json:"unitType"`
	Stock     decimal.Decimal `json:"stock"`
	Available bool            `json:"available"`
}

type categoryDTO struct {
	Name     string `json:"name"`
	Products int64  `json:"products"`
}

func toProductDTO(p catalog.Product) productDTO {
	return productDTO{
		ID:        p.ID,
		Name:      p.Name,
		Category:  p.Category,
		UnitPrice: p.UnitPrice.String(),
		UnitType:  string(p.UnitType),
		Stock:     p.Stock,
		Available: p.Available,
	}
}

// listProducts serves the cashier's product picker: the full catalog, or a
// name/category search when ?q= is present.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []catalog.Product
		err      error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		products, err = h.products.Search(r.Context(), q)
	} else {
		products, err = h.products.List(r.Context())
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	dtos := make([]productDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.FindAvailable(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductDTO(*p))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := decodeProduct(w, r, "")
	if !ok {
		return
	}
	if err := h.admin.Create(r.Context(), p); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toProductDTO(p))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := decodeProduct(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	if err := h.admin.Update(r.Context(), p); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductDTO(p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Name string `json:"name"`
}

// createCategory adds an empty category so products can reference it.
func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.admin.CreateCategory(r.Context(), req.Name); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, categoryDTO{Name: req.Name})
}

// renameCategory renames the category in the path to the name in the body.
// Products in the category follow.
func (h *Handler) renameCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.admin.RenameCategory(r.Context(), r.PathValue("name"), req.Name); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categoryDTO{Name: req.Name})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.admin.Categories(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	dtos := make([]categoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = categoryDTO{Name: c.Name, Products: c.Products}
	}
	respondJSON(w, http.StatusOK, dtos)
}

// decodeProduct parses and validates a product payload. When pathID is
// non-empty it overrides the body's ID (PUT semantics).
func decodeProduct(w http.ResponseWriter, r *http.Request, pathID string) (catalog.Product, bool) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return catalog.Product{}, false
	}
	if pathID != "" {
		req.ID = pathID
	}

	unitType := catalog.UnitType(req.UnitType)
	switch {
	case req.ID == "" || req.Name == "" || req.Category == "":
		respondError(w, http.StatusBadRequest, "id, name and category are required")
		return catalog.Product{}, false
	case !unitType.Valid():
		respondError(w, http.StatusBadRequest, "unitType must be \"weight\" or \"count\"")
		return catalog.Product{}, false
	case req.UnitPrice.IsNegative() || req.Stock.IsNegative():
		respondError(w, http.StatusBadRequest, "unitPrice and stock must not be negative")
		return catalog.Product{}, false
	}

	return catalog.Product{
		ID:        req.ID,
		Name:      req.Name,
		Category:  req.Category,
		UnitPrice: money.FromDecimal(req.UnitPrice),
		UnitType:  unitType,
		Stock:     req.Stock,
		Available: req.Available,
	}, true
}
