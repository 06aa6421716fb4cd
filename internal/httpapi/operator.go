package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/bakehouse/pos/internal/domain/auth"
)

type operatorDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// operatorRequest carries operator mutations. APIKey is the plaintext key;
// it is hashed before it reaches the store and never echoed back. On update
// an empty APIKey keeps the current key.
type operatorRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	APIKey string `json:"apiKey"`
	Active *bool  `json:"active"`
}

func toOperatorDTO(op auth.Operator) operatorDTO {
	return operatorDTO{ID: op.ID, Name: op.Name, Role: op.Role, Active: op.Active}
}

func (h *Handler) listOperators(w http.ResponseWriter, r *http.Request) {
	ops, err := h.operators.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	dtos := make([]operatorDTO, len(ops))
	for i, op := range ops {
		dtos[i] = toOperatorDTO(op)
	}
	respondJSON(w, http.StatusOK, dtos)
}

// createOperator registers a new operator. The key hash function comes from
// the security layer so the handler never learns the pepper.
func (h *Handler) createOperator(hashKey func(string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeOperator(w, r, "")
		if !ok {
			return
		}
		if req.APIKey == "" {
			respondError(w, http.StatusBadRequest, "apiKey is required")
			return
		}

		op := auth.Operator{
			ID:      req.ID,
			Name:    req.Name,
			Role:    req.Role,
			KeyHash: hashKey(req.APIKey),
			Active:  req.Active == nil || *req.Active,
		}
		if err := h.operators.Create(r.Context(), op); err != nil {
			respondDomainError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, toOperatorDTO(op))
	}
}

// updateOperator rewrites an operator's name, role and active state, and
// rotates the API key when one is supplied.
func (h *Handler) updateOperator(hashKey func(string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeOperator(w, r, r.PathValue("id"))
		if !ok {
			return
		}

		op := auth.Operator{
			ID:     req.ID,
			Name:   req.Name,
			Role:   req.Role,
			Active: req.Active == nil || *req.Active,
		}
		if req.APIKey != "" {
			op.KeyHash = hashKey(req.APIKey)
		}
		if err := h.operators.Update(r.Context(), op); err != nil {
			respondDomainError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, toOperatorDTO(op))
	}
}

// decodeOperator parses and validates an operator payload. When pathID is
// non-empty it overrides the body's ID (PUT semantics).
func decodeOperator(w http.ResponseWriter, r *http.Request, pathID string) (operatorRequest, bool) {
	var req operatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return operatorRequest{}, false
	}
	if pathID != "" {
		req.ID = pathID
	}

	switch {
	case req.ID == "" || req.Name == "":
		respondError(w, http.StatusBadRequest, "id and name are required")
		return operatorRequest{}, false
	case !auth.ValidRole(req.Role):
		respondError(w, http.StatusBadRequest, "role must be \"admin\" or \"cashier\"")
		return operatorRequest{}, false
	}

	return req, true
}
