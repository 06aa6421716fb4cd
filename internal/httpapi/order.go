package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/cart"
	"github.com/bakehouse/pos/internal/domain/order"
	"github.com/bakehouse/pos/internal/domain/receipt"
)

type orderItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type orderRequest struct {
	Items []orderItemRequest `json:"items"`
}

type orderLineDTO struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice string          `json:"unitPrice"`
	LineTotal string          `json:"lineTotal"`
}

type orderDTO struct {
	ID            int64          `json:"id"`
	Ref           string         `json:"ref"`
	CreatedAt     time.Time      `json:"createdAt"`
	OperatorID    string         `json:"operatorId"`
	PaymentMethod string         `json:"paymentMethod"`
	Items         []orderLineDTO `json:"items"`
	Subtotal      string         `json:"subtotal"`
	Tax           string         `json:"tax"`
	Total         string         `json:"total"`
}

func toOrderDTO(o *order.Order) orderDTO {
	items := make([]orderLineDTO, len(o.Items))
	for i, li := range o.Items {
		items[i] = orderLineDTO{
			ProductID: li.ProductID,
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice.String(),
			LineTotal: li.LineTotal().String(),
		}
	}
	return orderDTO{
		ID:            o.ID,
		Ref:           o.Ref,
		CreatedAt:     o.CreatedAt,
		OperatorID:    o.OperatorID,
		PaymentMethod: o.PaymentMethod,
		Items:         items,
		Subtotal:      o.Subtotal.String(),
		Tax:           o.Tax.String(),
		Total:         o.Total.String(),
	}
}

// placeOrder assembles a cart from the requested items (looking up each
// product's current price in the catalog), then runs the checkout
// transaction. The cart lives only for the duration of the request; the
// client owns the in-progress sale.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	op, _ := OperatorFromContext(r.Context())

	c := cart.New()
	for _, item := range req.Items {
		p, err := h.products.FindAvailable(r.Context(), item.ProductID)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		if err := c.AddItem(p, item.Quantity); err != nil {
			respondDomainError(w, r, err)
			return
		}
	}

	o, err := h.checkout.Checkout(r.Context(), c, op.ID, h.taxRate)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderDTO(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.fetchOrder(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(o))
}

// getReceipt renders the order as print-ready plain text.
func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	o, ok := h.fetchOrder(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(receipt.Build(o).Render()))
}

func (h *Handler) fetchOrder(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return nil, false
	}
	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return nil, false
	}
	return o, true
}
