package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/bakehouse/pos/internal/domain/analytics"
)

type productSalesDTO struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Revenue  string          `json:"revenue"`
}

type categorySalesDTO struct {
	Category string `json:"category"`
	Orders   int64  `json:"orders"`
}

type summaryDTO struct {
	Period       string             `json:"period"`
	TotalOrders  int64              `json:"totalOrders"`
	TotalRevenue string             `json:"totalRevenue"`
	AverageOrder string             `json:"averageOrder"`
	TopProduct   string             `json:"topProduct,omitempty"`
	Products     []productSalesDTO  `json:"products"`
	Categories   []categorySalesDTO `json:"categories"`
}

func (h *Handler) analyticsSummary(w http.ResponseWriter, r *http.Request) {
	period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s, err := h.analytics.Summary(r.Context(), period)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	dto := summaryDTO{
		Period:       string(s.Period),
		TotalOrders:  s.TotalOrders,
		TotalRevenue: s.TotalRevenue.String(),
		AverageOrder: s.AverageOrder.String(),
		TopProduct:   s.TopProduct,
		Products:     make([]productSalesDTO, len(s.Products)),
		Categories:   make([]categorySalesDTO, len(s.Categories)),
	}
	for i, p := range s.Products {
		dto.Products[i] = productSalesDTO{Name: p.Name, Quantity: p.Quantity, Revenue: p.Revenue.String()}
	}
	for i, c := range s.Categories {
		dto.Categories[i] = categorySalesDTO{Category: c.Category, Orders: c.Orders}
	}

	respondJSON(w, http.StatusOK, dto)
}
