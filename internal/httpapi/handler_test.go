package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakehouse/pos/internal/domain/analytics"
	"github.com/bakehouse/pos/internal/domain/auth"
	"github.com/bakehouse/pos/internal/domain/cart"
	"github.com/bakehouse/pos/internal/domain/catalog"
	"github.com/bakehouse/pos/internal/domain/checkout"
	"github.com/bakehouse/pos/internal/domain/money"
	"github.com/bakehouse/pos/internal/domain/order"
)

// --- Mock implementations ---

type mockCatalog struct {
	byID       map[string]*catalog.Product
	categories map[string]bool
	created    []catalog.Product
	err        error
}

func (m *mockCatalog) FindAvailable(_ context.Context, id string) (*catalog.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok || !p.Available {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockCatalog) List(_ context.Context) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, m.err
}

func (m *mockCatalog) Search(_ context.Context, q string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range m.byID {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
			out = append(out, *p)
		}
	}
	return out, m.err
}

func (m *mockCatalog) Create(_ context.Context, p catalog.Product) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, p)
	return nil
}

func (m *mockCatalog) Update(context.Context, catalog.Product) error { return m.err }
func (m *mockCatalog) Delete(context.Context, string) error          { return m.err }
func (m *mockCatalog) Categories(context.Context) ([]catalog.Category, error) {
	return []catalog.Category{{Name: "Bread", Products: 2}}, m.err
}

func (m *mockCatalog) CreateCategory(_ context.Context, name string) error {
	if m.err != nil {
		return m.err
	}
	if m.categories[name] {
		return catalog.ErrDuplicateCategory
	}
	m.categories[name] = true
	return nil
}

func (m *mockCatalog) RenameCategory(_ context.Context, oldName, newName string) error {
	if m.err != nil {
		return m.err
	}
	if !m.categories[oldName] {
		return catalog.ErrNotFound
	}
	if m.categories[newName] {
		return catalog.ErrDuplicateCategory
	}
	delete(m.categories, oldName)
	m.categories[newName] = true
	return nil
}

// fakeStore is a minimal single-session checkout.Store: stock checks work,
// writes are remembered, commit is tracked.
type fakeStore struct {
	stock     map[string]decimal.Decimal
	committed bool
}

func (s *fakeStore) Begin(context.Context) (checkout.Tx, error) { return &fakeTx{store: s}, nil }

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) StockOnHand(_ context.Context, id string) (decimal.Decimal, error) {
	stock, ok := t.store.stock[id]
	if !ok {
		return decimal.Zero, catalog.ErrNotFound
	}
	return stock, nil
}

func (t *fakeTx) DecrementStock(_ context.Context, id string, qty decimal.Decimal) error {
	t.store.stock[id] = t.store.stock[id].Sub(qty)
	return nil
}

func (t *fakeTx) InsertOrder(context.Context, order.Draft) (int64, error) { return 1, nil }
func (t *fakeTx) InsertLineItem(context.Context, int64, cart.LineItem) error {
	return nil
}
func (t *fakeTx) Commit(context.Context) error   { t.store.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error { return nil }

type mockOrders struct {
	byID map[int64]*order.Order
}

func (m *mockOrders) GetByID(_ context.Context, id int64) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

type mockAnalytics struct {
	summary *analytics.Summary
	err     error
}

func (m *mockAnalytics) Summary(_ context.Context, p analytics.Period) (*analytics.Summary, error) {
	return m.summary, m.err
}

type mockOperators struct {
	byHash map[string]*auth.Operator
	byID   map[string]*auth.Operator
}

func (m *mockOperators) FindByKeyHash(_ context.Context, hash string) (*auth.Operator, error) {
	op, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return op, nil
}

func (m *mockOperators) Create(_ context.Context, op auth.Operator) error {
	if _, ok := m.byID[op.ID]; ok {
		return auth.ErrDuplicate
	}
	m.byID[op.ID] = &op
	return nil
}

func (m *mockOperators) Update(_ context.Context, op auth.Operator) error {
	cur, ok := m.byID[op.ID]
	if !ok {
		return auth.ErrNotFound
	}
	if op.KeyHash == "" {
		op.KeyHash = cur.KeyHash
	}
	m.byID[op.ID] = &op
	return nil
}

func (m *mockOperators) List(context.Context) ([]auth.Operator, error) {
	out := make([]auth.Operator, 0, len(m.byID))
	for _, op := range m.byID {
		out = append(out, *op)
	}
	return out, nil
}

// --- Helpers ---

const (
	testPepper     = "test-pepper"
	cashierKey     = "cashier-key"
	adminKey       = "admin-key"
	testTaxRateStr = "0.15"
)

type fixture struct {
	mux       *http.ServeMux
	catalog   *mockCatalog
	operators *mockOperators
	store     *fakeStore
	sec       *Security
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat := &mockCatalog{byID: map[string]*catalog.Product{
		"bread-1": {
			ID:        "bread-1",
			Name:      "Sourdough",
			Category:  "Bread",
			UnitPrice: money.FromString("3.00"),
			UnitType:  catalog.UnitCount,
			Stock:     decimal.NewFromInt(10),
			Available: true,
		},
	}}
	cat.categories = map[string]bool{"Bread": true}
	store := &fakeStore{stock: map[string]decimal.Decimal{"bread-1": decimal.NewFromInt(10)}}

	ops := &mockOperators{byHash: map[string]*auth.Operator{}, byID: map[string]*auth.Operator{}}
	sec := NewSecurity(ops, []byte(testPepper))
	for key, op := range map[string]*auth.Operator{
		cashierKey: {ID: "op-1", Name: "Casey", Role: "cashier", Active: true},
		adminKey:   {ID: "op-2", Name: "Alex", Role: "admin", Active: true},
	} {
		op.KeyHash = sec.HashKey(key)
		ops.byHash[op.KeyHash] = op
		ops.byID[op.ID] = op
	}

	orders := &mockOrders{byID: map[int64]*order.Order{
		7: {
			ID:            7,
			Ref:           "ref-7",
			CreatedAt:     time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
			OperatorID:    "op-1",
			PaymentMethod: "cash",
			Items: []cart.LineItem{{
				ProductID: "bread-1",
				Name:      "Sourdough",
				UnitType:  catalog.UnitCount,
				Quantity:  decimal.NewFromInt(2),
				UnitPrice: money.FromString("3.00"),
			}},
			Subtotal: money.FromString("6.00"),
			Tax:      money.FromString("0.90"),
			Total:    money.FromString("6.90"),
		},
	}}

	h := NewHandler(
		Config{TaxRate: decimal.RequireFromString(testTaxRateStr)},
		cat, cat, ops,
		checkout.NewService(store),
		orders,
		&mockAnalytics{summary: &analytics.Summary{Period: analytics.PeriodToday}},
	)

	return &fixture{mux: h.Routes(sec), catalog: cat, operators: ops, store: store, sec: sec}
}

func (f *fixture) do(t *testing.T, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(apiKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestAuth_MissingOrUnknownKey(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/products", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/products", "bogus", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_AdminRoleRequired(t *testing.T) {
	f := newFixture(t)

	body := `{"id":"p9","name":"Bagel","category":"Bread","unitPrice":"2.00","unitType":"count","stock":"5","available":true}`
	rec := f.do(t, http.MethodPost, "/api/products", cashierKey, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/products", adminKey, body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.catalog.created, 1)
	assert.Equal(t, "Bagel", f.catalog.created[0].Name)
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/products", cashierKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var dtos []productDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, "3.00", dtos[0].UnitPrice)
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/products/missing", cashierKey, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/orders", cashierKey,
		`{"items":[{"productId":"bread-1","quantity":"2"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dto orderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, "6.00", dto.Subtotal)
	assert.Equal(t, "0.90", dto.Tax)
	assert.Equal(t, "6.90", dto.Total)
	assert.Equal(t, "op-1", dto.OperatorID)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, "6.00", dto.Items[0].LineTotal)

	assert.True(t, f.store.committed)
	assert.True(t, decimal.NewFromInt(8).Equal(f.store.stock["bread-1"]))
}

func TestPlaceOrder_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty items", `{"items":[]}`, http.StatusBadRequest},
		{"unknown product", `{"items":[{"productId":"ghost","quantity":"1"}]}`, http.StatusNotFound},
		{"invalid quantity", `{"items":[{"productId":"bread-1","quantity":"-1"}]}`, http.StatusUnprocessableEntity},
		{"fractional count", `{"items":[{"productId":"bread-1","quantity":"1.5"}]}`, http.StatusUnprocessableEntity},
		{"insufficient stock", `{"items":[{"productId":"bread-1","quantity":"11"}]}`, http.StatusConflict},
		{"malformed body", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/api/orders", cashierKey, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.False(t, f.store.committed)
		})
	}
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/orders/7", cashierKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var dto orderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, int64(7), dto.ID)
	assert.Equal(t, "6.90", dto.Total)

	rec = f.do(t, http.MethodGet, "/api/orders/999", cashierKey, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders/abc", cashierKey, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReceipt(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/orders/7/receipt", cashierKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "Order #: 7")
	assert.Contains(t, rec.Body.String(), "$6.90")
}

func TestAnalyticsSummary(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/analytics/summary?period=today", adminKey, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/analytics/summary?period=quarter", adminKey, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/analytics/summary", cashierKey, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	f := newFixture(t)
	f.catalog.err = catalog.ErrUnknownCategory

	body := `{"id":"p9","name":"Bagel","category":"Nope","unitPrice":"2.00","unitType":"count","stock":"5","available":true}`
	rec := f.do(t, http.MethodPost, "/api/products", adminKey, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "category does not exist")
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/products/bread-1", adminKey, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Products referenced by past orders survive delete attempts with a
	// conflict, not a server error.
	f.catalog.err = catalog.ErrProductInUse
	rec = f.do(t, http.MethodDelete, "/api/products/bread-1", adminKey, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "recorded sales")
}

func TestCategoryAdmin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/categories", cashierKey, `{"name":"Drinks"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/categories", adminKey, `{"name":"Drinks"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, f.catalog.categories["Drinks"])

	rec = f.do(t, http.MethodPost, "/api/categories", adminKey, `{"name":"Drinks"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/categories", adminKey, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/categories/Drinks", adminKey, `{"name":"Beverages"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.catalog.categories["Beverages"])
	assert.False(t, f.catalog.categories["Drinks"])

	rec = f.do(t, http.MethodPut, "/api/categories/Nope", adminKey, `{"name":"Still Nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOperatorAdmin_Create(t *testing.T) {
	f := newFixture(t)

	body := `{"id":"op-9","name":"Robin","role":"cashier","apiKey":"fresh-key"}`
	rec := f.do(t, http.MethodPost, "/api/operators", cashierKey, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/operators", adminKey, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := f.operators.byID["op-9"]
	require.NotNil(t, created)
	assert.Equal(t, f.sec.HashKey("fresh-key"), created.KeyHash)
	assert.True(t, created.Active)
	assert.NotContains(t, rec.Body.String(), created.KeyHash)

	// The new key authenticates immediately.
	f.operators.byHash[created.KeyHash] = created
	rec = f.do(t, http.MethodGet, "/api/products", "fresh-key", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/operators", adminKey, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/operators", adminKey,
		`{"id":"op-10","name":"Sam","role":"cashier"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/operators", adminKey,
		`{"id":"op-11","name":"Sam","role":"owner","apiKey":"k"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperatorAdmin_Update(t *testing.T) {
	f := newFixture(t)
	origHash := f.operators.byID["op-1"].KeyHash

	// Promote without touching the key.
	rec := f.do(t, http.MethodPut, "/api/operators/op-1", adminKey,
		`{"name":"Casey","role":"admin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := f.operators.byID["op-1"]
	assert.Equal(t, "admin", updated.Role)
	assert.Equal(t, origHash, updated.KeyHash)

	// Rotate the key.
	rec = f.do(t, http.MethodPut, "/api/operators/op-1", adminKey,
		`{"name":"Casey","role":"admin","apiKey":"rotated"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.sec.HashKey("rotated"), f.operators.byID["op-1"].KeyHash)

	rec = f.do(t, http.MethodPut, "/api/operators/ghost", adminKey,
		`{"name":"Ghost","role":"cashier"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
