package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/bakehouse/pos/internal/domain/cart"
	"github.com/bakehouse/pos/internal/domain/catalog"
	"github.com/bakehouse/pos/internal/domain/money"
	"github.com/bakehouse/pos/internal/domain/order"
	"github.com/bakehouse/pos/internal/domain/pricing"
)

var taxRate = decimal.RequireFromString("0.15")

// --- In-memory store with real transaction semantics ---
//
// Begin acquires the store mutex and holds it until Commit or Rollback,
// serializing transactions the way row locks do in the real store. Writes
// stage into the tx and only apply on Commit.

type memStore struct {
	mu     sync.Mutex
	stock  map[string]decimal.Decimal
	nextID int64
	orders map[int64]order.Draft
	lines  map[int64][]cart.LineItem

	begins int
	failOp string // when non-empty, the named tx operation fails
}

func newMemStore(stock map[string]decimal.Decimal) *memStore {
	return &memStore{
		stock:  stock,
		orders: make(map[int64]order.Draft),
		lines:  make(map[int64][]cart.LineItem),
	}
}

func (s *memStore) Begin(context.Context) (Tx, error) {
	if s.failOp == "begin" {
		return nil, errors.New("connection refused")
	}
	s.mu.Lock()
	s.begins++
	return &memTx{
		store:      s,
		stockDelta: make(map[string]decimal.Decimal),
		lines:      make(map[int64][]cart.LineItem),
	}, nil
}

type memTx struct {
	store      *memStore
	done       bool
	stockDelta map[string]decimal.Decimal
	orders     []order.Draft
	orderIDs   []int64
	lines      map[int64][]cart.LineItem
}

func (t *memTx) StockOnHand(_ context.Context, productID string) (decimal.Decimal, error) {
	if t.store.failOp == "stock" {
		return decimal.Zero, errors.New("read timeout")
	}
	stock, ok := t.store.stock[productID]
	if !ok {
		return decimal.Zero, catalog.ErrNotFound
	}
	return stock.Sub(t.stockDelta[productID]), nil
}

func (t *memTx) DecrementStock(_ context.Context, productID string, qty decimal.Decimal) error {
	if t.store.failOp == "decrement" {
		return errors.New("check constraint violated")
	}
	t.stockDelta[productID] = t.stockDelta[productID].Add(qty)
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, draft order.Draft) (int64, error) {
	if t.store.failOp == "insertOrder" {
		return 0, errors.New("disk full")
	}
	t.store.nextID++
	id := t.store.nextID
	t.orders = append(t.orders, draft)
	t.orderIDs = append(t.orderIDs, id)
	return id, nil
}

func (t *memTx) InsertLineItem(_ context.Context, orderID int64, item cart.LineItem) error {
	if t.store.failOp == "insertLine" {
		return errors.New("foreign key violation")
	}
	t.lines[orderID] = append(t.lines[orderID], item)
	return nil
}

func (t *memTx) Commit(context.Context) error {
	if t.store.failOp == "commit" {
		// Connection lost at commit: nothing applied.
		t.done = true
		t.store.mu.Unlock()
		return errors.New("connection lost")
	}
	for id, qty := range t.stockDelta {
		t.store.stock[id] = t.store.stock[id].Sub(qty)
	}
	for i, draft := range t.orders {
		t.store.orders[t.orderIDs[i]] = draft
	}
	for id, items := range t.lines {
		t.store.lines[id] = items
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

// --- Helpers ---

func testProduct(id string, price string, stock int64) *catalog.Product {
	return &catalog.Product{
		ID:        id,
		Name:      id,
		Category:  "Bread",
		UnitPrice: money.FromString(price),
		UnitType:  catalog.UnitCount,
		Stock:     decimal.NewFromInt(stock),
		Available: true,
	}
}

func cartWith(t *testing.T, p *catalog.Product, qty int64) *cart.Cart {
	t.Helper()
	c := cart.New()
	require.NoError(t, c.AddItem(p, decimal.NewFromInt(qty)))
	return c
}

// --- Tests ---

func TestCheckout_EmptyCart(t *testing.T) {
	store := newMemStore(map[string]decimal.Decimal{})
	svc := NewService(store)

	_, err := svc.Checkout(context.Background(), cart.New(), "op-1", taxRate)
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, store.begins, "no transaction may be opened for an empty cart")
}

func TestCheckout_RoundTrip(t *testing.T) {
	store := newMemStore(map[string]decimal.Decimal{"bread-1": decimal.NewFromInt(10)})
	svc := NewService(store)

	c := cartWith(t, testProduct("bread-1", "3.00", 10), 2)
	want := pricing.ComputeTotals(c.LineItems(), taxRate)

	o, err := svc.Checkout(context.Background(), c, "op-1", taxRate)
	require.NoError(t, err)

	assert.Equal(t, "$6.00", o.Subtotal.Format())
	assert.Equal(t, "$0.90", o.Tax.Format())
	assert.Equal(t, "$6.90", o.Total.Format())
	assert.True(t, want.Total.Equal(o.Total))
	assert.Equal(t, "op-1", o.OperatorID)
	assert.Equal(t, "cash", o.PaymentMethod)
	assert.NotEmpty(t, o.Ref)
	assert.False(t, o.CreatedAt.IsZero())

	// Stored lines equal the cart's lines exactly.
	stored := store.lines[o.ID]
	require.Len(t, stored, 1)
	assert.Equal(t, "bread-1", stored[0].ProductID)
	assert.True(t, decimal.NewFromInt(2).Equal(stored[0].Quantity))
	assert.True(t, money.FromString("3.00").Equal(stored[0].UnitPrice))

	// Stock decremented by the committed quantity.
	assert.True(t, decimal.NewFromInt(8).Equal(store.stock["bread-1"]))
}

func TestCheckout_InsufficientStock(t *testing.T) {
	store := newMemStore(map[string]decimal.Decimal{"bread-1": decimal.NewFromInt(1)})
	svc := NewService(store)

	_, err := svc.Checkout(context.Background(), cartWith(t, testProduct("bread-1", "3.00", 1), 2), "op-1", taxRate)

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, "bread-1", isErr.ProductID)
	assert.True(t, decimal.NewFromInt(2).Equal(isErr.Requested))
	assert.True(t, decimal.NewFromInt(1).Equal(isErr.Available))

	// Nothing written, stock untouched.
	assert.Empty(t, store.orders)
	assert.True(t, decimal.NewFromInt(1).Equal(store.stock["bread-1"]))
}

func TestCheckout_SecondAttemptRejectedAfterStockDrained(t *testing.T) {
	store := newMemStore(map[string]decimal.Decimal{"bread-1": decimal.NewFromInt(3)})
	svc := NewService(store)

	p := testProduct("bread-1", "3.00", 3)
	c := cartWith(t, p, 2)

	first, err := svc.Checkout(context.Background(), c, "op-1", taxRate)
	require.NoError(t, err)

	// The still-open cart is submitted again; only 1 remains in stock.
	_, err = svc.Checkout(context.Background(), c, "op-1", taxRate)
	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)

	// The first commit is untouched.
	assert.Len(t, store.orders, 1)
	assert.Len(t, store.lines[first.ID], 1)
	assert.True(t, decimal.NewFromInt(1).Equal(store.stock["bread-1"]))
}

func TestCheckout_ConcurrentOverSharedStock(t *testing.T) {
	store := newMemStore(map[string]decimal.Decimal{"bread-1": decimal.NewFromInt(3)})
	svc := NewService(store)

	run := func() error {
		c := cartWith(t, testProduct("bread-1", "3.00", 3), 2)
		_, err := svc.Checkout(context.Background(), c, "op-1", taxRate)
		return err
	}

	var g errgroup.Group
	results := make([]error, 2)
	for i := range results {
		g.Go(func() error {
			results[i] = run()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var ok, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		default:
			var isErr *InsufficientStockError
			require.ErrorAs(t, err, &isErr)
			rejected++
		}
	}
	assert.Equal(t, 1, ok, "exactly one checkout must succeed")
	assert.Equal(t, 1, rejected, "exactly one checkout must be rejected")
	assert.True(t, decimal.NewFromInt(1).Equal(store.stock["bread-1"]), "stock never goes negative")
}

func TestCheckout_PersistenceFailures(t *testing.T) {
	ops := []string{"begin", "stock", "insertOrder", "insertLine", "decrement", "commit"}
	for _, op := range ops {
		t.Run(op, func(t *testing.T) {
			store := newMemStore(map[string]decimal.Decimal{"bread-1": decimal.NewFromInt(10)})
			store.failOp = op
			svc := NewService(store)

			c := cartWith(t, testProduct("bread-1", "3.00", 10), 2)
			_, err := svc.Checkout(context.Background(), c, "op-1", taxRate)

			var pErr *PersistenceError
			require.ErrorAs(t, err, &pErr)

			// Rolled back in full: no orders, stock unchanged.
			assert.Empty(t, store.orders)
			assert.True(t, decimal.NewFromInt(10).Equal(store.stock["bread-1"]))

			// The cart survives for the operator to retry.
			assert.Equal(t, 1, c.Len())
		})
	}
}

func TestCheckout_MissingProductSurfacesNotFound(t *testing.T) {
	store := newMemStore(map[string]decimal.Decimal{})
	svc := NewService(store)

	// Product was deleted between cart assembly and checkout.
	c := cartWith(t, testProduct("ghost", "3.00", 5), 1)
	_, err := svc.Checkout(context.Background(), c, "op-1", taxRate)

	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}
