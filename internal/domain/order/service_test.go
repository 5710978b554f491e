package order

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yega-app/yega-api/internal/domain/auth"
	"github.com/yega-app/yega-api/internal/domain/product"
	"github.com/yega-app/yega-api/internal/domain/store"
)

// memRepo is an in-memory Repository. InTx serializes transactions and works
// on a staged copy of products and orders that is committed only when fn
// returns nil.
type memRepo struct {
	mu       sync.Mutex
	stores   map[string]store.Store
	products map[string]product.Product
	orders   map[string]Order
	events   []Event
	seq      int

	// updateErr, when set, is returned by UpdateStatus.
	updateErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		stores:   make(map[string]store.Store),
		products: make(map[string]product.Product),
		orders:   make(map[string]Order),
	}
}

func (m *memRepo) addStore(id, owner string) {
	m.stores[id] = store.Store{ID: id, Name: "Store " + id, OwnerID: owner}
}

func (m *memRepo) addProduct(id, storeID, price string, stock int) {
	m.products[id] = product.Product{
		ID:      id,
		StoreID: storeID,
		Name:    "Product " + id,
		Price:   decimal.RequireFromString(price),
		Stock:   stock,
	}
}

func (m *memRepo) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

type memTx struct {
	repo     *memRepo
	products map[string]product.Product
	orders   map[string]Order
	events   []Event
}

func (m *memRepo) InTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		repo:     m,
		products: maps.Clone(m.products),
		orders:   maps.Clone(m.orders),
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.products = tx.products
	m.orders = tx.orders
	m.events = append(m.events, tx.events...)
	return nil
}

func (t *memTx) StoreByID(_ context.Context, id string) (*store.Store, error) {
	s, ok := t.repo.stores[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (t *memTx) ProductsInStore(_ context.Context, storeID string, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := t.products[id]; ok && p.StoreID == storeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *memTx) DecrementStock(_ context.Context, id string, qty int) error {
	p := t.products[id]
	if p.Stock < qty {
		return ErrStockConflict
	}
	p.Stock -= qty
	t.products[id] = p
	return nil
}

func (t *memTx) Insert(_ context.Context, o *Order) error {
	t.repo.seq++
	o.ID = fmt.Sprintf("o%d", t.repo.seq)
	for i := range o.Items {
		o.Items[i].ID = fmt.Sprintf("%s-i%d", o.ID, i)
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	t.orders[o.ID] = *o
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, ev Event) error {
	t.events = append(t.events, ev)
	return nil
}

func (m *memRepo) FindVisible(_ context.Context, orderID, callerID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || (o.UserID != callerID && m.stores[o.StoreID].OwnerID != callerID) {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *memRepo) GetByUser(_ context.Context, orderID, userID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *memRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for i := m.seq; i > 0; i-- {
		if o, ok := m.orders[fmt.Sprintf("o%d", i)]; ok && o.UserID == userID {
			out = append(out, o)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) CountByUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, orderID string, from, to Status, ev Event) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status != from {
		return nil, ErrStatusChanged
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	m.orders[orderID] = o
	m.events = append(m.events, ev)
	return &o, nil
}

var shipping = decimal.RequireFromString("5.00")

func newTestService(repo *memRepo) *Service {
	svc := NewService(repo, Config{ShippingCost: shipping})
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func seededRepo() *memRepo {
	repo := newMemRepo()
	repo.addStore("s1", "merchant")
	repo.addStore("s2", "other-merchant")
	repo.addProduct("p1", "s1", "10.00", 5)
	repo.addProduct("p2", "s1", "2.50", 10)
	repo.addProduct("p3", "s1", "7.00", 1)
	repo.addProduct("x1", "s2", "3.00", 10)
	return repo
}

func TestCreate(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)

	o, err := svc.Create(context.Background(), CreateRequest{
		UserID:  "u1",
		StoreID: "s1",
		Items:   []ItemRequest{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, StoreSummary{ID: "s1", Name: "Store s1"}, o.Store)
	assert.True(t, decimal.RequireFromString("25.00").Equal(o.Total), "total %s", o.Total)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Product p1", o.Items[0].ProductName)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Items[0].Price))
	assert.Equal(t, 3, repo.stock("p1"))

	require.Len(t, repo.events, 1)
	assert.Equal(t, EventCreated, repo.events[0].Type)
	assert.Equal(t, o.ID, repo.events[0].OrderID)
}

func TestCreate_MultipleItemsPricing(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)

	o, err := svc.Create(context.Background(), CreateRequest{
		UserID:  "u1",
		StoreID: "s1",
		Items: []ItemRequest{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 3},
		},
	})
	require.NoError(t, err)

	// 10.00 + 3*2.50 + 5.00
	assert.True(t, decimal.RequireFromString("22.50").Equal(o.Total), "total %s", o.Total)
	assert.Equal(t, 4, repo.stock("p1"))
	assert.Equal(t, 7, repo.stock("p2"))
}

func TestCreate_DuplicateItemsAreSummed(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:  "u1",
		StoreID: "s1",
		Items: []ItemRequest{
			{ProductID: "p1", Quantity: 3},
			{ProductID: "p1", Quantity: 3},
		},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, repo.stock("p1"))

	o, err := svc.Create(context.Background(), CreateRequest{
		UserID:  "u1",
		StoreID: "s1",
		Items: []ItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p1", Quantity: 3},
		},
	})
	require.NoError(t, err)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, 0, repo.stock("p1"))
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   CreateRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "no items",
			req:  CreateRequest{UserID: "u1", StoreID: "s1"},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrEmptyItems)
			},
		},
		{
			name: "no store",
			req:  CreateRequest{UserID: "u1", Items: []ItemRequest{{ProductID: "p1", Quantity: 1}}},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrStoreRequired)
			},
		},
		{
			name: "zero quantity",
			req:  CreateRequest{UserID: "u1", StoreID: "s1", Items: []ItemRequest{{ProductID: "p1", Quantity: 0}}},
			check: func(t *testing.T, err error) {
				var qErr *InvalidQuantityError
				require.ErrorAs(t, err, &qErr)
				assert.Equal(t, "p1", qErr.ProductID)
			},
		},
		{
			name: "quantity beyond stock column range",
			req:  CreateRequest{UserID: "u1", StoreID: "s1", Items: []ItemRequest{{ProductID: "p1", Quantity: math.MaxInt}}},
			check: func(t *testing.T, err error) {
				var qErr *InvalidQuantityError
				require.ErrorAs(t, err, &qErr)
				assert.Equal(t, math.MaxInt, qErr.Quantity)
			},
		},
		{
			name: "repeated huge lines do not wrap around",
			req: CreateRequest{UserID: "u1", StoreID: "s1", Items: []ItemRequest{
				{ProductID: "p1", Quantity: math.MaxInt},
				{ProductID: "p1", Quantity: math.MaxInt},
			}},
			check: func(t *testing.T, err error) {
				var qErr *InvalidQuantityError
				require.ErrorAs(t, err, &qErr)
			},
		},
		{
			name: "summed quantity above limit",
			req: CreateRequest{UserID: "u1", StoreID: "s1", Items: []ItemRequest{
				{ProductID: "p1", Quantity: MaxQuantity},
				{ProductID: "p2", Quantity: 1},
				{ProductID: "p1", Quantity: 1},
			}},
			check: func(t *testing.T, err error) {
				var qErr *InvalidQuantityError
				require.ErrorAs(t, err, &qErr)
				assert.Equal(t, "p1", qErr.ProductID)
			},
		},
		{
			name: "missing product id",
			req:  CreateRequest{UserID: "u1", StoreID: "s1", Items: []ItemRequest{{Quantity: 1}}},
			check: func(t *testing.T, err error) {
				var qErr *InvalidQuantityError
				require.ErrorAs(t, err, &qErr)
			},
		},
		{
			name: "unknown store",
			req:  CreateRequest{UserID: "u1", StoreID: "nope", Items: []ItemRequest{{ProductID: "p1", Quantity: 1}}},
			check: func(t *testing.T, err error) {
				var sErr *StoreNotFoundError
				require.ErrorAs(t, err, &sErr)
				assert.Equal(t, "nope", sErr.StoreID)
			},
		},
		{
			name: "product from another store",
			req: CreateRequest{UserID: "u1", StoreID: "s1", Items: []ItemRequest{
				{ProductID: "p1", Quantity: 1},
				{ProductID: "x1", Quantity: 1},
				{ProductID: "ghost", Quantity: 1},
			}},
			check: func(t *testing.T, err error) {
				var pErr *InvalidProductsError
				require.ErrorAs(t, err, &pErr)
				assert.Equal(t, []string{"x1", "ghost"}, pErr.ProductIDs)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := seededRepo()
			svc := newTestService(repo)

			_, err := svc.Create(context.Background(), tt.req)
			tt.check(t, err)

			assert.Equal(t, 5, repo.stock("p1"))
			assert.Equal(t, 10, repo.stock("x1"))
			assert.Empty(t, repo.orders)
			assert.Empty(t, repo.events)
		})
	}
}

func TestCreate_InsufficientStock(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:  "u1",
		StoreID: "s1",
		Items:   []ItemRequest{{ProductID: "p3", Quantity: 2}},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p3", stockErr.ProductID)
	assert.Equal(t, "Product p3", stockErr.ProductName)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, repo.stock("p3"))
}

func TestCreate_AllOrNothing(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)

	// p1 and p2 have enough stock, p3 does not.
	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:  "u1",
		StoreID: "s1",
		Items: []ItemRequest{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 1},
			{ProductID: "p3", Quantity: 5},
		},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	assert.Equal(t, 5, repo.stock("p1"))
	assert.Equal(t, 10, repo.stock("p2"))
	assert.Equal(t, 1, repo.stock("p3"))
	assert.Empty(t, repo.orders)
}

func TestCreate_ConcurrentOrdersNeverOversell(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)

	const buyers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), CreateRequest{
				UserID:  fmt.Sprintf("u%d", i),
				StoreID: "s1",
				Items:   []ItemRequest{{ProductID: "p1", Quantity: 1}},
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			var stockErr *InsufficientStockError
			assert.ErrorAs(t, err, &stockErr)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, success)
	assert.Equal(t, 0, repo.stock("p1"))
}

type stockConflictRepo struct {
	*memRepo
}

func (r stockConflictRepo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return r.memRepo.InTx(ctx, func(tx Tx) error {
		return fn(conflictTx{tx})
	})
}

type conflictTx struct{ Tx }

func (conflictTx) DecrementStock(context.Context, string, int) error { return ErrStockConflict }

func TestCreate_StockConflictMapsToInsufficientStock(t *testing.T) {
	repo := seededRepo()
	svc := NewService(stockConflictRepo{repo}, Config{ShippingCost: shipping})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:  "u1",
		StoreID: "s1",
		Items:   []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, repo.stock("p1"))
}

func createOrder(t *testing.T, svc *Service, userID string) *Order {
	t.Helper()
	o, err := svc.Create(context.Background(), CreateRequest{
		UserID:  userID,
		StoreID: "s1",
		Items:   []ItemRequest{{ProductID: "p2", Quantity: 1}},
	})
	require.NoError(t, err)
	return o
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)
	o := createOrder(t, svc, "u1")

	merchant := auth.Identity{UserID: "merchant", Role: auth.RoleStore}
	for _, next := range []Status{StatusAccepted, StatusOnTheWay, StatusDelivered} {
		updated, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
			Caller:  merchant,
			OrderID: o.ID,
			Status:  next,
		})
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	last := repo.events[len(repo.events)-1]
	assert.Equal(t, EventStatusChanged, last.Type)
	assert.Equal(t, StatusDelivered, last.Status)
	assert.Equal(t, StatusOnTheWay, last.Previous)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		Caller:  merchant,
		OrderID: o.ID,
		Status:  StatusCanceled,
	})
	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StatusDelivered, trErr.From)
}

func TestUpdateStatus_Rules(t *testing.T) {
	tests := []struct {
		name    string
		caller  auth.Identity
		start   []Status
		target  Status
		check   func(t *testing.T, err error)
		wantNow Status
	}{
		{
			name:    "owner cancels pending order",
			caller:  auth.Identity{UserID: "u1", Role: auth.RoleClient},
			target:  StatusCanceled,
			wantNow: StatusCanceled,
		},
		{
			name:    "owner accepts own order",
			caller:  auth.Identity{UserID: "u1", Role: auth.RoleClient},
			target:  StatusAccepted,
			wantNow: StatusAccepted,
		},
		{
			name:    "courier holding the store accepts",
			caller:  auth.Identity{UserID: "merchant", Role: auth.RoleCourier},
			target:  StatusAccepted,
			wantNow: StatusAccepted,
		},
		{
			name:    "admin holding the store cancels",
			caller:  auth.Identity{UserID: "merchant", Role: auth.RoleAdmin},
			target:  StatusCanceled,
			wantNow: StatusCanceled,
		},
		{
			name:    "courier moves accepted order on the way",
			caller:  auth.Identity{UserID: "merchant", Role: auth.RoleCourier},
			start:   []Status{StatusAccepted},
			target:  StatusOnTheWay,
			wantNow: StatusOnTheWay,
		},
		{
			name:   "delivered order is final",
			caller: auth.Identity{UserID: "merchant", Role: auth.RoleAdmin},
			start:  []Status{StatusAccepted, StatusOnTheWay, StatusDelivered},
			target: StatusCanceled,
			check: func(t *testing.T, err error) {
				var trErr *InvalidTransitionError
				require.ErrorAs(t, err, &trErr)
				assert.Equal(t, StatusDelivered, trErr.From)
				assert.Contains(t, trErr.Error(), "DELIVERED is final")
			},
			wantNow: StatusDelivered,
		},
		{
			name:   "accepted cannot go back to pending",
			caller: auth.Identity{UserID: "merchant", Role: auth.RoleStore},
			start:  []Status{StatusAccepted},
			target: StatusPending,
			check: func(t *testing.T, err error) {
				var trErr *InvalidTransitionError
				require.ErrorAs(t, err, &trErr)
				assert.Equal(t, StatusAccepted, trErr.From)
				assert.Equal(t, StatusPending, trErr.To)
				assert.Contains(t, trErr.Error(), "allowed: ON_THE_WAY, CANCELED")
			},
			wantNow: StatusAccepted,
		},
		{
			name:   "pending cannot skip to delivered",
			caller: auth.Identity{UserID: "merchant", Role: auth.RoleStore},
			target: StatusDelivered,
			check: func(t *testing.T, err error) {
				var trErr *InvalidTransitionError
				require.ErrorAs(t, err, &trErr)
			},
			wantNow: StatusPending,
		},
		{
			name:   "unknown status",
			caller: auth.Identity{UserID: "merchant", Role: auth.RoleStore},
			target: Status("SHIPPED"),
			check: func(t *testing.T, err error) {
				var stErr *InvalidStatusError
				require.ErrorAs(t, err, &stErr)
				assert.Equal(t, "SHIPPED", stErr.Value)
			},
			wantNow: StatusPending,
		},
		{
			name:   "stranger gets not found",
			caller: auth.Identity{UserID: "stranger", Role: auth.RoleAdmin},
			target: StatusAccepted,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrNotFound)
			},
			wantNow: StatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := seededRepo()
			svc := newTestService(repo)
			o := createOrder(t, svc, "u1")
			for _, s := range tt.start {
				_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
					Caller:  auth.Identity{UserID: "merchant", Role: auth.RoleStore},
					OrderID: o.ID,
					Status:  s,
				})
				require.NoError(t, err)
			}

			_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
				Caller:  tt.caller,
				OrderID: o.ID,
				Status:  tt.target,
			})
			if tt.check == nil {
				require.NoError(t, err)
			} else {
				tt.check(t, err)
			}
			assert.Equal(t, tt.wantNow, repo.orders[o.ID].Status)
		})
	}
}

func TestUpdateStatus_StoreOwnerWithClientRoleForbidden(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)
	o := createOrder(t, svc, "u1")

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		Caller:  auth.Identity{UserID: "merchant", Role: auth.RoleClient},
		OrderID: o.ID,
		Status:  StatusAccepted,
	})
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, StatusPending, repo.orders[o.ID].Status)
}

func TestUpdateStatus_ConcurrentChange(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)
	o := createOrder(t, svc, "u1")
	repo.updateErr = ErrStatusChanged

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		Caller:  auth.Identity{UserID: "merchant", Role: auth.RoleStore},
		OrderID: o.ID,
		Status:  StatusAccepted,
	})
	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
}

func TestUpdateStatus_RepoError(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)
	o := createOrder(t, svc, "u1")
	repo.updateErr = errors.New("connection reset")

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		Caller:  auth.Identity{UserID: "merchant", Role: auth.RoleStore},
		OrderID: o.ID,
		Status:  StatusAccepted,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGetAndList(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)
	first := createOrder(t, svc, "u1")
	second := createOrder(t, svc, "u1")
	createOrder(t, svc, "u2")

	got, err := svc.Get(context.Background(), "u1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = svc.Get(context.Background(), "u2", first.ID)
	require.ErrorIs(t, err, ErrNotFound)

	page, total, err := svc.List(context.Background(), "u1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)
}
