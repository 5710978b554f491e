package order

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/yega-app/yega-api/internal/domain/auth"
	"github.com/yega-app/yega-api/internal/domain/product"
	"github.com/yega-app/yega-api/internal/domain/store"
)

// Sentinel errors for order operations.
var (
	ErrEmptyItems    = errors.New("order must contain at least one item")
	ErrStoreRequired = errors.New("store id required")
	ErrNotFound      = errors.New("order not found")
	ErrForbidden     = errors.New("you do not have permission to update this order status")
	ErrStockConflict = errors.New("stock changed concurrently")
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// MaxQuantity is the largest quantity of one product a single order may hold.
// It matches the INTEGER columns storing stock and quantities.
const MaxQuantity = math.MaxInt32

// InvalidQuantityError indicates a line item with a missing product id or a
// quantity outside 1..MaxQuantity.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	if e.ProductID == "" {
		return "every item requires a product id"
	}
	return fmt.Sprintf("quantity must be between 1 and %d for product %s, got %d", MaxQuantity, e.ProductID, e.Quantity)
}

// StoreNotFoundError indicates the requested store does not exist.
type StoreNotFoundError struct {
	StoreID string
}

func (e *StoreNotFoundError) Error() string {
	return fmt.Sprintf("store with id %s not found", e.StoreID)
}

// InvalidProductsError lists requested products that do not exist or belong
// to another store.
type InvalidProductsError struct {
	ProductIDs []string
}

func (e *InvalidProductsError) Error() string {
	return "products not found or do not belong to the store: " + strings.Join(e.ProductIDs, ", ")
}

// InsufficientStockError indicates a product cannot cover the requested
// quantity.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

// InvalidStatusError indicates an unrecognized status value.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status: %q", e.Value)
}

// InvalidTransitionError indicates a status change not allowed from the
// current status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	if e.From.Terminal() {
		return fmt.Sprintf("cannot transition from %s to %s: %s is final", e.From, e.To, e.From)
	}
	next := make([]string, 0, 2)
	for _, st := range e.From.Next() {
		next = append(next, st.String())
	}
	return fmt.Sprintf("cannot transition from %s to %s, allowed: %s", e.From, e.To, strings.Join(next, ", "))
}

// Config holds order pricing settings.
type Config struct {
	// ShippingCost is added once to every order total.
	ShippingCost decimal.Decimal
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	UserID  string
	StoreID string
	Items   []ItemRequest
}

// UpdateStatusRequest holds the input for a status change.
type UpdateStatusRequest struct {
	Caller  auth.Identity
	OrderID string
	Status  Status
}

// Service encapsulates order creation and the order status state machine.
type Service struct {
	orders   Repository
	shipping decimal.Decimal
	now      func() time.Time
}

// NewService creates an order Service backed by orders.
func NewService(orders Repository, cfg Config) *Service {
	return &Service{
		orders:   orders,
		shipping: cfg.ShippingCost,
		now:      time.Now,
	}
}

// Create validates the request against current store and product state and,
// in one transaction, decrements stock and persists the order with its items.
// Either everything is committed or nothing is.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if req.StoreID == "" {
		return nil, ErrStoreRequired
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Distinct product ids in request order, with summed quantities.
	ids := make([]string, 0, len(req.Items))
	wanted := make(map[string]int, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity < 1 || item.Quantity > MaxQuantity {
			return nil, &InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		sum, seen := wanted[item.ProductID]
		if !seen {
			ids = append(ids, item.ProductID)
		}
		if item.Quantity > MaxQuantity-sum {
			return nil, &InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		wanted[item.ProductID] = sum + item.Quantity
	}

	var created *Order
	err := s.orders.InTx(ctx, func(tx Tx) error {
		st, err := tx.StoreByID(ctx, req.StoreID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &StoreNotFoundError{StoreID: req.StoreID}
			}
			return errors.Wrap(err, "get store")
		}

		fetched, err := tx.ProductsInStore(ctx, req.StoreID, ids)
		if err != nil {
			return errors.Wrap(err, "get products")
		}
		products := make(map[string]product.Product, len(fetched))
		for _, p := range fetched {
			products[p.ID] = p
		}

		var missing []string
		for _, id := range ids {
			if _, ok := products[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return &InvalidProductsError{ProductIDs: missing}
		}

		// Every product is checked before any stock is touched.
		for _, id := range ids {
			if p := products[id]; p.Stock < wanted[id] {
				return insufficient(p, wanted[id])
			}
		}

		subtotal := decimal.Zero
		items := make([]Item, len(req.Items))
		for i, item := range req.Items {
			p := products[item.ProductID]
			items[i] = Item{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    item.Quantity,
				Price:       p.Price,
			}
			subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		for _, id := range ids {
			if err := tx.DecrementStock(ctx, id, wanted[id]); err != nil {
				if errors.Is(err, ErrStockConflict) {
					return insufficient(products[id], wanted[id])
				}
				return errors.Wrapf(err, "decrement stock of %s", id)
			}
		}

		o := &Order{
			UserID:  req.UserID,
			StoreID: st.ID,
			Store:   StoreSummary{ID: st.ID, Name: st.Name},
			Total:   subtotal.Add(s.shipping).Round(2),
			Status:  StatusPending,
			Items:   items,
		}
		if err := tx.Insert(ctx, o); err != nil {
			return errors.Wrap(err, "insert order")
		}
		if err := tx.AppendEvent(ctx, s.event(EventCreated, o, "")); err != nil {
			return errors.Wrap(err, "append event")
		}

		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateStatus applies a status transition on behalf of the caller.
//
// The order must be visible to the caller (owner or store owner), the caller
// must own the order or hold the store, courier or admin role, and the
// transition must be allowed from the current status.
func (s *Service) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Order, error) {
	o, err := s.orders.FindVisible(ctx, req.OrderID, req.Caller.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find order")
	}

	staff := req.Caller.Role.In(auth.RoleStore, auth.RoleCourier, auth.RoleAdmin)
	if !staff && o.UserID != req.Caller.UserID {
		return nil, ErrForbidden
	}

	if !req.Status.Valid() {
		return nil, &InvalidStatusError{Value: string(req.Status)}
	}
	if o.Status.Terminal() || !o.Status.CanTransition(req.Status) {
		return nil, &InvalidTransitionError{From: o.Status, To: req.Status}
	}

	next := *o
	next.Status = req.Status
	updated, err := s.orders.UpdateStatus(ctx, o.ID, o.Status, req.Status, s.event(EventStatusChanged, &next, o.Status))
	if err != nil {
		switch {
		case errors.Is(err, ErrStatusChanged):
			return nil, &InvalidTransitionError{From: o.Status, To: req.Status}
		case errors.Is(err, ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update status")
	}

	return updated, nil
}

// Get returns an order owned by userID.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	return s.orders.GetByUser(ctx, orderID, userID)
}

// List returns one page of the user's orders, newest first, and the total
// number of orders the user has.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Order, int, error) {
	var (
		page  []Order
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = s.orders.ListByUser(gctx, userID, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.orders.CountByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}
	return page, total, nil
}

func (s *Service) event(typ EventType, o *Order, previous Status) Event {
	return Event{
		Type:     typ,
		OrderID:  o.ID,
		UserID:   o.UserID,
		StoreID:  o.StoreID,
		Status:   o.Status,
		Previous: previous,
		Total:    o.Total,
		At:       s.now().UTC(),
	}
}

func insufficient(p product.Product, requested int) *InsufficientStockError {
	return &InsufficientStockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		Available:   p.Stock,
		Requested:   requested,
	}
}
