package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yega-app/yega-api/internal/domain/product"
	"github.com/yega-app/yega-api/internal/domain/store"
)

// Order is a purchase from a single store.
type Order struct {
	ID        string
	UserID    string
	StoreID   string
	Store     StoreSummary
	Total     decimal.Decimal
	Status    Status
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoreSummary is the store projection embedded in order responses.
type StoreSummary struct {
	ID   string
	Name string
}

// Item is a persisted order line. Price is the unit price captured when the
// order was created.
type Item struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// ItemRequest is a single requested line of a new order.
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// EventType names an order event published through the outbox.
type EventType string

// Order event types; also used as Kafka topic names.
const (
	EventCreated       EventType = "order.created"
	EventStatusChanged EventType = "order.status_changed"
)

// Event is an order change recorded in the same transaction as the change.
type Event struct {
	Type     EventType       `json:"type"`
	OrderID  string          `json:"order_id"`
	UserID   string          `json:"user_id"`
	StoreID  string          `json:"store_id"`
	Status   Status          `json:"status"`
	Previous Status          `json:"previous_status,omitempty"`
	Total    decimal.Decimal `json:"total"`
	At       time.Time       `json:"at"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	// InTx runs fn inside a single database transaction. The transaction is
	// committed only if fn returns nil and rolled back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// FindVisible returns the order if callerID owns it or owns its store.
	// It returns ErrNotFound in every other case.
	FindVisible(ctx context.Context, orderID, callerID string) (*Order, error)

	// GetByUser returns an order owned by userID or ErrNotFound.
	GetByUser(ctx context.Context, orderID, userID string) (*Order, error)

	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	CountByUser(ctx context.Context, userID string) (int, error)

	// UpdateStatus sets the status to `to` only while it is still `from` and
	// records ev atomically with the change. It returns ErrStatusChanged when
	// the stored status no longer equals from.
	UpdateStatus(ctx context.Context, orderID string, from, to Status, ev Event) (*Order, error)
}

// Tx is the set of operations available inside an order-creation
// transaction.
type Tx interface {
	// StoreByID returns store.ErrNotFound when the store does not exist.
	StoreByID(ctx context.Context, storeID string) (*store.Store, error)

	// ProductsInStore returns the products among ids that belong to storeID,
	// locking them for the rest of the transaction.
	ProductsInStore(ctx context.Context, storeID string, ids []string) ([]product.Product, error)

	// DecrementStock lowers stock by qty. It returns ErrStockConflict instead
	// of letting stock go negative.
	DecrementStock(ctx context.Context, productID string, qty int) error

	// Insert persists o and its items, filling in generated identifiers and
	// timestamps.
	Insert(ctx context.Context, o *Order) error

	AppendEvent(ctx context.Context, ev Event) error
}
