package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog operations.
var (
	ErrNotFound      = errors.New("product not found")
	ErrForbidden     = errors.New("you do not own this product")
	ErrStoreNotOwned = errors.New("you do not own this store")
	ErrNameMissing   = errors.New("product name required")
	ErrNegativePrice = errors.New("price must not be negative")
	ErrNegativeStock = errors.New("stock must not be negative")
)

// Product represents a catalog item sold by one store.
type Product struct {
	ID          string
	StoreID     string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Product, error)
	Count(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

// StoreOwners resolves the owner of a store. ErrStoreNotFound-style errors
// from the implementation are passed through.
type StoreOwners interface {
	OwnerOf(ctx context.Context, storeID string) (string, error)
}
