package store

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for store operations.
var (
	ErrNotFound    = errors.New("store not found")
	ErrForbidden   = errors.New("you are not authorized to modify this store")
	ErrNameMissing = errors.New("store name required")
	ErrInUse       = errors.New("store has orders and cannot be deleted")
)

// Store is a marketplace storefront owned by a single user.
type Store struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines persistence operations for stores.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Store, error)
	Count(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id string) (*Store, error)
	Create(ctx context.Context, s *Store) error
	Update(ctx context.Context, s *Store) error
	Delete(ctx context.Context, id string) error
}
