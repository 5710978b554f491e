package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Input holds the mutable product fields. Nil fields are left unchanged on
// update.
type Input struct {
	StoreID     string
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
}

// Service implements catalog reads and owner-checked writes.
type Service struct {
	products Repository
	owners   StoreOwners
}

// NewService creates a catalog Service.
func NewService(products Repository, owners StoreOwners) *Service {
	return &Service{products: products, owners: owners}
}

// List returns one page of products with the total product count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Product, int, error) {
	var (
		page  []Product
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = s.products.List(gctx, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.products.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	return page, total, nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// Create adds a product to a store owned by callerID.
func (s *Service) Create(ctx context.Context, callerID string, in Input) (*Product, error) {
	if err := s.checkStoreOwner(ctx, callerID, in.StoreID); err != nil {
		return nil, err
	}

	p := &Product{StoreID: in.StoreID, Price: decimal.Zero}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, ErrNameMissing
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Update changes a product whose store is owned by callerID.
func (s *Service) Update(ctx context.Context, callerID, id string, in Input) (*Product, error) {
	p, err := s.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// Delete removes a product whose store is owned by callerID.
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	if _, err := s.owned(ctx, callerID, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete product")
	}
	return nil
}

func (s *Service) owned(ctx context.Context, callerID, id string) (*Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.owners.OwnerOf(ctx, p.StoreID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve store owner")
	}
	if owner != callerID {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *Service) checkStoreOwner(ctx context.Context, callerID, storeID string) error {
	owner, err := s.owners.OwnerOf(ctx, storeID)
	if err != nil {
		return err
	}
	if owner != callerID {
		return ErrStoreNotOwned
	}
	return nil
}

func apply(p *Product, in Input) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return ErrNameMissing
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return ErrNegativePrice
		}
		p.Price = in.Price.Round(2)
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return ErrNegativeStock
		}
		p.Stock = *in.Stock
	}
	return nil
}
