package store

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
)

// Service implements store management with owner checks.
type Service struct {
	stores Repository
}

// NewService creates a store Service.
func NewService(stores Repository) *Service {
	return &Service{stores: stores}
}

// List returns one page of stores together with the total store count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Store, int, error) {
	var (
		page  []Store
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = s.stores.List(gctx, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.stores.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, errors.Wrap(err, "list stores")
	}
	return page, total, nil
}

// Get returns a store by id.
func (s *Service) Get(ctx context.Context, id string) (*Store, error) {
	return s.stores.GetByID(ctx, id)
}

// Create registers a new store owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID, name, description string) (*Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameMissing
	}
	st := &Store{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
	}
	if err := s.stores.Create(ctx, st); err != nil {
		return nil, errors.Wrap(err, "create store")
	}
	return st, nil
}

// Update changes name and description. Only the owner may update a store.
func (s *Service) Update(ctx context.Context, callerID, id, name, description string) (*Store, error) {
	st, err := s.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		st.Name = name
	}
	st.Description = description
	if err := s.stores.Update(ctx, st); err != nil {
		return nil, errors.Wrap(err, "update store")
	}
	return st, nil
}

// Delete removes a store. Only the owner may delete a store.
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	if _, err := s.owned(ctx, callerID, id); err != nil {
		return err
	}
	if err := s.stores.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete store")
	}
	return nil
}

func (s *Service) owned(ctx context.Context, callerID, id string) (*Store, error) {
	st, err := s.stores.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.OwnerID != callerID {
		return nil, ErrForbidden
	}
	return st, nil
}
