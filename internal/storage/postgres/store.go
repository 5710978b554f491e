package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yega-app/yega-api/internal/domain/product"
	"github.com/yega-app/yega-api/internal/domain/store"
)

const (
	storeColumns = `id, name, description, owner_id, created_at, updated_at`

	listStoresSQL = `SELECT ` + storeColumns + ` FROM stores
		ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	countStoresSQL  = `SELECT count(*) FROM stores`
	getStoreByIDSQL = `SELECT ` + storeColumns + ` FROM stores WHERE id = $1`
	storeOwnerSQL   = `SELECT owner_id FROM stores WHERE id = $1`

	createStoreSQL = `INSERT INTO stores (name, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	updateStoreSQL = `UPDATE stores SET name = $2, description = $3, updated_at = now()
		WHERE id = $1 RETURNING updated_at`
	deleteStoreSQL = `DELETE FROM stores WHERE id = $1`
)

var (
	_ store.Repository    = (*StoreRepository)(nil)
	_ product.StoreOwners = (*StoreRepository)(nil)
)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a StoreRepository that uses the given pool.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

func (r *StoreRepository) List(ctx context.Context, limit, offset int) ([]store.Store, error) {
	rows, err := r.pool.Query(ctx, listStoresSQL, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list stores")
	}
	return pgx.CollectRows(rows, scanStore)
}

func (r *StoreRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countStoresSQL).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count stores")
	}
	return n, nil
}

func (r *StoreRepository) GetByID(ctx context.Context, id string) (*store.Store, error) {
	return getStore(ctx, r.pool, id)
}

// OwnerOf returns the owner of a store or store.ErrNotFound.
func (r *StoreRepository) OwnerOf(ctx context.Context, storeID string) (string, error) {
	var owner string
	if err := r.pool.QueryRow(ctx, storeOwnerSQL, storeID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", errors.Wrapf(err, "get owner of %s", storeID)
	}
	return owner, nil
}

func (r *StoreRepository) Create(ctx context.Context, s *store.Store) error {
	err := r.pool.QueryRow(ctx, createStoreSQL, s.Name, s.Description, s.OwnerID).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert store")
	}
	return nil
}

func (r *StoreRepository) Update(ctx context.Context, s *store.Store) error {
	err := r.pool.QueryRow(ctx, updateStoreSQL, s.ID, s.Name, s.Description).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		return errors.Wrapf(err, "update store %s", s.ID)
	}
	return nil
}

func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteStoreSQL, id)
	if err != nil {
		if hasCode(err, codeForeignKeyViolation) {
			return store.ErrInUse
		}
		return errors.Wrapf(err, "delete store %s", id)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func getStore(ctx context.Context, q querier, id string) (*store.Store, error) {
	rows, err := q.Query(ctx, getStoreByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get store %s", id)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanStore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get store %s", id)
	}
	return &s, nil
}

func scanStore(row pgx.CollectableRow) (store.Store, error) {
	var s store.Store
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.OwnerID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
