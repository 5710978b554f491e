package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yega-app/yega-api/internal/domain/product"
)

const (
	productColumns = `id, store_id, name, description, price, stock, created_at, updated_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	countProductsSQL  = `SELECT count(*) FROM products`
	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	// Rows are locked in id order so concurrent orders cannot deadlock.
	lockProductsInStoreSQL = `SELECT ` + productColumns + ` FROM products
		WHERE store_id = $1 AND id = ANY($2)
		ORDER BY id
		FOR UPDATE`

	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	createProductSQL = `INSERT INTO products (store_id, name, description, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5, updated_at = now()
		WHERE id = $1 RETURNING updated_at`
	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns one page of the catalog, newest first.
func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countProductsSQL).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	return n, nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %s", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL, p.StoreID, p.Name, p.Description, p.Price, p.Stock).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert product")
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, updateProductSQL, p.ID, p.Name, p.Description, p.Price, p.Stock).
		Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		return errors.Wrapf(err, "update product %s", p.ID)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete product %s", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.StoreID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
