package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yega-app/yega-api/internal/domain/order"
	"github.com/yega-app/yega-api/internal/domain/product"
	"github.com/yega-app/yega-api/internal/domain/store"
)

const (
	orderColumns = `o.id, o.user_id, o.store_id, s.name, o.total, o.status, o.created_at, o.updated_at`
	orderFrom    = ` FROM orders o JOIN stores s ON s.id = o.store_id`

	findVisibleOrderSQL = `SELECT ` + orderColumns + orderFrom + `
		WHERE o.id = $1 AND (o.user_id = $2 OR s.owner_id = $2)`
	getUserOrderSQL = `SELECT ` + orderColumns + orderFrom + `
		WHERE o.id = $1 AND o.user_id = $2`
	getOrderSQL       = `SELECT ` + orderColumns + orderFrom + ` WHERE o.id = $1`
	listUserOrdersSQL = `SELECT ` + orderColumns + orderFrom + `
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $2 OFFSET $3`
	countUserOrdersSQL = `SELECT count(*) FROM orders WHERE user_id = $1`

	listOrderItemsSQL = `SELECT order_id, id, COALESCE(product_id, ''), product_name, quantity, price
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, position`

	insertOrderSQL = `INSERT INTO orders (user_id, store_id, total, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, product_name, quantity, price, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`
	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	insertOutboxSQL = `INSERT INTO outbox (event_id, topic, key, payload) VALUES ($1, $2, $3, $4)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// InTx runs fn in a READ COMMITTED transaction. Products read through the
// transaction are row-locked until it ends.
func (r *OrderRepository) InTx(ctx context.Context, fn func(tx order.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&orderTx{tx: tx})
	})
}

func (r *OrderRepository) FindVisible(ctx context.Context, orderID, callerID string) (*order.Order, error) {
	return getOrder(ctx, r.pool, findVisibleOrderSQL, orderID, callerID)
}

func (r *OrderRepository) GetByUser(ctx context.Context, orderID, userID string) (*order.Order, error) {
	return getOrder(ctx, r.pool, getUserOrderSQL, orderID, userID)
}

// ListByUser returns one page of the user's orders, newest first, with items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listUserOrdersSQL, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if err := loadItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countUserOrdersSQL, userID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count orders")
	}
	return n, nil
}

// UpdateStatus performs a compare-and-set on the status column and records
// ev in the outbox within the same transaction.
func (r *OrderRepository) UpdateStatus(
	ctx context.Context, orderID string, from, to order.Status, ev order.Event,
) (*order.Order, error) {
	var updated *order.Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateOrderStatusSQL, orderID, string(from), string(to))
		if err != nil {
			return errors.Wrap(err, "update status")
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, orderExistsSQL, orderID).Scan(&exists); err != nil {
				return errors.Wrap(err, "check order")
			}
			if !exists {
				return order.ErrNotFound
			}
			return order.ErrStatusChanged
		}

		if err := appendEvent(ctx, tx, ev); err != nil {
			return err
		}

		updated, err = getOrder(ctx, tx, getOrderSQL, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// orderTx implements order.Tx on a pgx transaction.
type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) StoreByID(ctx context.Context, storeID string) (*store.Store, error) {
	return getStore(ctx, t.tx, storeID)
}

func (t *orderTx) ProductsInStore(ctx context.Context, storeID string, ids []string) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx, lockProductsInStoreSQL, storeID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (t *orderTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	tag, err := t.tx.Exec(ctx, decrementStockSQL, productID, qty)
	if err != nil {
		return errors.Wrap(err, "decrement stock")
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStockConflict
	}
	return nil
}

func (t *orderTx) Insert(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL, o.UserID, o.StoreID, o.Total, string(o.Status)).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(insertOrderItemSQL, o.ID, item.ProductID, item.ProductName, item.Quantity, item.Price, i)
	}
	br := t.tx.SendBatch(ctx, batch)
	for i := range o.Items {
		if err := br.QueryRow().Scan(&o.Items[i].ID); err != nil {
			_ = br.Close()
			return errors.Wrapf(err, "insert item %d", i)
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrap(err, "insert items")
	}
	return nil
}

func (t *orderTx) AppendEvent(ctx context.Context, ev order.Event) error {
	return appendEvent(ctx, t.tx, ev)
}

func appendEvent(ctx context.Context, q querier, ev order.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	if _, err := q.Exec(ctx, insertOutboxSQL, uuid.NewString(), string(ev.Type), ev.OrderID, payload); err != nil {
		return errors.Wrap(err, "insert outbox")
	}
	return nil
}

func getOrder(ctx context.Context, q querier, sql string, args ...any) (*order.Order, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}

	orders := []order.Order{o}
	if err := loadItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// loadItems fills in the items of orders with a single query.
func loadItems(ctx context.Context, q querier, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := q.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    order.Item
		)
		if err := rows.Scan(&orderID, &item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return errors.Wrap(err, "scan item")
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return rows.Err()
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.StoreID, &o.Store.Name, &o.Total, &status, &o.CreatedAt, &o.UpdatedAt)
	o.Store.ID = o.StoreID
	o.Status = order.Status(status)
	return o, err
}
