package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gadgethub-api/internal/domain/order"
)

const (
	insertOrderSQL     = `INSERT INTO orders (customer_id, order_date) VALUES ($1, $2) RETURNING id`
	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4) RETURNING id`

	selectOrdersSQL = `SELECT o.id, o.customer_id, o.order_date, COALESCE(c.full_name, '')
		FROM orders o LEFT JOIN customers c ON c.id = o.customer_id`
	getOrderSQL    = selectOrdersSQL + ` WHERE o.id = $1`
	listOrdersSQL  = selectOrdersSQL + ` ORDER BY o.id`
	orderItemsSQL  = `SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price, p.name
		FROM order_items i LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1) ORDER BY i.order_id, i.id`
	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
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

// Create inserts the order row and all item rows in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertOrderSQL, o.CustomerID, o.OrderDate).Scan(&o.ID); err != nil {
			return errors.Wrap(err, "insert order")
		}

		batch := &pgx.Batch{}
		for i := range o.Items {
			it := &o.Items[i]
			it.OrderID = o.ID
			batch.Queue(insertOrderItemSQL, o.ID, it.ProductID, it.Quantity, it.UnitPrice).
				QueryRow(func(row pgx.Row) error {
					return row.Scan(&it.ID)
				})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "insert order items")
		}
		return nil
	})
	if err != nil {
		o.ID = 0
		return errors.Wrap(err, "create order")
	}
	return nil
}

// Get reads an order, its customer name and its lines from one snapshot.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Record, error) {
	var recs []order.Record
	err := r.readTx(ctx, func(tx pgx.Tx) error {
		var err error
		recs, err = r.collect(ctx, tx, getOrderSQL, id)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	if len(recs) == 0 {
		return nil, order.ErrNotFound
	}
	return &recs[0], nil
}

// List reads all orders ordered by ID.
func (r *OrderRepository) List(ctx context.Context) ([]order.Record, error) {
	var recs []order.Record
	err := r.readTx(ctx, func(tx pgx.Tx) error {
		var err error
		recs, err = r.collect(ctx, tx, listOrdersSQL)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return recs, nil
}

// Delete removes an order; its items are removed by cascade.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	if err := execOne(ctx, r.pool, order.ErrNotFound, deleteOrderSQL, id); err != nil {
		return errors.Wrapf(err, "delete order %d", id)
	}
	return nil
}

func (r *OrderRepository) readTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, fn)
}

func (r *OrderRepository) collect(ctx context.Context, tx pgx.Tx, sql string, args ...any) ([]order.Record, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	recs, err := pgx.CollectRows(rows, scanOrderRecord)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if len(recs) == 0 {
		return recs, nil
	}

	ids := make([]int64, len(recs))
	byID := make(map[int64]*order.Record, len(recs))
	for i := range recs {
		ids[i] = recs[i].Order.ID
		byID[recs[i].Order.ID] = &recs[i]
	}

	rows, err = tx.Query(ctx, orderItemsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query order items")
	}
	lines, err := pgx.CollectRows(rows, scanOrderLine)
	if err != nil {
		return nil, errors.Wrap(err, "scan order items")
	}

	for _, l := range lines {
		rec := byID[l.item.OrderID]
		rec.Order.Items = append(rec.Order.Items, l.item)
		if l.productName != nil {
			rec.ProductNames[l.item.ProductID] = *l.productName
		}
	}
	return recs, nil
}

type orderLine struct {
	item        order.Item
	productName *string
}

func scanOrderRecord(row pgx.CollectableRow) (order.Record, error) {
	rec := order.Record{ProductNames: make(map[int64]string)}
	err := row.Scan(&rec.Order.ID, &rec.Order.CustomerID, &rec.Order.OrderDate, &rec.CustomerName)
	rec.Order.OrderDate = rec.Order.OrderDate.UTC()
	return rec, err
}

func scanOrderLine(row pgx.CollectableRow) (orderLine, error) {
	var l orderLine
	err := row.Scan(&l.item.ID, &l.item.OrderID, &l.item.ProductID, &l.item.Quantity, &l.item.UnitPrice, &l.productName)
	return l, err
}
