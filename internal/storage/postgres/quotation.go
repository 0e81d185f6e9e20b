package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gadgethub-api/internal/domain/distributor"
	"github.com/xenking/gadgethub-api/internal/domain/product"
	"github.com/xenking/gadgethub-api/internal/domain/quotation"
)

const (
	quotationColumns = `id, product_id, distributor_id, price_per_unit, availability, estimated_delivery_days`

	listQuotationsSQL           = `SELECT ` + quotationColumns + ` FROM quotations ORDER BY id`
	getQuotationByIDSQL         = `SELECT ` + quotationColumns + ` FROM quotations WHERE id = $1`
	listQuotationsByProductSQL  = `SELECT ` + quotationColumns + ` FROM quotations WHERE product_id = $1`
	listQuotationsByProductsSQL = `SELECT ` + quotationColumns + ` FROM quotations WHERE product_id = ANY($1)`
	latestQuotationSQL          = `SELECT ` + quotationColumns + ` FROM quotations
		WHERE product_id = $1 ORDER BY id DESC LIMIT 1`
	createQuotationSQL = `INSERT INTO quotations
		(product_id, distributor_id, price_per_unit, availability, estimated_delivery_days)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	updateQuotationSQL = `UPDATE quotations
		SET product_id = $2, distributor_id = $3, price_per_unit = $4, availability = $5, estimated_delivery_days = $6
		WHERE id = $1`
	deleteQuotationSQL = `DELETE FROM quotations WHERE id = $1`

	// appendQuotationSQL silently skips rows whose product or distributor
	// does not exist.
	appendQuotationSQL = `INSERT INTO quotations
		(product_id, distributor_id, price_per_unit, availability, estimated_delivery_days)
		SELECT $1, $2, $3, $4, $5
		WHERE EXISTS (SELECT 1 FROM products WHERE id = $1)
		  AND EXISTS (SELECT 1 FROM distributors WHERE id = $2)`

	quotationsProductFK     = "quotations_product_id_fkey"
	quotationsDistributorFK = "quotations_distributor_id_fkey"
)

var _ quotation.Repository = (*QuotationRepository)(nil)

// QuotationRepository implements quotation.Repository backed by PostgreSQL.
type QuotationRepository struct {
	pool *pgxpool.Pool
}

// NewQuotationRepository returns a QuotationRepository that uses the given pool.
func NewQuotationRepository(pool *pgxpool.Pool) *QuotationRepository {
	return &QuotationRepository{pool: pool}
}

func (r *QuotationRepository) List(ctx context.Context) ([]quotation.Quotation, error) {
	rows, err := r.pool.Query(ctx, listQuotationsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list quotations")
	}
	return pgx.CollectRows(rows, scanQuotation)
}

func (r *QuotationRepository) GetByID(ctx context.Context, id int64) (*quotation.Quotation, error) {
	return r.one(ctx, getQuotationByIDSQL, id)
}

func (r *QuotationRepository) ListByProduct(ctx context.Context, productID int64) ([]quotation.Quotation, error) {
	rows, err := r.pool.Query(ctx, listQuotationsByProductSQL, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "list quotations of product %d", productID)
	}
	return pgx.CollectRows(rows, scanQuotation)
}

func (r *QuotationRepository) ListByProducts(ctx context.Context, productIDs []int64) ([]quotation.Quotation, error) {
	rows, err := r.pool.Query(ctx, listQuotationsByProductsSQL, productIDs)
	if err != nil {
		return nil, errors.Wrap(err, "list quotations by products")
	}
	return pgx.CollectRows(rows, scanQuotation)
}

func (r *QuotationRepository) LatestByProduct(ctx context.Context, productID int64) (*quotation.Quotation, error) {
	return r.one(ctx, latestQuotationSQL, productID)
}

// Create inserts q and sets its generated ID. A missing product or
// distributor yields the corresponding ErrNotFound.
func (r *QuotationRepository) Create(ctx context.Context, q *quotation.Quotation) error {
	err := r.pool.QueryRow(ctx, createQuotationSQL,
		q.ProductID, q.DistributorID, q.PricePerUnit, q.Availability, q.EstimatedDeliveryDays,
	).Scan(&q.ID)
	if err != nil {
		return errors.Wrap(mapQuotationFK(err), "create quotation")
	}
	return nil
}

// Update overwrites every column of the quotation except its ID.
func (r *QuotationRepository) Update(ctx context.Context, q *quotation.Quotation) error {
	err := execOne(ctx, r.pool, quotation.ErrNotFound, updateQuotationSQL,
		q.ID, q.ProductID, q.DistributorID, q.PricePerUnit, q.Availability, q.EstimatedDeliveryDays,
	)
	if err != nil {
		return errors.Wrapf(mapQuotationFK(err), "update quotation %d", q.ID)
	}
	return nil
}

func (r *QuotationRepository) Delete(ctx context.Context, id int64) error {
	if err := execOne(ctx, r.pool, quotation.ErrNotFound, deleteQuotationSQL, id); err != nil {
		return errors.Wrapf(err, "delete quotation %d", id)
	}
	return nil
}

// Append inserts quotes in slice order inside one transaction, so IDs follow
// the input order. Rows referencing unknown products or distributors are
// skipped. It returns the number of rows inserted.
func (r *QuotationRepository) Append(ctx context.Context, quotes []quotation.Quotation) (int64, error) {
	var inserted int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, q := range quotes {
			batch.Queue(appendQuotationSQL,
				q.ProductID, q.DistributorID, q.PricePerUnit, q.Availability, q.EstimatedDeliveryDays,
			).Exec(func(tag pgconn.CommandTag) error {
				inserted += tag.RowsAffected()
				return nil
			})
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, errors.Wrap(err, "append quotations")
	}
	return inserted, nil
}

func (r *QuotationRepository) one(ctx context.Context, sql string, arg int64) (*quotation.Quotation, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "get quotation")
	}

	q, err := pgx.CollectExactlyOneRow(rows, scanQuotation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, quotation.ErrNotFound
		}
		return nil, errors.Wrap(err, "get quotation")
	}
	return &q, nil
}

func mapQuotationFK(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeForeignKeyViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case quotationsProductFK:
		return product.ErrNotFound
	case quotationsDistributorFK:
		return distributor.ErrNotFound
	}
	return err
}

func scanQuotation(row pgx.CollectableRow) (quotation.Quotation, error) {
	var q quotation.Quotation
	err := row.Scan(&q.ID, &q.ProductID, &q.DistributorID, &q.PricePerUnit, &q.Availability, &q.EstimatedDeliveryDays)
	return q, err
}
