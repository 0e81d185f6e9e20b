package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gadgethub-api/internal/domain/distributor"
)

const (
	distributorColumns = `id, name, contact_email, contact_phone, address`

	listDistributorsSQL   = `SELECT ` + distributorColumns + ` FROM distributors ORDER BY id`
	getDistributorByIDSQL = `SELECT ` + distributorColumns + ` FROM distributors WHERE id = $1`
	createDistributorSQL  = `INSERT INTO distributors (name, contact_email, contact_phone, address)
		VALUES ($1, $2, $3, $4) RETURNING id`
	updateDistributorSQL = `UPDATE distributors
		SET name = $2, contact_email = $3, contact_phone = $4, address = $5 WHERE id = $1`
	deleteDistributorSQL = `DELETE FROM distributors WHERE id = $1`
)

var _ distributor.Repository = (*DistributorRepository)(nil)

// DistributorRepository implements distributor.Repository backed by PostgreSQL.
type DistributorRepository struct {
	pool *pgxpool.Pool
}

// NewDistributorRepository returns a DistributorRepository that uses the given pool.
func NewDistributorRepository(pool *pgxpool.Pool) *DistributorRepository {
	return &DistributorRepository{pool: pool}
}

func (r *DistributorRepository) List(ctx context.Context) ([]distributor.Distributor, error) {
	rows, err := r.pool.Query(ctx, listDistributorsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list distributors")
	}
	return pgx.CollectRows(rows, scanDistributor)
}

func (r *DistributorRepository) GetByID(ctx context.Context, id int64) (*distributor.Distributor, error) {
	rows, err := r.pool.Query(ctx, getDistributorByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get distributor %d", id)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDistributor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, distributor.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get distributor %d", id)
	}
	return &d, nil
}

func (r *DistributorRepository) Create(ctx context.Context, d *distributor.Distributor) error {
	err := r.pool.QueryRow(ctx, createDistributorSQL,
		d.Name, d.ContactEmail, d.ContactPhone, d.Address,
	).Scan(&d.ID)
	if err != nil {
		return errors.Wrap(err, "create distributor")
	}
	return nil
}

func (r *DistributorRepository) Update(ctx context.Context, d *distributor.Distributor) error {
	err := execOne(ctx, r.pool, distributor.ErrNotFound, updateDistributorSQL,
		d.ID, d.Name, d.ContactEmail, d.ContactPhone, d.Address,
	)
	if err != nil {
		return errors.Wrapf(err, "update distributor %d", d.ID)
	}
	return nil
}

// Delete removes a distributor. Distributors with quotations cannot be
// deleted and yield distributor.ErrInUse.
func (r *DistributorRepository) Delete(ctx context.Context, id int64) error {
	err := execOne(ctx, r.pool, distributor.ErrNotFound, deleteDistributorSQL, id)
	if hasCode(err, codeForeignKeyViolation) {
		return distributor.ErrInUse
	}
	if err != nil {
		return errors.Wrapf(err, "delete distributor %d", id)
	}
	return nil
}

func scanDistributor(row pgx.CollectableRow) (distributor.Distributor, error) {
	var d distributor.Distributor
	err := row.Scan(&d.ID, &d.Name, &d.ContactEmail, &d.ContactPhone, &d.Address)
	return d, err
}
