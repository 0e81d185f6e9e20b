package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gadgethub-api/internal/domain/customer"
)

const (
	listCustomersSQL   = `SELECT id, full_name, email FROM customers ORDER BY id`
	getCustomerByIDSQL = `SELECT id, full_name, email FROM customers WHERE id = $1`
	createCustomerSQL  = `INSERT INTO customers (full_name, email) VALUES ($1, $2) RETURNING id`
	updateCustomerSQL  = `UPDATE customers SET full_name = $2, email = $3 WHERE id = $1`
	deleteCustomerSQL  = `DELETE FROM customers WHERE id = $1`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func (r *CustomerRepository) List(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list customers")
	}
	return pgx.CollectRows(rows, scanCustomer)
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get customer %d", id)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get customer %d", id)
	}
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	if err := r.pool.QueryRow(ctx, createCustomerSQL, c.FullName, c.Email).Scan(&c.ID); err != nil {
		return errors.Wrap(err, "create customer")
	}
	return nil
}

func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	if err := execOne(ctx, r.pool, customer.ErrNotFound, updateCustomerSQL, c.ID, c.FullName, c.Email); err != nil {
		return errors.Wrapf(err, "update customer %d", c.ID)
	}
	return nil
}

// Delete removes a customer. Customers with orders yield customer.ErrInUse.
func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	err := execOne(ctx, r.pool, customer.ErrNotFound, deleteCustomerSQL, id)
	if hasCode(err, codeForeignKeyViolation) {
		return customer.ErrInUse
	}
	if err != nil {
		return errors.Wrapf(err, "delete customer %d", id)
	}
	return nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.FullName, &c.Email)
	return c, err
}
