package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gadgethub-api/internal/domain/product"
)

const (
	listProductsSQL     = `SELECT id, name, description FROM products ORDER BY id`
	getProductByIDSQL   = `SELECT id, name, description FROM products WHERE id = $1`
	getProductsByIDsSQL = `SELECT id, name, description FROM products WHERE id = ANY($1) ORDER BY id`
	createProductSQL    = `INSERT INTO products (name, description) VALUES ($1, $2) RETURNING id`
	updateProductSQL    = `UPDATE products SET name = $2, description = $3 WHERE id = $1`
	deleteProductSQL    = `DELETE FROM products WHERE id = $1`
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

// List returns all products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts p and sets its generated ID.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	if err := r.pool.QueryRow(ctx, createProductSQL, p.Name, p.Description).Scan(&p.ID); err != nil {
		return errors.Wrap(err, "create product")
	}
	return nil
}

// Update overwrites the product with p.ID.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	if err := execOne(ctx, r.pool, product.ErrNotFound, updateProductSQL, p.ID, p.Name, p.Description); err != nil {
		return errors.Wrapf(err, "update product %d", p.ID)
	}
	return nil
}

// Delete removes a product and, by cascade, its quotations. Order lines keep
// the product ID.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	if err := execOne(ctx, r.pool, product.ErrNotFound, deleteProductSQL, id); err != nil {
		return errors.Wrapf(err, "delete product %d", id)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description)
	return p, err
}
