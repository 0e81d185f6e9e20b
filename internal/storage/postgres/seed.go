package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gadgethub-api/internal/catalog"
)

const (
	seedProductSQL = `INSERT INTO products (id, name, description) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description`
	seedDistributorSQL = `INSERT INTO distributors (id, name, contact_email, contact_phone, address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone, address = EXCLUDED.address`
	seedCustomerSQL = `INSERT INTO customers (id, full_name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, email = EXCLUDED.email`
	seedQuotationSQL = `INSERT INTO quotations
		(product_id, distributor_id, price_per_unit, availability, estimated_delivery_days)
		VALUES ($1, $2, $3, $4, $5)`
	countQuotationsSQL = `SELECT count(*) FROM quotations`
)

// syncSequenceSQL moves the id sequence of each table past explicitly
// inserted ids.
var syncSequenceSQL = []string{
	`SELECT setval(pg_get_serial_sequence('products', 'id'), COALESCE((SELECT max(id) FROM products), 0) + 1, false)`,
	`SELECT setval(pg_get_serial_sequence('distributors', 'id'), COALESCE((SELECT max(id) FROM distributors), 0) + 1, false)`,
	`SELECT setval(pg_get_serial_sequence('customers', 'id'), COALESCE((SELECT max(id) FROM customers), 0) + 1, false)`,
}

// SeedStats reports what SeedCatalog wrote.
type SeedStats struct {
	Products     int
	Distributors int
	Customers    int
	Quotations   int
}

// SeedCatalog upserts the catalog's products, distributors and customers by
// id in one transaction. Quotations are inserted only when the quotations
// table is empty, so re-seeding never reorders existing prices.
func SeedCatalog(ctx context.Context, pool *pgxpool.Pool, c *catalog.Catalog) (SeedStats, error) {
	var stats SeedStats
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range c.Products {
			batch.Queue(seedProductSQL, p.ID, p.Name, p.Description)
		}
		for _, d := range c.Distributors {
			batch.Queue(seedDistributorSQL, d.ID, d.Name, d.ContactEmail, d.ContactPhone, d.Address)
		}
		for _, cu := range c.Customers {
			batch.Queue(seedCustomerSQL, cu.ID, cu.FullName, cu.Email)
		}
		for _, sql := range syncSequenceSQL {
			batch.Queue(sql)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "upsert catalog")
		}
		stats.Products = len(c.Products)
		stats.Distributors = len(c.Distributors)
		stats.Customers = len(c.Customers)

		var existing int64
		if err := tx.QueryRow(ctx, countQuotationsSQL).Scan(&existing); err != nil {
			return errors.Wrap(err, "count quotations")
		}
		if existing > 0 {
			return nil
		}

		batch = &pgx.Batch{}
		for _, q := range c.Quotations {
			batch.Queue(seedQuotationSQL,
				q.ProductID, q.DistributorID, q.PricePerUnit, q.Availability, q.EstimatedDeliveryDays,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "insert quotations")
		}
		stats.Quotations = len(c.Quotations)
		return nil
	})
	if err != nil {
		return SeedStats{}, errors.Wrap(err, "seed catalog")
	}
	return stats, nil
}
