//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/gadgethub-api/db"
	"github.com/xenking/gadgethub-api/internal/catalog"
	"github.com/xenking/gadgethub-api/internal/domain/auth"
	"github.com/xenking/gadgethub-api/internal/domain/customer"
	"github.com/xenking/gadgethub-api/internal/domain/distributor"
	"github.com/xenking/gadgethub-api/internal/domain/order"
	"github.com/xenking/gadgethub-api/internal/domain/product"
	"github.com/xenking/gadgethub-api/internal/domain/quotation"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "gadgethub",
				"POSTGRES_PASSWORD": "gadgethub",
				"POSTGRES_DB":       "gadgethub",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://gadgethub:gadgethub@%s:%s/gadgethub?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	return m.Run()
}

// --- Helpers ---

func resetDB(t *testing.T) {
	t.Helper()

	_, err := testPool.Exec(context.Background(),
		`TRUNCATE order_items, orders, quotations, customers, distributors, products, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

type seeded struct {
	customer    customer.Customer
	distributor distributor.Distributor
	monitor     product.Product
	prototype   product.Product
}

func seedCatalog(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()

	s := seeded{
		customer:    customer.Customer{FullName: "Alice Johnson", Email: "alice@example.com"},
		distributor: distributor.Distributor{Name: "TechWorld", ContactEmail: "sales@techworld.example"},
		monitor:     product.Product{Name: "Vertex 27 Monitor", Description: "27-inch 4K"},
		prototype:   product.Product{Name: "Prototype Gadget"},
	}
	require.NoError(t, NewCustomerRepository(testPool).Create(ctx, &s.customer))
	require.NoError(t, NewDistributorRepository(testPool).Create(ctx, &s.distributor))
	products := NewProductRepository(testPool)
	require.NoError(t, products.Create(ctx, &s.monitor))
	require.NoError(t, products.Create(ctx, &s.prototype))

	quotes := NewQuotationRepository(testPool)
	for _, price := range []string{"9.99", "8.50"} {
		require.NoError(t, quotes.Create(ctx, &quotation.Quotation{
			ProductID:     s.monitor.ID,
			DistributorID: s.distributor.ID,
			PricePerUnit:  decimal.RequireFromString(price),
			Availability:  10,
		}))
	}
	return s
}

func newOrderService(t *testing.T) *order.Service {
	t.Helper()

	svc, err := order.NewService(
		NewCustomerRepository(testPool),
		NewProductRepository(testPool),
		NewQuotationRepository(testPool),
		NewOrderRepository(testPool),
		order.Options{},
	)
	require.NoError(t, err)
	return svc
}

func countRows(t *testing.T, table string) int {
	t.Helper()

	var n int
	require.NoError(t, testPool.QueryRow(context.Background(), `SELECT count(*) FROM `+table).Scan(&n))
	return n
}

// --- Tests ---

func TestQuotationRepository_Latest(t *testing.T) {
	resetDB(t)
	s := seedCatalog(t)
	repo := NewQuotationRepository(testPool)

	latest, err := repo.LatestByProduct(context.Background(), s.monitor.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("8.50").Equal(latest.PricePerUnit))

	_, err = repo.LatestByProduct(context.Background(), s.prototype.ID)
	require.ErrorIs(t, err, quotation.ErrNotFound)
}

func TestQuotationRepository_UpdateKeepsID(t *testing.T) {
	resetDB(t)
	s := seedCatalog(t)
	ctx := context.Background()
	repo := NewQuotationRepository(testPool)

	quotes, err := repo.ListByProduct(ctx, s.monitor.ID)
	require.NoError(t, err)
	first, _ := quotation.Latest(quotes)
	oldest := quotes[0]
	if oldest.ID == first.ID {
		oldest = quotes[1]
	}

	oldest.PricePerUnit = decimal.RequireFromString("1.00")
	require.NoError(t, repo.Update(ctx, &oldest))

	latest, err := repo.LatestByProduct(ctx, s.monitor.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)
}

func TestQuotationRepository_UnknownReferences(t *testing.T) {
	resetDB(t)
	s := seedCatalog(t)
	repo := NewQuotationRepository(testPool)

	err := repo.Create(context.Background(), &quotation.Quotation{
		ProductID: 9999, DistributorID: s.distributor.ID, PricePerUnit: decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, product.ErrNotFound)

	err = repo.Create(context.Background(), &quotation.Quotation{
		ProductID: s.monitor.ID, DistributorID: 9999, PricePerUnit: decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, distributor.ErrNotFound)
}

func TestQuotationRepository_Append(t *testing.T) {
	resetDB(t)
	s := seedCatalog(t)
	ctx := context.Background()
	repo := NewQuotationRepository(testPool)

	n, err := repo.Append(ctx, []quotation.Quotation{
		{ProductID: s.monitor.ID, DistributorID: s.distributor.ID, PricePerUnit: decimal.RequireFromString("7.00")},
		{ProductID: 9999, DistributorID: s.distributor.ID, PricePerUnit: decimal.RequireFromString("1.00")},
		{ProductID: s.monitor.ID, DistributorID: s.distributor.ID, PricePerUnit: decimal.RequireFromString("7.50")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	latest, err := repo.LatestByProduct(ctx, s.monitor.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("7.50").Equal(latest.PricePerUnit))
}

func TestOrders_CreateAndProject(t *testing.T) {
	resetDB(t)
	s := seedCatalog(t)
	svc := newOrderService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, order.CreateRequest{
		CustomerID: s.customer.ID,
		Items:      []order.LineRequest{{ProductID: s.monitor.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Johnson", view.CustomerName)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Vertex 27 Monitor", view.Items[0].ProductName)
	assert.True(t, decimal.RequireFromString("8.50").Equal(view.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("17.00").Equal(view.TotalAmount))

	// A newer quotation does not change the stored order.
	require.NoError(t, NewQuotationRepository(testPool).Create(ctx, &quotation.Quotation{
		ProductID: s.monitor.ID, DistributorID: s.distributor.ID, PricePerUnit: decimal.RequireFromString("1.00"),
	}))
	got, err := svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("17.00").Equal(got.TotalAmount))
	assert.Equal(t, view.OrderDate, got.OrderDate)
}

func TestOrders_DeletedProduct(t *testing.T) {
	resetDB(t)
	s := seedCatalog(t)
	svc := newOrderService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, order.CreateRequest{
		CustomerID: s.customer.ID,
		Items:      []order.LineRequest{{ProductID: s.monitor.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, NewProductRepository(testPool).Delete(ctx, s.monitor.ID))

	got, err := svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, order.UnknownProductName, got.Items[0].ProductName)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("8.50").Equal(got.Items[0].UnitPrice))
}

func TestOrders_FailedValidationWritesNothing(t *testing.T) {
	resetDB(t)
	s := seedCatalog(t)
	svc := newOrderService(t)

	_, err := svc.Create(context.Background(), order.CreateRequest{
		CustomerID: s.customer.ID,
		Items: []order.LineRequest{
			{ProductID: s.monitor.ID, Quantity: 1},
			{ProductID: s.prototype.ID, Quantity: 1},
		},
	})

	var npErr *order.NoPricingError
	require.ErrorAs(t, err, &npErr)
	assert.Zero(t, countRows(t, "orders"))
	assert.Zero(t, countRows(t, "order_items"))
}

func TestOrders_DeleteCascades(t *testing.T) {
	resetDB(t)
	s := seedCatalog(t)
	svc := newOrderService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, order.CreateRequest{
		CustomerID: s.customer.ID,
		Items: []order.LineRequest{
			{ProductID: s.monitor.ID, Quantity: 1},
			{ProductID: s.monitor.ID, Quantity: 4},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countRows(t, "order_items"))

	views, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Len(t, views[0].Items, 2)

	require.ErrorIs(t, NewCustomerRepository(testPool).Delete(ctx, s.customer.ID), customer.ErrInUse)

	require.NoError(t, svc.Delete(ctx, view.ID))
	assert.Zero(t, countRows(t, "order_items"))
	require.ErrorIs(t, svc.Delete(ctx, view.ID), order.ErrNotFound)
}

func TestUserRepository(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	u := &auth.User{
		Email:        "a@b.com",
		PasswordHash: "hash",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Role:         auth.DefaultRole,
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
	}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)

	dup := *u
	dup.Email = "A@B.COM"
	require.ErrorIs(t, repo.Create(ctx, &dup), auth.ErrUserExists)

	got, err := repo.GetByEmail(ctx, "A@b.Com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, got.PhoneNumber)
	assert.Nil(t, got.LastLoginAt)

	var phoneIsNull bool
	require.NoError(t, testPool.QueryRow(ctx,
		`SELECT phone_number IS NULL FROM users WHERE id = $1`, u.ID).Scan(&phoneIsNull))
	assert.True(t, phoneIsNull)

	at := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.UpdateLastLogin(ctx, u.ID, at))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))

	_, err = repo.GetByEmail(ctx, "missing@b.com")
	require.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestSeedCatalog(t *testing.T) {
	resetDB(t)
	ctx := context.Background()

	c, err := catalog.Parse(db.Catalog)
	require.NoError(t, err)

	stats, err := SeedCatalog(ctx, testPool, c)
	require.NoError(t, err)
	assert.Equal(t, len(c.Products), stats.Products)
	assert.Equal(t, len(c.Quotations), stats.Quotations)
	assert.Equal(t, len(c.Quotations), countRows(t, "quotations"))

	// Re-seeding upserts the catalog and leaves prices alone.
	stats, err = SeedCatalog(ctx, testPool, c)
	require.NoError(t, err)
	assert.Zero(t, stats.Quotations)
	assert.Equal(t, len(c.Products), countRows(t, "products"))
	assert.Equal(t, len(c.Quotations), countRows(t, "quotations"))

	// Sequences continue after the seeded ids.
	p := &product.Product{Name: "After Seed"}
	require.NoError(t, NewProductRepository(testPool).Create(ctx, p))
	assert.Greater(t, p.ID, c.Products[len(c.Products)-1].ID)
}
