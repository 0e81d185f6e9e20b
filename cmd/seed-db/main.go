package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/gadgethub-api/db"
	"github.com/xenking/gadgethub-api/internal/catalog"
	"github.com/xenking/gadgethub-api/internal/domain/auth"
	"github.com/xenking/gadgethub-api/internal/storage/postgres"
)

type admin struct {
	email    string
	password string
}

func main() {
	var (
		databaseURL string
		catalogFile string
		adm         admin
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog", "", "path to a catalog JSON file, optionally .gz (default: built-in catalog)")
	flag.StringVar(&adm.email, "admin-email", "", "administrator email (or GADGETHUB_ADMIN_EMAIL env)")
	flag.StringVar(&adm.password, "admin-password", "", "administrator password (or GADGETHUB_ADMIN_PASSWORD env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if adm.email == "" {
		adm.email = os.Getenv("GADGETHUB_ADMIN_EMAIL")
	}
	if adm.password == "" {
		adm.password = os.Getenv("GADGETHUB_ADMIN_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, databaseURL, catalogFile, adm); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}

	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string, adm admin) error {
	lg := zctx.From(ctx)

	c, err := loadCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	stats, err := postgres.SeedCatalog(ctx, pool, c)
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	lg.Info("Catalog seeded",
		zap.Int("products", stats.Products),
		zap.Int("distributors", stats.Distributors),
		zap.Int("customers", stats.Customers),
		zap.Int("quotations", stats.Quotations),
	)

	if adm.email == "" {
		lg.Info("No administrator configured, skipping")
		return nil
	}
	if err := seedAdmin(ctx, postgres.NewUserRepository(pool), adm); err != nil {
		return errors.Wrap(err, "seed admin")
	}
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Parse(db.Catalog)
	}
	return catalog.Open(path)
}

func seedAdmin(ctx context.Context, users *postgres.UserRepository, adm admin) error {
	if len(adm.password) < 6 {
		return errors.New("admin password must be at least 6 characters")
	}
	hash, err := auth.HashPassword(adm.password)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	u := &auth.User{
		Email:        adm.email,
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Administrator",
		Role:         auth.AdminRole,
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
	}
	if err := users.UpsertAdmin(ctx, u); err != nil {
		return err
	}

	zctx.From(ctx).Info("Administrator upserted", zap.Int64("id", u.ID), zap.String("email", u.Email))
	return nil
}
