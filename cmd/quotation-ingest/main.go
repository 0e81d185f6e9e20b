package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/gadgethub-api/internal/ingest"
	"github.com/xenking/gadgethub-api/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		batchSize   int
		workers     int
		noFilter    bool
	)

	flag.StringVar(&dataDir, "data-dir", "", "directory of *.jsonl.gz feeds, used when no files are given")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 1000, "quotations per insert transaction")
	flag.IntVar(&workers, "workers", 0, "concurrent feed parsers (0 = one per feed)")
	flag.BoolVar(&noFilter, "no-filter", false, "skip the known-id pre-filter")
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

	files, err := feedFiles(flag.Args(), dataDir)
	if err != nil {
		lg.Fatal("Resolve feed files", zap.Error(err))
	}
	if len(files) == 0 {
		lg.Fatal("No feed files: pass them as arguments or set --data-dir")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	opts := ingest.Options{Workers: workers, BatchSize: batchSize}
	if err := run(ctx, databaseURL, files, opts, !noFilter); err != nil {
		lg.Error("Quotation ingest failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
}

// feedFiles returns explicit arguments as given, or the sorted feeds of dir.
func feedFiles(args []string, dir string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if dir == "" {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl*"))
	if err != nil {
		return nil, errors.Wrap(err, "glob feeds")
	}
	sort.Strings(files)
	return files, nil
}

func run(ctx context.Context, databaseURL string, files []string, opts ingest.Options, filter bool) error {
	lg := zctx.From(ctx)
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if filter {
		f, err := knownIDs(ctx, postgres.NewProductRepository(pool), postgres.NewDistributorRepository(pool))
		if err != nil {
			return errors.Wrap(err, "load known ids")
		}
		opts.Filter = f
	}

	lg.Info("Ingesting feeds", zap.Strings("files", files))
	stats, err := ingest.New(postgres.NewQuotationRepository(pool), opts).Run(ctx, files)
	if err != nil {
		return err
	}

	lg.Info("Quotation ingest completed",
		zap.Int("files", stats.Files),
		zap.Int64("lines", stats.Lines),
		zap.Int64("malformed", stats.Malformed),
		zap.Int64("filtered", stats.Filtered),
		zap.Int64("submitted", stats.Submitted),
		zap.Int64("inserted", stats.Inserted),
	)
	return nil
}

func knownIDs(ctx context.Context, products *postgres.ProductRepository, distributors *postgres.DistributorRepository) (*ingest.Filter, error) {
	ps, err := products.List(ctx)
	if err != nil {
		return nil, err
	}
	ds, err := distributors.List(ctx)
	if err != nil {
		return nil, err
	}

	productIDs := make([]int64, len(ps))
	for i, p := range ps {
		productIDs[i] = p.ID
	}
	distributorIDs := make([]int64, len(ds))
	for i, d := range ds {
		distributorIDs[i] = d.ID
	}
	zctx.From(ctx).Info("Known ids loaded",
		zap.Int("products", len(productIDs)),
		zap.Int("distributors", len(distributorIDs)),
	)
	return ingest.NewFilter(productIDs, distributorIDs), nil
}
