// Package ingest bulk-loads distributor price feeds into the quotation store.
//
// A feed is a JSON Lines file, optionally gzip-compressed, with one quotation
// object per line. Feeds are parsed concurrently and appended strictly in
// the order they were given, so a later feed always yields newer quotations.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/gadgethub-api/internal/catalog"
	"github.com/xenking/gadgethub-api/internal/domain/quotation"
)

const (
	defaultBatchSize = 1000
	filterFPR        = 0.001
	maxLineSize      = 1 << 20

	maxLoggedMalformed = 10
)

// Store appends quotations in slice order and reports how many were kept.
type Store interface {
	Append(ctx context.Context, quotes []quotation.Quotation) (int64, error)
}

// Filter pre-screens quotations against the known product and distributor
// ids. It can report false positives, never false negatives.
type Filter struct {
	products     *bloom.BloomFilter
	distributors *bloom.BloomFilter
}

// NewFilter builds a Filter from the ids present in the store.
func NewFilter(productIDs, distributorIDs []int64) *Filter {
	return &Filter{
		products:     newIDFilter(productIDs),
		distributors: newIDFilter(distributorIDs),
	}
}

func newIDFilter(ids []int64) *bloom.BloomFilter {
	f := bloom.NewWithEstimates(uint(max(len(ids), 1)), filterFPR)
	for _, id := range ids {
		f.Add(idKey(id))
	}
	return f
}

func idKey(id int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

// MayContain reports whether both references of q might exist.
func (f *Filter) MayContain(q quotation.Quotation) bool {
	return f.products.Test(idKey(q.ProductID)) && f.distributors.Test(idKey(q.DistributorID))
}

// Stats summarises an ingest run.
type Stats struct {
	Files     int
	Lines     int64
	Malformed int64
	Filtered  int64
	Submitted int64
	Inserted  int64
}

// Options configures an Ingester.
type Options struct {
	// Workers bounds concurrent feed parsing. Zero means one per feed.
	Workers int
	// BatchSize is the number of quotations per Append call.
	BatchSize int
	// Filter drops rows with unknown references before they reach the store.
	Filter *Filter
}

// Ingester parses feeds and appends their quotations to a Store.
type Ingester struct {
	store Store
	opts  Options
}

// New creates an Ingester.
func New(store Store, opts Options) *Ingester {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	return &Ingester{store: store, opts: opts}
}

type feed struct {
	quotes    []quotation.Quotation
	lines     int64
	malformed int64
	filtered  int64
}

// Run ingests the feeds at paths. Parsing runs concurrently; appends run in
// path order after every feed parsed successfully.
func (in *Ingester) Run(ctx context.Context, paths []string) (Stats, error) {
	lg := zctx.From(ctx)
	feeds := make([]feed, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if in.opts.Workers > 0 {
		g.SetLimit(in.opts.Workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			f, err := in.readFile(gctx, path)
			if err != nil {
				return errors.Wrapf(err, "feed %s", path)
			}
			lg.Info("Feed parsed",
				zap.String("path", path),
				zap.Int64("lines", f.lines),
				zap.Int("quotations", len(f.quotes)),
				zap.Int64("malformed", f.malformed),
				zap.Int64("filtered", f.filtered),
			)
			feeds[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	stats := Stats{Files: len(paths)}
	for _, f := range feeds {
		stats.Lines += f.lines
		stats.Malformed += f.malformed
		stats.Filtered += f.filtered
	}

	for i, f := range feeds {
		for start := 0; start < len(f.quotes); start += in.opts.BatchSize {
			batch := f.quotes[start:min(start+in.opts.BatchSize, len(f.quotes))]
			n, err := in.store.Append(ctx, batch)
			if err != nil {
				return stats, errors.Wrapf(err, "append feed %s", paths[i])
			}
			stats.Submitted += int64(len(batch))
			stats.Inserted += n
		}
	}
	return stats, nil
}

func (in *Ingester) readFile(ctx context.Context, path string) (feed, error) {
	file, err := os.Open(path)
	if err != nil {
		return feed{}, errors.Wrap(err, "open")
	}
	defer func() { _ = file.Close() }()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(file)
		if err != nil {
			return feed{}, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return in.parse(ctx, r)
}

// parse reads one quotation per line. Blank lines are ignored; lines that
// fail to decode or check are counted and skipped.
func (in *Ingester) parse(ctx context.Context, r io.Reader) (feed, error) {
	var f feed
	lg := zctx.From(ctx)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return feed{}, err
		}
		f.lines++

		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		q, err := catalog.DecodeQuotation(jx.DecodeBytes(line))
		if err == nil {
			err = check(q)
		}
		if err != nil {
			f.malformed++
			if f.malformed <= maxLoggedMalformed {
				lg.Warn("Skipping malformed line", zap.Int64("line", f.lines), zap.Error(err))
			}
			continue
		}

		if in.opts.Filter != nil && !in.opts.Filter.MayContain(q) {
			f.filtered++
			continue
		}
		f.quotes = append(f.quotes, q)
	}
	if err := scanner.Err(); err != nil {
		return feed{}, errors.Wrap(err, "scan")
	}
	return f, nil
}

func check(q quotation.Quotation) error {
	switch {
	case q.ProductID <= 0:
		return errors.New("productId must be greater than 0")
	case q.DistributorID <= 0:
		return errors.New("distributorId must be greater than 0")
	case !q.PricePerUnit.IsPositive():
		return errors.Errorf("pricePerUnit must be greater than 0, got %s", q.PricePerUnit)
	case q.Availability < 0 || q.EstimatedDeliveryDays < 0:
		return errors.New("availability and estimatedDeliveryDays must not be negative")
	case q.Availability > math.MaxInt32 || q.EstimatedDeliveryDays > math.MaxInt32:
		return errors.New("availability and estimatedDeliveryDays must fit in 32 bits")
	}
	return nil
}
