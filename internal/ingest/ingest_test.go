package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/gadgethub-api/internal/domain/quotation"
)

type mockStore struct {
	mu      sync.Mutex
	batches [][]quotation.Quotation
	err     error
}

func (m *mockStore) Append(_ context.Context, quotes []quotation.Quotation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.batches = append(m.batches, append([]quotation.Quotation(nil), quotes...))
	return int64(len(quotes)), nil
}

func (m *mockStore) all() []quotation.Quotation {
	var out []quotation.Quotation
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

func writeFeed(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := strings.Join(lines, "\n") + "\n"

	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	if !strings.HasSuffix(name, ".gz") {
		_, err = f.WriteString(data)
		require.NoError(t, err)
		return path
	}
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func line(productID, distributorID int, price string) string {
	return `{"productId":` + strconv.Itoa(productID) + `,"distributorId":` + strconv.Itoa(distributorID) +
		`,"pricePerUnit":` + price + `,"availability":5,"estimatedDeliveryDays":3}`
}

func TestRun_PreservesFeedOrder(t *testing.T) {
	dir := t.TempDir()
	first := writeFeed(t, dir, "a.jsonl.gz", line(1, 1, "10.00"), line(2, 1, "20.00"), line(3, 1, "30.00"))
	second := writeFeed(t, dir, "b.jsonl", line(1, 2, "11.00"))

	store := &mockStore{}
	stats, err := New(store, Options{BatchSize: 2}).Run(context.Background(), []string{first, second})
	require.NoError(t, err)

	assert.Equal(t, Stats{Files: 2, Lines: 4, Submitted: 4, Inserted: 4}, stats)

	got := store.all()
	require.Len(t, got, 4)
	prices := make([]string, len(got))
	for i, q := range got {
		prices[i] = q.PricePerUnit.StringFixed(2)
	}
	assert.Equal(t, []string{"10.00", "20.00", "30.00", "11.00"}, prices)

	// Batches never span feeds.
	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 2)
	assert.Len(t, store.batches[1], 1)
	assert.Len(t, store.batches[2], 1)
}

func TestRun_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := writeFeed(t, dir, "feed.jsonl",
		line(1, 1, "10.00"),
		"",
		`{"productId": 1,`,
		`null`,
		line(1, 1, "0"),
		line(0, 1, "5.00"),
		line(1, 1, `"7.25"`),
		`{"productId":1,"distributorId":1,"pricePerUnit":1,"availability":3000000000,"estimatedDeliveryDays":1}`,
	)

	store := &mockStore{}
	stats, err := New(store, Options{}).Run(context.Background(), []string{path})
	require.NoError(t, err)

	assert.Equal(t, int64(8), stats.Lines)
	assert.Equal(t, int64(5), stats.Malformed)
	assert.Equal(t, int64(2), stats.Inserted)

	got := store.all()
	require.Len(t, got, 2)
	assert.True(t, got[1].PricePerUnit.Equal(decimal.RequireFromString("7.25")))
}

func TestRun_Filter(t *testing.T) {
	dir := t.TempDir()
	path := writeFeed(t, dir, "feed.jsonl.gz",
		line(1, 1, "10.00"),
		line(999, 1, "10.00"),
		line(1, 999, "10.00"),
		line(2, 3, "12.00"),
	)

	store := &mockStore{}
	opts := Options{Filter: NewFilter([]int64{1, 2}, []int64{1, 3})}
	stats, err := New(store, opts).Run(context.Background(), []string{path})
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Filtered)
	assert.Equal(t, int64(2), stats.Inserted)
}

func TestFilter(t *testing.T) {
	f := NewFilter([]int64{1, 2, 3}, []int64{10})

	for _, id := range []int64{1, 2, 3} {
		assert.True(t, f.MayContain(quotation.Quotation{ProductID: id, DistributorID: 10}))
	}

	empty := NewFilter(nil, nil)
	assert.False(t, empty.MayContain(quotation.Quotation{ProductID: 1, DistributorID: 1}))
}

func TestRun_MissingFileAppendsNothing(t *testing.T) {
	dir := t.TempDir()
	good := writeFeed(t, dir, "good.jsonl", line(1, 1, "10.00"))

	store := &mockStore{}
	_, err := New(store, Options{Workers: 1}).Run(context.Background(), []string{good, filepath.Join(dir, "missing.jsonl")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.jsonl")
	assert.Empty(t, store.batches)
}

func TestRun_StoreError(t *testing.T) {
	dir := t.TempDir()
	path := writeFeed(t, dir, "feed.jsonl", line(1, 1, "10.00"))

	store := &mockStore{err: errors.New("connection reset")}
	_, err := New(store, Options{}).Run(context.Background(), []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRun_Canceled(t *testing.T) {
	dir := t.TempDir()
	path := writeFeed(t, dir, "feed.jsonl", line(1, 1, "10.00"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &mockStore{}
	_, err := New(store, Options{}).Run(ctx, []string{path})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.batches)
}
