package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type body struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func serve(t *testing.T, endpoint http.HandlerFunc) (int, body) {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var b body
	require.NoError(t, json.NewDecoder(w.Body).Decode(&b))
	return w.Code, b
}

func runN(p *probe, n int) {
	for range n {
		p.run(context.Background())
	}
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		runs       int
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{name: "healthy before first run", runs: 0, wantCode: http.StatusOK, wantStatus: "ok"},
		{name: "below failure threshold", runs: 2, wantCode: http.StatusOK, wantStatus: "ok"},
		{
			name:       "at failure threshold",
			runs:       3,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantChecks: map[string]string{"db": "connection refused"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.AddLivenessCheck("ok", time.Second, passing)
			h.AddLivenessCheck("db", time.Second, failing("connection refused"))
			runN(h.liveness[1], tt.runs)

			code, b := serve(t, h.LiveEndpoint)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, b.Status)
			assert.Equal(t, tt.wantChecks, b.Checks)
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("not ready until flagged", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("postgres", time.Second, passing)

		code, b := serve(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "service is not ready", b.Checks["_readiness"])

		h.SetReady(true)
		code, b = serve(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", b.Status)
	})

	t.Run("draining", func(t *testing.T) {
		h := New()
		h.SetReady(true)
		h.SetReady(false)

		code, _ := serve(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})

	t.Run("one failing check", func(t *testing.T) {
		h := New()
		h.SetReady(true)
		h.AddReadinessCheck("postgres", time.Second, failing("timeout"))
		h.AddReadinessCheck("cache", time.Second, passing)
		runN(h.readiness[0], 3)

		code, b := serve(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, map[string]string{"postgres": "timeout"}, b.Checks)
	})
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, failing("down"))
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.True(t, h.IsReady())

	runN(h.readiness[0], 3)
	assert.False(t, h.IsReady())
}

func TestProbe_Thresholds(t *testing.T) {
	var fail bool
	check := func(context.Context) error {
		if fail {
			return errors.New("flaky")
		}
		return nil
	}
	p := newProbe("flaky", time.Second, check, []Option{WithThresholds(2, 2)})

	fail = true
	runN(p, 1)
	assert.Empty(t, p.failure())
	runN(p, 1)
	assert.Equal(t, "flaky", p.failure())

	fail = false
	runN(p, 1)
	assert.Equal(t, "check is unhealthy", p.failure(), "one success is below the success threshold")
	runN(p, 1)
	assert.Empty(t, p.failure())
}

func TestWithThresholds_Clamped(t *testing.T) {
	p := newProbe("x", time.Second, passing, []Option{WithThresholds(0, -1)})
	assert.Equal(t, 1, p.failureThreshold)
	assert.Equal(t, 1, p.successThreshold)
}

func TestProbe_Timeout(t *testing.T) {
	p := newProbe("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, []Option{WithThresholds(1, 1)})

	runN(p, 1)
	assert.Equal(t, context.DeadlineExceeded.Error(), p.failure())
}

func TestStartStop(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	h := New()
	h.AddReadinessCheck("counter", time.Second, func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("postgres", time.Second, failing("down"))
	h.AddLivenessCheck("goroutines", time.Second, passing)
	h.Start(context.Background(), time.Millisecond)
	defer h.Stop()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
				_ = h.IsReady()
			}
		}()
	}
	wg.Wait()
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, PingCheck(fakePinger{})(ctx))
	err := PingCheck(fakePinger{err: errors.New("refused")})(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))

	assert.NoError(t, GCMaxPauseCheck(time.Hour)(ctx))
}
