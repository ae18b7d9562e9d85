package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqbench/benchmark"
	"seqbench/metrics"
	"seqbench/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *storage.Memory
	pool   *benchmark.Pool
}

func newTestServer(t *testing.T, poolCfg benchmark.PoolConfig, finder storage.Finder) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := storage.NewMemory()
	pool := benchmark.NewPool(poolCfg, logger, m)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	if finder == nil {
		finder = store
	}
	o := benchmark.NewOrchestrator(store, pool, logger, m, benchmark.WithRunSeed(1))
	return &testServer{
		router: NewRouter(Deps{Orchestrator: o, Finder: finder, Gatherer: reg, Logger: logger}),
		store:  store,
		pool:   pool,
	}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, benchmark.PoolConfig{Workers: 1, QueueSize: 1}, nil)
	w := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSubmitThenListExecutions(t *testing.T) {
	s := newTestServer(t, benchmark.PoolConfig{Workers: 2, QueueSize: 4}, nil)

	w := s.do(http.MethodPost, "/v1/benchmarks",
		`{"variant":"linked","position":"middle","size":64,"bound":100,"trials":3}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted BenchmarkAccepted
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.NotEmpty(t, accepted.RunID)
	assert.Equal(t, "linked:middle", accepted.Key)
	assert.Equal(t, "/v1/benchmarks/"+accepted.RunID, w.Header().Get("Location"))

	require.Eventually(t, func() bool {
		w := s.do(http.MethodGet, "/v1/benchmarks/"+accepted.RunID, "")
		var st RunStatus
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &st) != nil {
			return false
		}
		return st.Status == benchmark.StatusDone
	}, 5*time.Second, 5*time.Millisecond)

	w = s.do(http.MethodGet, "/v1/executions/linked_list/middle", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Key        string                      `json:"key"`
		Executions []benchmark.ExecutionRecord `json:"executions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "linked:middle", body.Key)
	require.Len(t, body.Executions, 1)
	assert.Equal(t, accepted.RunID, body.Executions[0].ID)
	assert.Len(t, body.Executions[0].Measurements, 3)
}

func TestSubmitErrorMapping(t *testing.T) {
	s := newTestServer(t, benchmark.PoolConfig{Workers: 1, QueueSize: 4}, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"variant":`, http.StatusBadRequest},
		{"unknown variant", `{"variant":"tree","position":"end","size":5,"bound":5,"trials":1}`, http.StatusUnprocessableEntity},
		{"unknown position", `{"variant":"array","position":"side","size":5,"bound":5,"trials":1}`, http.StatusUnprocessableEntity},
		{"empty container", `{"variant":"array","position":"end","size":0,"bound":5,"trials":1}`, http.StatusUnprocessableEntity},
		{"zero bound", `{"variant":"array","position":"end","size":5,"bound":0,"trials":1}`, http.StatusBadRequest},
		{"zero trials", `{"variant":"array","position":"end","size":5,"bound":5,"trials":0}`, http.StatusBadRequest},
		{"size above limit", `{"variant":"array","position":"end","size":1152921504606846976,"bound":10,"trials":1}`, http.StatusBadRequest},
		{"max int size", `{"variant":"array","position":"end","size":9223372036854775807,"bound":10,"trials":1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/v1/benchmarks", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, mustFind(t, s.store, benchmark.ConfigurationKey{Variant: benchmark.ArrayBacked, Position: benchmark.End}))
}

func TestOversizeRequestLeavesServiceUp(t *testing.T) {
	s := newTestServer(t, benchmark.PoolConfig{Workers: 1, QueueSize: 1}, nil)

	w := s.do(http.MethodPost, "/v1/benchmarks", `{"variant":"array","position":"end","size":1152921504606846976,"bound":10,"trials":1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid benchmark configuration")

	w = s.do(http.MethodPost, "/v1/benchmarks", `{"variant":"array","position":"end","size":8,"bound":10,"trials":1}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted BenchmarkAccepted
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))

	h, err := s.pool.Lookup(accepted.RunID)
	require.NoError(t, err)
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
	assert.Equal(t, benchmark.StatusDone, h.Status())
}

func TestListExecutionsWithoutFinder(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	pool := benchmark.NewPool(benchmark.PoolConfig{Workers: 1, QueueSize: 1}, logger, m)
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	router := NewRouter(Deps{
		Orchestrator: benchmark.NewOrchestrator(storage.NewMemory(), pool, logger, m),
		Logger:       logger,
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/executions/array/end", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitSaturatedPool(t *testing.T) {
	s := newTestServer(t, benchmark.PoolConfig{Workers: 1, QueueSize: 1}, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	_, err := s.pool.Submit("blocker", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started
	defer close(release)
	_, err = s.pool.Submit("filler", func(context.Context) error { return nil })
	require.NoError(t, err)

	w := s.do(http.MethodPost, "/v1/benchmarks", `{"variant":"array","position":"end","size":5,"bound":5,"trials":1}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestSubmitClosedPool(t *testing.T) {
	s := newTestServer(t, benchmark.PoolConfig{Workers: 1, QueueSize: 1}, nil)
	require.NoError(t, s.pool.Shutdown(context.Background()))

	w := s.do(http.MethodPost, "/v1/benchmarks", `{"variant":"array","position":"end","size":5,"bound":5,"trials":1}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetUnknownRun(t *testing.T) {
	s := newTestServer(t, benchmark.PoolConfig{Workers: 1, QueueSize: 1}, nil)
	w := s.do(http.MethodGet, "/v1/benchmarks/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListExecutionsBadPath(t *testing.T) {
	s := newTestServer(t, benchmark.PoolConfig{Workers: 1, QueueSize: 1}, nil)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/executions/tree/end", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/executions/array/side", "").Code)
}

type failingFinder struct{}

func (failingFinder) Find(context.Context, benchmark.ConfigurationKey) ([]benchmark.ExecutionRecord, error) {
	return nil, &storage.Error{Op: "find", Key: "array:end", Err: errors.New("boom")}
}

func TestListExecutionsStorageError(t *testing.T) {
	s := newTestServer(t, benchmark.PoolConfig{Workers: 1, QueueSize: 1}, failingFinder{})
	w := s.do(http.MethodGet, "/v1/executions/array/end", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, benchmark.PoolConfig{Workers: 1, QueueSize: 1}, nil)
	s.do(http.MethodPost, "/v1/benchmarks", `{"variant":"array","position":"end","size":0,"bound":5,"trials":1}`)

	w := s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "seqbench_runs_submitted_total")
}

func mustFind(t *testing.T, f storage.Finder, key benchmark.ConfigurationKey) []benchmark.ExecutionRecord {
	t.Helper()
	recs, err := f.Find(context.Background(), key)
	require.NoError(t, err)
	return recs
}
