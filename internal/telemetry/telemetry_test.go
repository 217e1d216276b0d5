package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
)

// newActiveHeap returns a heap with some shared and local activity.
func newActiveHeap(t *testing.T) *alloc.Heap {
	t.Helper()

	h, err := alloc.New(&alloc.Config{ReserveBytes: 1 << 20, CommitChunkBytes: 64 << 10})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	a := h.Allocate(64)
	_ = h.Allocate(8)
	h.Release(a)
	_ = h.Allocate(16) // split of a

	l := h.NewLocal()
	b := l.Allocate(32)
	l.Release(b)
	return h
}

func TestCollector_Metrics(t *testing.T) {
	h := newActiveHeap(t)
	c := NewCollector(h)

	want := `
# HELP heapkit_allocations_total Allocations by policy and how they were satisfied.
# TYPE heapkit_allocations_total counter
heapkit_allocations_total{fit="exact",policy="local"} 0
heapkit_allocations_total{fit="exact",policy="shared"} 0
heapkit_allocations_total{fit="grow",policy="local"} 1
heapkit_allocations_total{fit="grow",policy="shared"} 2
heapkit_allocations_total{fit="split",policy="local"} 0
heapkit_allocations_total{fit="split",policy="shared"} 1
heapkit_allocations_total{fit="whole",policy="local"} 0
heapkit_allocations_total{fit="whole",policy="shared"} 0
# HELP heapkit_local_arenas Local arenas created on the heap.
# TYPE heapkit_local_arenas gauge
heapkit_local_arenas 1
# HELP heapkit_live_blocks Blocks currently held by callers.
# TYPE heapkit_live_blocks gauge
heapkit_live_blocks{policy="local"} 0
heapkit_live_blocks{policy="shared"} 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(want),
		"heapkit_allocations_total", "heapkit_local_arenas", "heapkit_live_blocks")
	require.NoError(t, err)

	assert.Equal(t, float64(h.Size()), testutil.ToFloat64(onlyMetric(c, "heapkit_heap_bytes")))
}

func TestCollector_Lint(t *testing.T) {
	h := newActiveHeap(t)

	problems, err := testutil.CollectAndLint(NewCollector(h))
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestRouter_Metrics(t *testing.T) {
	h := newActiveHeap(t)
	srv := httptest.NewServer(Router(NewRegistry(h), h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `heapkit_releases_total{policy="shared"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRouter_DebugHeap(t *testing.T) {
	h := newActiveHeap(t)
	srv := httptest.NewServer(Router(prometheus.NewRegistry(), h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/heap")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var report heapReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, h.Stats(), report.Shared)
	assert.Equal(t, h.TotalStats(), report.Total)
	require.Len(t, report.Locals, 1)
	assert.Equal(t, uint64(1), report.Locals["1"].Releases)
}

func TestRouter_UnknownPath(t *testing.T) {
	h := newActiveHeap(t)
	srv := httptest.NewServer(Router(prometheus.NewRegistry(), h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_StartShutdown(t *testing.T) {
	h := newActiveHeap(t)
	s, err := Start("127.0.0.1:0", Router(NewRegistry(h), h))
	require.NoError(t, err)

	resp, err := http.Get("http://" + s.Addr() + "/debug/heap")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

// onlyMetric wraps c so that it only emits the named metric family.
func onlyMetric(c prometheus.Collector, name string) prometheus.Collector {
	return filtered{c: c, name: name}
}

type filtered struct {
	c    prometheus.Collector
	name string
}

func (f filtered) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(f, ch)
}

func (f filtered) Collect(ch chan<- prometheus.Metric) {
	all := make(chan prometheus.Metric)
	go func() {
		f.c.Collect(all)
		close(all)
	}()
	for m := range all {
		if strings.Contains(m.Desc().String(), `fqName: "`+f.name+`"`) {
			ch <- m
		}
	}
}
