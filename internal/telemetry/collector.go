// Package telemetry exports allocator statistics to Prometheus and over HTTP.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/joshuapare/heapkit/heap/alloc"
)

const namespace = "heapkit"

// StatsProvider is implemented by *alloc.Heap.
type StatsProvider interface {
	Stats() alloc.Stats
	TotalStats() alloc.Stats
	Locals(fn func(l *alloc.Local) bool)
}

// Collector reads allocator counters at scrape time. Shared-policy numbers
// and the sum over all local arenas are reported under the "policy" label.
type Collector struct {
	src StatsProvider

	allocations *prometheus.Desc
	releases    *prometheus.Desc
	coalesces   *prometheus.Desc
	grownBytes  *prometheus.Desc
	liveBlocks  *prometheus.Desc
	liveBytes   *prometheus.Desc
	freeBlocks  *prometheus.Desc
	freeBytes   *prometheus.Desc
	heapBytes   *prometheus.Desc
	localArenas *prometheus.Desc
}

// NewCollector creates a collector over src.
func NewCollector(src StatsProvider) *Collector {
	policy := []string{"policy"}
	return &Collector{
		src: src,
		allocations: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "allocations_total"),
			"Allocations by policy and how they were satisfied.",
			[]string{"policy", "fit"}, nil),
		releases: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "releases_total"),
			"Non-nil releases by policy.",
			policy, nil),
		coalesces: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "coalesces_total"),
			"Free-block merges by policy and direction.",
			[]string{"policy", "direction"}, nil),
		grownBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "grown_bytes_total"),
			"Bytes added to the heap, headers included, by policy.",
			policy, nil),
		liveBlocks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "live_blocks"),
			"Blocks currently held by callers.",
			policy, nil),
		liveBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "live_bytes"),
			"Payload bytes currently held by callers.",
			policy, nil),
		freeBlocks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "free_blocks"),
			"Blocks on free lists.",
			policy, nil),
		freeBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "free_bytes"),
			"Payload bytes on free lists.",
			policy, nil),
		heapBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "heap_bytes"),
			"Current heap extent in bytes.",
			nil, nil),
		localArenas: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "local_arenas"),
			"Local arenas created on the heap.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocations
	ch <- c.releases
	ch <- c.coalesces
	ch <- c.grownBytes
	ch <- c.liveBlocks
	ch <- c.liveBytes
	ch <- c.freeBlocks
	ch <- c.freeBytes
	ch <- c.heapBytes
	ch <- c.localArenas
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	shared := c.src.Stats()

	var local alloc.Stats
	c.src.Locals(func(l *alloc.Local) bool {
		local.Add(l.Stats())
		return true
	})

	c.collectPolicy(ch, alloc.PolicyShared.String(), shared)
	c.collectPolicy(ch, alloc.PolicyLocal.String(), local)

	ch <- prometheus.MustNewConstMetric(c.heapBytes, prometheus.GaugeValue, float64(shared.HeapBytes))
	ch <- prometheus.MustNewConstMetric(c.localArenas, prometheus.GaugeValue, float64(shared.LocalArenas))
}

func (c *Collector) collectPolicy(ch chan<- prometheus.Metric, policy string, s alloc.Stats) {
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), policy)
	}

	counter(c.allocations, s.ExactFits, policy, "exact")
	counter(c.allocations, s.WholeFits, policy, "whole")
	counter(c.allocations, s.Splits, policy, "split")
	counter(c.allocations, s.Growths, policy, "grow")
	counter(c.releases, s.Releases, policy)
	counter(c.coalesces, s.CoalesceBackward, policy, "backward")
	counter(c.coalesces, s.CoalesceForward, policy, "forward")
	counter(c.grownBytes, s.GrownBytes, policy)

	gauge(c.liveBlocks, s.LiveBlocks)
	gauge(c.liveBytes, s.LiveBytes)
	gauge(c.freeBlocks, s.FreeBlocks)
	gauge(c.freeBytes, s.FreeBytes)
}

// NewRegistry returns a registry holding the allocator collector plus the
// standard Go runtime and process collectors.
func NewRegistry(src StatsProvider) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(src))
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}
