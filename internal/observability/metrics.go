// Package observability provides in-process metrics for the build service:
// task throughput, cache effectiveness, and timing distributions, exposed
// over HTTP in JSON or text form.
package observability

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds all performance metrics for the build service.
type Metrics struct {
	// Executor metrics
	tasksDispatched *Counter
	tasksCompleted  *Counter
	tasksFailed     *Counter
	tasksRunning    *AtomicGauge
	taskDuration    *HistogramVec

	// Cache metrics
	cacheHits   *CounterVec
	cacheMisses *Counter

	// Timing metrics
	hashDuration  *Histogram
	graphDuration *Histogram
	buildDuration *HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics() *Metrics {
	return &Metrics{
		tasksDispatched: NewCounter(),
		tasksCompleted:  NewCounter(),
		tasksFailed:     NewCounter(),
		tasksRunning:    NewAtomicGauge(),
		taskDuration:    NewHistogramVec(),

		cacheHits:   NewCounterVec(),
		cacheMisses: NewCounter(),

		hashDuration:  NewHistogram(),
		graphDuration: NewHistogram(),
		buildDuration: NewHistogramVec(),
	}
}

// Executor metrics accessors
func (m *Metrics) TasksDispatched() *Counter    { return m.tasksDispatched }
func (m *Metrics) TasksCompleted() *Counter     { return m.tasksCompleted }
func (m *Metrics) TasksFailed() *Counter        { return m.tasksFailed }
func (m *Metrics) TasksRunning() *AtomicGauge   { return m.tasksRunning }
func (m *Metrics) TaskDuration() *HistogramVec  { return m.taskDuration }

// Cache metrics accessors
func (m *Metrics) CacheHits() *CounterVec { return m.cacheHits }
func (m *Metrics) CacheMisses() *Counter  { return m.cacheMisses }

// Timing metrics accessors
func (m *Metrics) HashDuration() *Histogram     { return m.hashDuration }
func (m *Metrics) GraphDuration() *Histogram    { return m.graphDuration }
func (m *Metrics) BuildDuration() *HistogramVec { return m.buildDuration }

// Snapshot returns a point-in-time snapshot of all metrics for reporting.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	return &MetricsSnapshot{
		TasksDispatched: m.tasksDispatched.Get(),
		TasksCompleted:  m.tasksCompleted.Get(),
		TasksFailed:     m.tasksFailed.Get(),
		TasksRunning:    m.tasksRunning.Get(),
		TaskDuration:    m.taskDuration.Snapshot(),

		CacheHits:   m.cacheHits.Snapshot(),
		CacheMisses: m.cacheMisses.Get(),

		HashDuration:  m.hashDuration.Snapshot(),
		GraphDuration: m.graphDuration.Snapshot(),
		BuildDuration: m.buildDuration.Snapshot(),
	}
}

// MetricsSnapshot holds a point-in-time snapshot of all metrics.
type MetricsSnapshot struct {
	TasksDispatched int64                        `json:"tasks_dispatched"`
	TasksCompleted  int64                        `json:"tasks_completed"`
	TasksFailed     int64                        `json:"tasks_failed"`
	TasksRunning    int64                        `json:"tasks_running"`
	TaskDuration    map[string]HistogramSnapshot `json:"task_duration"`

	CacheHits   map[string]int64 `json:"cache_hits"`
	CacheMisses int64            `json:"cache_misses"`

	HashDuration  HistogramSnapshot            `json:"hash_duration"`
	GraphDuration HistogramSnapshot            `json:"graph_duration"`
	BuildDuration map[string]HistogramSnapshot `json:"build_duration"`
}

// Histogram tracks the distribution of duration measurements.
// Thread-safe for concurrent observations.
type Histogram struct {
	mu     sync.RWMutex
	values []float64 // Stored in microseconds for precision
}

// NewHistogram creates a new histogram.
func NewHistogram() *Histogram {
	return &Histogram{
		values: make([]float64, 0, 1000),
	}
}

// Observe records a duration measurement.
func (h *Histogram) Observe(d time.Duration) {
	micros := float64(d.Microseconds())
	h.mu.Lock()
	h.values = append(h.values, micros)
	h.mu.Unlock()
}

// Snapshot returns a point-in-time snapshot with percentiles calculated.
func (h *Histogram) Snapshot() HistogramSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.values) == 0 {
		return HistogramSnapshot{}
	}

	// Copy and sort for percentile calculation
	sorted := make([]float64, len(h.values))
	copy(sorted, h.values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	return HistogramSnapshot{
		Count: len(sorted),
		Mean:  time.Duration(mean) * time.Microsecond,
		P50:   time.Duration(percentile(sorted, 0.50)) * time.Microsecond,
		P95:   time.Duration(percentile(sorted, 0.95)) * time.Microsecond,
		P99:   time.Duration(percentile(sorted, 0.99)) * time.Microsecond,
		Max:   time.Duration(sorted[len(sorted)-1]) * time.Microsecond,
	}
}

// HistogramSnapshot holds calculated statistics for a histogram.
type HistogramSnapshot struct {
	Count int           `json:"count"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

// percentile calculates the p-th percentile from sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return sorted[lower]
	}

	// Linear interpolation
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// HistogramVec is a collection of histograms with labels.
type HistogramVec struct {
	mu         sync.RWMutex
	histograms map[string]*Histogram
}

// NewHistogramVec creates a new histogram vector.
func NewHistogramVec() *HistogramVec {
	return &HistogramVec{
		histograms: make(map[string]*Histogram),
	}
}

// WithLabels returns a histogram for the given label string.
func (hv *HistogramVec) WithLabels(labels string) *Histogram {
	hv.mu.RLock()
	h, ok := hv.histograms[labels]
	hv.mu.RUnlock()

	if ok {
		return h
	}

	hv.mu.Lock()
	defer hv.mu.Unlock()

	// Double-check after acquiring write lock
	if h, ok := hv.histograms[labels]; ok {
		return h
	}

	h = NewHistogram()
	hv.histograms[labels] = h
	return h
}

// Snapshot returns snapshots of all histograms.
func (hv *HistogramVec) Snapshot() map[string]HistogramSnapshot {
	hv.mu.RLock()
	defer hv.mu.RUnlock()

	snapshot := make(map[string]HistogramSnapshot, len(hv.histograms))
	for label, h := range hv.histograms {
		snapshot[label] = h.Snapshot()
	}
	return snapshot
}

// Counter is a monotonically increasing counter using atomic operations.
type Counter struct {
	value int64
}

// NewCounter creates a new counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	atomic.AddInt64(&c.value, 1)
}

// Add adds the given value to the counter.
func (c *Counter) Add(delta int64) {
	atomic.AddInt64(&c.value, delta)
}

// Get returns the current value.
func (c *Counter) Get() int64 {
	return atomic.LoadInt64(&c.value)
}

// CounterVec is a collection of counters with labels.
type CounterVec struct {
	mu       sync.RWMutex
	counters map[string]*Counter
}

// NewCounterVec creates a new counter vector.
func NewCounterVec() *CounterVec {
	return &CounterVec{
		counters: make(map[string]*Counter),
	}
}

// WithLabels returns a counter for the given label string.
func (cv *CounterVec) WithLabels(labels string) *Counter {
	cv.mu.RLock()
	c, ok := cv.counters[labels]
	cv.mu.RUnlock()

	if ok {
		return c
	}

	cv.mu.Lock()
	defer cv.mu.Unlock()

	// Double-check after acquiring write lock
	if c, ok := cv.counters[labels]; ok {
		return c
	}

	c = NewCounter()
	cv.counters[labels] = c
	return c
}

// Snapshot returns the current values of all counters.
func (cv *CounterVec) Snapshot() map[string]int64 {
	cv.mu.RLock()
	defer cv.mu.RUnlock()

	snapshot := make(map[string]int64, len(cv.counters))
	for label, c := range cv.counters {
		snapshot[label] = c.Get()
	}
	return snapshot
}

// AtomicGauge is a gauge that can be set and read atomically.
type AtomicGauge struct {
	value int64
}

// NewAtomicGauge creates a new atomic gauge.
func NewAtomicGauge() *AtomicGauge {
	return &AtomicGauge{}
}

// Set sets the gauge to the given value.
func (g *AtomicGauge) Set(val int64) {
	atomic.StoreInt64(&g.value, val)
}

// Inc increments the gauge by 1.
func (g *AtomicGauge) Inc() {
	atomic.AddInt64(&g.value, 1)
}

// Dec decrements the gauge by 1.
func (g *AtomicGauge) Dec() {
	atomic.AddInt64(&g.value, -1)
}

// Get returns the current value.
func (g *AtomicGauge) Get() int64 {
	return atomic.LoadInt64(&g.value)
}

// ServeHTTP implements http.Handler for metrics exposition.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := m.Snapshot()

	// Support both JSON and text format
	format := r.URL.Query().Get("format")
	if format == "json" || r.Header.Get("Accept") == "application/json" {
		w.Header().Set("Content-Type", "application/json")
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.Encode(snapshot)
		return
	}

	// Default: human-readable text format
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	fmt.Fprintf(w, "# Build Service Metrics\n\n")

	fmt.Fprintf(w, "## Executor\n\n")
	fmt.Fprintf(w, "Tasks Dispatched: %d\n", snapshot.TasksDispatched)
	fmt.Fprintf(w, "Tasks Completed: %d\n", snapshot.TasksCompleted)
	fmt.Fprintf(w, "Tasks Failed: %d\n", snapshot.TasksFailed)
	fmt.Fprintf(w, "Tasks Running: %d\n\n", snapshot.TasksRunning)

	if len(snapshot.TaskDuration) > 0 {
		fmt.Fprintf(w, "Task Duration by target:\n")
		for label, hist := range snapshot.TaskDuration {
			fmt.Fprintf(w, "  %s:\n", label)
			writeHistogramSummaryIndented(w, hist)
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "## Cache\n\n")
	fmt.Fprintf(w, "Cache Misses: %d\n", snapshot.CacheMisses)
	if len(snapshot.CacheHits) > 0 {
		fmt.Fprintf(w, "Cache Hits by source:\n")
		for label, count := range snapshot.CacheHits {
			fmt.Fprintf(w, "  %s: %d\n", label, count)
		}
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "## Timings\n\n")
	writeHistogramSummary(w, "Input Hashing", snapshot.HashDuration)
	writeHistogramSummary(w, "Graph Construction", snapshot.GraphDuration)

	if len(snapshot.BuildDuration) > 0 {
		fmt.Fprintf(w, "\nBuild Duration by target:\n")
		for label, hist := range snapshot.BuildDuration {
			fmt.Fprintf(w, "  %s:\n", label)
			writeHistogramSummaryIndented(w, hist)
		}
	}
}

func writeHistogramSummary(w http.ResponseWriter, name string, h HistogramSnapshot) {
	if h.Count == 0 {
		fmt.Fprintf(w, "%s: no data\n", name)
		return
	}
	fmt.Fprintf(w, "%s (n=%d):\n", name, h.Count)
	fmt.Fprintf(w, "  Mean: %v, P50: %v, P95: %v, P99: %v, Max: %v\n",
		h.Mean, h.P50, h.P95, h.P99, h.Max)
}

func writeHistogramSummaryIndented(w http.ResponseWriter, h HistogramSnapshot) {
	if h.Count == 0 {
		fmt.Fprintf(w, "    no data\n")
		return
	}
	fmt.Fprintf(w, "    Count: %d, Mean: %v, P50: %v, P95: %v, P99: %v, Max: %v\n",
		h.Count, h.Mean, h.P50, h.P95, h.P99, h.Max)
}
