package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ViewMetrics tracks load performance of one dashboard view.
type ViewMetrics struct {
	// Latency histograms (in milliseconds)
	FetchLatency  *Histogram
	RenderLatency *Histogram

	// Counters
	Loads       atomic.Uint64
	Successes   atomic.Uint64
	Failures    atomic.Uint64
	Stale       atomic.Uint64
	CacheHits   atomic.Uint64
	CacheMisses atomic.Uint64
	Restores    atomic.Uint64
}

func newViewMetrics() *ViewMetrics {
	return &ViewMetrics{
		FetchLatency:  NewHistogram(1000),
		RenderLatency: NewHistogram(1000),
	}
}

// ViewStats is a snapshot of one view's metrics.
type ViewStats struct {
	FetchLatency  LatencyStats `json:"fetch_latency"`
	RenderLatency LatencyStats `json:"render_latency"`

	Loads        uint64  `json:"loads"`
	Successes    uint64  `json:"successes"`
	Failures     uint64  `json:"failures"`
	Stale        uint64  `json:"stale"`
	CacheHits    uint64  `json:"cache_hits"`
	CacheMisses  uint64  `json:"cache_misses"`
	Restores     uint64  `json:"restores"`
	CacheHitRate float64 `json:"cache_hit_rate"` // percentage
	SuccessRate  float64 `json:"success_rate"`   // percentage of finished loads
}

func (m *ViewMetrics) stats() ViewStats {
	hits := m.CacheHits.Load()
	misses := m.CacheMisses.Load()
	successes := m.Successes.Load()
	failures := m.Failures.Load()

	cacheHitRate := 0.0
	if hits+misses > 0 {
		cacheHitRate = float64(hits) / float64(hits+misses) * 100
	}
	successRate := 0.0
	if successes+failures > 0 {
		successRate = float64(successes) / float64(successes+failures) * 100
	}

	return ViewStats{
		FetchLatency:  m.FetchLatency.Stats(),
		RenderLatency: m.RenderLatency.Stats(),
		Loads:         m.Loads.Load(),
		Successes:     successes,
		Failures:      failures,
		Stale:         m.Stale.Load(),
		CacheHits:     hits,
		CacheMisses:   misses,
		Restores:      m.Restores.Load(),
		CacheHitRate:  cacheHitRate,
		SuccessRate:   successRate,
	}
}

func (m *ViewMetrics) reset() {
	m.FetchLatency.Reset()
	m.RenderLatency.Reset()
	m.Loads.Store(0)
	m.Successes.Store(0)
	m.Failures.Store(0)
	m.Stale.Store(0)
	m.CacheHits.Store(0)
	m.CacheMisses.Store(0)
	m.Restores.Store(0)
}

// DashboardMetrics collects ViewMetrics per view name.
type DashboardMetrics struct {
	views     map[string]*ViewMetrics
	startTime time.Time
	mu        sync.RWMutex
}

// NewDashboardMetrics creates a new metrics collector.
func NewDashboardMetrics() *DashboardMetrics {
	return &DashboardMetrics{
		views:     make(map[string]*ViewMetrics),
		startTime: time.Now(),
	}
}

// View returns the metrics of view, creating them on first use.
func (m *DashboardMetrics) View(view string) *ViewMetrics {
	m.mu.RLock()
	vm, ok := m.views[view]
	m.mu.RUnlock()
	if ok {
		return vm
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if vm, ok := m.views[view]; ok {
		return vm
	}
	vm = newViewMetrics()
	m.views[view] = vm
	return vm
}

// DashboardStats contains the computed statistics for all views.
type DashboardStats struct {
	Views  map[string]ViewStats `json:"views"`
	Uptime string               `json:"uptime"`
}

// GetStats returns a snapshot of the current statistics.
func (m *DashboardMetrics) GetStats() *DashboardStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &DashboardStats{
		Views:  make(map[string]ViewStats, len(m.views)),
		Uptime: time.Since(m.startTime).Round(time.Second).String(),
	}
	for name, vm := range m.views {
		stats.Views[name] = vm.stats()
	}
	return stats
}

// ViewNames returns the names of views with recorded metrics, sorted.
func (m *DashboardMetrics) ViewNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.views))
	for name := range m.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all metrics.
func (m *DashboardMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, vm := range m.views {
		vm.reset()
	}
	m.startTime = time.Now()
}
