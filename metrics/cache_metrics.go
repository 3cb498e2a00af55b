package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type cacheCollector struct {
	hits    *prometheus.CounterVec
	misses  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var (
	collectorOnce sync.Once
	collector     *cacheCollector
)

// getCollector lazily registers the prometheus collectors. Registration is
// global per process, so it must happen exactly once even though multiple
// CacheMetrics instances exist (one per cache kind).
func getCollector() *cacheCollector {
	collectorOnce.Do(func() {
		collector = &cacheCollector{
			hits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "skycast_cache_hits_total",
					Help: "The total number of cache hits",
				},
				[]string{"kind"},
			),
			misses: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "skycast_cache_misses_total",
					Help: "The total number of cache misses",
				},
				[]string{"kind"},
			),
			latency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "skycast_cache_fetch_duration_seconds",
					Help:    "Upstream fetch duration on cache miss, in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"kind"},
			),
		}
	})
	return collector
}

// Stats is a point-in-time view of one cache kind's counters.
type Stats struct {
	Kind     string  `json:"kind"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// CacheMetrics counts hits and misses for one cache kind and mirrors them
// to prometheus.
type CacheMetrics struct {
	kind      string
	collector *cacheCollector

	mu     sync.RWMutex
	hits   int64
	misses int64
}

func NewCacheMetrics(kind string) *CacheMetrics {
	return &CacheMetrics{
		kind:      kind,
		collector: getCollector(),
	}
}

func (m *CacheMetrics) RecordHit() {
	m.mu.Lock()
	m.hits++
	m.mu.Unlock()

	m.collector.hits.WithLabelValues(m.kind).Inc()
}

func (m *CacheMetrics) RecordMiss() {
	m.mu.Lock()
	m.misses++
	m.mu.Unlock()

	m.collector.misses.WithLabelValues(m.kind).Inc()
}

func (m *CacheMetrics) RecordFetchDuration(seconds float64) {
	m.collector.latency.WithLabelValues(m.kind).Observe(seconds)
}

func (m *CacheMetrics) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.hits + m.misses
	var ratio float64
	if total > 0 {
		ratio = float64(m.hits) / float64(total)
	}

	return Stats{
		Kind:     m.kind,
		Hits:     m.hits,
		Misses:   m.misses,
		HitRatio: ratio,
	}
}
