package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_hits_total",
			Help: "Total cache hits per collection and backend.",
		},
		[]string{"collection", "backend"},
	)
	cacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_misses_total",
			Help: "Total cache misses per collection and backend.",
		},
		[]string{"collection", "backend"},
	)
	cacheSetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_sets_total",
			Help: "Total cache sets per collection and backend.",
		},
		[]string{"collection", "backend"},
	)
	cacheDeletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_deletes_total",
			Help: "Total cache deletes per collection and backend.",
		},
		[]string{"collection", "backend"},
	)
	cacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_errors_total",
			Help: "Total cache backend errors per collection and backend.",
		},
		[]string{"collection", "backend"},
	)
)

func init() {
	prometheus.MustRegister(
		cacheHitsTotal,
		cacheMissesTotal,
		cacheSetsTotal,
		cacheDeletesTotal,
		cacheErrorsTotal,
	)
}

// metrics is a per-collection view over the package's counter vectors,
// mirroring the original CacheMetrics struct's hit/miss/set/delete/error
// counting but backed by Prometheus instead of plain atomics so the
// numbers are scrapeable.
type metrics struct {
	collection string
	backend    string
}

func newMetrics(collection, backend string) *metrics {
	return &metrics{collection: collection, backend: backend}
}

func (m *metrics) hit()    { cacheHitsTotal.WithLabelValues(m.collection, m.backend).Inc() }
func (m *metrics) miss()   { cacheMissesTotal.WithLabelValues(m.collection, m.backend).Inc() }
func (m *metrics) set()    { cacheSetsTotal.WithLabelValues(m.collection, m.backend).Inc() }
func (m *metrics) del()    { cacheDeletesTotal.WithLabelValues(m.collection, m.backend).Inc() }
func (m *metrics) errored() { cacheErrorsTotal.WithLabelValues(m.collection, m.backend).Inc() }
