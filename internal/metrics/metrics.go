// Package metrics defines Prometheus metrics for the relationship engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ComputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kinship_compute_duration_seconds",
			Help:    "Relationship computation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10),
		},
		[]string{"operation"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinship_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kinship_cache_hits_total",
			Help: "Relationship cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kinship_cache_misses_total",
			Help: "Relationship cache misses",
		},
	)

	CacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kinship_cache_evictions_total",
			Help: "Relationship cache evictions (capacity, expiry or purge)",
		},
	)

	GraphBuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kinship_graph_builds_total",
			Help: "Family graph snapshots built",
		},
	)

	GraphPersons = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kinship_graph_persons",
			Help: "Persons in the most recently built family graph",
		},
	)

	PathSearchExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kinship_path_search_exhausted_total",
			Help: "Bounded path searches that returned approximate results",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ComputeDuration, ErrorsTotal,
		CacheHits, CacheMisses, CacheEvictions,
		GraphBuilds, GraphPersons, PathSearchExhausted,
	)
}
