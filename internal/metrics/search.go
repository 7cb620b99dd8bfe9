package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perch",
			Name:      "search_cache_total",
			Help:      "Search result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchRankDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "perch",
			Name:      "search_rank_duration_seconds",
			Help:      "Full-scan ranking duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	ModerationDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perch",
			Name:      "moderation_decisions_total",
			Help:      "Moderation outcomes by decision",
		},
		[]string{"decision"}, // "allow" / "block" / "error"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(SearchRankDuration)
	prometheus.MustRegister(ModerationDecisionsTotal)
	searchMetricsRegistered = true
}
