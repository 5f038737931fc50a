package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queryTotal counts queries by outcome ("ok" or an error code).
	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ehrstore_query_total",
		Help: "Total path queries by outcome",
	}, []string{"result"})

	// queryDuration tracks database execution time, including row decoding.
	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ehrstore_query_duration_seconds",
		Help:    "Path query execution duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	})

	// queryRows tracks result sizes.
	queryRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ehrstore_query_rows",
		Help:    "Number of rows returned per path query",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
	})

	// pathSteps tracks resolved path lengths.
	pathSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ehrstore_path_steps",
		Help:    "Number of steps per resolved column path",
		Buckets: []float64{1, 2, 3, 5, 8, 12, 20},
	})

	// recordWrites counts record mutations by operation.
	recordWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ehrstore_record_writes_total",
		Help: "Total record writes by operation",
	}, []string{"op"})
)
