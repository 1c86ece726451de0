// Package obs holds the Prometheus counters and histograms exposed by
// qbst's stats subcommand: build throughput, pages touched per query,
// and page-cache hit rate, registered via promauto on package init and
// flattened for CLI JSON dumps by Snapshot.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/histogram the build and query paths
// update.
type Metrics struct {
	BuildEntriesTotal prometheus.Counter
	BuildDuration     prometheus.Histogram

	QueryTotal  *prometheus.CounterVec
	QueryErrors prometheus.Counter

	PagesTouchedTotal prometheus.Counter
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
}

// NewMetrics registers a fresh set of metrics with the default
// registry. Tests that need isolation should construct their own
// registry instead of relying on the package-level M.
func NewMetrics() *Metrics {
	return &Metrics{
		BuildEntriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bstreego_build_entries_total",
			Help: "Total entries written by build.Build",
		}),
		BuildDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "bstreego_build_duration_seconds",
			Help: "Wall-clock duration of build.Build calls",
		}),
		QueryTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bstreego_query_total",
			Help: "Total query operations, by kind",
		}, []string{"op"}),
		QueryErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bstreego_query_errors_total",
			Help: "Total query operations that returned an error",
		}),
		PagesTouchedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bstreego_pages_touched_total",
			Help: "Total page-cache-sized reads performed by the fallback backing store",
		}),
		CacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bstreego_cache_hits_total",
			Help: "Total page-cache hits in the mmap fallback store",
		}),
		CacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bstreego_cache_misses_total",
			Help: "Total page-cache misses in the mmap fallback store",
		}),
	}
}

// M is the process-wide metrics instance, constructed once at init.
var M = NewMetrics()
