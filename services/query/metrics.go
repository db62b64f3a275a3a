package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CacheEvents counts cache activity per key: hit, miss, fetch_error,
// store_error, stale_discard and invalidate.
var CacheEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "milestone_dashboard",
		Subsystem: "query",
		Name:      "cache_events_total",
		Help:      "Query cache events by key and event",
	},
	[]string{"key", "event"},
)
