// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger ─────────────────────────────────────────────────────────────────

// TransactionsAdded counts transactions accepted by the tracker, by kind.
var TransactionsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "ledger",
	Name:      "transactions_added_total",
	Help:      "Total transactions added, partitioned by kind (income, expense).",
}, []string{"kind"})

// TransactionsDeleted counts deleted ledger entries.
var TransactionsDeleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "ledger",
	Name:      "transactions_deleted_total",
	Help:      "Total transactions deleted from the ledger.",
})

// Rejections counts refused operations by reason (validation, duplicate, not_found).
var Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "ledger",
	Name:      "rejections_total",
	Help:      "Total operations rejected, partitioned by reason.",
}, []string{"reason"})

// LedgerSize is the number of transactions currently held.
var LedgerSize = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "fintrack",
	Subsystem: "ledger",
	Name:      "transactions",
	Help:      "Current number of transactions in the ledger.",
})

// Balance mirrors the current balance.
var Balance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "fintrack",
	Subsystem: "ledger",
	Name:      "balance",
	Help:      "Current balance (income minus outcome).",
})

// ─── Recurrence ─────────────────────────────────────────────────────────────

// OccurrencesMaterialized counts ledger entries created from recurring tasks.
var OccurrencesMaterialized = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "recurrence",
	Name:      "occurrences_materialized_total",
	Help:      "Total occurrences inserted into the ledger by materialization.",
})

// RecurringTasks is the number of active recurring tasks.
var RecurringTasks = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "fintrack",
	Subsystem: "recurrence",
	Name:      "tasks",
	Help:      "Current number of active recurring tasks.",
})

// ─── Storage ────────────────────────────────────────────────────────────────

// PersistFailures counts state writes that failed and were rolled back.
var PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "storage",
	Name:      "persist_failures_total",
	Help:      "Total failed state writes.",
})

// PersistDuration observes how long a full state rewrite takes.
var PersistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "fintrack",
	Subsystem: "storage",
	Name:      "persist_duration_seconds",
	Help:      "Latency of full state rewrites in seconds.",
	Buckets:   prometheus.DefBuckets,
})

// SearchCacheLookups counts search cache lookups by result (hit, miss).
var SearchCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "http",
	Name:      "search_cache_lookups_total",
	Help:      "Search cache lookups, partitioned by result.",
}, []string{"result"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// RequestCount counts HTTP requests by status code, method and route pattern.
var RequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "How many HTTP requests processed, partitioned by status code, method and route.",
}, []string{"code", "method", "route"})

// RequestDuration observes HTTP latencies.
var RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "fintrack",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "The HTTP request latencies in seconds.",
}, []string{"code", "method", "route"})
