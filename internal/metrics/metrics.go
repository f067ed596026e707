// Package metrics exposes the ambient Prometheus instrumentation. The
// orchestrator records OrchestratorRuns and OrchestratorOrdersProcessed and
// the queue records QueueDepth and QueueJobsCompleted; DBQueryDuration and
// ShopeeAPICallDuration are registered but no package records them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DBQueryDuration measures how long database statements take, labeled by
// operation (e.g. "upsert_order", "list_active_shops").
var DBQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database statements in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	},
	[]string{"operation"},
)

// ShopeeAPICallDuration measures how long each Shopee API operation takes.
var ShopeeAPICallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "shopee_api_call_duration_seconds",
		Help:    "Duration of Shopee Open API v2 calls in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	},
	[]string{"operation", "outcome"},
)

// OrchestratorRuns counts orchestrator invocations by outcome.
var OrchestratorRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orchestrator_runs_total",
		Help: "Ingestion orchestrator invocations by outcome",
	},
	[]string{"outcome"},
)

// OrchestratorOrdersProcessed counts orders processed per shop cycle by
// result (success/failed).
var OrchestratorOrdersProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orchestrator_orders_processed_total",
		Help: "Orders processed by the ingestion orchestrator",
	},
	[]string{"result"},
)

// QueueDepth reports the current ready-job count per queue.
var QueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "queue_depth",
		Help: "Number of ready jobs waiting in a queue",
	},
	[]string{"queue"},
)

// QueueJobsCompleted counts jobs that finished processing by outcome.
var QueueJobsCompleted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_jobs_completed_total",
		Help: "Jobs that finished processing",
	},
	[]string{"queue", "outcome"},
)
