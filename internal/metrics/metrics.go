package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NodesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcgraph_nodes_created_total",
		Help: "Total number of graph nodes constructed, labelled by operator kind.",
	}, []string{"kind"})

	LiveNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calcgraph_nodes_live",
		Help: "Number of constructed nodes not yet reclaimed by the garbage collector.",
	})

	Computations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcgraph_computations_total",
		Help: "Total number of node values computed on a cache miss, labelled by operator kind.",
	}, []string{"kind"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calcgraph_cache_hits_total",
		Help: "Total number of Compute calls answered from a node's cache.",
	})

	NodesInvalidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calcgraph_nodes_invalidated_total",
		Help: "Total number of node visits made while propagating invalidation.",
	})

	ParameterSets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calcgraph_parameter_sets_total",
		Help: "Total number of successful parameter assignments.",
	})

	UnsetParameters = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calcgraph_unset_parameter_errors_total",
		Help: "Total number of evaluations aborted by an unset parameter.",
	})

	SheetReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcgraph_sheet_reloads_total",
		Help: "Total number of sheet reloads, labelled by mode (values, rebuild) and status.",
	}, []string{"mode", "status"})

	SheetEvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "calcgraph_sheet_evaluation_duration_ms",
		Help:    "Latency of evaluating every formula of a sheet, in milliseconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
	})
)
