package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LinesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "towerroot_lines_parsed_total",
		Help: "Total number of node lines parsed successfully.",
	})

	ParseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "towerroot_parse_errors_total",
		Help: "Total number of inputs rejected because a line did not match the grammar.",
	})

	StructuralErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "towerroot_structural_errors_total",
		Help: "Total number of inputs that parsed but did not form a single tree, labelled by kind.",
	}, []string{"kind"})

	Sorts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "towerroot_sorts_total",
		Help: "Total number of sort jobs, labelled by status.",
	}, []string{"status"})

	SortDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "towerroot_sort_duration_ms",
		Help:    "Parse, build and sort latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 1000},
	})

	TreeNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "towerroot_tree_nodes",
		Help: "Number of nodes in the currently loaded tree.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "towerroot_queue_utilization_ratio",
		Help: "Current sort queue utilization (0–1).",
	})

	Reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "towerroot_reloads_total",
		Help: "Total number of tree reloads, labelled by status.",
	}, []string{"status"})
)
