package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "validator",
	Subsystem: "scoring",
	Name:      "queue_depth",
	Help:      "Entries waiting in the scoring queue.",
})

var enqueueTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "validator",
	Subsystem: "scoring",
	Name:      "enqueue_total",
	Help:      "Enqueue attempts by outcome.",
}, []string{"result"})

var scoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "validator",
	Subsystem: "scoring",
	Name:      "scored_total",
	Help:      "Entries handled by the scoring worker by kind and outcome.",
}, []string{"kind", "result"})

var scoringDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "validator",
	Subsystem: "scoring",
	Name:      "duration_seconds",
	Help:      "Time spent computing rewards for one entry.",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 120},
}, []string{"kind"})

var queueWait = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "validator",
	Subsystem: "scoring",
	Name:      "queue_wait_seconds",
	Help:      "Time from enqueue to the worker picking an entry up.",
	Buckets:   prometheus.DefBuckets,
})
