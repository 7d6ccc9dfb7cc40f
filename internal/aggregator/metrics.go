package aggregator

import "github.com/prometheus/client_golang/prometheus"

var (
	runsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stepple",
		Subsystem: "aggregator",
		Name:      "runs_total",
		Help:      "Number of integration sync runs started.",
	})

	integrationsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stepple",
		Subsystem: "aggregator",
		Name:      "integrations_total",
		Help:      "Integrations processed, labeled by outcome.",
	}, []string{"outcome"})

	bucketsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stepple",
		Subsystem: "aggregator",
		Name:      "buckets_written_total",
		Help:      "Day buckets written to step records.",
	})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stepple",
		Subsystem: "aggregator",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full sync run.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	lastRunGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stepple",
		Subsystem: "aggregator",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last sync run finished.",
	})
)

func init() {
	prometheus.MustRegister(runsCounter, integrationsCounter, bucketsCounter, runDuration, lastRunGauge)
}
