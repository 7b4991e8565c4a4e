package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	etlVerify = "etl_verify"

	runsTotal          = "runs_total"
	runDurationSeconds = "run_duration_seconds"
	validationTables   = "validation_tables"
	validationErrors   = "validation_errors"

	// Labels
	outcomeLabel = "outcome"
	stateLabel   = "state"
	sideLabel    = "side"
)

/**
* Metrics definition
**/
var runsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: etlVerify,
		Name:      runsTotal,
		Help:      "number of finished test case runs by outcome",
	},
	[]string{outcomeLabel},
)

var runDurationMetric = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: etlVerify,
		Name:      runDurationSeconds,
		Help:      "duration of test case runs from queueing to terminal state",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	},
)

var validationTablesMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: etlVerify,
		Name:      validationTables,
		Help:      "tables referenced by the last structural validation, found or missing",
	},
	[]string{stateLabel},
)

var validationErrorsMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: etlVerify,
		Name:      validationErrors,
		Help:      "errors reported by the last structural validation per side",
	},
	[]string{sideLabel},
)

func ObserveRun(outcome string, d time.Duration) {
	runsTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
	runDurationMetric.Observe(d.Seconds())
}

func ObserveValidation(tablesFound, tablesMissing, sourceErrors, targetErrors int) {
	validationTablesMetric.With(prometheus.Labels{stateLabel: "found"}).Set(float64(tablesFound))
	validationTablesMetric.With(prometheus.Labels{stateLabel: "missing"}).Set(float64(tablesMissing))
	validationErrorsMetric.With(prometheus.Labels{sideLabel: "source"}).Set(float64(sourceErrors))
	validationErrorsMetric.With(prometheus.Labels{sideLabel: "target"}).Set(float64(targetErrors))
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(runsTotalMetric)
	prometheus.MustRegister(runDurationMetric)
	prometheus.MustRegister(validationTablesMetric)
	prometheus.MustRegister(validationErrorsMetric)
}
