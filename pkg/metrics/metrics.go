package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PassDuration tracks how long a full scheduling pass (parse through
	// emit) takes, end to end.
	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedctl_pass_duration_seconds",
			Help:    "Time taken for one scheduling pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PassesTotal counts completed passes, split by whether they produced
	// a transition graph or aborted (e.g. on an ordering cycle).
	PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedctl_passes_total",
			Help: "Total number of scheduling passes by outcome",
		},
		[]string{"outcome"},
	)

	// ActionsEmitted tracks how many transition-graph actions a pass
	// produced, after pruning.
	ActionsEmitted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedctl_pass_actions_emitted",
			Help:    "Number of actions in the transition graph per pass",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// DiagnosticsTotal counts diagnostics a pass recorded, by severity.
	DiagnosticsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedctl_diagnostics_total",
			Help: "Total number of diagnostics recorded, by severity",
		},
		[]string{"severity"},
	)

	// NextRecheckSeconds is the number of seconds from "now" until the
	// next forced recheck the last pass computed.
	NextRecheckSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schedctl_next_recheck_seconds",
			Help: "Seconds from pass time until the computed next recheck",
		},
	)
)

func init() {
	prometheus.MustRegister(PassDuration)
	prometheus.MustRegister(PassesTotal)
	prometheus.MustRegister(ActionsEmitted)
	prometheus.MustRegister(DiagnosticsTotal)
	prometheus.MustRegister(NextRecheckSeconds)
}

// Handler returns the Prometheus HTTP handler, for harnesses that want to
// serve the registry instead of printing a one-shot summary.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing a scheduling pass.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, started now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
