package metrics

import (
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
)

// RecordPass folds one scheduling pass's outcome into the registered
// metrics: pass duration, actions emitted, diagnostics by severity, and
// the computed next-recheck horizon. The CLI harness calls this once per
// pass after pkg/engine.Schedule returns — there is no background
// collection loop here, since a pass is a single point-in-time call, not
// a continuously polled resource.
func RecordPass(duration time.Duration, now time.Time, nextRecheck time.Time, actionCount int, diagnostics []types.Diagnostic, aborted bool) {
	PassDuration.Observe(duration.Seconds())
	ActionsEmitted.Observe(float64(actionCount))

	outcome := "ok"
	if aborted {
		outcome = "aborted"
	}
	PassesTotal.WithLabelValues(outcome).Inc()

	counts := map[types.Severity]int{}
	for _, d := range diagnostics {
		counts[d.Severity]++
	}
	for severity, count := range counts {
		DiagnosticsTotal.WithLabelValues(string(severity)).Add(float64(count))
	}

	if nextRecheck.After(now) {
		NextRecheckSeconds.Set(nextRecheck.Sub(now).Seconds())
	}
}
