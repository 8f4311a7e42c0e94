package metrics

import (
	"testing"
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordPassSetsNextRecheckGauge(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	next := now.Add(90 * time.Second)

	RecordPass(25*time.Millisecond, now, next, 4, nil, false)

	m := &dto.Metric{}
	require := assert.New(t)
	require.NoError(NextRecheckSeconds.Write(m))
	require.InDelta(90, m.GetGauge().GetValue(), 0.01)
}

func TestRecordPassCountsDiagnosticsBySeverity(t *testing.T) {
	now := time.Now()
	diags := []types.Diagnostic{
		{Severity: types.SeverityWarn, Code: "a"},
		{Severity: types.SeverityWarn, Code: "b"},
		{Severity: types.SeverityError, Code: "c"},
	}

	RecordPass(time.Millisecond, now, now, 0, diags, true)

	warnCount := counterValue(t, DiagnosticsTotal.WithLabelValues(string(types.SeverityWarn)))
	assert.GreaterOrEqual(t, warnCount, 2.0)
}

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}
