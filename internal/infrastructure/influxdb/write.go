package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementRun  = "automation_run"
	MeasurementStep = "automation_step"
)

// RunMetric summarises one finished run.
type RunMetric struct {
	RunID     string
	Source    string
	Status    string
	Steps     int
	Completed int
	Duration  time.Duration
	At        time.Time
}

// StepMetric records one executed step.
type StepMetric struct {
	RunID   string
	Kind    string
	Index   int
	Elapsed time.Duration
	At      time.Time
}

// WriteRunMetric queues an automation_run point. Dropped silently when the
// client is closed.
func (c *Client) WriteRunMetric(m RunMetric) {
	if !c.IsConnected() {
		return
	}
	c.sink.WritePoint(runPoint(m))
}

// WriteStepMetric queues an automation_step point.
func (c *Client) WriteStepMetric(m StepMetric) {
	if !c.IsConnected() {
		return
	}
	c.sink.WritePoint(stepPoint(m))
}

func runPoint(m RunMetric) *write.Point {
	return write.NewPoint(
		MeasurementRun,
		map[string]string{
			"source": m.Source,
			"status": m.Status,
		},
		map[string]interface{}{
			"run_id":      m.RunID,
			"steps":       m.Steps,
			"completed":   m.Completed,
			"duration_ms": m.Duration.Milliseconds(),
		},
		timestampOrNow(m.At),
	)
}

func stepPoint(m StepMetric) *write.Point {
	return write.NewPoint(
		MeasurementStep,
		map[string]string{
			"kind": m.Kind,
		},
		map[string]interface{}{
			"run_id":     m.RunID,
			"index":      m.Index,
			"elapsed_ms": m.Elapsed.Milliseconds(),
		},
		timestampOrNow(m.At),
	)
}

func timestampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
