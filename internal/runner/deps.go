package runner

import (
	"context"
	"time"

	"github.com/nerrad567/qrauto/internal/audit"
	"github.com/nerrad567/qrauto/internal/automation"
	"github.com/nerrad567/qrauto/internal/infrastructure/influxdb"
)

// Acquirer blocks until a payload text is read or the attempt ends.
// Implemented by acquisition.CaptureLoop and acquisition.SerialScanner.
type Acquirer interface {
	Acquire(ctx context.Context) (string, error)
}

// ImageScanner reads a payload from a still image on disk.
type ImageScanner interface {
	Scan(ctx context.Context, path string) (string, error)
}

// PlanDecoder turns payload text into a plan.
type PlanDecoder interface {
	Decode(text string) (*automation.Plan, error)
}

// BoundsChecker rejects sequences that leave the screen.
type BoundsChecker interface {
	Validate(seq automation.Sequence) error
}

// Executor injects a sequence.
type Executor interface {
	Execute(ctx context.Context, seq automation.Sequence) (automation.Outcome, error)
}

// Snapshotter saves a full-screen image for a run phase and returns its path.
type Snapshotter interface {
	Capture(phase string, runStart time.Time) (string, error)
}

// RunRecorder persists the audit record of a finished run.
type RunRecorder interface {
	Create(ctx context.Context, run *audit.Run) error
}

// EventPublisher publishes run events.
type EventPublisher interface {
	PublishJSON(topic string, v any) error
}

// MetricsRecorder writes run and step metrics.
type MetricsRecorder interface {
	WriteRunMetric(m influxdb.RunMetric)
	WriteStepMetric(m influxdb.StepMetric)
}

// Deps holds the collaborators of a Runner.
//
// Decoder, Bounds and Executor are required. A nil acquisition source makes
// runs from that source end as not acquired. Snapshots, Recorder, Events and
// Metrics are optional.
type Deps struct {
	Camera Acquirer
	Serial Acquirer
	Images ImageScanner

	Decoder  PlanDecoder
	Bounds   BoundsChecker
	Executor Executor

	Snapshots Snapshotter
	Recorder  RunRecorder
	Events    EventPublisher
	Metrics   MetricsRecorder

	Logger Logger
}
