package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/qrauto/internal/acquisition"
	"github.com/nerrad567/qrauto/internal/audit"
	"github.com/nerrad567/qrauto/internal/automation"
	"github.com/nerrad567/qrauto/internal/infrastructure/influxdb"
	"github.com/nerrad567/qrauto/internal/infrastructure/mqtt"
)

// Snapshot phases.
const (
	PhaseBefore = "before"
	PhaseAfter  = "after"
)

// sinkTimeout bounds recording a finished run. Sinks run on a context
// detached from the caller so a cancelled run is still recorded.
const sinkTimeout = 5 * time.Second

// ErrSourceUnavailable is reported when a run is requested from an
// acquisition source that is not configured.
var ErrSourceUnavailable = errors.New("runner: acquisition source not configured")

// Runner executes automation runs.
//
// Thread Safety: a Runner holds no per-run state, but the injected pointer
// and screen are shared, so callers run one automation at a time.
type Runner struct {
	deps   Deps
	logger Logger
	topics mqtt.Topics
	now    func() time.Time
}

// New creates a Runner.
func New(deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Runner{deps: deps, logger: logger, now: time.Now}
}

// RunFromCapture acquires a payload from the camera and runs it.
func (r *Runner) RunFromCapture(ctx context.Context) Report {
	return r.run(ctx, audit.SourceCamera, acquirerFunc(r.deps.Camera))
}

// RunFromSerial acquires a payload from the serial scanner and runs it.
func (r *Runner) RunFromSerial(ctx context.Context) Report {
	return r.run(ctx, audit.SourceSerial, acquirerFunc(r.deps.Serial))
}

// RunFromImage reads a payload from the QR code in the image at path and
// runs it.
func (r *Runner) RunFromImage(ctx context.Context, path string) Report {
	images := r.deps.Images
	return r.run(ctx, audit.SourceImage, func(ctx context.Context) (string, error) {
		if images == nil {
			return "", ErrSourceUnavailable
		}
		return images.Scan(ctx, path)
	})
}

// RunFromText runs payload text supplied directly.
func (r *Runner) RunFromText(ctx context.Context, text string) Report {
	return r.run(ctx, audit.SourceText, func(context.Context) (string, error) {
		return acquisition.FromText(text), nil
	})
}

// RunFromMessage runs payload text received as a remote command.
func (r *Runner) RunFromMessage(ctx context.Context, text string) Report {
	return r.run(ctx, audit.SourceMQTT, func(context.Context) (string, error) {
		return acquisition.FromText(text), nil
	})
}

func acquirerFunc(a Acquirer) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if a == nil {
			return "", ErrSourceUnavailable
		}
		return a.Acquire(ctx)
	}
}

// run walks the pipeline. It recovers any panic raised by a collaborator
// and reports it as an execution failure in the stage it occurred.
func (r *Runner) run(ctx context.Context, source audit.Source, acquire func(context.Context) (string, error)) (report Report) {
	report = Report{
		RunID:     automation.GenerateRunID(),
		Source:    source,
		StartedAt: r.now().UTC(),
	}
	stage := StageAcquire

	defer func() {
		if rec := recover(); rec != nil {
			report.fail(stage, automation.FailureExecution,
				fmt.Errorf("%w: panic in %s stage: %v", automation.ErrExecution, stage, rec))
		}
		report.CompletedAt = r.now().UTC()
		r.finish(ctx, &report)
	}()

	text, err := acquire(ctx)
	if err != nil {
		report.fail(stage, automation.FailureNotAcquired, err)
		return report
	}

	stage = StageClassify
	if !automation.IsAutomationPayload(text) {
		report.fail(stage, automation.FailureInvalidPayload,
			fmt.Errorf("%w: scanned text is not an automation payload", automation.ErrInvalidPayloadShape))
		return report
	}

	stage = StageDecode
	plan, err := r.deps.Decoder.Decode(text)
	if err != nil {
		report.fail(stage, automation.KindOf(err), err)
		return report
	}
	report.StepsTotal = len(plan.Steps)
	report.Description = plan.Description

	stage = StageValidate
	if err := r.deps.Bounds.Validate(plan.Steps); err != nil {
		report.fail(stage, automation.KindOf(err), err)
		return report
	}

	report.BeforeSnapshot = r.snapshot(PhaseBefore, &report)

	stage = StageExecute
	r.publish(r.topics.RunStarted(report.RunID), map[string]any{
		"run_id":      report.RunID,
		"source":      string(report.Source),
		"steps":       report.StepsTotal,
		"description": report.Description,
		"started_at":  report.StartedAt,
	})

	r.logger.Info("executing automation",
		"run_id", report.RunID,
		"source", report.Source,
		"steps", report.StepsTotal,
		"description", report.Description,
	)

	outcome, execErr := r.deps.Executor.Execute(ctx, plan.Steps)
	report.StepsCompleted = outcome.Completed
	r.writeStepMetrics(report.RunID, outcome)

	report.AfterSnapshot = r.snapshot(PhaseAfter, &report)

	if execErr != nil {
		report.fail(stage, automation.KindOf(execErr), execErr)
		return report
	}

	report.Success = true
	report.Reason = fmt.Sprintf("executed %d steps", outcome.Completed)
	return report
}

// snapshot captures the screen for phase. Failures are logged and leave the
// path empty; they never fail the run.
func (r *Runner) snapshot(phase string, report *Report) string {
	if r.deps.Snapshots == nil {
		return ""
	}
	path, err := r.deps.Snapshots.Capture(phase, report.StartedAt)
	if err != nil {
		r.logger.Warn("screen snapshot failed", "run_id", report.RunID, "phase", phase, "error", err)
		return ""
	}
	r.logger.Debug("screen snapshot saved", "run_id", report.RunID, "phase", phase, "path", path)
	return path
}

// finish logs the outcome once and hands the report to every sink.
func (r *Runner) finish(ctx context.Context, report *Report) {
	r.logOutcome(report)

	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	r.guard("run recorder", report.RunID, func() {
		if r.deps.Recorder == nil {
			return
		}
		if err := r.deps.Recorder.Create(sinkCtx, report.auditRun()); err != nil {
			r.logger.Error("failed to record run", "run_id", report.RunID, "error", err)
		}
	})

	r.guard("metrics", report.RunID, func() {
		if r.deps.Metrics == nil {
			return
		}
		r.deps.Metrics.WriteRunMetric(influxdb.RunMetric{
			RunID:     report.RunID,
			Source:    string(report.Source),
			Status:    string(report.Status()),
			Steps:     report.StepsTotal,
			Completed: report.StepsCompleted,
			Duration:  report.Duration(),
			At:        report.CompletedAt,
		})
	})

	r.publish(r.topics.RunCompleted(report.RunID), report)
}

func (r *Runner) logOutcome(report *Report) {
	attrs := []any{
		"run_id", report.RunID,
		"source", report.Source,
		"steps_total", report.StepsTotal,
		"steps_completed", report.StepsCompleted,
		"duration_ms", report.Duration().Milliseconds(),
	}
	if report.Success {
		r.logger.Info("automation run completed", attrs...)
		return
	}

	attrs = append(attrs, "stage", report.Stage, "kind", report.Kind, "reason", report.Reason)
	switch report.Kind {
	case automation.FailureNotAcquired:
		r.logger.Info("automation run ended without payload", attrs...)
	case automation.FailureSafetyAbort:
		r.logger.Warn("automation run aborted by failsafe", attrs...)
	default:
		r.logger.Error("automation run failed", attrs...)
	}
}

func (r *Runner) writeStepMetrics(runID string, outcome automation.Outcome) {
	if r.deps.Metrics == nil {
		return
	}
	r.guard("metrics", runID, func() {
		for _, res := range outcome.Steps {
			r.deps.Metrics.WriteStepMetric(influxdb.StepMetric{
				RunID:   runID,
				Kind:    string(res.Step.Kind),
				Index:   res.Index,
				Elapsed: res.Elapsed,
			})
		}
	})
}

func (r *Runner) publish(topic string, v any) {
	if r.deps.Events == nil {
		return
	}
	r.guard("event publisher", topic, func() {
		if err := r.deps.Events.PublishJSON(topic, v); err != nil {
			r.logger.Warn("failed to publish run event", "topic", topic, "error", err)
		}
	})
}

// guard runs fn and logs instead of propagating a panic from a sink.
func (r *Runner) guard(sink, ref string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("run sink panicked", "sink", sink, "ref", ref, "panic", rec)
		}
	}()
	fn()
}
