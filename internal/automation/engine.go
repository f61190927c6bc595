package automation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Injector is the input-injection capability the engine drives.
//
// Implementations act on the real pointer; MoveTo glides over duration
// (zero means jump). Any primitive may return an error wrapping
// ErrSafetyAbort when the platform detects its own abort condition.
type Injector interface {
	MoveTo(x, y int, duration time.Duration) error
	Click() error
	DoubleClick() error
	RightClick() error
	Position() (x, y int)
}

// EngineConfig holds the per-engine injection settings.
type EngineConfig struct {
	// FailSafe enables the corner abort: if the pointer sits within
	// FailSafeMargin pixels of any screen corner before a primitive is
	// injected, the run stops with ErrSafetyAbort.
	FailSafe       bool
	FailSafeMargin int

	// Pause is slept after every injected primitive (move and action).
	Pause time.Duration

	// MoveDuration is passed to Injector.MoveTo.
	MoveDuration time.Duration

	// DryRun moves the pointer through every step without injecting any
	// click. The failsafe guard and settle delays still apply.
	DryRun bool
}

// Engine replays validated sequences against the live screen.
//
// Steps run strictly in order: move, act, settle. Execution is not
// transactional; steps before a failure keep their effect. With
// EngineConfig.DryRun the act phase is skipped.
//
// Thread Safety: an Engine holds no per-run state, but the screen it drives
// is shared. Callers run one sequence at a time.
type Engine struct {
	injector Injector
	screen   ScreenSizer
	cfg      EngineConfig
	logger   Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an execution engine.
//
// Parameters:
//   - injector: Input-injection capability
//   - screen: Screen extent, read once per Execute for the failsafe corners (may be nil when FailSafe is off)
//   - cfg: Injection settings
//   - logger: Logger instance (may be nil)
func NewEngine(injector Injector, screen ScreenSizer, cfg EngineConfig, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.FailSafeMargin < 0 {
		cfg.FailSafeMargin = 0
	}
	return &Engine{
		injector: injector,
		screen:   screen,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Execute runs every step of seq in order.
//
// Returns:
//   - Outcome: totals plus one StepResult per completed step, even on failure
//   - error: nil on success, or a *StepError wrapping:
//   - ErrSafetyAbort if the failsafe tripped
//   - ErrExecution for any other fault, including cancellation of ctx
func (e *Engine) Execute(ctx context.Context, seq Sequence) (Outcome, error) {
	outcome := Outcome{Total: len(seq)}
	if len(seq) == 0 {
		return outcome, fmt.Errorf("%w: nothing to execute", ErrInvalidPayloadShape)
	}

	guard, err := e.failSafeGuard()
	if err != nil {
		return outcome, fmt.Errorf("%w: %w", ErrExecution, err)
	}

	started := time.Now()
	e.logger.Info("automation sequence started", "steps", len(seq), "dry_run", e.cfg.DryRun)

	for i, step := range seq {
		stepStart := time.Now()

		if err := e.runStep(ctx, i, step, guard); err != nil {
			outcome.Duration = time.Since(started)
			if errors.Is(err, ErrSafetyAbort) {
				e.logger.Warn("automation aborted by failsafe",
					"step", i+1,
					"x", step.X,
					"y", step.Y,
					"completed", outcome.Completed,
				)
			} else {
				e.logger.Error("automation step failed",
					"step", i+1,
					"x", step.X,
					"y", step.Y,
					"kind", step.Kind,
					"completed", outcome.Completed,
					"error", err,
				)
			}
			return outcome, err
		}

		outcome.Completed++
		outcome.Steps = append(outcome.Steps, StepResult{
			Index:   i,
			Step:    step,
			Elapsed: time.Since(stepStart),
		})
	}

	outcome.Duration = time.Since(started)
	e.logger.Info("automation sequence complete",
		"steps", outcome.Completed,
		"duration_ms", outcome.Duration.Milliseconds(),
	)
	return outcome, nil
}

// runStep performs one step and converts every fault, including panics
// raised by the injector, into a *StepError.
func (e *Engine) runStep(ctx context.Context, index int, step Step, guard func() error) (err error) {
	fail := func(sentinel, cause error) error {
		return &StepError{Index: index, X: step.X, Y: step.Y, Kind: step.Kind, Err: sentinel, Cause: cause}
	}
	classify := func(cause error) error {
		if errors.Is(cause, ErrSafetyAbort) {
			return fail(ErrSafetyAbort, cause)
		}
		return fail(ErrExecution, cause)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fail(ErrExecution, fmt.Errorf("panic: %v", r))
		}
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fail(ErrExecution, ctxErr)
	}

	e.logger.Debug("automation step", "step", index+1, "action", step.String())

	if gErr := guard(); gErr != nil {
		return fail(ErrSafetyAbort, gErr)
	}
	if mErr := e.injector.MoveTo(step.X, step.Y, e.cfg.MoveDuration); mErr != nil {
		return classify(fmt.Errorf("move: %w", mErr))
	}
	if sErr := e.sleep(ctx, e.cfg.Pause); sErr != nil {
		return fail(ErrExecution, sErr)
	}

	if !e.cfg.DryRun {
		if gErr := guard(); gErr != nil {
			return fail(ErrSafetyAbort, gErr)
		}
		if aErr := e.act(step.Kind); aErr != nil {
			return classify(fmt.Errorf("%s: %w", step.Kind, aErr))
		}
		if sErr := e.sleep(ctx, e.cfg.Pause); sErr != nil {
			return fail(ErrExecution, sErr)
		}
	}

	if sErr := e.sleep(ctx, step.Delay); sErr != nil {
		return fail(ErrExecution, sErr)
	}
	return nil
}

// act injects the primitive for kind.
func (e *Engine) act(kind Kind) error {
	switch kind {
	case KindDoubleClick:
		return e.injector.DoubleClick()
	case KindRightClick:
		return e.injector.RightClick()
	default:
		return e.injector.Click()
	}
}

// failSafeGuard returns the pre-primitive check for this run. The screen
// extent is read once so a resolution change mid-run cannot move the corners.
func (e *Engine) failSafeGuard() (func() error, error) {
	if !e.cfg.FailSafe {
		return func() error { return nil }, nil
	}
	if e.screen == nil {
		return nil, ErrScreenUnavailable
	}
	w, h, err := e.screen.Size()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScreenUnavailable, err)
	}
	m := e.cfg.FailSafeMargin
	return func() error {
		x, y := e.injector.Position()
		if inCorner(x, y, w, h, m) {
			return fmt.Errorf("pointer at (%d, %d) is in a failsafe corner", x, y)
		}
		return nil
	}, nil
}

// inCorner reports whether (x, y) lies within margin pixels of one of the
// four corner pixels of a w×h screen.
func inCorner(x, y, w, h, margin int) bool {
	nearLeft := x <= margin
	nearRight := x >= w-1-margin
	nearTop := y <= margin
	nearBottom := y >= h-1-margin
	return (nearLeft || nearRight) && (nearTop || nearBottom)
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
