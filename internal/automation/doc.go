// Package automation turns QR payload text into pointer actions on the
// live screen.
//
// A run passes through three stages owned by this package:
//
//	payload text ──▶ Decoder ──▶ BoundsValidator ──▶ Engine
//	                (payload.go)   (bounds.go)      (engine.go)
//
// Each stage either hands a value to the next or returns an error from the
// taxonomy in errors.go. KindOf maps any of them to a FailureKind for logs
// and run records.
//
// # Payload format
//
//	{"coordinates": [{"x": 100, "y": 100, "action": "click", "delay": 1.0}],
//	 "description": "optional", "timestamp": 1760611200}
//
// "action" (click, double_click, right_click) and "delay" (seconds) are
// optional per entry. Unknown actions are executed as click.
//
// # Safety
//
// With EngineConfig.FailSafe set, the engine reads the pointer position
// before every injected primitive. A pointer parked in a screen corner stops
// the run with ErrSafetyAbort; no later step is started. Steps already
// executed are not undone.
//
// # Usage
//
//	plan, err := automation.NewDecoder(cfg.MaxSteps, log).Decode(text)
//	if err != nil {
//	    return err
//	}
//	if err := automation.NewBoundsValidator(screen).Validate(plan.Steps); err != nil {
//	    return err
//	}
//	engine := automation.NewEngine(injector, screen, automation.EngineConfig{FailSafe: true}, log)
//	outcome, err := engine.Execute(ctx, plan.Steps)
package automation
