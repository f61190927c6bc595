package automation

import (
	"errors"
	"fmt"
)

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrSafetyAbort) {
//	    // operator pulled the pointer into a corner
//	}
var (
	// ErrInvalidPayloadShape is returned when text is not an automation
	// payload (not JSON, not an object, or no "coordinates" array), or when
	// the coordinates array is empty.
	ErrInvalidPayloadShape = errors.New("automation: invalid payload shape")

	// ErrMalformedStep is returned when a coordinates entry lacks numeric
	// x/y or carries an unusable delay.
	ErrMalformedStep = errors.New("automation: malformed step")

	// ErrOutOfBounds is returned when a step targets a point outside the screen.
	ErrOutOfBounds = errors.New("automation: step out of bounds")

	// ErrSafetyAbort is returned when the failsafe trips during execution.
	// Injectors may also return (or wrap) it from any primitive.
	ErrSafetyAbort = errors.New("automation: safety abort")

	// ErrExecution is returned when a step fails for any other reason.
	ErrExecution = errors.New("automation: execution error")

	// ErrScreenUnavailable is returned when the screen extent cannot be read.
	ErrScreenUnavailable = errors.New("automation: screen size unavailable")
)

// StepError describes a failure tied to one step of a sequence.
//
// Err is always one of ErrMalformedStep, ErrOutOfBounds, ErrSafetyAbort or
// ErrExecution; Cause holds the underlying fault, if any.
type StepError struct {
	Index int // zero-based position in the sequence
	X     int
	Y     int
	Kind  Kind
	Err   error
	Cause error
}

func (e *StepError) Error() string {
	var msg string
	if e.Kind == "" {
		msg = fmt.Sprintf("step %d: %v", e.Index+1, e.Err)
	} else {
		msg = fmt.Sprintf("step %d (%s at %d,%d): %v", e.Index+1, e.Kind, e.X, e.Y, e.Err)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the classification sentinel and the cause to errors.Is.
func (e *StepError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// FailureKind names the class of a failed run for logs and records.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureNotAcquired    FailureKind = "not_acquired"
	FailureInvalidPayload FailureKind = "invalid_payload"
	FailureMalformedStep  FailureKind = "malformed_step"
	FailureOutOfBounds    FailureKind = "out_of_bounds"
	FailureSafetyAbort    FailureKind = "safety_abort"
	FailureExecution      FailureKind = "execution_error"
)

// KindOf classifies an error returned by this package. Errors it does not
// recognise are reported as FailureExecution; nil maps to FailureNone.
//
// Safety aborts are checked first so an injector error wrapping
// ErrSafetyAbort is never reported as a generic execution failure.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrSafetyAbort):
		return FailureSafetyAbort
	case errors.Is(err, ErrInvalidPayloadShape):
		return FailureInvalidPayload
	case errors.Is(err, ErrMalformedStep):
		return FailureMalformedStep
	case errors.Is(err, ErrOutOfBounds):
		return FailureOutOfBounds
	default:
		return FailureExecution
	}
}
