package acquisition

import "errors"

// Domain errors for the acquisition package.
var (
	// ErrNotAcquired is returned when no payload was obtained: timeout,
	// operator quit, cancellation, or a decode miss. Callers treat it as an
	// ordinary outcome.
	ErrNotAcquired = errors.New("acquisition: payload not acquired")

	// ErrNoScanner is returned when no serial port answers during auto-detection.
	ErrNoScanner = errors.New("acquisition: no serial scanner found")
)
