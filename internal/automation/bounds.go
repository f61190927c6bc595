package automation

import (
	"fmt"
)

// ScreenSizer reports the current screen extent in pixels.
type ScreenSizer interface {
	Size() (width, height int, err error)
}

// CheckBounds verifies every step targets a point on a width×height screen.
//
// The range is inclusive at both ends: x == width and y == height are
// accepted. Any x or y below zero is rejected. Steps are checked in order
// and the first violation is returned as a *StepError wrapping ErrOutOfBounds.
func CheckBounds(seq Sequence, width, height int) error {
	for i, s := range seq {
		if s.X < 0 || s.X > width || s.Y < 0 || s.Y > height {
			return &StepError{
				Index: i,
				X:     s.X,
				Y:     s.Y,
				Kind:  s.Kind,
				Err:   ErrOutOfBounds,
				Cause: fmt.Errorf("screen is %dx%d", width, height),
			}
		}
	}
	return nil
}

// BoundsValidator checks sequences against the live screen size.
type BoundsValidator struct {
	screen ScreenSizer
}

// NewBoundsValidator creates a validator reading the extent from screen.
func NewBoundsValidator(screen ScreenSizer) *BoundsValidator {
	return &BoundsValidator{screen: screen}
}

// Validate queries the screen size once and checks every step against it.
// A sequence is only ever executed after Validate returns nil.
func (v *BoundsValidator) Validate(seq Sequence) error {
	w, h, err := v.screen.Size()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScreenUnavailable, err)
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: reported %dx%d", ErrScreenUnavailable, w, h)
	}
	return CheckBounds(seq, w, h)
}
