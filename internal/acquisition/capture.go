package acquisition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

// SymbolDecoder finds a QR symbol in a raster.
//
// ok is false when the image holds no decodable symbol; err is reserved for
// faults in the decoder itself.
type SymbolDecoder interface {
	Decode(img image.Image) (text string, ok bool, err error)
}

// FrameGrabber is an open capture device.
type FrameGrabber interface {
	// Read returns the current frame. A nil image with nil error means the
	// device had no frame ready.
	Read() (image.Image, error)
	Close() error
}

// FrameSource opens a capture device for one acquisition.
type FrameSource interface {
	Open(ctx context.Context) (FrameGrabber, error)
}

// Capture loop defaults.
const (
	DefaultCaptureTimeout = 30 * time.Second
	DefaultFrameInterval  = 30 * time.Millisecond
)

// CaptureLoop repeatedly samples frames until one decodes.
//
// The zero value is not usable; Source and Decoder are required.
type CaptureLoop struct {
	Source  FrameSource
	Decoder SymbolDecoder

	// Timeout bounds the whole call, measured from entry. Zero selects
	// DefaultCaptureTimeout.
	Timeout time.Duration

	// Interval is the wait between frame samples. Zero selects
	// DefaultFrameInterval.
	Interval time.Duration

	// Quit, when closed or sent on, ends the loop early (operator cancel).
	Quit <-chan struct{}

	// Preview, if set, receives every frame read. It runs on the loop's
	// goroutine and must not retain the image.
	Preview func(image.Image)

	Logger Logger
}

// Acquire runs the capture loop and returns the first decoded text.
//
// Returns ErrNotAcquired wrapped with the reason on timeout, quit or
// cancellation of ctx, including a frame whose decode finished after the
// deadline, and a plain error (also wrapping ErrNotAcquired) if
// the device cannot be opened. The device is closed before Acquire returns.
func (c *CaptureLoop) Acquire(ctx context.Context) (text string, err error) {
	log := c.Logger
	if log == nil {
		log = noopLogger{}
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCaptureTimeout
	}
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	grabber, err := c.Source.Open(ctx)
	if err != nil {
		log.Error("opening capture device", "error", err)
		return "", fmt.Errorf("%w: opening capture device: %w", ErrNotAcquired, err)
	}
	defer func() {
		if closeErr := grabber.Close(); closeErr != nil {
			log.Warn("closing capture device", "error", closeErr)
		}
	}()

	log.Info("capture loop started", "timeout", timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frames := 0
	for {
		text, ok := c.sample(grabber, log)
		frames++
		// A slow read or decode can overrun the deadline; such a frame
		// does not count.
		if ok && ctx.Err() == nil {
			log.Info("payload acquired from camera", "frames", frames, "length", len(text))
			return text, nil
		}
		if ok {
			log.Debug("discarding payload decoded after the capture ended")
		}

		select {
		case <-ctx.Done():
			reason := "timed out"
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				reason = "cancelled"
			}
			log.Info("capture loop ended without payload", "reason", reason, "frames", frames)
			return "", fmt.Errorf("%w: capture %s after %d frames: %w", ErrNotAcquired, reason, frames, ctx.Err())
		case <-c.Quit:
			log.Info("capture loop ended without payload", "reason", "quit", "frames", frames)
			return "", fmt.Errorf("%w: capture quit by operator", ErrNotAcquired)
		case <-ticker.C:
		}
	}
}

// sample reads and decodes one frame. Read failures, empty frames, decoder
// errors and decoder panics all skip the frame.
func (c *CaptureLoop) sample(grabber FrameGrabber, log Logger) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("frame decode panicked, skipping frame", "panic", r)
			text, ok = "", false
		}
	}()

	frame, err := grabber.Read()
	if err != nil {
		log.Debug("frame read failed, skipping", "error", err)
		return "", false
	}
	if frame == nil {
		return "", false
	}
	if c.Preview != nil {
		c.Preview(frame)
	}

	decoded, found, err := c.Decoder.Decode(frame)
	if err != nil {
		log.Warn("frame decode failed, skipping frame", "error", err)
		return "", false
	}
	if !found || decoded == "" {
		return "", false
	}
	return decoded, true
}
