package acquisition

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
)

// ImageScanner decodes a payload from a still image file.
type ImageScanner struct {
	decoder SymbolDecoder
	logger  Logger
}

// NewImageScanner creates a scanner using decoder. A nil logger is allowed.
func NewImageScanner(decoder SymbolDecoder, logger Logger) *ImageScanner {
	if logger == nil {
		logger = noopLogger{}
	}
	return &ImageScanner{decoder: decoder, logger: logger}
}

// Scan loads path and makes exactly one decode attempt.
//
// Every failure (missing file, unsupported format, no symbol, decoder fault
// or panic) is logged and returned as ErrNotAcquired; Scan never panics.
func (s *ImageScanner) Scan(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("image decode panicked", "path", path, "panic", r)
			text, err = "", fmt.Errorf("%w: decoding %s: panic: %v", ErrNotAcquired, path, r)
		}
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("%w: %w", ErrNotAcquired, ctxErr)
	}

	img, err := loadImage(path)
	if err != nil {
		s.logger.Warn("image not loaded", "path", path, "error", err)
		return "", fmt.Errorf("%w: %w", ErrNotAcquired, err)
	}

	decoded, found, err := s.decoder.Decode(img)
	if err != nil {
		s.logger.Warn("image decode failed", "path", path, "error", err)
		return "", fmt.Errorf("%w: decoding %s: %w", ErrNotAcquired, path, err)
	}
	if !found || decoded == "" {
		s.logger.Info("no QR code found in image", "path", path)
		return "", fmt.Errorf("%w: no QR code in %s", ErrNotAcquired, path)
	}

	s.logger.Info("payload acquired from image", "path", path, "length", len(decoded))
	return decoded, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", path, err)
	}
	return img, nil
}
