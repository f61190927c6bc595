package audit

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

const (
	snapshotDirPermissions  = 0750
	snapshotFilePermissions = 0600

	// snapshotTimeLayout keeps millisecond precision so back-to-back runs
	// do not overwrite each other.
	snapshotTimeLayout = "20060102_150405.000"
)

// ScreenCapturer grabs the full screen.
type ScreenCapturer interface {
	CaptureScreen() (image.Image, error)
}

// SnapshotWriter saves full-screen captures as PNG files in one directory.
type SnapshotWriter struct {
	dir    string
	screen ScreenCapturer
}

// NewSnapshotWriter creates a writer saving into dir (created on first use).
func NewSnapshotWriter(dir string, screen ScreenCapturer) *SnapshotWriter {
	return &SnapshotWriter{dir: dir, screen: screen}
}

// SnapshotName returns the file name for a capture taken in phase
// ("before" or "after") of the run that started at runStart. Both phases of
// one run share the timestamp.
func SnapshotName(phase string, runStart time.Time) string {
	return fmt.Sprintf("%s_automation_%s.png", phase, runStart.UTC().Format(snapshotTimeLayout))
}

// Capture grabs the screen and writes it, returning the file path.
func (w *SnapshotWriter) Capture(phase string, runStart time.Time) (string, error) {
	img, err := w.screen.CaptureScreen()
	if err != nil {
		return "", fmt.Errorf("capturing screen: %w", err)
	}
	if err := os.MkdirAll(w.dir, snapshotDirPermissions); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}

	path := filepath.Join(w.dir, SnapshotName(phase, runStart))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, snapshotFilePermissions) //nolint:gosec // path built from configured dir
	if err != nil {
		return "", fmt.Errorf("creating snapshot file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close() //nolint:errcheck // already failing
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}
