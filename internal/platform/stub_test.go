//go:build !robotgo && !gocv

package platform

import (
	"context"
	"errors"
	"testing"
)

func TestStubs_ReportUnsupported(t *testing.T) {
	if DesktopSupported || CameraSupported {
		t.Fatal("stub build reports platform support")
	}

	d := NewDesktop()
	if err := d.MoveTo(1, 1, 0); !errors.Is(err, ErrUnsupported) {
		t.Errorf("MoveTo() error = %v", err)
	}
	if err := d.Click(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Click() error = %v", err)
	}
	if _, _, err := d.Size(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Size() error = %v", err)
	}
	if _, err := d.CaptureScreen(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("CaptureScreen() error = %v", err)
	}

	if _, err := NewCamera(0).Open(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Camera.Open() error = %v", err)
	}

	p := NewPreview("test")
	p.Show(nil)
	select {
	case <-p.Quit():
		t.Error("stub preview signalled quit")
	default:
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
