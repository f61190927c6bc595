//go:build !gocv

package platform

import (
	"context"
	"image"

	"github.com/nerrad567/qrauto/internal/acquisition"
)

// CameraSupported reports whether this build can read a webcam.
const CameraSupported = false

// Camera is the stand-in compiled without the gocv tag.
type Camera struct {
	Index int
}

// NewCamera returns a Camera whose Open fails with ErrUnsupported.
func NewCamera(index int) *Camera {
	return &Camera{Index: index}
}

func (c *Camera) Open(context.Context) (acquisition.FrameGrabber, error) {
	return nil, ErrUnsupported
}

// Preview is a no-op window.
type Preview struct {
	quit chan struct{}
}

func NewPreview(string) *Preview { return &Preview{quit: make(chan struct{})} }

func (p *Preview) Show(image.Image)      {}
func (p *Preview) Quit() <-chan struct{} { return p.quit }
func (p *Preview) Close() error          { return nil }
