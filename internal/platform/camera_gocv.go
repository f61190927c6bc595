//go:build gocv

package platform

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/nerrad567/qrauto/internal/acquisition"
)

// CameraSupported reports whether this build can read a webcam.
const CameraSupported = true

// Camera opens a webcam by device index.
type Camera struct {
	Index int
}

// NewCamera creates a Camera for device index.
func NewCamera(index int) *Camera {
	return &Camera{Index: index}
}

// Open starts the capture device. The returned grabber owns it until Close.
func (c *Camera) Open(ctx context.Context) (acquisition.FrameGrabber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	capture, err := gocv.OpenVideoCapture(c.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %w", ErrCameraUnavailable, c.Index, err)
	}
	if !capture.IsOpened() {
		capture.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("%w: device %d did not open", ErrCameraUnavailable, c.Index)
	}
	return &videoGrabber{capture: capture, frame: gocv.NewMat()}, nil
}

type videoGrabber struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

// Read returns nil, nil while the device has no frame ready.
func (g *videoGrabber) Read() (image.Image, error) {
	if ok := g.capture.Read(&g.frame); !ok {
		return nil, fmt.Errorf("%w: read failed", ErrCameraUnavailable)
	}
	if g.frame.Empty() {
		return nil, nil
	}
	img, err := g.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}
	return img, nil
}

func (g *videoGrabber) Close() error {
	if err := g.frame.Close(); err != nil {
		g.capture.Close() //nolint:errcheck // reporting the first error
		return err
	}
	return g.capture.Close()
}

// Preview shows capture frames in a window. Pressing q or Esc in the window
// closes Quit.
type Preview struct {
	window *gocv.Window
	quit   chan struct{}
	once   sync.Once
}

// NewPreview opens a preview window.
func NewPreview(title string) *Preview {
	return &Preview{window: gocv.NewWindow(title), quit: make(chan struct{})}
}

// Show draws img and polls the keyboard.
func (p *Preview) Show(img image.Image) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return
	}
	defer mat.Close()

	p.window.IMShow(mat)
	if key := p.window.WaitKey(1); key == 'q' || key == 27 {
		p.once.Do(func() { close(p.quit) })
	}
}

// Quit is closed when the operator asks to stop capturing.
func (p *Preview) Quit() <-chan struct{} {
	return p.quit
}

// Close destroys the window.
func (p *Preview) Close() error {
	return p.window.Close()
}
