//go:build robotgo

package platform

import (
	"fmt"
	"image"
	"time"

	"github.com/go-vgo/robotgo"
)

// DesktopSupported reports whether this build drives the real desktop.
const DesktopSupported = true

// Desktop injects pointer input and reads the primary screen via robotgo.
type Desktop struct {
	sleep func(time.Duration)
}

// NewDesktop creates a Desktop bound to the primary display.
func NewDesktop() *Desktop {
	return &Desktop{sleep: time.Sleep}
}

// MoveTo glides the pointer to (x, y) over duration.
func (d *Desktop) MoveTo(x, y int, duration time.Duration) error {
	cx, cy := robotgo.Location()
	for i, p := range glidePath(image.Pt(cx, cy), image.Pt(x, y), duration) {
		if i > 0 {
			d.sleep(glideStepInterval)
		}
		robotgo.Move(p.X, p.Y)
	}
	return nil
}

// Click presses the left button once.
func (d *Desktop) Click() error {
	robotgo.Click("left", false)
	return nil
}

// DoubleClick presses the left button twice.
func (d *Desktop) DoubleClick() error {
	robotgo.Click("left", true)
	return nil
}

// RightClick presses the right button once.
func (d *Desktop) RightClick() error {
	robotgo.Click("right", false)
	return nil
}

// Position returns the current pointer location.
func (d *Desktop) Position() (int, int) {
	return robotgo.Location()
}

// Size returns the primary screen size in pixels.
func (d *Desktop) Size() (int, int, error) {
	w, h := robotgo.GetScreenSize()
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: screen reported as %dx%d", ErrNoDisplay, w, h)
	}
	return w, h, nil
}

// CaptureScreen grabs the whole primary screen.
func (d *Desktop) CaptureScreen() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("capturing screen: %w", err)
	}
	return img, nil
}
