//go:build !robotgo

package platform

import (
	"image"
	"time"
)

// DesktopSupported reports whether this build drives the real desktop.
const DesktopSupported = false

// Desktop is the headless stand-in compiled without the robotgo tag.
type Desktop struct{}

// NewDesktop returns a Desktop whose operations fail with ErrUnsupported.
func NewDesktop() *Desktop { return &Desktop{} }

func (d *Desktop) MoveTo(int, int, time.Duration) error { return ErrUnsupported }
func (d *Desktop) Click() error                         { return ErrUnsupported }
func (d *Desktop) DoubleClick() error                   { return ErrUnsupported }
func (d *Desktop) RightClick() error                    { return ErrUnsupported }
func (d *Desktop) Position() (int, int)                 { return -1, -1 }
func (d *Desktop) Size() (int, int, error)              { return 0, 0, ErrUnsupported }
func (d *Desktop) CaptureScreen() (image.Image, error)  { return nil, ErrUnsupported }
