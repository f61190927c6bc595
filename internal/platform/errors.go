package platform

import "errors"

var (
	// ErrUnsupported is returned by stubs compiled without the platform tag.
	ErrUnsupported = errors.New("platform: not supported in this build")

	// ErrNoDisplay is returned when the desktop reports no usable screen.
	ErrNoDisplay = errors.New("platform: no display")

	// ErrCameraUnavailable is returned when the capture device cannot be opened.
	ErrCameraUnavailable = errors.New("platform: camera unavailable")
)
