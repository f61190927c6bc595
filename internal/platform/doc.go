// Package platform binds the automation and acquisition interfaces to the
// host desktop and camera.
//
// Desktop drives the real pointer, reads the screen size and grabs
// screenshots through robotgo. Camera and Preview read and show webcam
// frames through gocv. Both libraries need cgo and system packages, so each
// binding sits behind a build tag:
//
//	go build -tags robotgo,gocv ./cmd/qrauto
//
// Without a tag the matching stub is compiled; its methods return
// ErrUnsupported so text and image runs still build and report cleanly on
// headless machines.
package platform
