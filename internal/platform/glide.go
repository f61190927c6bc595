package platform

import (
	"image"
	"time"
)

// glideStepInterval is the spacing between intermediate pointer positions.
const glideStepInterval = 10 * time.Millisecond

// glidePath returns the positions a pointer visits moving from `from` to
// `to` over d, ending exactly at `to`. A non-positive d is a single jump.
func glidePath(from, to image.Point, d time.Duration) []image.Point {
	n := int(d / glideStepInterval)
	if n < 1 || from == to {
		return []image.Point{to}
	}
	path := make([]image.Point, 0, n)
	delta := to.Sub(from)
	for i := 1; i <= n; i++ {
		path = append(path, image.Point{
			X: from.X + delta.X*i/n,
			Y: from.Y + delta.Y*i/n,
		})
	}
	return path
}
