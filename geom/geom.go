// Package geom holds the logical-pixel value types shared by every other
// package: rectangles, points and colors. All coordinates are logical pixels
// in the global space whose origin is the primary monitor's top-left; monitors
// left of or above the primary occupy negative coordinates.
package geom

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidRegion reports a region whose width or height is (or would
// become) non-positive.
var ErrInvalidRegion = errors.New("geom: invalid region")

// Location is a logical-pixel point.
type Location struct {
	X, Y int
}

// Offset returns the location shifted by (dx, dy).
func (l Location) Offset(dx, dy int) Location { return Location{l.X + dx, l.Y + dy} }

func (l Location) String() string { return fmt.Sprintf("(%d,%d)", l.X, l.Y) }

// Region is a logical-pixel rectangle. W and H are always positive for
// regions produced by this package; operations that would shrink a dimension
// to zero or below fail instead.
type Region struct {
	X, Y int
	W, H int
}

// NewRegion validates w,h > 0.
func NewRegion(x, y, w, h int) (Region, error) {
	if w <= 0 || h <= 0 {
		return Region{}, fmt.Errorf("%w: %dx%d", ErrInvalidRegion, w, h)
	}
	return Region{X: x, Y: y, W: w, H: h}, nil
}

// Rect converts from an image.Rectangle. Empty rectangles fail.
func Rect(r image.Rectangle) (Region, error) {
	return NewRegion(r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

// ImageRect converts to the equivalent image.Rectangle.
func (r Region) ImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// TopLeft returns the origin corner.
func (r Region) TopLeft() Location { return Location{r.X, r.Y} }

// BottomRight returns the exclusive corner; it is not contained in r.
func (r Region) BottomRight() Location { return Location{r.X + r.W, r.Y + r.H} }

// Center returns the midpoint X+W/2, Y+H/2, rounding toward +inf on odd
// dimensions so identical regions always agree on their center.
func (r Region) Center() Location { return Location{r.X + (r.W+1)/2, r.Y + (r.H+1)/2} }

// Area returns W*H.
func (r Region) Area() int { return r.W * r.H }

// Contains reports whether p lies inside r using half-open semantics:
// x <= p.X < x+w and y <= p.Y < y+h.
func (r Region) Contains(p Location) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// ContainsRegion reports whether o lies entirely inside r.
func (r Region) ContainsRegion(o Region) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X+o.W <= r.X+r.W && o.Y+o.H <= r.Y+r.H
}

// Intersects reports whether the two half-open rectangles overlap.
func (r Region) Intersects(o Region) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Intersection returns the overlapping rectangle. The second return is false
// when the regions do not overlap.
func (r Region) Intersection(o Region) (Region, bool) {
	if !r.Intersects(o) {
		return Region{}, false
	}
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.W, o.X+o.W)
	y1 := min(r.Y+r.H, o.Y+o.H)
	return Region{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}, true
}

// Union returns the smallest region covering both r and o.
func (r Region) Union(o Region) Region {
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.W, o.X+o.W)
	y1 := max(r.Y+r.H, o.Y+o.H)
	return Region{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Offset shifts the origin by (dx, dy); area is preserved.
func (r Region) Offset(dx, dy int) Region {
	return Region{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Expand grows the region symmetrically by k on every side (shrinks for
// negative k). Fails when a dimension would become non-positive; k=0 is the
// identity.
func (r Region) Expand(k int) (Region, error) {
	w := r.W + 2*k
	h := r.H + 2*k
	if w <= 0 || h <= 0 {
		return Region{}, fmt.Errorf("%w: expand(%d) of %dx%d", ErrInvalidRegion, k, r.W, r.H)
	}
	return Region{X: r.X - k, Y: r.Y - k, W: w, H: h}, nil
}

// Grow returns a square region of side 'size' centered on p, clamped so it
// stays inside bounds. Side is at least 1.
func Grow(p Location, size int, bounds Region) Region {
	if size < 1 {
		size = 1
	}
	x0 := p.X - size/2
	y0 := p.Y - size/2
	if x0 < bounds.X {
		x0 = bounds.X
	}
	if y0 < bounds.Y {
		y0 = bounds.Y
	}
	w, h := size, size
	if x0+w > bounds.X+bounds.W {
		w = bounds.X + bounds.W - x0
	}
	if y0+h > bounds.Y+bounds.H {
		h = bounds.Y + bounds.H - y0
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return Region{X: x0, Y: y0, W: w, H: h}
}

func (r Region) String() string { return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.W, r.H) }
