package screen

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/mirrelia/scry/geom"
)

// Capture grabs the primary monitor's full logical region.
func Capture() (*Raster, error) {
	s, err := Primary()
	if err != nil {
		return nil, err
	}
	return s.Capture()
}

// CaptureRegion grabs a global, logical region, stitching tiles from every
// overlapping monitor into a single raster of exactly r.W x r.H logical
// pixels. Per-monitor tiles are acquired at physical resolution and
// resampled to logical dimensions with Lanczos when the monitor's scale is
// not 1.0. Seams are identity joins; there is no blending.
func CaptureRegion(r geom.Region) (*Raster, error) {
	if r.W <= 0 || r.H <= 0 {
		return nil, fmt.Errorf("%w: capture %v", geom.ErrInvalidRegion, r)
	}
	mons, err := enumerate()
	if err != nil {
		return nil, err
	}

	b, _ := currentBackend()
	dst := acquireFrame(r.W, r.H)
	covered := false
	srcMonitor := SyntheticMonitor
	for _, m := range mons {
		isect, ok := r.Intersection(m.info.Rect)
		if !ok {
			continue
		}
		tile, err := captureTile(b, m, isect)
		if err != nil {
			recycleFrame(dst)
			return nil, err
		}
		draw.Draw(dst,
			image.Rect(isect.X-r.X, isect.Y-r.Y, isect.X-r.X+isect.W, isect.Y-r.Y+isect.H),
			tile, tile.Bounds().Min, draw.Src)
		if !covered {
			srcMonitor = m.info.Index
		} else {
			srcMonitor = SyntheticMonitor // spans monitors
		}
		covered = true
	}
	if !covered {
		recycleFrame(dst)
		return nil, fmt.Errorf("%w: region %v overlaps no monitor", geom.ErrInvalidRegion, r)
	}
	return FromRGBA(dst, srcMonitor), nil
}

// captureTile grabs the logical rectangle isect (known to lie inside the
// monitor) and returns it at logical resolution.
func captureTile(b Backend, m monitor, isect geom.Region) (image.Image, error) {
	scale := m.info.Scale
	rel := isect.Offset(-m.info.Rect.X, -m.info.Rect.Y)
	phys := image.Rect(
		m.phys.Min.X+LogicalToPhysical(rel.X, scale),
		m.phys.Min.Y+LogicalToPhysical(rel.Y, scale),
		m.phys.Min.X+LogicalToPhysical(rel.X+rel.W, scale),
		m.phys.Min.Y+LogicalToPhysical(rel.Y+rel.H, scale),
	)
	// Clamp against the physical bounds; rounding can push the edge one
	// pixel past the display.
	phys = phys.Intersect(m.phys)
	if phys.Empty() {
		return nil, fmt.Errorf("%w: empty physical rect for %v", ErrCaptureFailed, isect)
	}
	img, err := b.CaptureRect(phys)
	if err != nil {
		return nil, fmt.Errorf("%w: display %d rect %v: %v", ErrCaptureFailed, m.info.Index, phys, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: display %d returned no frame", ErrCaptureFailed, m.info.Index)
	}
	if scale == 1.0 && img.Bounds().Dx() == isect.W && img.Bounds().Dy() == isect.H {
		return img, nil
	}
	return imaging.Resize(img, isect.W, isect.H, imaging.Lanczos), nil
}
