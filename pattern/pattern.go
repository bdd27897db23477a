// Package pattern bundles a template raster with its search parameters and
// pre-computed grayscale statistics, amortizing per-position work across
// searches.
package pattern

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/disintegration/imaging"

	"github.com/mirrelia/scry/screen"
)

var (
	// ErrImageFileNotFound reports a template path that did not resolve.
	ErrImageFileNotFound = errors.New("pattern: image file not found")

	// ErrImageDecode reports bytes unreadable as a supported image format.
	ErrImageDecode = errors.New("pattern: image decode failed")
)

// DefaultSimilarity is the match threshold used when none is given.
const DefaultSimilarity = 0.7

// Stats caches the grayscale plane and summary sums of a template. Computed
// exactly once at construction and shared by every Pattern derived through
// the builders.
type Stats struct {
	Gray      []float32 // row-major luma in [0,1]
	SumT      float64
	SumT2     float64
	SqrtSumT2 float64
	W, H      int
}

// Pattern is an immutable template plus similarity threshold and click-target
// offset. Builders return copies sharing the cached stats.
type Pattern struct {
	tmpl       *screen.Raster
	similarity float64
	offsetX    int
	offsetY    int
	stats      *Stats
}

// FromRaster builds a pattern from an in-memory raster.
func FromRaster(r *screen.Raster) (*Pattern, error) {
	if r == nil || r.W() < 1 || r.H() < 1 {
		return nil, fmt.Errorf("%w: empty template", ErrImageDecode)
	}
	return &Pattern{
		tmpl:       r,
		similarity: DefaultSimilarity,
		stats:      buildStats(r),
	}, nil
}

// FromFile loads and decodes a template image (PNG, JPEG, BMP, GIF, TIFF).
func FromFile(path string) (*Pattern, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrImageFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrImageFileNotFound, path, err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageDecode, path, err)
	}
	return FromRaster(screen.NewRaster(img, screen.SyntheticMonitor))
}

// buildStats computes the grayscale plane and its sums once.
func buildStats(r *screen.Raster) *Stats {
	gray := r.Gray()
	var sumT, sumT2 float64
	for _, g := range gray {
		v := float64(g)
		sumT += v
		sumT2 += v * v
	}
	return &Stats{
		Gray:      gray,
		SumT:      sumT,
		SumT2:     sumT2,
		SqrtSumT2: math.Sqrt(sumT2),
		W:         r.W(),
		H:         r.H(),
	}
}

// Similar returns a copy with the similarity threshold clamped to [0,1].
// The cached stats are shared, not recomputed.
func (p *Pattern) Similar(s float64) *Pattern {
	cp := *p
	switch {
	case s < 0:
		cp.similarity = 0
	case s > 1:
		cp.similarity = 1
	default:
		cp.similarity = s
	}
	return &cp
}

// TargetOffset returns a copy whose click target is shifted by (dx, dy) from
// the match center. The offset is unbounded and may point outside the
// template.
func (p *Pattern) TargetOffset(dx, dy int) *Pattern {
	cp := *p
	cp.offsetX = dx
	cp.offsetY = dy
	return &cp
}

// Template returns the template raster.
func (p *Pattern) Template() *screen.Raster { return p.tmpl }

// Similarity returns the match threshold.
func (p *Pattern) Similarity() float64 { return p.similarity }

// Offset returns the target offset.
func (p *Pattern) Offset() (dx, dy int) { return p.offsetX, p.offsetY }

// Stats returns the cached template statistics.
func (p *Pattern) Stats() *Stats { return p.stats }

// W returns the template width.
func (p *Pattern) W() int { return p.stats.W }

// H returns the template height.
func (p *Pattern) H() int { return p.stats.H }
