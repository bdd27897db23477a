package screen

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/mirrelia/scry/geom"
)

// Raster is an immutable 2-D pixel buffer in logical pixels, tagged with the
// monitor it came from (-1 for synthetic rasters). Callers must not mutate
// the underlying pixels after construction; the grayscale plane is computed
// once on first use and shared.
type Raster struct {
	img     *image.RGBA
	monitor int

	grayOnce sync.Once
	gray     []float32
}

// SyntheticMonitor marks rasters that did not come from a screen.
const SyntheticMonitor = -1

// NewRaster copies src into a fresh RGBA buffer. Use it for decoded files
// and test fixtures.
func NewRaster(src image.Image, monitor int) *Raster {
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)
	return &Raster{img: img, monitor: monitor}
}

// FromRGBA wraps img without copying; the caller hands over ownership.
func FromRGBA(img *image.RGBA, monitor int) *Raster {
	return &Raster{img: img, monitor: monitor}
}

// W returns the logical width.
func (r *Raster) W() int { return r.img.Rect.Dx() }

// H returns the logical height.
func (r *Raster) H() int { return r.img.Rect.Dy() }

// Monitor returns the source monitor index, or SyntheticMonitor.
func (r *Raster) Monitor() int { return r.monitor }

// RGBA exposes the backing image. Read-only.
func (r *Raster) RGBA() *image.RGBA { return r.img }

// Sub extracts a copy of the given rectangle, expressed relative to this
// raster's own origin.
func (r *Raster) Sub(reg geom.Region) (*Raster, error) {
	bounds := geom.Region{X: 0, Y: 0, W: r.W(), H: r.H()}
	if reg.W <= 0 || reg.H <= 0 || !bounds.ContainsRegion(reg) {
		return nil, fmt.Errorf("%w: sub %v of %dx%d", geom.ErrInvalidRegion, reg, r.W(), r.H())
	}
	out := image.NewRGBA(image.Rect(0, 0, reg.W, reg.H))
	src := r.img.SubImage(image.Rect(
		r.img.Rect.Min.X+reg.X,
		r.img.Rect.Min.Y+reg.Y,
		r.img.Rect.Min.X+reg.X+reg.W,
		r.img.Rect.Min.Y+reg.Y+reg.H,
	))
	draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)
	return &Raster{img: out, monitor: r.monitor}, nil
}

// Gray returns the cached Rec.709 luma plane, row-major, values in [0,1].
func (r *Raster) Gray() []float32 {
	r.grayOnce.Do(func() {
		w, h := r.W(), r.H()
		out := make([]float32, w*h)
		pix := r.img.Pix
		stride := r.img.Stride
		for y := 0; y < h; y++ {
			row := pix[y*stride : y*stride+w*4]
			off := y * w
			for x := 0; x < w; x++ {
				i := x * 4
				lum := 0.2126*float64(row[i]) + 0.7152*float64(row[i+1]) + 0.0722*float64(row[i+2])
				out[off+x] = float32(lum / 255.0)
			}
		}
		r.gray = out
	})
	return r.gray
}

// Release returns the backing buffer to the frame pool. The raster must not
// be used afterwards. Safe to skip; unreleased rasters are just garbage
// collected.
func (r *Raster) Release() {
	if r == nil || r.img == nil {
		return
	}
	recycleFrame(r.img)
	r.img = nil
	r.gray = nil
}
