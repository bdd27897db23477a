package scry

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/mirrelia/scry/pattern"
	"github.com/mirrelia/scry/screen"
)

// smoothContent renders a band-limited logical frame: smooth enough to
// survive a Lanczos round trip, varied enough that every window is distinct.
func smoothContent(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 128 + 60*math.Sin(float64(x)/13) + 50*math.Cos(float64(y)/11)
			g := uint8(math.Max(0, math.Min(255, v)))
			img.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return img
}

// TestFind_AcrossDPIScales captures through a 150% monitor and matches a
// template taken from the same content at 100%: the logical raster must come
// back at logical dimensions and still score high against the unscaled
// template.
func TestFind_AcrossDPIScales(t *testing.T) {
	logical := smoothContent(200, 150)
	// The "monitor" shows the same content at 150% physical resolution.
	physical := imaging.Resize(logical, 300, 225, imaging.Lanczos)
	physRGBA := image.NewRGBA(physical.Bounds())
	for y := 0; y < 225; y++ {
		for x := 0; x < 300; x++ {
			physRGBA.Set(x, y, physical.At(x, y))
		}
	}

	b := &deskBackend{frame: physRGBA}
	b.bounds = image.Rect(0, 0, 300, 225)
	screen.SetBackend(b)
	screen.SetScaleFunc(func(int) float64 { return 1.5 })
	t.Cleanup(func() {
		screen.SetBackend(nil)
		screen.SetScaleFunc(nil)
	})

	raster, err := Capture()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if raster.W() != 200 || raster.H() != 150 {
		t.Fatalf("expected logical 200x150, got %dx%d", raster.W(), raster.H())
	}

	tmplImg := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			tmplImg.Set(x, y, logical.At(60+x, 70+y))
		}
	}
	p, err := pattern.FromRaster(screen.NewRaster(tmplImg, screen.SyntheticMonitor))
	if err != nil {
		t.Fatal(err)
	}

	m, err := Find(p.Similar(0.9), nil)
	if err != nil {
		t.Fatalf("find across DPI scales: %v", err)
	}
	if m.Score < 0.9 {
		t.Fatalf("resampled match too weak: %v", m.Score)
	}
	if dx, dy := m.Region.X-60, m.Region.Y-70; dx < -1 || dx > 1 || dy < -1 || dy > 1 {
		t.Fatalf("match drifted beyond resample tolerance: %v", m.Region)
	}
}
