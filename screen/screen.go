// Package screen owns the coordinate model and raster acquisition. Logical
// pixels are the single source of truth: capture resamples physical pixels to
// logical dimensions, and only the one-way logical-to-physical conversion is
// exported for driving OS calls.
package screen

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/kbinani/screenshot"

	"github.com/mirrelia/scry/geom"
)

var (
	// ErrNoDisplays indicates no displays were found.
	ErrNoDisplays = errors.New("screen: no displays found")

	// ErrInvalidDisplay indicates the display index is out of range.
	ErrInvalidDisplay = errors.New("screen: invalid display index")

	// ErrCaptureFailed indicates the OS-level capture failed.
	ErrCaptureFailed = errors.New("screen: capture failed")
)

// MonitorInfo describes one monitor in the global logical coordinate space.
type MonitorInfo struct {
	Index   int
	Rect    geom.Region
	Primary bool
	Scale   float64
}

// Backend abstracts the OS capture layer so tests can inject synthetic
// frames. Bounds and captured pixels are in physical (OS) coordinates.
type Backend interface {
	NumDisplays() int
	DisplayBounds(index int) image.Rectangle
	CaptureRect(rect image.Rectangle) (*image.RGBA, error)
}

type osBackend struct{}

func (osBackend) NumDisplays() int { return screenshot.NumActiveDisplays() }

func (osBackend) DisplayBounds(index int) image.Rectangle {
	return screenshot.GetDisplayBounds(index)
}

func (osBackend) CaptureRect(rect image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(rect)
}

var (
	backendMu sync.RWMutex
	backend   Backend = osBackend{}
	scaleFn           = displayScale
)

// SetBackend replaces the capture backend. Intended for tests and for
// embedders that bring their own capture layer; pass nil to restore the OS
// backend.
func SetBackend(b Backend) {
	backendMu.Lock()
	if b == nil {
		backend = osBackend{}
	} else {
		backend = b
	}
	backendMu.Unlock()
}

// SetScaleFunc overrides per-display scale lookup. Intended for tests; pass
// nil to restore the platform implementation.
func SetScaleFunc(fn func(index int) float64) {
	backendMu.Lock()
	if fn == nil {
		scaleFn = displayScale
	} else {
		scaleFn = fn
	}
	backendMu.Unlock()
}

func currentBackend() (Backend, func(int) float64) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backend, scaleFn
}

// monitor pairs the public info with the backend's physical bounds.
type monitor struct {
	info MonitorInfo
	phys image.Rectangle
}

// clampScale bounds a reported scale factor to the supported range.
func clampScale(s float64) float64 {
	if s < 0.25 || math.IsNaN(s) {
		return 1.0
	}
	if s > 8.0 {
		return 8.0
	}
	return s
}

// enumerate builds the monitor table. Display 0 is the primary monitor and
// anchors the global logical space at its top-left. Logical rectangles are
// derived once here; downstream geometry never converts back from physical.
func enumerate() ([]monitor, error) {
	b, scale := currentBackend()
	n := b.NumDisplays()
	if n <= 0 {
		return nil, ErrNoDisplays
	}
	mons := make([]monitor, 0, n)
	for i := 0; i < n; i++ {
		phys := b.DisplayBounds(i)
		if phys.Empty() {
			continue
		}
		s := clampScale(scale(i))
		lx := int(math.Round(float64(phys.Min.X) / s))
		ly := int(math.Round(float64(phys.Min.Y) / s))
		lw := int(math.Round(float64(phys.Dx()) / s))
		lh := int(math.Round(float64(phys.Dy()) / s))
		if lw < 1 {
			lw = 1
		}
		if lh < 1 {
			lh = 1
		}
		mons = append(mons, monitor{
			info: MonitorInfo{
				Index:   i,
				Rect:    geom.Region{X: lx, Y: ly, W: lw, H: lh},
				Primary: i == 0,
				Scale:   s,
			},
			phys: phys,
		})
	}
	if len(mons) == 0 {
		return nil, ErrNoDisplays
	}
	return mons, nil
}

// NumberOfScreens returns the number of active displays.
func NumberOfScreens() int {
	b, _ := currentBackend()
	return b.NumDisplays()
}

// Monitors returns the logical monitor table.
func Monitors() ([]MonitorInfo, error) {
	mons, err := enumerate()
	if err != nil {
		return nil, err
	}
	infos := make([]MonitorInfo, len(mons))
	for i, m := range mons {
		infos[i] = m.info
	}
	return infos, nil
}

// Screen is a handle to one display.
type Screen struct {
	idx int
}

// Screens returns a handle per active display.
func Screens() ([]Screen, error) {
	mons, err := enumerate()
	if err != nil {
		return nil, err
	}
	out := make([]Screen, len(mons))
	for i := range mons {
		out[i] = Screen{idx: mons[i].info.Index}
	}
	return out, nil
}

// Get returns the screen with the given index.
func Get(index int) (Screen, error) {
	mons, err := enumerate()
	if err != nil {
		return Screen{}, err
	}
	for _, m := range mons {
		if m.info.Index == index {
			return Screen{idx: index}, nil
		}
	}
	return Screen{}, fmt.Errorf("%w: %d", ErrInvalidDisplay, index)
}

// Primary returns screen 0.
func Primary() (Screen, error) { return Get(0) }

// Index returns the display index.
func (s Screen) Index() int { return s.idx }

// MonitorInfo returns the monitor description for this screen.
func (s Screen) MonitorInfo() (MonitorInfo, error) {
	mons, err := enumerate()
	if err != nil {
		return MonitorInfo{}, err
	}
	for _, m := range mons {
		if m.info.Index == s.idx {
			return m.info, nil
		}
	}
	return MonitorInfo{}, fmt.Errorf("%w: %d", ErrInvalidDisplay, s.idx)
}

// ScaleFactor returns the screen's DPI scale, or 1.0 if the screen is gone.
func (s Screen) ScaleFactor() float64 {
	info, err := s.MonitorInfo()
	if err != nil {
		return 1.0
	}
	return info.Scale
}

// Region returns the screen's logical rectangle.
func (s Screen) Region() (geom.Region, error) {
	info, err := s.MonitorInfo()
	if err != nil {
		return geom.Region{}, err
	}
	return info.Rect, nil
}

// Capture grabs this screen's full logical region.
func (s Screen) Capture() (*Raster, error) {
	r, err := s.Region()
	if err != nil {
		return nil, err
	}
	return CaptureRegion(r)
}

// LogicalToPhysical converts one logical coordinate to physical pixels using
// round-half-to-even. There is deliberately no inverse: physical coordinates
// exist only to drive further OS calls.
func LogicalToPhysical(v int, scale float64) int {
	return int(math.RoundToEven(float64(v) * scale))
}

// PhysicalRect converts a logical region wholesale for OS calls. Corners are
// converted independently so adjacent logical regions stay adjacent in
// physical space.
func PhysicalRect(r geom.Region, scale float64) image.Rectangle {
	return image.Rect(
		LogicalToPhysical(r.X, scale),
		LogicalToPhysical(r.Y, scale),
		LogicalToPhysical(r.X+r.W, scale),
		LogicalToPhysical(r.Y+r.H, scale),
	)
}
