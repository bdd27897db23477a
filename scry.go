// Package scry is an image-recognition GUI automation engine: it locates
// visual templates on screen with normalized cross-correlation, tracks their
// appearance and disappearance over time, and bounds every search with
// timeouts and cooperative cancellation. This file is the stable programmatic
// surface; the heavy lifting lives in the subpackages.
package scry

import (
	"time"

	"github.com/mirrelia/scry/cancel"
	"github.com/mirrelia/scry/geom"
	"github.com/mirrelia/scry/match"
	"github.com/mirrelia/scry/observe"
	"github.com/mirrelia/scry/pattern"
	"github.com/mirrelia/scry/screen"
	"github.com/mirrelia/scry/wait"
)

// NumberOfScreens returns the number of active displays.
func NumberOfScreens() int { return screen.NumberOfScreens() }

// Screens returns a handle per active display.
func Screens() ([]screen.Screen, error) { return screen.Screens() }

// GetScreen returns the display with the given index; 0 is primary.
func GetScreen(index int) (screen.Screen, error) { return screen.Get(index) }

// Capture grabs the primary monitor's full logical region.
func Capture() (*screen.Raster, error) { return screen.Capture() }

// CaptureRegion grabs an arbitrary global logical region, stitching across
// monitors as needed.
func CaptureRegion(r geom.Region) (*screen.Raster, error) { return screen.CaptureRegion(r) }

// defaultWaiter serves the package-level search functions.
var defaultWaiter = wait.New(ComponentLogger(nil, "waiter"))

// Find captures once and returns the best match, or match.ErrFindFailed.
func Find(p *pattern.Pattern, region *geom.Region) (match.Match, error) {
	return defaultWaiter.Find(p, wait.Options{Region: region})
}

// FindAll captures once and returns every de-duplicated match, best first.
func FindAll(p *pattern.Pattern, region *geom.Region) ([]match.Match, error) {
	r, err := resolveRegion(region)
	if err != nil {
		return nil, err
	}
	raster, err := screen.CaptureRegion(r)
	if err != nil {
		return nil, err
	}
	defer raster.Release()
	return match.FindAll(raster, p, match.Options{Origin: r.TopLeft()})
}

// Wait polls until the pattern appears or timeout elapses.
func Wait(p *pattern.Pattern, timeout time.Duration, region *geom.Region) (match.Match, error) {
	return defaultWaiter.Wait(p, timeout, wait.Options{Region: region})
}

// WaitWithToken is Wait observing an external cancellation token.
func WaitWithToken(p *pattern.Pattern, timeout time.Duration, region *geom.Region, tok cancel.Token) (match.Match, error) {
	return defaultWaiter.Wait(p, timeout, wait.Options{Region: region, Token: tok})
}

// Exists returns a nullable match: nil when the pattern is not there.
func Exists(p *pattern.Pattern, timeout time.Duration, region *geom.Region) (*match.Match, error) {
	return defaultWaiter.Exists(p, timeout, wait.Options{Region: region})
}

// WaitVanish succeeds once no match meets the pattern's similarity,
// including immediately on the first absent capture.
func WaitVanish(p *pattern.Pattern, timeout time.Duration, region *geom.Region) error {
	return defaultWaiter.WaitVanish(p, timeout, wait.Options{Region: region})
}

// NewObserver returns a stopped observer over region.
func NewObserver(region geom.Region) *observe.Observer { return observe.New(region) }

func resolveRegion(region *geom.Region) (geom.Region, error) {
	if region != nil {
		return *region, nil
	}
	s, err := screen.Primary()
	if err != nil {
		return geom.Region{}, err
	}
	return s.Region()
}
