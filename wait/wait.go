// Package wait builds the blocking search operations (Find, Wait, Exists,
// WaitVanish) on top of capture, the matcher and the cancellation
// primitives. Waiters run on the caller's goroutine and re-capture at the
// observer-tick cadence.
package wait

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mirrelia/scry/cancel"
	"github.com/mirrelia/scry/config"
	"github.com/mirrelia/scry/geom"
	"github.com/mirrelia/scry/match"
	"github.com/mirrelia/scry/pattern"
	"github.com/mirrelia/scry/screen"
)

// CaptureFunc acquires the logical region to search. The default is
// screen.CaptureRegion; tests and embedders may substitute their own source.
type CaptureFunc func(geom.Region) (*screen.Raster, error)

// Options tunes a single waiter call.
type Options struct {
	// Region to search; nil means the primary screen's full region.
	Region *geom.Region
	// Token, when cancellable, is observed between captures and inside the
	// matcher at row boundaries.
	Token cancel.Token
	// Tick overrides the re-capture cadence; 0 uses the process default.
	Tick time.Duration
	// Workers forwards to the matcher.
	Workers int
}

// Waiter owns the capture source and logger for a family of searches.
type Waiter struct {
	capture CaptureFunc
	logger  *slog.Logger
}

// New returns a Waiter over the real screen.
func New(logger *slog.Logger) *Waiter {
	return NewWithCapture(logger, screen.CaptureRegion)
}

// NewWithCapture returns a Waiter with a custom frame source.
func NewWithCapture(logger *slog.Logger, fn CaptureFunc) *Waiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Waiter{capture: fn, logger: logger}
}

func (w *Waiter) resolveRegion(opts Options) (geom.Region, error) {
	if opts.Region != nil {
		return *opts.Region, nil
	}
	s, err := screen.Primary()
	if err != nil {
		return geom.Region{}, err
	}
	return s.Region()
}

func (w *Waiter) tick(opts Options) time.Duration {
	t := opts.Tick
	if t <= 0 {
		t = config.CurrentTimeouts().ObserverTick
	}
	if t < 10*time.Millisecond {
		t = 10 * time.Millisecond
	}
	return t
}

// attempt captures once and matches once. The bool reports whether the error
// is transient (capture failure) and worth retrying on the next tick.
func (w *Waiter) attempt(p *pattern.Pattern, region geom.Region, opts Options) (match.Match, bool, error) {
	raster, err := w.capture(region)
	if err != nil {
		if errors.Is(err, geom.ErrInvalidRegion) {
			return match.Match{}, false, err
		}
		return match.Match{}, true, err
	}
	m, err := match.Find(raster, p, match.Options{
		Origin:  region.TopLeft(),
		Token:   opts.Token,
		Workers: opts.Workers,
	})
	raster.Release()
	if err != nil {
		return match.Match{}, false, err
	}
	return m, false, nil
}

// Find performs a single capture and a single match attempt. Capture
// failures are never retried here.
func (w *Waiter) Find(p *pattern.Pattern, opts Options) (match.Match, error) {
	region, err := w.resolveRegion(opts)
	if err != nil {
		return match.Match{}, err
	}
	if opts.Token.IsCancelled() {
		return match.Match{}, cancel.ErrCancelled
	}
	m, _, err := w.attempt(p, region, opts)
	return m, err
}

// Wait re-captures at the tick cadence until the pattern appears or the
// timeout elapses. A non-positive timeout uses the process default. The
// timeout error matches both cancel.ErrTimeout and match.ErrFindFailed.
func (w *Waiter) Wait(p *pattern.Pattern, timeout time.Duration, opts Options) (match.Match, error) {
	region, err := w.resolveRegion(opts)
	if err != nil {
		return match.Match{}, err
	}
	if timeout <= 0 {
		timeout = config.CurrentTimeouts().Wait
	}
	guard := cancel.NewTimeoutGuard(timeout)
	tick := w.tick(opts)

	for {
		if opts.Token.IsCancelled() {
			return match.Match{}, cancel.ErrCancelled
		}
		m, transient, err := w.attempt(p, region, opts)
		switch {
		case err == nil:
			return m, nil
		case errors.Is(err, cancel.ErrCancelled):
			return match.Match{}, err
		case errors.Is(err, match.ErrFindFailed):
			// Keep polling.
		case transient:
			w.logger.Warn("wait: capture failed, retrying", "error", err)
		default:
			return match.Match{}, err
		}
		if guard.IsExpired() {
			return match.Match{}, fmt.Errorf("%w: %w: pattern did not appear within %v",
				cancel.ErrTimeout, match.ErrFindFailed, timeout)
		}
		time.Sleep(tick)
	}
}

// Exists is Wait with a nullable result: nil, nil on timeout instead of an
// error. The default timeout is 0, meaning exactly one attempt.
func (w *Waiter) Exists(p *pattern.Pattern, timeout time.Duration, opts Options) (*match.Match, error) {
	region, err := w.resolveRegion(opts)
	if err != nil {
		return nil, err
	}
	guard := cancel.NewTimeoutGuard(timeout)
	tick := w.tick(opts)

	for {
		if opts.Token.IsCancelled() {
			return nil, cancel.ErrCancelled
		}
		m, transient, err := w.attempt(p, region, opts)
		switch {
		case err == nil:
			return &m, nil
		case errors.Is(err, cancel.ErrCancelled):
			return nil, err
		case errors.Is(err, match.ErrFindFailed):
		case transient:
			w.logger.Warn("exists: capture failed, retrying", "error", err)
		default:
			return nil, err
		}
		if timeout <= 0 || guard.IsExpired() {
			return nil, nil
		}
		time.Sleep(tick)
	}
}

// WaitVanish polls until no position meets the pattern's similarity,
// succeeding on the first capture with no match, including the very first.
func (w *Waiter) WaitVanish(p *pattern.Pattern, timeout time.Duration, opts Options) error {
	region, err := w.resolveRegion(opts)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = config.CurrentTimeouts().Wait
	}
	guard := cancel.NewTimeoutGuard(timeout)
	tick := w.tick(opts)

	for {
		if opts.Token.IsCancelled() {
			return cancel.ErrCancelled
		}
		_, transient, err := w.attempt(p, region, opts)
		switch {
		case err == nil:
			// Still visible; keep polling.
		case errors.Is(err, cancel.ErrCancelled):
			return err
		case errors.Is(err, match.ErrFindFailed):
			return nil
		case transient:
			w.logger.Warn("waitVanish: capture failed, retrying", "error", err)
		default:
			return err
		}
		if guard.IsExpired() {
			return fmt.Errorf("%w: pattern still visible after %v", cancel.ErrTimeout, timeout)
		}
		time.Sleep(tick)
	}
}
