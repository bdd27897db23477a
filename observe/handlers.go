package observe

import (
	"errors"

	"github.com/mirrelia/scry/match"
	"github.com/mirrelia/scry/pattern"
	"github.com/mirrelia/scry/screen"
)

// Handler state is owned exclusively by the worker goroutine once the
// observer starts; no locking is needed on the tick path.

type appearHandler struct {
	uid  string
	pat  *pattern.Pattern
	fn   AppearCallback
	last *match.Match
}

func (h *appearHandler) id() string { return h.uid }

func (h *appearHandler) process(o *Observer, frame *screen.Raster) {
	m, err := match.Find(frame, h.pat, match.Options{Origin: o.region.TopLeft()})
	switch {
	case err == nil:
		if h.last == nil {
			cp := m
			h.last = &cp
			o.safeCall(h.uid, func() { h.fn(m) })
			return
		}
		// Sub-pixel jitter of an already-reported match is debounced; a
		// moved match just refreshes the anchor without re-firing.
		if m.Region.X != h.last.Region.X || m.Region.Y != h.last.Region.Y {
			cp := m
			h.last = &cp
		}
	case errors.Is(err, match.ErrFindFailed):
		// Gone; the next sighting is a fresh appearance.
		h.last = nil
	default:
		o.logger.Warn("observe: appear search failed", "handler", h.uid, "error", err)
	}
}

type vanishHandler struct {
	uid  string
	pat  *pattern.Pattern
	fn   VanishCallback
	last *match.Match
}

func (h *vanishHandler) id() string { return h.uid }

func (h *vanishHandler) process(o *Observer, frame *screen.Raster) {
	m, err := match.Find(frame, h.pat, match.Options{Origin: o.region.TopLeft()})
	switch {
	case err == nil:
		cp := m
		h.last = &cp
	case errors.Is(err, match.ErrFindFailed):
		if h.last != nil {
			last := *h.last
			h.last = nil
			o.safeCall(h.uid, func() { h.fn(last) })
		}
	default:
		o.logger.Warn("observe: vanish search failed", "handler", h.uid, "error", err)
	}
}

type changeHandler struct {
	uid       string
	threshold float64
	fn        ChangeCallback
	prev      *screen.Raster
}

func (h *changeHandler) id() string { return h.uid }

func (h *changeHandler) process(o *Observer, frame *screen.Raster) {
	if h.prev == nil {
		// First tick primes the baseline without firing.
		h.prev = frame
		return
	}
	score, err := match.DiffScore(h.prev, frame)
	if err != nil {
		// Size mismatch means the capture layer misbehaved; keep the old
		// baseline and surface the bug in the log.
		o.logger.Error("observe: change diff failed", "handler", h.uid, "error", err)
		return
	}
	if score >= h.threshold {
		h.prev = frame
		o.safeCall(h.uid, func() { h.fn(score, frame) })
	}
}
