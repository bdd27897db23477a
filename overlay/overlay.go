// Package overlay defines the platform-neutral highlight contract: a
// transient, click-through, always-on-top rectangle drawn over a logical
// region. The core ships only the contract plus a logging backend; real OS
// backends plug in from outside and receive physical coordinates through the
// one-way conversion.
package overlay

import (
	"log/slog"
	"time"

	"github.com/mirrelia/scry/geom"
	"github.com/mirrelia/scry/screen"
)

// Config styles one highlight.
type Config struct {
	Color             geom.Color
	BorderWidth       int
	Duration          time.Duration
	BackgroundOpacity float64
}

// DefaultConfig returns the conventional red 3px border shown for 2 seconds.
func DefaultConfig() Config {
	return Config{
		Color:             geom.Red,
		BorderWidth:       3,
		Duration:          2 * time.Second,
		BackgroundOpacity: 0,
	}
}

// normalize clamps a config to drawable values.
func (c Config) normalize() Config {
	if c.BorderWidth < 1 {
		c.BorderWidth = 1
	}
	if c.Duration <= 0 {
		c.Duration = DefaultConfig().Duration
	}
	if c.BackgroundOpacity < 0 {
		c.BackgroundOpacity = 0
	} else if c.BackgroundOpacity > 1 {
		c.BackgroundOpacity = 1
	}
	return c
}

// Handle is a live overlay window. Close releases all OS resources; it is
// idempotent and must be safe to call from any goroutine.
type Handle interface {
	Close() error
}

// Highlighter draws overlays. Implementations receive the logical region and
// are responsible for converting to physical coordinates with
// screen.PhysicalRect before touching the OS.
type Highlighter interface {
	Show(r geom.Region, cfg Config) (Handle, error)
}

// Highlight shows r for cfg.Duration and guarantees release even when the
// wait is interrupted by a panic.
func Highlight(h Highlighter, r geom.Region, cfg Config) error {
	cfg = cfg.normalize()
	handle, err := h.Show(r, cfg)
	if err != nil {
		return err
	}
	defer handle.Close()
	time.Sleep(cfg.Duration)
	return nil
}

// LogHighlighter is the built-in backend: it draws nothing and records the
// physical rectangle it would have drawn. Useful headless and in tests.
type LogHighlighter struct {
	Logger *slog.Logger
}

type logHandle struct {
	logger *slog.Logger
	region geom.Region
}

func (h *logHandle) Close() error {
	if h.logger != nil {
		h.logger.Debug("overlay: released", "region", h.region.String())
	}
	return nil
}

// Show resolves the region's monitor scale and logs the physical rect the OS
// would receive.
func (l *LogHighlighter) Show(r geom.Region, cfg Config) (Handle, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scale := 1.0
	if mons, err := screen.Monitors(); err == nil {
		for _, m := range mons {
			if m.Rect.Intersects(r) {
				scale = m.Scale
				break
			}
		}
	}
	phys := screen.PhysicalRect(r, scale)
	logger.Info("overlay: highlight",
		"region", r.String(),
		"physical", phys.String(),
		"border", cfg.BorderWidth,
		"duration", cfg.Duration.String(),
	)
	return &logHandle{logger: logger, region: r}, nil
}
