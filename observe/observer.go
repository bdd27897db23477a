// Package observe implements the background region watcher: a single worker
// goroutine re-captures a region at a fixed tick and dispatches appear,
// vanish and change events to registered handlers. Callbacks run on the
// worker; a panicking callback is isolated and logged, never fatal.
package observe

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mirrelia/scry/cancel"
	"github.com/mirrelia/scry/config"
	scrydebug "github.com/mirrelia/scry/debug"
	"github.com/mirrelia/scry/geom"
	"github.com/mirrelia/scry/match"
	"github.com/mirrelia/scry/pattern"
	"github.com/mirrelia/scry/screen"
)

var (
	// ErrRunning reports a mutation that is only legal while stopped.
	ErrRunning = errors.New("observe: observer is running")

	// ErrAlreadyRunning reports a second start on a running observer.
	ErrAlreadyRunning = errors.New("observe: already observing")
)

// MinTick is the lower bound on the capture cadence.
const MinTick = 10 * time.Millisecond

// AppearCallback receives the match that made the pattern visible.
type AppearCallback func(m match.Match)

// VanishCallback receives the last match seen before the pattern went away.
type VanishCallback func(last match.Match)

// ChangeCallback receives the change score and the frame that triggered it.
type ChangeCallback func(score float64, frame *screen.Raster)

// CaptureFunc acquires the observed region; defaults to screen.CaptureRegion.
type CaptureFunc func(geom.Region) (*screen.Raster, error)

// handler is one registered observation, processed in registration order.
type handler interface {
	id() string
	process(o *Observer, frame *screen.Raster)
}

// Observer watches one region. Construct with New, register handlers while
// stopped, then call Observe or ObserveInBackground. The worker owns all
// handler state; registration lists are never mutated while running.
type Observer struct {
	region  geom.Region
	tick    time.Duration
	minSim  float64
	capture CaptureFunc
	logger  *slog.Logger
	debugOn bool

	mu       sync.Mutex
	handlers []handler
	token    cancel.Token

	running atomic.Bool

	ticks          atomic.Uint64
	captureErrors  atomic.Uint64
	callbackPanics atomic.Uint64
}

// Stats is a point-in-time snapshot of observer counters.
type Stats struct {
	Ticks          uint64
	CaptureErrors  uint64
	CallbackPanics uint64
}

// New returns a stopped observer over region with process-default cadence
// and similarity floor.
func New(region geom.Region) *Observer {
	cfg := config.DefaultConfig()
	return &Observer{
		region:  region,
		tick:    config.CurrentTimeouts().ObserverTick,
		minSim:  cfg.MinSimilarity,
		capture: screen.CaptureRegion,
		logger:  slog.Default(),
	}
}

// SetInterval sets the tick cadence, clamped to MinTick. Stopped only.
func (o *Observer) SetInterval(d time.Duration) *Observer {
	if o.running.Load() {
		return o
	}
	if d < MinTick {
		d = MinTick
	}
	o.tick = d
	return o
}

// SetMinSimilarity sets the similarity floor applied to patterns as they are
// registered; patterns registered earlier keep their threshold. Stopped only.
func (o *Observer) SetMinSimilarity(s float64) *Observer {
	if o.running.Load() {
		return o
	}
	if s < 0 {
		s = 0
	} else if s > 1 {
		s = 1
	}
	o.minSim = s
	return o
}

// SetLogger replaces the logger. Stopped only.
func (o *Observer) SetLogger(l *slog.Logger) *Observer {
	if !o.running.Load() && l != nil {
		o.logger = l
	}
	return o
}

// SetCapture replaces the frame source. Stopped only; tests use it to feed
// synthetic frames.
func (o *Observer) SetCapture(fn CaptureFunc) *Observer {
	if !o.running.Load() && fn != nil {
		o.capture = fn
	}
	return o
}

// ApplyConfig adopts cadence, similarity floor and debug flag from cfg.
func (o *Observer) ApplyConfig(cfg *config.Config) *Observer {
	if cfg == nil || o.running.Load() {
		return o
	}
	o.SetInterval(time.Duration(cfg.TickMS) * time.Millisecond)
	o.SetMinSimilarity(cfg.MinSimilarity)
	o.debugOn = cfg.Debug
	return o
}

// effective lifts a pattern's similarity to the observer's floor.
func (o *Observer) effective(p *pattern.Pattern) *pattern.Pattern {
	if p.Similarity() < o.minSim {
		return p.Similar(o.minSim)
	}
	return p
}

func (o *Observer) register(h handler) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running.Load() {
		return "", ErrRunning
	}
	o.handlers = append(o.handlers, h)
	return h.id(), nil
}

// OnAppear fires fn once each time the pattern becomes visible.
func (o *Observer) OnAppear(p *pattern.Pattern, fn AppearCallback) (string, error) {
	if p == nil || fn == nil {
		return "", fmt.Errorf("observe: nil pattern or callback")
	}
	return o.register(&appearHandler{uid: uuid.NewString(), pat: o.effective(p), fn: fn})
}

// OnVanish fires fn when a previously seen pattern is no longer found.
func (o *Observer) OnVanish(p *pattern.Pattern, fn VanishCallback) (string, error) {
	if p == nil || fn == nil {
		return "", fmt.Errorf("observe: nil pattern or callback")
	}
	return o.register(&vanishHandler{uid: uuid.NewString(), pat: o.effective(p), fn: fn})
}

// OnChange fires fn when the frame-diff score against the previous trigger
// frame reaches threshold. The first tick only primes the baseline.
func (o *Observer) OnChange(threshold float64, fn ChangeCallback) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("observe: nil callback")
	}
	if threshold < 0 {
		threshold = 0
	} else if threshold > 1 {
		threshold = 1
	}
	return o.register(&changeHandler{uid: uuid.NewString(), threshold: threshold, fn: fn})
}

// IsRunning reports whether the worker is live.
func (o *Observer) IsRunning() bool { return o.running.Load() }

// Stats returns a snapshot of the observer counters.
func (o *Observer) Stats() Stats {
	return Stats{
		Ticks:          o.ticks.Load(),
		CaptureErrors:  o.captureErrors.Load(),
		CallbackPanics: o.callbackPanics.Load(),
	}
}

// Stop signals the worker; it exits before the next tick. Idempotent and
// safe from any goroutine, including callbacks.
func (o *Observer) Stop() {
	o.mu.Lock()
	tok := o.token
	o.mu.Unlock()
	tok.Cancel()
}

// Observe runs the tick loop on the calling goroutine until stopped or, for
// a positive timeout, until it elapses. A timeout of 0 means "until Stop".
func (o *Observer) Observe(timeout time.Duration) error {
	snapshot, err := o.start()
	if err != nil {
		return err
	}
	o.run(snapshot, timeout)
	return nil
}

// Handle joins a background observer exactly once.
type Handle struct {
	done chan struct{}
}

// Join blocks until the worker exits.
func (h *Handle) Join() { <-h.done }

// ObserveInBackground starts the worker goroutine and returns its join
// handle. The caller is responsible for joining.
func (o *Observer) ObserveInBackground() (*Handle, error) {
	snapshot, err := o.start()
	if err != nil {
		return nil, err
	}
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		o.run(snapshot, 0)
	}()
	return h, nil
}

// start transitions stopped -> running and snapshots the handler list; the
// worker iterates the snapshot so registrations can never tear.
func (o *Observer) start() ([]handler, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	o.mu.Lock()
	o.token = cancel.NewToken()
	snapshot := make([]handler, len(o.handlers))
	copy(snapshot, o.handlers)
	o.mu.Unlock()
	if o.debugOn {
		startDebugSamplers(o)
	}
	return snapshot, nil
}

func (o *Observer) run(handlers []handler, timeout time.Duration) {
	defer o.running.Store(false)
	o.mu.Lock()
	tok := o.token
	o.mu.Unlock()
	guard := cancel.NewTimeoutGuard(timeout)

	for {
		if tok.IsCancelled() || guard.IsExpired() {
			return
		}
		frame, err := o.capture(o.region)
		if err != nil {
			o.captureErrors.Add(1)
			o.logger.Error("observe: capture failed", "region", o.region.String(), "error", err)
		} else {
			for _, h := range handlers {
				h.process(o, frame)
			}
		}
		o.ticks.Add(1)
		time.Sleep(o.tick)
	}
}

// safeCall isolates a callback panic: logged, counted, never propagated.
func (o *Observer) safeCall(id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.callbackPanics.Add(1)
			o.logger.Error("observe: callback panic",
				"handler", id, "error", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

var debugSamplersOnce sync.Once

func startDebugSamplers(o *Observer) {
	debugSamplersOnce.Do(func() {
		snap := func() (uint64, uint64, uint64) {
			s := o.Stats()
			return s.Ticks, s.CaptureErrors, s.CallbackPanics
		}
		scrydebug.StartGoroutineLogger(2*time.Second, o.logger, snap)
		scrydebug.StartMemLogger(2*time.Second, o.logger)
	})
}
