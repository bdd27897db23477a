package wait

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mirrelia/scry/cancel"
	"github.com/mirrelia/scry/geom"
	"github.com/mirrelia/scry/match"
	"github.com/mirrelia/scry/pattern"
	"github.com/mirrelia/scry/screen"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// fixture builds a pattern plus frames with and without the template.
type fixture struct {
	pat     *pattern.Pattern
	with    *image.RGBA
	without *image.RGBA
	region  geom.Region
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tmpl := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			v := uint8(0)
			if (x*31+y*17)%3 == 0 {
				v = 255
			}
			tmpl.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	canvas := func() *image.RGBA {
		img := image.NewRGBA(image.Rect(0, 0, 80, 60))
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 128, 128, 128, 255
		}
		return img
	}
	with := canvas()
	draw.Draw(with, image.Rect(30, 20, 40, 30), tmpl, image.Point{}, draw.Src)

	p, err := pattern.FromRaster(screen.FromRGBA(tmpl, screen.SyntheticMonitor))
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		pat:     p.Similar(0.95),
		with:    with,
		without: canvas(),
		region:  geom.Region{X: 0, Y: 0, W: 80, H: 60},
	}
}

// frameScript serves a sequence of frames, repeating the last one.
type frameScript struct {
	mu     sync.Mutex
	frames []*image.RGBA
	errs   []error
	calls  int
}

func (f *frameScript) capture(geom.Region) (*screen.Raster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.frames) {
		i = len(f.frames) - 1
	}
	src := f.frames[i]
	cp := image.NewRGBA(src.Bounds())
	copy(cp.Pix, src.Pix)
	return screen.FromRGBA(cp, screen.SyntheticMonitor), nil
}

func (f *frameScript) captureCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestFind_SingleAttempt(t *testing.T) {
	fx := newFixture(t)
	fs := &frameScript{frames: []*image.RGBA{fx.with}}
	w := NewWithCapture(discardLogger, fs.capture)

	m, err := w.Find(fx.pat, Options{Region: &fx.region})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m.Region.X != 30 || m.Region.Y != 20 {
		t.Fatalf("wrong match region %v", m.Region)
	}
	if fs.captureCalls() != 1 {
		t.Fatalf("find must capture exactly once, got %d", fs.captureCalls())
	}
}

func TestFind_NoCaptureRetry(t *testing.T) {
	fx := newFixture(t)
	fs := &frameScript{
		frames: []*image.RGBA{fx.with},
		errs:   []error{screen.ErrCaptureFailed},
	}
	w := NewWithCapture(discardLogger, fs.capture)

	_, err := w.Find(fx.pat, Options{Region: &fx.region})
	if !errors.Is(err, screen.ErrCaptureFailed) {
		t.Fatalf("find must surface capture failure, got %v", err)
	}
	if fs.captureCalls() != 1 {
		t.Fatalf("find must never retry, got %d calls", fs.captureCalls())
	}
}

func TestWait_FindsAfterDelay(t *testing.T) {
	fx := newFixture(t)
	fs := &frameScript{frames: []*image.RGBA{fx.without, fx.without, fx.with}}
	w := NewWithCapture(discardLogger, fs.capture)

	m, err := w.Wait(fx.pat, 2*time.Second, Options{Region: &fx.region, Tick: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if m.Region.X != 30 {
		t.Fatalf("wrong match %v", m.Region)
	}
	if fs.captureCalls() < 3 {
		t.Fatalf("expected at least 3 captures, got %d", fs.captureCalls())
	}
}

func TestWait_Timeout(t *testing.T) {
	fx := newFixture(t)
	fs := &frameScript{frames: []*image.RGBA{fx.without}}
	w := NewWithCapture(discardLogger, fs.capture)

	_, err := w.Wait(fx.pat, 50*time.Millisecond, Options{Region: &fx.region, Tick: 10 * time.Millisecond})
	if !errors.Is(err, cancel.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if !errors.Is(err, match.ErrFindFailed) {
		t.Fatalf("wait timeout should also report find failure, got %v", err)
	}
}

func TestWait_CancelWinsOverTimeout(t *testing.T) {
	fx := newFixture(t)
	fs := &frameScript{frames: []*image.RGBA{fx.without}}
	w := NewWithCapture(discardLogger, fs.capture)

	tok := cancel.NewToken()
	go func() {
		time.Sleep(40 * time.Millisecond)
		tok.Cancel()
	}()

	start := time.Now()
	_, err := w.Wait(fx.pat, 10*time.Second, Options{
		Region: &fx.region,
		Tick:   10 * time.Millisecond,
		Token:  tok,
	})
	if !errors.Is(err, cancel.ErrCancelled) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("cancellation not observed promptly: %v", elapsed)
	}
}

func TestWait_RetriesTransientCaptureFailure(t *testing.T) {
	fx := newFixture(t)
	fs := &frameScript{
		frames: []*image.RGBA{fx.with, fx.with},
		errs:   []error{screen.ErrCaptureFailed},
	}
	w := NewWithCapture(discardLogger, fs.capture)

	m, err := w.Wait(fx.pat, 2*time.Second, Options{Region: &fx.region, Tick: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("wait should have retried past the capture failure: %v", err)
	}
	if m.Region.X != 30 {
		t.Fatalf("wrong match %v", m.Region)
	}
}

func TestExists_NilOnTimeout(t *testing.T) {
	fx := newFixture(t)
	fs := &frameScript{frames: []*image.RGBA{fx.without}}
	w := NewWithCapture(discardLogger, fs.capture)

	m, err := w.Exists(fx.pat, 0, Options{Region: &fx.region, Tick: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("exists must not error on absence: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil result, got %v", m)
	}
	if fs.captureCalls() != 1 {
		t.Fatalf("timeout 0 means a single attempt, got %d", fs.captureCalls())
	}
}

func TestExists_FindsMatch(t *testing.T) {
	fx := newFixture(t)
	fs := &frameScript{frames: []*image.RGBA{fx.with}}
	w := NewWithCapture(discardLogger, fs.capture)

	m, err := w.Exists(fx.pat, 0, Options{Region: &fx.region})
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if m == nil || m.Region.X != 30 {
		t.Fatalf("expected match at x=30, got %v", m)
	}
}

func TestWaitVanish_ImmediateWhenAbsent(t *testing.T) {
	fx := newFixture(t)
	fs := &frameScript{frames: []*image.RGBA{fx.without}}
	w := NewWithCapture(discardLogger, fs.capture)

	if err := w.WaitVanish(fx.pat, time.Second, Options{Region: &fx.region}); err != nil {
		t.Fatalf("absent at t=0 must succeed immediately: %v", err)
	}
	if fs.captureCalls() != 1 {
		t.Fatalf("expected a single capture, got %d", fs.captureCalls())
	}
}

func TestWaitVanish_WaitsThenSucceeds(t *testing.T) {
	fx := newFixture(t)
	fs := &frameScript{frames: []*image.RGBA{fx.with, fx.with, fx.without}}
	w := NewWithCapture(discardLogger, fs.capture)

	err := w.WaitVanish(fx.pat, 2*time.Second, Options{Region: &fx.region, Tick: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("vanish: %v", err)
	}
}

func TestWaitVanish_Timeout(t *testing.T) {
	fx := newFixture(t)
	fs := &frameScript{frames: []*image.RGBA{fx.with}}
	w := NewWithCapture(discardLogger, fs.capture)

	err := w.WaitVanish(fx.pat, 50*time.Millisecond, Options{Region: &fx.region, Tick: 10 * time.Millisecond})
	if !errors.Is(err, cancel.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}
