// Package debug holds the periodic samplers started when config.Debug is
// set. They exist to answer one question about long-lived observers: is RSS
// growth coming from goroutines/stacks, from retained capture frames, or
// from native allocations.
package debug

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"
)

// ObserverSnapshot reports the live counters of the observer that started
// the sampler, so goroutine growth can be correlated with tick activity.
type ObserverSnapshot func() (ticks, captureErrors, callbackPanics uint64)

// StartGoroutineLogger launches a ticker that logs goroutine count and stack
// memory alongside the observer's own counters. Lightweight; disable by
// running without the debug flag. A nil snapshot logs runtime state only.
func StartGoroutineLogger(interval time.Duration, logger *slog.Logger, snap ObserverSnapshot) {
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
		for range t.C {
			metrics.Read(samples)
			goroutines := samples[0].Value.Uint64()
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			attrs := []slog.Attr{
				slog.Uint64("goroutines", goroutines),
				slog.Uint64("stack_inuse", uint64(ms.StackInuse)),
				slog.Uint64("stack_sys", uint64(ms.StackSys)),
				slog.Uint64("heap_alloc", uint64(ms.HeapAlloc)),
			}
			if snap != nil {
				ticks, capErrs, panics := snap()
				attrs = append(attrs,
					slog.Uint64("observer_ticks", ticks),
					slog.Uint64("capture_errors", capErrs),
					slog.Uint64("callback_panics", panics),
				)
			}
			logger.LogAttrs(context.Background(), slog.LevelInfo, "goroutine-stacks", attrs...)
		}
	}()
}
