//go:build !windows

package debug

// Portable memory logger. Without an OS working-set query it reports Go heap
// stats plus the capture frame-pool counters; RSS shows as zero. Pool
// acquires far ahead of recycles means callers are holding frames.

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/mirrelia/scry/screen"
)

// StartMemLogger launches a goroutine that logs memory and frame-pool stats
// every interval.
func StartMemLogger(interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			acquires, hits, recycles := screen.FramePoolStats()
			logger.Info("memstats",
				slog.Int("goroutines", runtime.NumGoroutine()),
				slog.Uint64("heap_alloc", ms.HeapAlloc),
				slog.Uint64("heap_inuse", ms.HeapInuse),
				slog.Uint64("heap_sys", ms.HeapSys),
				slog.Uint64("rss", 0),
				slog.Uint64("num_gc", uint64(ms.NumGC)),
				slog.Uint64("pool_acquires", acquires),
				slog.Uint64("pool_hits", hits),
				slog.Uint64("pool_recycles", recycles),
				slog.Uint64("pool_outstanding", acquires-recycles),
			)
		}
	}()
}
