package screen

import (
	"image"
	"sync"
	"sync/atomic"
)

// Reusable frame pool to reduce heap churn from the capture loop: waiters and
// the observer re-capture the same region many times per second, and each
// stitched frame would otherwise retain a fresh multi-megabyte backing slice.
// Consumers that are done with a captured Raster call Release to allow reuse;
// if they never do, behavior degrades gracefully to plain allocation.
//
// The counters feed the debug memstats sampler so native growth can be told
// apart from frames the caller forgot to release.

var (
	framePool    sync.Pool // stores *image.RGBA
	poolAcquires atomic.Uint64
	poolHits     atomic.Uint64
	poolRecycles atomic.Uint64
)

// FramePoolStats reports lifetime counters: frames handed out, frames served
// from the pool rather than freshly allocated, and frames returned.
func FramePoolStats() (acquires, hits, recycles uint64) {
	return poolAcquires.Load(), poolHits.Load(), poolRecycles.Load()
}

// acquireFrame returns a reusable RGBA image sized w x h with origin (0,0).
// The returned Pix length exactly matches w*h*4 and Stride is w*4.
func acquireFrame(w, h int) *image.RGBA {
	if w <= 0 || h <= 0 {
		return &image.RGBA{Rect: image.Rect(0, 0, w, h)}
	}
	poolAcquires.Add(1)
	needed := w * h * 4
	var img *image.RGBA
	if v := framePool.Get(); v != nil {
		img = v.(*image.RGBA)
	}
	if img == nil || cap(img.Pix) < needed {
		img = &image.RGBA{Pix: make([]byte, needed), Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	} else {
		poolHits.Add(1)
		img.Stride = w * 4
		img.Rect = image.Rect(0, 0, w, h)
		img.Pix = img.Pix[:needed]
	}
	// Zero the buffer: stitched captures may not cover every pixel when the
	// requested region hangs off the edge of a monitor.
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	return img
}

// recycleFrame returns the frame to the pool for potential reuse. The frame
// must no longer be accessed by the caller.
func recycleFrame(img *image.RGBA) {
	if img == nil || img.Pix == nil {
		return
	}
	poolRecycles.Add(1)
	framePool.Put(img)
}
