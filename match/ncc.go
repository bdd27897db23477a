// Package match implements the normalized cross-correlation template matcher:
// integral-image window sums, row-parallel scanning with cooperative
// cancellation, non-maximum suppression for FindAll, and the frame-diff
// primitive used by the observer.
package match

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mirrelia/scry/cancel"
	"github.com/mirrelia/scry/geom"
	"github.com/mirrelia/scry/pattern"
	"github.com/mirrelia/scry/screen"
)

var (
	// ErrPatternTooLarge reports a template exceeding the search area.
	ErrPatternTooLarge = errors.New("match: pattern larger than search area")

	// ErrFindFailed reports that no position scored at or above the
	// pattern's similarity.
	ErrFindFailed = errors.New("match: find failed")

	// ErrSizeMismatch reports rasters of differing dimensions fed to
	// DiffScore.
	ErrSizeMismatch = errors.New("match: raster size mismatch")
)

// Match is a located template: its on-screen region, NCC score in [0,1] and
// the click target (region center plus the pattern's offset). Constructed
// only by this package.
type Match struct {
	Region geom.Region
	Score  float64
	Target geom.Location
}

// Options configures a search.
type Options struct {
	// Origin is the global position of the haystack's top-left; match
	// regions are reported relative to it.
	Origin geom.Location
	// Token is polled at row boundaries; on cancel the search returns
	// cancel.ErrCancelled and discards partial results.
	Token cancel.Token
	// Workers caps the row-parallel fan-out; 0 means one per logical CPU.
	Workers int
}

// candidate is a local-coordinate scored position.
type candidate struct {
	score float64
	x, y  int
}

// searchDims validates haystack-vs-template dimensions.
func searchDims(hay *screen.Raster, p *pattern.Pattern) (searchW, searchH int, err error) {
	searchW = hay.W() - p.W() + 1
	searchH = hay.H() - p.H() + 1
	if searchW <= 0 || searchH <= 0 {
		return 0, 0, fmt.Errorf("%w: template %dx%d vs haystack %dx%d",
			ErrPatternTooLarge, p.W(), p.H(), hay.W(), hay.H())
	}
	return searchW, searchH, nil
}

// buildIntegralSq returns the (w+1)x(h+1) padded summed-area table of
// squared grayscale values, so window sums need no boundary branches.
func buildIntegralSq(gray []float32, w, h int) []float64 {
	iw := w + 1
	integ := make([]float64, iw*(h+1))
	for y := 0; y < h; y++ {
		var rowSum float64
		src := gray[y*w : (y+1)*w]
		prev := integ[y*iw:]
		cur := integ[(y+1)*iw:]
		for x := 0; x < w; x++ {
			v := float64(src[x])
			rowSum += v * v
			cur[x+1] = prev[x+1] + rowSum
		}
	}
	return integ
}

// windowSumSq queries the padded integral for the tw x th window at (x, y).
func windowSumSq(integ []float64, iw, x, y, tw, th int) float64 {
	return integ[(y+th)*iw+x+tw] - integ[y*iw+x+tw] - integ[(y+th)*iw+x] + integ[y*iw+x]
}

// scoreRow fills out[0:searchW] with NCC scores for haystack row y. The
// inner loop walks template rows so each iteration reads one contiguous
// haystack row slice; bounds are established by the slicing, keeping the
// per-pixel loop free of checks.
func scoreRow(hgray []float32, sw int, integ []float64, st *pattern.Stats, y int, out []float64) {
	tw, th := st.W, st.H
	tgray := st.Gray
	iw := sw + 1
	sqrtSumT2 := st.SqrtSumT2
	for x := range out {
		sumS2 := windowSumSq(integ, iw, x, y, tw, th)
		if sumS2 <= 0 || sqrtSumT2 <= 0 {
			out[x] = 0
			continue
		}
		var sumST float64
		for j := 0; j < th; j++ {
			srow := hgray[(y+j)*sw+x : (y+j)*sw+x+tw]
			trow := tgray[j*tw : (j+1)*tw]
			for i, tv := range trow {
				sumST += float64(srow[i]) * float64(tv)
			}
		}
		score := sumST / (math.Sqrt(sumS2) * sqrtSumT2)
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}
		out[x] = score
	}
}

// runRows partitions haystack rows into contiguous bands, one worker per
// band. Workers own their band exclusively; results are merged after the
// join. The token is polled between rows, never inside the pixel loop.
func runRows(searchH, workers int, tok cancel.Token, band func(worker, y0, y1 int)) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > searchH {
		workers = searchH
	}
	rowsPer := (searchH + workers - 1) / workers

	var cancelled atomic.Bool
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		y0 := w * rowsPer
		y1 := y0 + rowsPer
		if y1 > searchH {
			y1 = searchH
		}
		if y0 >= y1 {
			break
		}
		wg.Add(1)
		go func(worker, y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				if tok.IsCancelled() {
					cancelled.Store(true)
					return
				}
				band(worker, y, y+1)
			}
		}(w, y0, y1)
	}
	wg.Wait()
	if cancelled.Load() || tok.IsCancelled() {
		return cancel.ErrCancelled
	}
	return nil
}

// Find returns the single best-scoring position, failing with ErrFindFailed
// when the maximum is below the pattern's similarity. Ties resolve to the
// smallest y, then the smallest x.
func Find(hay *screen.Raster, p *pattern.Pattern, opts Options) (Match, error) {
	searchW, searchH, err := searchDims(hay, p)
	if err != nil {
		return Match{}, err
	}
	hgray := hay.Gray()
	integ := buildIntegralSq(hgray, hay.W(), hay.H())
	st := p.Stats()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	bests := make([]candidate, workers)
	for i := range bests {
		bests[i] = candidate{score: -1}
	}
	rowBufs := make([][]float64, workers)
	for i := range rowBufs {
		rowBufs[i] = make([]float64, searchW)
	}

	err = runRows(searchH, workers, opts.Token, func(worker, y0, _ int) {
		out := rowBufs[worker]
		scoreRow(hgray, hay.W(), integ, st, y0, out)
		best := &bests[worker]
		for x, s := range out {
			if s > best.score {
				*best = candidate{score: s, x: x, y: y0}
			}
		}
	})
	if err != nil {
		return Match{}, err
	}

	merged := candidate{score: -1}
	for _, b := range bests {
		if b.score > merged.score ||
			(b.score == merged.score && (b.y < merged.y || (b.y == merged.y && b.x < merged.x))) {
			merged = b
		}
	}
	if merged.score < p.Similarity() {
		return Match{}, fmt.Errorf("%w: best score %.4f below similarity %.2f",
			ErrFindFailed, merged.score, p.Similarity())
	}
	return toMatch(merged, p, opts.Origin), nil
}

// FindAll returns every position scoring at or above the pattern's
// similarity, de-duplicated by non-maximum suppression at IoU 0.5 and
// ordered by descending score.
func FindAll(hay *screen.Raster, p *pattern.Pattern, opts Options) ([]Match, error) {
	searchW, searchH, err := searchDims(hay, p)
	if err != nil {
		return nil, err
	}
	hgray := hay.Gray()
	integ := buildIntegralSq(hgray, hay.W(), hay.H())
	st := p.Stats()
	threshold := p.Similarity()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	perWorker := make([][]candidate, workers)
	rowBufs := make([][]float64, workers)
	for i := range rowBufs {
		rowBufs[i] = make([]float64, searchW)
	}

	err = runRows(searchH, workers, opts.Token, func(worker, y0, _ int) {
		out := rowBufs[worker]
		scoreRow(hgray, hay.W(), integ, st, y0, out)
		for x, s := range out {
			if s >= threshold {
				perWorker[worker] = append(perWorker[worker], candidate{score: s, x: x, y: y0})
			}
		}
	})
	if err != nil {
		return nil, err
	}

	var cands []candidate
	for _, pc := range perWorker {
		cands = append(cands, pc...)
	}
	kept := suppress(cands, p.W(), p.H())

	matches := make([]Match, len(kept))
	for i, c := range kept {
		matches[i] = toMatch(c, p, opts.Origin)
	}
	return matches, nil
}

func toMatch(c candidate, p *pattern.Pattern, origin geom.Location) Match {
	region := geom.Region{X: origin.X + c.x, Y: origin.Y + c.y, W: p.W(), H: p.H()}
	dx, dy := p.Offset()
	return Match{
		Region: region,
		Score:  c.score,
		Target: region.Center().Offset(dx, dy),
	}
}

// sortCandidates orders by descending score, then ascending y, then x, so
// suppression and its grid variant see an identical sequence.
func sortCandidates(cands []candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if cands[i].y != cands[j].y {
			return cands[i].y < cands[j].y
		}
		return cands[i].x < cands[j].x
	})
}
