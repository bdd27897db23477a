package match

import (
	"fmt"

	"github.com/mirrelia/scry/screen"
)

// DiffScore computes the normalized mean-squared error between the grayscale
// planes of two equal-size rasters, in [0,1]: 0.0 for identical frames, 1.0
// for maximally different ones (e.g. black vs white). The observer's change
// handlers compare each tick against their previous frame with it.
func DiffScore(a, b *screen.Raster) (float64, error) {
	if a.W() != b.W() || a.H() != b.H() {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, a.W(), a.H(), b.W(), b.H())
	}
	ga, gb := a.Gray(), b.Gray()
	var sum float64
	for i := range ga {
		d := float64(ga[i]) - float64(gb[i])
		sum += d * d
	}
	n := float64(len(ga))
	if n == 0 {
		return 0, nil
	}
	score := sum / n
	if score > 1 {
		score = 1
	}
	return score, nil
}
