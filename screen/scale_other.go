//go:build !windows

package screen

import (
	"os"
	"strconv"
)

// displayScale returns the DPI scale factor for a display. Without a
// per-monitor DPI API on this platform it honors the SCRY_SCALE_<index> and
// SCRY_SCALE environment overrides and otherwise assumes 1.0.
func displayScale(index int) float64 {
	if v, ok := os.LookupEnv("SCRY_SCALE_" + strconv.Itoa(index)); ok {
		if s, err := strconv.ParseFloat(v, 64); err == nil && s > 0 {
			return s
		}
	}
	if v, ok := os.LookupEnv("SCRY_SCALE"); ok {
		if s, err := strconv.ParseFloat(v, 64); err == nil && s > 0 {
			return s
		}
	}
	return 1.0
}
