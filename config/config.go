// Package config holds runtime configuration for the engine: matcher
// defaults and the process-wide timeout table. Fields may be loaded from a
// JSON file and overridden by SCRY_* environment variables (optionally read
// from a .env file).
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds detection defaults and engine behavior flags.
type Config struct {
	Debug bool `json:"debug"`
	// Detection parameters
	MinSimilarity float64 `json:"min_similarity"`
	// Observer cadence in milliseconds, adopted by Observer.ApplyConfig.
	// Waiters do not read it; they use Timeouts.ObserverTick.
	TickMS int `json:"tick_ms"`
	// Parallel matcher workers; 0 means one per logical CPU. Validated here
	// only: the matcher takes its worker count from match.Options.
	Workers int `json:"workers"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:         false,
		MinSimilarity: 0.7,
		TickMS:        500,
		Workers:       0,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		c.MinSimilarity = 0.7
	}
	if c.TickMS < 10 {
		c.TickMS = 500
	}
	if c.Workers < 0 {
		c.Workers = 0
	}
	return nil
}

// Load reads a JSON config file, then applies environment overrides. A .env
// file in the working directory is honored when present; a missing config
// file yields defaults plus overrides rather than an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}
	_ = godotenv.Load()
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("SCRY_DEBUG"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}
	if v, ok := os.LookupEnv("SCRY_MIN_SIMILARITY"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MinSimilarity = f
		}
	}
	if v, ok := os.LookupEnv("SCRY_TICK_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TickMS = n
		}
	}
	if v, ok := os.LookupEnv("SCRY_WORKERS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
}

// Timeouts is the process-wide default timeout table. Waiters read it at
// entry, so a mutation affects only operations started afterwards.
type Timeouts struct {
	Find         time.Duration `json:"find"`
	Wait         time.Duration `json:"wait"`
	Exists       time.Duration `json:"exists"`
	ObserverTick time.Duration `json:"observer_tick"`
	Script       time.Duration `json:"script"`
	Capture      time.Duration `json:"capture"`
	OCR          time.Duration `json:"ocr"`
}

// DefaultTimeouts returns the built-in timeout table.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Find:         3 * time.Second,
		Wait:         3 * time.Second,
		Exists:       0,
		ObserverTick: 500 * time.Millisecond,
		Script:       10 * time.Minute,
		Capture:      5 * time.Second,
		OCR:          30 * time.Second,
	}
}

var (
	timeoutsMu sync.Mutex
	timeouts   = DefaultTimeouts()
)

// CurrentTimeouts returns a copy of the process-wide timeout table.
func CurrentTimeouts() Timeouts {
	timeoutsMu.Lock()
	defer timeoutsMu.Unlock()
	return timeouts
}

// SetTimeouts replaces the process-wide timeout table. The observer tick is
// clamped to at least 10ms.
func SetTimeouts(t Timeouts) {
	if t.ObserverTick < 10*time.Millisecond {
		t.ObserverTick = 10 * time.Millisecond
	}
	timeoutsMu.Lock()
	timeouts = t
	timeoutsMu.Unlock()
}
