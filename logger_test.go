package scry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mirrelia/scry/config"
)

func TestNewLogger_LevelFollowsDebugFlag(t *testing.T) {
	quiet := NewLogger(&config.Config{})
	if quiet.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug records must be suppressed without the debug flag")
	}
	if !quiet.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info records must always pass")
	}

	verbose := NewLogger(&config.Config{Debug: true})
	if !verbose.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug flag must enable debug records")
	}
}

func TestComponentLogger_NilBase(t *testing.T) {
	l := ComponentLogger(nil, "observer")
	if l == nil {
		t.Fatal("component logger must never be nil")
	}
}
