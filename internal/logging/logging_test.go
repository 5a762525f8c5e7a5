package logging

import (
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf strings.Builder
	l := New(Config{Level: LevelWarn, Output: &buf, Prefix: "test"})

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Error("debug message should be filtered at warn level")
	}
	if strings.Contains(out, "info message") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "warn message") {
		t.Error("warn message missing from output")
	}
	if !strings.Contains(out, "error message") {
		t.Error("error message missing from output")
	}
}

func TestLoggerFields(t *testing.T) {
	var buf strings.Builder
	l := New(Config{Level: LevelDebug, Output: &buf})

	l.WithComponent("resolver").Debug("cache miss offset=%d", 42)

	out := buf.String()
	if !strings.Contains(out, "component=resolver") {
		t.Errorf("output missing component field: %q", out)
	}
	if !strings.Contains(out, "cache miss offset=42") {
		t.Errorf("output missing formatted message: %q", out)
	}
}

func TestNullLoggerSilent(t *testing.T) {
	// NullLogger must never write or panic.
	NullLogger.Debug("dropped")
	NullLogger.Error("dropped")
}
