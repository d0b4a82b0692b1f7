package internal

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		hasError bool
	}{
		{"ERROR", LogLevelError, false},
		{"warn", LogLevelWarn, false},
		{"Warning", LogLevelWarn, false},
		{" debug ", LogLevelDebug, false},
		{"TRACE", LogLevelTrace, false},
		{"verbose", LogLevelInfo, true},
	}

	for _, tt := range tests {
		level, err := ParseLogLevel(tt.input)
		if (err != nil) != tt.hasError {
			t.Errorf("ParseLogLevel(%q) error = %v, want error %v", tt.input, err, tt.hasError)
		}
		if level != tt.expected {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", tt.input, level, tt.expected)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogLevelWarn).With("series")

	logger.Info("hidden %d", 1)
	logger.Warn("skipping replicate %s", "17")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at WARN, got %q", out)
	}
	if !strings.Contains(out, "[WARN] [series] skipping replicate 17") {
		t.Errorf("expected tagged warning, got %q", out)
	}
}

func TestLogger_NilIsSilent(t *testing.T) {
	var logger *Logger
	logger.Warn("nothing %s", "happens")
	if logger.With("x") != nil {
		t.Error("With on a nil logger should stay nil")
	}
}
