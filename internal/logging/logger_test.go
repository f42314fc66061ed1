package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/havenstay/authsession/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range tests {
		if got := parseLevel(tc.input); got != tc.expected {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestJSONFormatCarriesDefaultAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.LoggingConfig{Level: "info", Format: "json"}, "authsession", "1.2.3")

	logger.Info("session restored", "user_id", "u1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"msg":     "session restored",
		"service": "authsession",
		"version": "1.2.3",
		"user_id": "u1",
	} {
		if entry[key] != want {
			t.Fatalf("%s = %v, want %s", key, entry[key], want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.LoggingConfig{Level: "warn", Format: "text"}, "svc", "dev")

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestDefaultIsUsable(t *testing.T) {
	if Default("svc") == nil {
		t.Fatal("expected non-nil logger")
	}
}
