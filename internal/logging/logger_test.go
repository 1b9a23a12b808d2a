package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.input); got != tc.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger = logger.With(slog.String("component", "queue"))
	logger.Info("item added", slog.String("item_id", "abc"), slog.Int("position", 3))

	line := buf.String()
	if !strings.Contains(line, "INFO queue: item added") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "item_id=abc") || !strings.Contains(line, "position=3") {
		t.Fatalf("missing attrs in line: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Warn("failure", slog.String("reason", "network timed out"))
	if !strings.Contains(buf.String(), `reason="network timed out"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	logger.Error("emitted")
	if !strings.Contains(buf.String(), "ERROR") {
		t.Fatalf("expected error line, got %q", buf.String())
	}
}

func TestJSONHandlerFieldNames(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, levelVar))

	logger.Info("hello", slog.String("k", "v"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record["msg"] != "hello" {
		t.Fatalf("expected msg field, got %v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts field, got %v", record)
	}
	if record["k"] != "v" {
		t.Fatalf("expected attr passthrough, got %v", record)
	}
}
