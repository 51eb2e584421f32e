package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":         slog.LevelInfo,
		"info":     slog.LevelInfo,
		" DEBUG ":  slog.LevelDebug,
		"dbg":      slog.LevelDebug,
		"warning":  slog.LevelWarn,
		"err":      slog.LevelError,
		"trace":    LevelTrace,
		"nonsense": slog.LevelInfo,
	}
	for input, expected := range cases {
		if got := ParseLevel(input); got != expected {
			t.Fatalf("ParseLevel(%q) expected %v got %v", input, expected, got)
		}
	}
}

func TestNewJSONAddsService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Config{Level: "info", Format: "json", Service: "relay"})
	logger.Info("hello", slog.String("groupId", "r1"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if record["service"] != "relay" {
		t.Fatalf("expected service attribute, got %v", record)
	}
	if record["groupId"] != "r1" {
		t.Fatalf("expected groupId attribute, got %v", record)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Config{Level: "warn"})
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info record to be filtered, got %q", buf.String())
	}
	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("expected warn record to be written")
	}
}
