package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"error":    slog.LevelError,
		" WARN ":   slog.LevelWarn,
		"warning":  slog.LevelWarn,
		"info":     slog.LevelInfo,
		"debug":    slog.LevelDebug,
		"":         slog.LevelDebug,
		"verbose?": slog.LevelDebug,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewRespectsLevel(t *testing.T) {
	t.Parallel()

	logger := NewWithWriter(io.Discard, "warn", "")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	if !logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("error should be enabled at warn level")
	}
}

func TestComponentJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := Component(NewWithWriter(&buf, "info", "json"), "pipeline")
	logger.Info("search finished", "kept", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec["component"] != "pipeline" || rec["msg"] != "search finished" || rec["kept"] != float64(3) {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestComponentText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Component(NewWithWriter(&buf, "debug", ""), "api").Debug("request")
	if !strings.Contains(buf.String(), "component=api") {
		t.Fatalf("unexpected output %q", buf.String())
	}

	Component(nil, "x").Info("discarded")
}
