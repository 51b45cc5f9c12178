package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.Info("connecting",
		"armis_password", "hunter2",
		"kdi_api_key", "abc123",
		"host", "example.armis.com",
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if entry["armis_password"] != "[REDACTED]" {
		t.Errorf("password not redacted: %v", entry["armis_password"])
	}
	if entry["kdi_api_key"] != "[REDACTED]" {
		t.Errorf("api key not redacted: %v", entry["kdi_api_key"])
	}
	if entry["host"] != "example.armis.com" {
		t.Errorf("host = %v, want example.armis.com", entry["host"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "text", Output: &buf})

	log.Debug("page fetched", "page", 3)

	out := buf.String()
	if !strings.Contains(out, "page fetched") || !strings.Contains(out, "page=3") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCtx_AddsContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: "info", Output: &buf}).With("component", "armis_client")

	ctx := ContextWith(context.Background(), "run_id", "r-1")
	ctx = ContextWith(ctx, "page", 2)
	base.Ctx(ctx).Info("request failed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if entry["run_id"] != "r-1" {
		t.Errorf("run_id = %v, want r-1", entry["run_id"])
	}
	if entry["page"] != float64(2) {
		t.Errorf("page = %v, want 2", entry["page"])
	}
	if entry["component"] != "armis_client" {
		t.Errorf("component = %v, want armis_client", entry["component"])
	}
}

func TestCtx_WithoutAttributesReturnsSameLogger(t *testing.T) {
	log := NewNop()
	if got := log.Ctx(context.Background()); got != log {
		t.Error("expected the receiver when ctx carries no attributes")
	}
}

func TestContextWith_DoesNotAliasParent(t *testing.T) {
	parent := ContextWith(context.Background(), "run_id", "r-1")
	a := ContextWith(parent, "page", 1)
	b := ContextWith(parent, "page", 2)

	got := a.Value(attrsKey{}).([]any)
	if len(got) != 4 || got[3] != 1 {
		t.Errorf("sibling context clobbered attributes: %v", got)
	}
	if len(b.Value(attrsKey{}).([]any)) != 4 {
		t.Error("expected four attribute values on second child")
	}
}
