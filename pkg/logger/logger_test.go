package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mhurbridge/pkg/config"
)

func TestLoggerJSONEntryShape(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "receiver").Info("Job received", "job_id", "42", "ok", true)

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}

	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Message != "Job received" {
		t.Fatalf("message = %q, want %q", entry.Message, "Job received")
	}
	if entry.Component != "receiver" {
		t.Fatalf("component = %q, want %q", entry.Component, "receiver")
	}
	if entry.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if entry.JobID != "42" {
		t.Fatalf("job_id = %q, want %q", entry.JobID, "42")
	}
	if _, dup := entry.Fields["job_id"]; dup {
		t.Fatal("job_id should not repeat inside fields")
	}
	if got := entry.Fields["ok"]; got != true {
		t.Fatalf("fields.ok = %v, want true", got)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); got == "" {
		t.Fatal("expected output for error")
	}
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	t.Setenv("MHUR_LOG_LEVEL", "debug")
	t.Setenv("MHUR_LOG_FORMAT", "text")
	defer unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Debug("Debug enabled", "component", "test")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected debug output with env override")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format override, got %q", line)
	}
}

func TestLoggerDefaultsToTextFormat(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Default format")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format by default, got %q", line)
	}
}

func TestLoggerFanoutWritesJSONToFile(t *testing.T) {
	unsetLoggingEnv(t)

	var stderr, file bytes.Buffer
	base, err := newWithWriter(config.LoggingConfig{Level: "info"}, &stderr)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log := withFile(base, config.LoggingConfig{Level: "info"}, &file)
	log.With("component", "pipeline").Warn("Mesh not found", "part", "Body")

	if strings.TrimSpace(stderr.String()) == "" {
		t.Fatal("expected text output on stderr writer")
	}

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(file.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal file entry: %v", err)
	}
	if entry.Level != "warn" || entry.Component != "pipeline" {
		t.Fatalf("entry = %+v, want warn from pipeline", entry)
	}
	if entry.Caller == "" {
		t.Fatal("expected caller in file entry")
	}
}

func TestNewOpensLogFile(t *testing.T) {
	unsetLoggingEnv(t)

	path := filepath.Join(t.TempDir(), "bridge.log")
	log, cleanup, err := New(config.LoggingConfig{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	log.Debug("Listening")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"message":"Listening"`) {
		t.Fatalf("log file = %q, want Listening entry", content)
	}
}

func TestLoggerGroupsPrefixKeys(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.WithGroup("part").With("type", "Body").Info("Imported", slog.Group("mesh", "slots", 3), "took", 2*time.Second)

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	if got := entry.Fields["part.type"]; got != "Body" {
		t.Fatalf("fields[part.type] = %v, want Body", got)
	}
	if got := entry.Fields["part.took"]; got != "2s" {
		t.Fatalf("fields[part.took] = %v, want 2s", got)
	}
	mesh, ok := entry.Fields["part.mesh"].(map[string]any)
	if !ok || mesh["slots"] != float64(3) {
		t.Fatalf("fields[part.mesh] = %#v", entry.Fields["part.mesh"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseLevel(%q) error = %v", tt.input, err)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoggerRejectsUnknownFormat(t *testing.T) {
	unsetLoggingEnv(t)

	if _, err := newWithWriter(config.LoggingConfig{Format: "xml"}, io.Discard); err == nil {
		t.Fatal("expected error for an unknown format")
	}
}

func unsetLoggingEnv(t *testing.T) {
	t.Helper()
	_ = os.Unsetenv("MHUR_LOG_LEVEL")
	_ = os.Unsetenv("MHUR_LOG_FORMAT")
	_ = os.Unsetenv("MHUR_LOG_ADD_SOURCE")
}
