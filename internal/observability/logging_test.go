package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Output: &buf})

	logger.Info("test message", "key", "value", "number", 42)

	entry := decodeLine(t, &buf)
	for _, field := range []string{"time", "level", "msg", "key", "number"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("Expected %q field in JSON log", field)
		}
	}
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "text", Output: &buf})

	logger.Info("test message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "test message") || !strings.Contains(output, "key=value") {
		t.Errorf("unexpected text output: %s", output)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %s", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn record, got %s", buf.String())
	}
}

func TestLoggerContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf})

	ctx := AddRequestID(context.Background(), "req-123")
	ctx = AddSenderID(ctx, "15551234567")
	ctx = AddMessageID(ctx, "wamid.1")
	ctx = AddThreadID(ctx, "thread_abc")
	ctx = AddRunID(ctx, "run_xyz")

	logger.InfoContext(ctx, "processing")

	entry := decodeLine(t, &buf)
	want := map[string]string{
		"request_id": "req-123",
		"sender_id":  "15551234567",
		"message_id": "wamid.1",
		"thread_id":  "thread_abc",
		"run_id":     "run_xyz",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %q", k, entry[k], v)
		}
	}
}

func TestLoggerTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf})
	tracer, _ := newRecordingTracer(t)

	ctx, span := tracer.Start(context.Background(), "op")
	logger.InfoContext(ctx, "inside span")
	span.End()

	entry := decodeLine(t, &buf)
	if entry["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v", entry["trace_id"])
	}
	if entry["span_id"] != span.SpanContext().SpanID().String() {
		t.Errorf("span_id = %v", entry["span_id"])
	}
}

func TestLoggerEmptyContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf})

	logger.InfoContext(AddRequestID(context.Background(), ""), "processing")

	if _, ok := decodeLine(t, &buf)["request_id"]; ok {
		t.Error("empty request_id should not be logged")
	}
}

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		log    func(l *slog.Logger, secret string)
	}{
		{
			name:   "openai key in message",
			secret: "sk-proj-abcdefghijklmnopqrstuvwxyz123456",
			log:    func(l *slog.Logger, s string) { l.Info("using key " + s) },
		},
		{
			name:   "bearer token attribute",
			secret: "EAAGm0PX4ZCpsBAKZCabcdefghijklmnopqrstuvwxyz0123",
			log:    func(l *slog.Logger, s string) { l.Info("send", "header", "Bearer "+s) },
		},
		{
			name:   "sensitive key",
			secret: "short",
			log:    func(l *slog.Logger, s string) { l.Info("config", "app_secret", s) },
		},
		{
			name:   "error value",
			secret: "sk-abcdefghijklmnopqrstuvwxyz0123456789",
			log:    func(l *slog.Logger, s string) { l.Error("failed", "error", errors.New("bad key "+s)) },
		},
		{
			name:   "grouped attribute",
			secret: "supersecretvalue",
			log: func(l *slog.Logger, s string) {
				l.Info("config", slog.Group("whatsapp", slog.String("access_token", s)))
			},
		},
		{
			name:   "logger with attrs",
			secret: "sk-abcdefghijklmnopqrstuvwxyz0123456789",
			log:    func(l *slog.Logger, s string) { l.With("key", s).Info("bound") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewLogger(LogConfig{Output: &buf}), tt.secret)

			output := buf.String()
			if strings.Contains(output, tt.secret) {
				t.Errorf("secret leaked: %s", output)
			}
			if !strings.Contains(output, "[REDACTED]") {
				t.Errorf("expected redaction marker: %s", output)
			}
		})
	}
}

func TestRedactCustomPatterns(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf, RedactPatterns: []string{`wa-\d{4}`}})

	logger.Info("internal id wa-1234")

	if strings.Contains(buf.String(), "wa-1234") {
		t.Errorf("custom pattern not redacted: %s", buf.String())
	}
}

func TestLogLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"invalid": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := LogLevelFromString(in); got != want {
			t.Errorf("LogLevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGetRequestID(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
	if got := GetRequestID(AddRequestID(context.Background(), "req-1")); got != "req-1" {
		t.Errorf("GetRequestID() = %q, want req-1", got)
	}
}
