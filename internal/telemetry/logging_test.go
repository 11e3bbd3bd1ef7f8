package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("filters below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, slog.LevelWarn)

		logger.Info("dropped")
		if buf.Len() != 0 {
			t.Fatalf("expected no output, got %s", buf.String())
		}

		logger.Warn("kept")
		if decodeLine(t, &buf)["msg"] != "kept" {
			t.Errorf("unexpected output %s", buf.String())
		}
	})

	t.Run("omits trace ids without a span", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, slog.LevelInfo).InfoContext(context.Background(), "no span")

		entry := decodeLine(t, &buf)
		if _, ok := entry["trace_id"]; ok {
			t.Error("expected no trace_id")
		}
	})

	t.Run("stamps trace and span ids", func(t *testing.T) {
		setupTracerProvider(t)
		ctx, span := StartSpan(context.Background(), "op")
		defer span.End()

		var buf bytes.Buffer
		NewLogger(&buf, slog.LevelInfo).InfoContext(ctx, "with span", "cart_id", 3)

		entry := decodeLine(t, &buf)
		if entry["trace_id"] != span.SpanContext().TraceID().String() {
			t.Errorf("unexpected trace_id %v", entry["trace_id"])
		}
		if entry["span_id"] != span.SpanContext().SpanID().String() {
			t.Errorf("unexpected span_id %v", entry["span_id"])
		}
		if entry["cart_id"] != float64(3) {
			t.Errorf("unexpected cart_id %v", entry["cart_id"])
		}
	})

	t.Run("keeps attributes and groups", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, slog.LevelInfo).With("service", "bookstore").WithGroup("sweep")

		logger.Info("done", "evicted", 2)

		entry := decodeLine(t, &buf)
		if entry["service"] != "bookstore" {
			t.Errorf("expected service attribute, got %v", entry)
		}
		group, ok := entry["sweep"].(map[string]any)
		if !ok || group["evicted"] != float64(2) {
			t.Errorf("expected evicted inside sweep group, got %v", entry)
		}
	})
}
