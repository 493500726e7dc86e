package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"amazon-dashboard/internal/config"
)

func TestNewLoggerTo(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LoggerConfig
		wantJSON  bool
		wantDebug bool
	}{
		{"json info", config.LoggerConfig{Level: "info", Format: "json"}, true, false},
		{"text debug", config.LoggerConfig{Level: "debug", Format: "text"}, false, true},
		{"unknown falls back", config.LoggerConfig{Level: "loud", Format: "yaml"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerTo(&buf, tt.cfg)
			logger.Debug("debug line")
			logger.Info("info line")

			out := buf.String()
			if strings.Contains(out, "debug line") != tt.wantDebug {
				t.Errorf("debug output = %v, want %v", strings.Contains(out, "debug line"), tt.wantDebug)
			}
			if strings.HasPrefix(strings.TrimSpace(out), "{") != tt.wantJSON {
				t.Errorf("output format wrong: %s", out)
			}
			if !strings.Contains(out, "amazon-dashboard") {
				t.Error("log lines should carry the service name")
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"})

	ctx := WithRequestID(context.Background(), "req-42")
	RequestLogger(ctx, base).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["request_id"] != "req-42" {
		t.Errorf("request_id = %v", line["request_id"])
	}

	if RequestLogger(context.Background(), base) != base {
		t.Error("without a request id the logger should be returned unchanged")
	}
}

func TestStartSpan(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7")
	ctx, root := StartSpan(ctx, "GET /api/pages")
	if root.TraceID != "req-7" || root.ParentID != "" {
		t.Errorf("root span = %+v", root)
	}
	if GetSpan(ctx) != root {
		t.Error("GetSpan() should return the active span")
	}

	_, child := StartSpan(ctx, "render_page")
	if child.TraceID != root.TraceID || child.ParentID != root.SpanID || child.SpanID == root.SpanID {
		t.Errorf("child span = %+v", child)
	}

	_, orphan := StartSpan(context.Background(), "load")
	if len(orphan.TraceID) != 16 {
		t.Errorf("TraceID = %q, want a generated id", orphan.TraceID)
	}
}

func TestSpan_End(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, span := StartSpan(context.Background(), "render_page")
	span.SetTag("page", "overview")
	span.SetError(errors.New("boom"))
	span.End(ctx, logger)

	if span.Status != SpanStatusError || span.Error != "boom" || span.Duration < 0 {
		t.Errorf("span = %+v", span)
	}
	for _, want := range []string{`"span finished"`, `"render_page"`, `"ERROR"`, `"boom"`, `"overview"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log should contain %s: %s", want, buf.String())
		}
	}
}
