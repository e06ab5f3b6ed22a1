package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func bufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: component, Output: buf})
}

func TestNewTagsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, ComponentBatch)
	logger.Info("Batch flushed", "batch", 3)

	out := buf.String()
	if strings.Count(out, "component=batch") != 1 {
		t.Fatalf("expected one component attribute, got %q", out)
	}
	if !strings.Contains(out, "batch=3") {
		t.Fatalf("missing attribute in %q", out)
	}
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, ComponentApp).WithComponent(ComponentStorage)
	logger.Info("Opened")

	out := buf.String()
	if strings.Contains(out, "component=app") || !strings.Contains(out, "component=storage") {
		t.Fatalf("unexpected output %q", out)
	}
	if logger.Component() != ComponentStorage {
		t.Fatalf("Component() = %q", logger.Component())
	}
}

func TestWithComponentChained(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, ComponentApp).
		WithComponent(ComponentHTTP).
		With("run_id", "r1").
		WithComponent(ComponentStorage)
	logger.Info("Opened")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=storage") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "run_id") {
		t.Fatalf("attributes leaked across components: %q", out)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, ComponentHTTP)

	handler := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("Handling")
		})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/stats/overview", nil))

	if !strings.Contains(buf.String(), "request_id=req_42") {
		t.Fatalf("request id missing from %q", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()).Logger == nil {
		t.Fatal("expected default logger")
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{503, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(bufferLogger(&buf, ComponentHTTP))
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		sl.LogHTTPEnd(context.Background(), r, "req_1", tt.status, 12, "12ms", "127.0.0.1")
		if !strings.Contains(buf.String(), tt.level) {
			t.Errorf("status %d: expected %s in %q", tt.status, tt.level, buf.String())
		}
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf, ComponentWorker))
	sl.LogError(context.Background(), "Export failed", errors.New("quota exceeded"), OpExport, nil)

	out := buf.String()
	for _, want := range []string{"level=ERROR", "operation=export", "quota exceeded"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
