package logging

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestLoggingMiddlewareSkipsHealthAndMetrics(t *testing.T) {
	var out strings.Builder
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/health", "/metrics"} {
		out.Reset()
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if out.Len() != 0 {
			t.Errorf("Expected no logs for %s, got: %s", path, out.String())
		}
	}
}

func TestLoggingMiddlewareLogsRequest(t *testing.T) {
	var out strings.Builder
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze?lang=en", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-42"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	logs := out.String()
	for _, want := range []string{"request_id=req-42", "path=/api/v1/analyze", "query=\"lang=en\"", "status_code=201", "bytes_written=7"} {
		if !strings.Contains(logs, want) {
			t.Errorf("Expected log to contain %q, got: %s", want, logs)
		}
	}
}

func TestLoggingMiddlewareForwardsFlush(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	flushed := false
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("Expected wrapped writer to implement http.Flusher")
		}
		w.Write([]byte("event: done\n\n"))
		f.Flush()
		flushed = true
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/analyze/stream", nil))
	if !flushed || !rr.Flushed {
		t.Error("Expected flush to reach the underlying recorder")
	}
}
