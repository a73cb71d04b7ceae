package logging

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func serveLogged(t *testing.T, target string, requestID any, status int) string {
	t.Helper()

	var out strings.Builder
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("body"))
	}))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if requestID != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, requestID))
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != status {
		t.Fatalf("Middleware changed the status: got %d, want %d", rr.Code, status)
	}
	return out.String()
}

func TestLoggingMiddleware_QuietPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		if logs := serveLogged(t, path, "req-1", http.StatusOK); logs != "" {
			t.Errorf("%s should not be logged, got: %s", path, logs)
		}
	}
}

func TestLoggingMiddleware_Fields(t *testing.T) {
	logs := serveLogged(t, "/report", "req-42", http.StatusOK)

	for _, want := range []string{`msg="HTTP request"`, "request_id=req-42", "path=/report", "method=GET", "bytes_written=4"} {
		if !strings.Contains(logs, want) {
			t.Errorf("Expected %q in log, got: %s", want, logs)
		}
	}
	if strings.Contains(logs, "query=") {
		t.Errorf("Empty query should be omitted, got: %s", logs)
	}
}

func TestLoggingMiddleware_Query(t *testing.T) {
	logs := serveLogged(t, "/report?format=json", "req-7", http.StatusOK)
	// the text handler quotes values containing '='
	if !strings.Contains(logs, `query="format=json"`) {
		t.Errorf("Expected query in log, got: %s", logs)
	}
}

func TestLoggingMiddleware_RequestIDFallback(t *testing.T) {
	for name, id := range map[string]any{"missing": nil, "not a string": 99, "empty": ""} {
		t.Run(name, func(t *testing.T) {
			if logs := serveLogged(t, "/report", id, http.StatusOK); !strings.Contains(logs, "request_id=unknown") {
				t.Errorf("Expected request_id=unknown, got: %s", logs)
			}
		})
	}
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusTooManyRequests, "level=WARN"},
		{http.StatusServiceUnavailable, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			logs := serveLogged(t, "/report", "req-1", tt.status)
			if !strings.Contains(logs, tt.level) {
				t.Errorf("Expected %s, got: %s", tt.level, logs)
			}
			if !strings.Contains(logs, "status_code="+strconv.Itoa(tt.status)) {
				t.Errorf("Expected status_code in log, got: %s", logs)
			}
		})
	}
}
