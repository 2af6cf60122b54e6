package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rajasatyajit/apikey-authorizer/internal/logger"
	"github.com/rajasatyajit/apikey-authorizer/internal/metrics"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWriter(&buf, "info", "json")
	defer logger.Init("error", "text")

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
		okHandler(w, r)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("User-Agent", "test-agent")
	// Simulate chi's RequestID middleware
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "test-request-id"))

	w := httptest.NewRecorder()
	Logging(http.HandlerFunc(handler)).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if seen != "test-request-id" {
		t.Errorf("Expected request ID in handler context, got %q", seen)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "test-request-id" {
		t.Errorf("Expected request_id in log, got %v", entry["request_id"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("Expected status 200 in log, got %v", entry["status"])
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.Set(metrics.NewPrometheus(reg))
	defer metrics.Set(&metrics.NoOpMetrics{})

	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/items/{id}", okHandler)

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/items/"+id, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
	}

	expected := `
# HELP authorizer_http_requests_total Total number of HTTP requests, labeled by method, path and status.
# TYPE authorizer_http_requests_total counter
authorizer_http_requests_total{method="GET",path="/items/{id}",status="200"} 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "authorizer_http_requests_total"); err != nil {
		t.Error(err)
	}
}

func TestSecurity(t *testing.T) {
	w := httptest.NewRecorder()
	Security(http.HandlerFunc(okHandler)).ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	expectedHeaders := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Content-Security-Policy":   "default-src 'none'",
		"Referrer-Policy":           "no-referrer",
		"Cache-Control":             "no-store",
	}

	for header, expectedValue := range expectedHeaders {
		if actual := w.Header().Get(header); actual != expectedValue {
			t.Errorf("Expected header %s: %s, got %s", header, expectedValue, actual)
		}
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestMaxBody(t *testing.T) {
	handler := MaxBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, "too large", http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"within limit", "12345678", http.StatusOK},
		{"over limit", "123456789", http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader(tt.body)))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
