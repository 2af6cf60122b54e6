package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Ensure NoOpMetrics methods do not panic and global functions delegate without error
func TestNoOpMetricsAndDelegates(t *testing.T) {
	m := &NoOpMetrics{}
	m.RecordHTTPRequest("GET", "/x", 200, time.Millisecond)
	m.RecordDecision(OutcomeAllow)
	m.RecordCacheLookup(CacheHit)
	m.RecordKeyScanPage()
	m.RecordKeyResolve(true, time.Millisecond)

	RecordHTTPRequest("GET", "/x", 200, time.Millisecond)
	RecordDecision(OutcomeUnauthorized)
	RecordCacheLookup(CacheMiss)
	RecordKeyScanPage()
	RecordKeyResolve(false, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected NoOp handler to return 404, got %d", rec.Code)
	}
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg)

	m.RecordDecision(OutcomeAllow)
	m.RecordDecision(OutcomeAllow)
	m.RecordDecision(OutcomeUnauthorized)
	m.RecordCacheLookup(CacheExpired)
	m.RecordKeyScanPage()
	m.RecordKeyScanPage()
	m.RecordKeyResolve(true, 20*time.Millisecond)
	m.RecordHTTPRequest("POST", "/v1/authorize", 200, time.Millisecond)

	if got := testutil.ToFloat64(m.decisions.WithLabelValues(OutcomeAllow)); got != 2 {
		t.Errorf("allow decisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.decisions.WithLabelValues(OutcomeUnauthorized)); got != 1 {
		t.Errorf("unauthorized decisions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheExpired)); got != 1 {
		t.Errorf("expired lookups = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.scanPages); got != 2 {
		t.Errorf("scan pages = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "authorizer_decisions_total") {
		t.Errorf("expected exposition to contain authorizer_decisions_total")
	}
}

func TestSetSwapsGlobal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg)
	Set(m)
	defer Set(&NoOpMetrics{})

	RecordCacheLookup(CacheHit)
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheHit)); got != 1 {
		t.Errorf("delegate did not reach prometheus metrics, got %v", got)
	}
}
