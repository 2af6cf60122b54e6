package metrics

import (
	"net/http"
	"sync"
	"time"
)

// Decision outcomes
const (
	OutcomeAllow        = "allow"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

// Cache lookup results
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheExpired  = "expired"
	CacheDisabled = "disabled"
	CacheError    = "error"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordDecision(outcome string)
	RecordCacheLookup(result string)
	RecordKeyScanPage()
	RecordKeyResolve(found bool, duration time.Duration)
	Handler() http.Handler
}

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordDecision(outcome string)                       {}
func (m *NoOpMetrics) RecordCacheLookup(result string)                     {}
func (m *NoOpMetrics) RecordKeyScanPage()                                  {}
func (m *NoOpMetrics) RecordKeyResolve(found bool, duration time.Duration) {}
func (m *NoOpMetrics) Handler() http.Handler                               { return http.NotFoundHandler() }

var (
	globalMu      sync.RWMutex
	globalMetrics Metrics = &NoOpMetrics{}
	initOnce      sync.Once
)

// Init switches the package-level delegates to Prometheus metrics registered
// on the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		Set(NewPrometheus(nil))
	})
}

// Set replaces the global metrics implementation
func Set(m Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

func current() Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return current().Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	current().RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordDecision counts one authorization outcome
func RecordDecision(outcome string) {
	current().RecordDecision(outcome)
}

// RecordCacheLookup counts one credential cache lookup by result
func RecordCacheLookup(result string) {
	current().RecordCacheLookup(result)
}

// RecordKeyScanPage counts one page fetched from the key-management listing
func RecordKeyScanPage() {
	current().RecordKeyScanPage()
}

// RecordKeyResolve records a full key resolution scan
func RecordKeyResolve(found bool, duration time.Duration) {
	current().RecordKeyResolve(found, duration)
}
