// Package metricstest provides a metrics implementation recording the
// measurements in memory, for tests.
package metricstest

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zalando/edgerouter/metrics"
)

// Keys of the recorded measurements.
const (
	KeyDecision      = "decision.%s"
	KeyResponse      = "response.%d.%s.%s"
	KeyStore         = "store.%d"
	KeyCompute       = "compute"
	KeyErrorsStore   = "errors.store"
	KeyErrorsCompute = "errors.compute"
)

// MockMetrics records counters and durations by key.
type MockMetrics struct {
	mu sync.Mutex

	counters map[string]int64
	measures map[string][]time.Duration
	manifest [2]string

	// When set, durations are measured against Now.
	Now time.Time
}

var _ metrics.Metrics = (*MockMetrics)(nil)

// WithCounters gives thread safe access to the counters.
func (m *MockMetrics) WithCounters(f func(counters map[string]int64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}

	f(m.counters)
}

// WithMeasures gives thread safe access to the measured durations.
func (m *MockMetrics) WithMeasures(f func(measures map[string][]time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.measures == nil {
		m.measures = make(map[string][]time.Duration)
	}

	f(m.measures)
}

// Counter returns the value of a counter.
func (m *MockMetrics) Counter(key string) (v int64) {
	m.WithCounters(func(counters map[string]int64) { v = counters[key] })
	return
}

// Measures returns the number of the durations measured for a key.
func (m *MockMetrics) Measures(key string) (n int) {
	m.WithMeasures(func(measures map[string][]time.Duration) { n = len(measures[key]) })
	return
}

// Manifest returns the last reported build ID and fingerprint.
func (m *MockMetrics) Manifest() (buildID, fingerprint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manifest[0], m.manifest[1]
}

func (m *MockMetrics) measureSince(key string, start time.Time) {
	now := m.Now
	if now.IsZero() {
		now = time.Now()
	}

	m.WithMeasures(func(measures map[string][]time.Duration) {
		measures[key] = append(measures[key], now.Sub(start))
	})
}

func (m *MockMetrics) inc(key string) {
	m.WithCounters(func(counters map[string]int64) {
		counters[key]++
	})
}

func (m *MockMetrics) MeasureDecision(kind string, start time.Time) {
	m.measureSince(fmt.Sprintf(KeyDecision, kind), start)
}

func (m *MockMetrics) MeasureResponse(code int, method string, kind string, start time.Time) {
	m.measureSince(fmt.Sprintf(KeyResponse, code, method, kind), start)
}

func (m *MockMetrics) MeasureStore(code int, start time.Time) {
	m.measureSince(fmt.Sprintf(KeyStore, code), start)
}

func (m *MockMetrics) MeasureCompute(start time.Time) {
	m.measureSince(KeyCompute, start)
}

func (m *MockMetrics) IncErrorsStore() {
	m.inc(KeyErrorsStore)
}

func (m *MockMetrics) IncErrorsCompute() {
	m.inc(KeyErrorsCompute)
}

func (m *MockMetrics) SetManifest(buildID, fingerprint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifest = [2]string{buildID, fingerprint}
}

func (*MockMetrics) RegisterHandler(string, *http.ServeMux) {}
