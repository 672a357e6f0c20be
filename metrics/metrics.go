package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives the measurements of the router.
type Metrics interface {
	MeasureDecision(kind string, start time.Time)
	MeasureResponse(code int, method string, kind string, start time.Time)
	MeasureStore(code int, start time.Time)
	MeasureCompute(start time.Time)
	IncErrorsStore()
	IncErrorsCompute()
	SetManifest(buildID, fingerprint string)
	RegisterHandler(path string, mux *http.ServeMux)
}

// Options for initializing metrics collection.
type Options struct {

	// Common prefix of the metric names, the namespace in
	// Prometheus terms. Defaults to edgerouter.
	Prefix string

	// Buckets of the duration histograms. Defaults to the
	// Prometheus default buckets.
	HistogramBuckets []float64

	// If set, Go runtime and process metrics are collected in
	// addition to the router metrics.
	EnableRuntimeMetrics bool

	// The registry of the collectors. When nil, a new registry is
	// created.
	PrometheusRegistry *prometheus.Registry
}

// Void drops every measurement.
type Void struct{}

var _ Metrics = Void{}

func (Void) MeasureDecision(string, time.Time) {}
func (Void) MeasureResponse(int, string, string, time.Time) {}
func (Void) MeasureStore(int, time.Time) {}
func (Void) MeasureCompute(time.Time) {}
func (Void) IncErrorsStore() {}
func (Void) IncErrorsCompute() {}
func (Void) SetManifest(string, string) {}
func (Void) RegisterHandler(string, *http.ServeMux) {}

func measuredMethod(m string) string {
	switch m {
	case "OPTIONS",
		"GET",
		"HEAD",
		"POST",
		"PUT",
		"PATCH",
		"DELETE",
		"TRACE",
		"CONNECT":
		return m
	default:
		return "_unknownmethod_"
	}
}
