package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	promNamespace         = "edgerouter"
	promDecisionSubsystem = "decision"
	promResponseSubsystem = "response"
	promStoreSubsystem    = "store"
	promComputeSubsystem  = "compute"
	promManifestSubsystem = "manifest"
)

// Prometheus implements the prometheus metrics backend.
type Prometheus struct {
	decisionM      *prometheus.HistogramVec
	responseM      *prometheus.HistogramVec
	storeM         *prometheus.HistogramVec
	storeErrorsM   prometheus.Counter
	computeM       prometheus.Histogram
	computeErrorsM prometheus.Counter
	manifestM      *prometheus.GaugeVec

	opts     Options
	registry *prometheus.Registry
	handler  http.Handler
}

var _ Metrics = (*Prometheus)(nil)

// NewPrometheus returns a new Prometheus metric backend.
func NewPrometheus(opts Options) *Prometheus {
	namespace := promNamespace
	if opts.Prefix != "" {
		namespace = strings.TrimSuffix(opts.Prefix, ".")
	}

	if len(opts.HistogramBuckets) == 0 {
		opts.HistogramBuckets = prometheus.DefBuckets
	}

	decision := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promDecisionSubsystem,
		Name:      "duration_seconds",
		Help:      "Duration in seconds of a routing decision.",
		Buckets:   opts.HistogramBuckets,
	}, []string{"kind"})

	response := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promResponseSubsystem,
		Name:      "duration_seconds",
		Help:      "Duration in seconds of a response.",
		Buckets:   opts.HistogramBuckets,
	}, []string{"code", "method", "kind"})

	store := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promStoreSubsystem,
		Name:      "duration_seconds",
		Help:      "Duration in seconds of a static store request.",
		Buckets:   opts.HistogramBuckets,
	}, []string{"code"})

	storeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promStoreSubsystem,
		Name:      "error_total",
		Help:      "Total number of failed static store requests.",
	})

	compute := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promComputeSubsystem,
		Name:      "duration_seconds",
		Help:      "Duration in seconds of a compute render.",
		Buckets:   opts.HistogramBuckets,
	})

	computeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promComputeSubsystem,
		Name:      "error_total",
		Help:      "Total number of failed compute renders.",
	})

	manifest := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: promManifestSubsystem,
		Name:      "info",
		Help:      "Build of the loaded route manifest.",
	}, []string{"build_id", "fingerprint"})

	p := &Prometheus{
		decisionM:      decision,
		responseM:      response,
		storeM:         store,
		storeErrorsM:   storeErrors,
		computeM:       compute,
		computeErrorsM: computeErrors,
		manifestM:      manifest,

		registry: opts.PrometheusRegistry,
		opts:     opts,
	}

	if p.registry == nil {
		p.registry = prometheus.NewRegistry()
	}

	p.registerMetrics()
	return p
}

// sinceS returns the seconds passed since the start time until now.
func (p *Prometheus) sinceS(start time.Time) float64 {
	return time.Since(start).Seconds()
}

func (p *Prometheus) registerMetrics() {
	p.registry.MustRegister(p.decisionM)
	p.registry.MustRegister(p.responseM)
	p.registry.MustRegister(p.storeM)
	p.registry.MustRegister(p.storeErrorsM)
	p.registry.MustRegister(p.computeM)
	p.registry.MustRegister(p.computeErrorsM)
	p.registry.MustRegister(p.manifestM)

	if p.opts.EnableRuntimeMetrics {
		p.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		p.registry.MustRegister(collectors.NewGoCollector())
	}
}

// CreateHandler returns a handler exposing the collected metrics.
func (p *Prometheus) CreateHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) getHandler() http.Handler {
	if p.handler != nil {
		return p.handler
	}

	p.handler = p.CreateHandler()
	return p.handler
}

// RegisterHandler satisfies Metrics interface.
func (p *Prometheus) RegisterHandler(path string, mux *http.ServeMux) {
	mux.Handle(path, p.getHandler())
}

// MeasureDecision satisfies Metrics interface.
func (p *Prometheus) MeasureDecision(kind string, start time.Time) {
	p.decisionM.WithLabelValues(kind).Observe(p.sinceS(start))
}

// MeasureResponse satisfies Metrics interface.
func (p *Prometheus) MeasureResponse(code int, method string, kind string, start time.Time) {
	p.responseM.WithLabelValues(strconv.Itoa(code), measuredMethod(method), kind).Observe(p.sinceS(start))
}

// MeasureStore satisfies Metrics interface.
func (p *Prometheus) MeasureStore(code int, start time.Time) {
	p.storeM.WithLabelValues(strconv.Itoa(code)).Observe(p.sinceS(start))
}

// MeasureCompute satisfies Metrics interface.
func (p *Prometheus) MeasureCompute(start time.Time) {
	p.computeM.Observe(p.sinceS(start))
}

// IncErrorsStore satisfies Metrics interface.
func (p *Prometheus) IncErrorsStore() {
	p.storeErrorsM.Inc()
}

// IncErrorsCompute satisfies Metrics interface.
func (p *Prometheus) IncErrorsCompute() {
	p.computeErrorsM.Inc()
}

// SetManifest satisfies Metrics interface. Only the last manifest is
// reported.
func (p *Prometheus) SetManifest(buildID, fingerprint string) {
	p.manifestM.Reset()
	p.manifestM.WithLabelValues(buildID, fingerprint).Set(1)
}
