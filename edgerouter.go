package edgerouter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/edgerouter/circuit"
	"github.com/zalando/edgerouter/decision"
	"github.com/zalando/edgerouter/logging"
	"github.com/zalando/edgerouter/manifest"
	"github.com/zalando/edgerouter/metrics"
	"github.com/zalando/edgerouter/origin"
	"github.com/zalando/edgerouter/otel"
	"github.com/zalando/edgerouter/proxy"
)

const defaultReadHeaderTimeoutServer = 60 * time.Second

// Options to start the router.
type Options struct {

	// Network address that the router should listen on.
	Address string

	// Network address of the /metrics and /healthz endpoints. When
	// empty, the support endpoints are disabled.
	SupportListener string

	// Period waiting to become unhealthy in the load balancer pool in
	// front of the router before shutdown.
	WaitForHealthcheckInterval time.Duration

	// Defines ReadHeaderTimeout for the server http.Server. Defaults to
	// 60 seconds.
	ReadHeaderTimeoutServer time.Duration

	// Defines IdleTimeout for the server http.Server.
	IdleTimeoutServer time.Duration

	// File path or HTTP(S) URL of the route manifest.
	RoutesManifest string

	// File path or HTTP(S) URL of the prerender manifest, optional.
	PrerenderManifest string

	// Deployment settings replacing the ones of the route manifest.
	ManifestOverrides manifest.Overrides

	// Additional attempts to download a remote manifest.
	ManifestLoadRetries uint

	// Timeout of a single manifest download attempt.
	ManifestLoadTimeout time.Duration

	// The static store serving the prerendered pages, the data files
	// and the public files.
	Store origin.Store

	// URL of the compute backend. When empty, the pages requiring
	// rendering are answered with the error page.
	ComputeURL string

	// Timeout of a page render.
	ComputeTimeout time.Duration

	// Circuit breaker of the compute backend.
	ComputeBreaker circuit.BreakerSettings

	// Disables the brotli and gzip encoding of the rendered pages.
	DisableCompression bool

	// Prefix for application log entries.
	ApplicationLogPrefix string

	// Output for the application log entries, when nil, os.Stderr is
	// used.
	ApplicationLogOutput io.Writer

	// Minimum level of the application log entries.
	ApplicationLogLevel string

	// Flag indicating to print the application log in JSON format.
	ApplicationLogJSONEnabled bool

	// Output for the access log entries, when nil, os.Stderr is used.
	AccessLogOutput io.Writer

	// Flag indicating to disable the access log.
	AccessLogDisabled bool

	// Flag indicating to print the access log in JSON format.
	AccessLogJSONEnabled bool

	// Namespace of the Prometheus metrics.
	MetricsPrefix string

	// Flag indicating to report the Go runtime and process metrics.
	EnableRuntimeMetrics bool

	// Buckets of the duration histograms.
	HistogramMetricBuckets []float64

	// When set, the OpenTelemetry tracing pipeline is initialized on
	// start.
	OpenTelemetry *otel.Options
}

// Router serves the requests of a deployed application, and the support
// endpoints.
type Router struct {
	server  *http.Server
	support *http.Server
	healthy atomic.Bool
	wg      sync.WaitGroup
}

func (o Options) logging() logging.Options {
	return logging.Options{
		ApplicationLogPrefix:      o.ApplicationLogPrefix,
		ApplicationLogOutput:      o.ApplicationLogOutput,
		ApplicationLogLevel:       o.ApplicationLogLevel,
		ApplicationLogJSONEnabled: o.ApplicationLogJSONEnabled,
		AccessLogOutput:           o.AccessLogOutput,
		AccessLogDisabled:         o.AccessLogDisabled,
		AccessLogJSONEnabled:      o.AccessLogJSONEnabled,
	}
}

func createRenderer(o Options) (proxy.Renderer, error) {
	if o.ComputeURL == "" {
		log.Warn("No compute backend configured, rendered pages will fail")
		return nil, nil
	}

	r, err := proxy.NewHTTPRenderer(proxy.HTTPRendererOptions{
		URL:     o.ComputeURL,
		Timeout: o.ComputeTimeout,
		Breaker: o.ComputeBreaker,
	})

	if err != nil {
		return nil, err
	}

	log.Infof("Compute backend: %s, circuit breaker: %s", o.ComputeURL, o.ComputeBreaker)
	return r, nil
}

// New initializes the logging, loads the manifests and creates the
// router. It does not start listening.
func New(ctx context.Context, o Options) (*Router, error) {
	if err := logging.Init(o.logging()); err != nil {
		return nil, err
	}

	if err := o.Store.Validate(); err != nil {
		return nil, err
	}

	m, p, err := manifest.Load(ctx, manifest.LoadOptions{
		RoutesManifest:    o.RoutesManifest,
		PrerenderManifest: o.PrerenderManifest,
		Overrides:         o.ManifestOverrides,
		HTTPTimeout:       o.ManifestLoadTimeout,
		Retries:           o.ManifestLoadRetries,
	})

	if err != nil {
		return nil, err
	}

	mtr := metrics.NewPrometheus(metrics.Options{
		Prefix:               o.MetricsPrefix,
		HistogramBuckets:     o.HistogramMetricBuckets,
		EnableRuntimeMetrics: o.EnableRuntimeMetrics,
	})

	mtr.SetManifest(m.BuildID, m.Fingerprint)

	renderer, err := createRenderer(o)
	if err != nil {
		return nil, err
	}

	px := proxy.New(proxy.Options{
		Builder:  decision.New(m, p),
		Store:    o.Store,
		Renderer: renderer,
		Metrics:  mtr,

		DisableCompression: o.DisableCompression,
	})

	if o.ReadHeaderTimeoutServer <= 0 {
		o.ReadHeaderTimeoutServer = defaultReadHeaderTimeoutServer
	}

	r := &Router{
		server: &http.Server{
			Addr:              o.Address,
			Handler:           logging.NewHandler(px),
			ReadHeaderTimeout: o.ReadHeaderTimeoutServer,
			IdleTimeout:       o.IdleTimeoutServer,
		},
	}

	if o.SupportListener != "" {
		mux := http.NewServeMux()
		mtr.RegisterHandler("/metrics", mux)
		mux.HandleFunc("/healthz", r.health)
		r.support = &http.Server{
			Addr:              o.SupportListener,
			Handler:           mux,
			ReadHeaderTimeout: o.ReadHeaderTimeoutServer,
		}
	}

	r.healthy.Store(true)
	return r, nil
}

// ServeHTTP serves the requests of the application.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.server.Handler.ServeHTTP(w, req)
}

func (r *Router) health(w http.ResponseWriter, _ *http.Request) {
	if !r.healthy.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	w.Write([]byte("ok\n"))
}

func newShutdownFunc(r *Router) func(delay time.Duration) {
	once := &sync.Once{}
	r.wg.Add(1)

	return func(delay time.Duration) {
		once.Do(func() {
			defer r.wg.Done()

			r.healthy.Store(false)
			log.Infof("Shutting down the router in %s...", delay)
			time.Sleep(delay)
			if err := r.server.Shutdown(context.Background()); err != nil {
				log.Errorf("Failed to shut down the server: %v", err)
			}

			if r.support != nil {
				if err := r.support.Shutdown(context.Background()); err != nil {
					log.Errorf("Failed to shut down the support server: %v", err)
				}
			}

			log.Info("Router shut down")
		})
	}
}

func run(r *Router, o Options, sigs <-chan os.Signal) error {
	shutdown := newShutdownFunc(r)

	// stops waiting for the signal when the server exits on its own
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigs:
			shutdown(o.WaitForHealthcheckInterval)
		case <-done:
		}
	}()

	if r.support != nil {
		go func() {
			log.Infof("Support listener on %s", r.support.Addr)
			if err := r.support.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Support listener failed: %v", err)
			}
		}()
	}

	log.Infof("Listening on %s", r.server.Addr)
	err := r.server.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		err = fmt.Errorf("failed to listen: %w", err)
		go shutdown(0)
	} else {
		err = nil
	}

	r.wg.Wait()
	return err
}

// Run starts the router set up according to the passed options. It is a
// blocking call, returning when the server is closed, after a startup
// error or a gracefully handled SIGTERM signal.
func Run(o Options) error {
	ctx := context.Background()
	if o.OpenTelemetry != nil {
		shutdown, err := otel.Init(ctx, o.OpenTelemetry)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}

		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Errorf("Failed to shut down OpenTelemetry: %v", err)
			}
		}()
	}

	r, err := New(ctx, o)
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM)
	return run(r, o, sigs)
}
