/*
Package config parses the command line flags and the optional YAML
configuration file of the router, and converts them into the options
of the router.

The flags are applied first, then the configuration file, if any, and
then the flags again, so that flags override the values loaded from the
file.
*/
package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/zalando/edgerouter"
	"github.com/zalando/edgerouter/circuit"
	"github.com/zalando/edgerouter/manifest"
	"github.com/zalando/edgerouter/origin"
	"github.com/zalando/edgerouter/otel"
	"github.com/zalando/edgerouter/proxy"
)

type Config struct {
	ConfigFile string
	Flags      *flag.FlagSet

	// generic:
	Address                    string        `yaml:"address"`
	SupportListener            string        `yaml:"support-listener"`
	WaitForHealthcheckInterval time.Duration `yaml:"wait-for-healthcheck-interval"`
	ReadHeaderTimeoutServer    time.Duration `yaml:"read-header-timeout-server"`
	IdleTimeoutServer          time.Duration `yaml:"idle-timeout-server"`

	// manifests:
	RoutesManifest      string        `yaml:"routes-manifest"`
	PrerenderManifest   string        `yaml:"prerender-manifest"`
	ManifestLoadRetries uint          `yaml:"manifest-load-retries"`
	ManifestLoadTimeout time.Duration `yaml:"manifest-load-timeout"`
	TrailingSlashString string        `yaml:"trailing-slash"`
	TrailingSlash       *bool         `yaml:"-"`
	BasePath            string        `yaml:"base-path"`
	DefaultLocale       string        `yaml:"default-locale"`
	Locales             *listFlag     `yaml:"locales"`

	// static store:
	StorageDomain string `yaml:"storage-domain"`
	StorageRegion string `yaml:"storage-region"`
	StorageURL    string `yaml:"storage-url"`

	// compute backend:
	ComputeURL                     string        `yaml:"compute-url"`
	ComputeTimeout                 time.Duration `yaml:"compute-timeout"`
	ComputeBreakerFailures         int           `yaml:"compute-breaker-failures"`
	ComputeBreakerTimeout          time.Duration `yaml:"compute-breaker-timeout"`
	ComputeBreakerHalfOpenRequests int           `yaml:"compute-breaker-half-open-requests"`
	DisableCompression             bool          `yaml:"disable-compression"`

	// logging, metrics:
	ApplicationLogLevel          log.Level `yaml:"-"`
	ApplicationLogLevelString    string    `yaml:"application-log-level"`
	ApplicationLogPrefix         string    `yaml:"application-log-prefix"`
	ApplicationLogJSONEnabled    bool      `yaml:"application-log-json-enabled"`
	AccessLogDisabled            bool      `yaml:"access-log-disabled"`
	AccessLogJSONEnabled         bool      `yaml:"access-log-json-enabled"`
	MetricsPrefix                string    `yaml:"metrics-prefix"`
	RuntimeMetrics               bool      `yaml:"runtime-metrics"`
	HistogramMetricBucketsString string    `yaml:"histogram-metric-buckets"`
	HistogramMetricBuckets       []float64 `yaml:"-"`

	OpenTelemetry *otel.Options `yaml:"open-telemetry"`
}

const (
	defaultComputeBreakerTimeout = 10 * time.Second
	defaultManifestLoadTimeout   = 10 * time.Second
	defaultManifestLoadRetries   = 3

	trailingSlashUsage = "overrides the trailing slash policy of the route manifest, true or false. When empty, the manifest decides"
	localesUsage       = "comma separated list of the locales, overrides the i18n settings of the route manifest together with -default-locale"
	storageDomainUsage = "bucket name or bucket domain of the static store, e.g. assets or assets.s3.amazonaws.com"
	storageURLUsage    = "URL of the static store, replaces the bucket endpoint, e.g. http://localhost:9000/assets"
	computeURLUsage    = "URL of the compute backend rendering the pages. When empty, every render fails with the error page"
	breakerUsage       = "number of consecutive failures opening the circuit breaker of the compute backend, 0 disables the breaker"
)

func NewConfig() *Config {
	cfg := new(Config)
	cfg.Locales = commaListFlag()

	flag := flag.NewFlagSet("", flag.ExitOnError)
	flag.StringVar(&cfg.ConfigFile, "config-file", "", "if provided the flags will be loaded/overwritten by the values on the file (yaml)")

	// generic:
	flag.StringVar(&cfg.Address, "address", ":9090", "network address that the router should listen on")
	flag.StringVar(&cfg.SupportListener, "support-listener", ":9911", "network address used for exposing the /metrics and the /healthz endpoints. An empty value disables the support endpoints.")
	flag.DurationVar(&cfg.WaitForHealthcheckInterval, "wait-for-healthcheck-interval", 0, "period waiting to become unhealthy in the load balancer pool in front of the router before shutdown")
	flag.DurationVar(&cfg.ReadHeaderTimeoutServer, "read-header-timeout-server", 60*time.Second, "set ReadHeaderTimeout for http server connections")
	flag.DurationVar(&cfg.IdleTimeoutServer, "idle-timeout-server", 60*time.Second, "set IdleTimeout for http server connections")

	// manifests:
	flag.StringVar(&cfg.RoutesManifest, "routes-manifest", "", "file path or HTTP(S) URL of the route manifest, JSON or YAML")
	flag.StringVar(&cfg.PrerenderManifest, "prerender-manifest", "", "file path or HTTP(S) URL of the prerender manifest. When empty, no page is prerendered")
	flag.UintVar(&cfg.ManifestLoadRetries, "manifest-load-retries", defaultManifestLoadRetries, "number of additional attempts to download a remote manifest")
	flag.DurationVar(&cfg.ManifestLoadTimeout, "manifest-load-timeout", defaultManifestLoadTimeout, "timeout of a single manifest download attempt")
	flag.StringVar(&cfg.TrailingSlashString, "trailing-slash", "", trailingSlashUsage)
	flag.StringVar(&cfg.BasePath, "base-path", "", "overrides the base path of the route manifest")
	flag.StringVar(&cfg.DefaultLocale, "default-locale", "", "default locale, used with -locales")
	flag.Var(cfg.Locales, "locales", localesUsage)

	// static store:
	flag.StringVar(&cfg.StorageDomain, "storage-domain", "", storageDomainUsage)
	flag.StringVar(&cfg.StorageRegion, "storage-region", origin.DefaultRegion, "region of the static store bucket")
	flag.StringVar(&cfg.StorageURL, "storage-url", "", storageURLUsage)

	// compute backend:
	flag.StringVar(&cfg.ComputeURL, "compute-url", "", computeURLUsage)
	flag.DurationVar(&cfg.ComputeTimeout, "compute-timeout", proxy.DefaultComputeTimeout, "timeout of a page render")
	flag.IntVar(&cfg.ComputeBreakerFailures, "compute-breaker-failures", 0, breakerUsage)
	flag.DurationVar(&cfg.ComputeBreakerTimeout, "compute-breaker-timeout", defaultComputeBreakerTimeout, "how long the circuit breaker of the compute backend stays open")
	flag.IntVar(&cfg.ComputeBreakerHalfOpenRequests, "compute-breaker-half-open-requests", 1, "number of successful renders closing a half-open circuit breaker")
	flag.BoolVar(&cfg.DisableCompression, "disable-compression", false, "disables the brotli and gzip encoding of the rendered pages")

	// logging, metrics:
	flag.StringVar(&cfg.ApplicationLogLevelString, "application-log-level", "INFO", "log level for application logs, possible values: PANIC, FATAL, ERROR, WARN, INFO, DEBUG")
	flag.StringVar(&cfg.ApplicationLogPrefix, "application-log-prefix", "[APP]", "prefix for each log entry")
	flag.BoolVar(&cfg.ApplicationLogJSONEnabled, "application-log-json-enabled", false, "when this flag is set, log in JSON format is used")
	flag.BoolVar(&cfg.AccessLogDisabled, "access-log-disabled", false, "when this flag is set, no access log is printed")
	flag.BoolVar(&cfg.AccessLogJSONEnabled, "access-log-json-enabled", false, "when this flag is set, log in JSON format is used")
	flag.StringVar(&cfg.MetricsPrefix, "metrics-prefix", "edgerouter", "namespace of the Prometheus metrics")
	flag.BoolVar(&cfg.RuntimeMetrics, "runtime-metrics", true, "enables reporting the Go runtime and the process metrics")
	flag.StringVar(&cfg.HistogramMetricBucketsString, "histogram-metric-buckets", "", "use custom buckets for the duration histograms, comma separated list of seconds")
	flag.Var(newYamlFlag(&cfg.OpenTelemetry), "open-telemetry", "OpenTelemetry configuration in YAML format, use flow-style for convenience. When set, the tracing pipeline is initialized from the OTEL_* environment variables")

	cfg.Flags = flag
	return cfg
}

func parseTrailingSlash(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid trailing-slash: %q", s)
	}

	return &b, nil
}

func (c *Config) store() origin.Store {
	return origin.Store{
		Domain: c.StorageDomain,
		Region: c.StorageRegion,
		URL:    c.StorageURL,
	}
}

func validate(c *Config) error {
	_, err := log.ParseLevel(c.ApplicationLogLevelString)
	if err != nil {
		return err
	}

	if c.RoutesManifest == "" {
		return fmt.Errorf("missing routes-manifest")
	}

	if _, err := parseTrailingSlash(c.TrailingSlashString); err != nil {
		return err
	}

	if len(c.Locales.values) > 0 && c.DefaultLocale == "" {
		return fmt.Errorf("missing default-locale for the locales: %s", c.Locales)
	}

	if err := c.store().Validate(); err != nil {
		return err
	}

	if c.ComputeTimeout < 0 || c.ComputeBreakerTimeout < 0 {
		return fmt.Errorf("invalid negative compute timeout")
	}

	_, err = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)
	return err
}

func (c *Config) Parse() error {
	return c.ParseArgs(os.Args[0], os.Args[1:])
}

func (c *Config) ParseArgs(progname string, args []string) error {
	c.Flags.Init(progname, flag.ExitOnError)
	err := c.Flags.Parse(args)
	if err != nil {
		return err
	}

	// check if arguments were correctly parsed.
	if len(c.Flags.Args()) != 0 {
		return fmt.Errorf("invalid arguments: %s", c.Flags.Args())
	}

	if c.ConfigFile != "" {
		yamlFile, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return fmt.Errorf("invalid config file: %w", err)
		}

		err = yaml.Unmarshal(yamlFile, c)
		if err != nil {
			return fmt.Errorf("unmarshalling config file error: %w", err)
		}

		err = c.Flags.Parse(args)
		if err != nil {
			return err
		}
	}

	if err := validate(c); err != nil {
		return err
	}

	c.ApplicationLogLevel, _ = log.ParseLevel(c.ApplicationLogLevelString)
	c.TrailingSlash, _ = parseTrailingSlash(c.TrailingSlashString)
	c.HistogramMetricBuckets, _ = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)
	return nil
}

func (c *Config) ToOptions() edgerouter.Options {
	return edgerouter.Options{
		Address:                    c.Address,
		SupportListener:            c.SupportListener,
		WaitForHealthcheckInterval: c.WaitForHealthcheckInterval,
		ReadHeaderTimeoutServer:    c.ReadHeaderTimeoutServer,
		IdleTimeoutServer:          c.IdleTimeoutServer,

		RoutesManifest:    c.RoutesManifest,
		PrerenderManifest: c.PrerenderManifest,
		ManifestOverrides: manifest.Overrides{
			BasePath:      c.BasePath,
			TrailingSlash: c.TrailingSlash,
			DefaultLocale: c.DefaultLocale,
			Locales:       c.Locales.values,
		},
		ManifestLoadRetries: c.ManifestLoadRetries,
		ManifestLoadTimeout: c.ManifestLoadTimeout,

		Store: c.store(),

		ComputeURL:     c.ComputeURL,
		ComputeTimeout: c.ComputeTimeout,
		ComputeBreaker: circuit.BreakerSettings{
			Failures:         c.ComputeBreakerFailures,
			Timeout:          c.ComputeBreakerTimeout,
			HalfOpenRequests: c.ComputeBreakerHalfOpenRequests,
		},
		DisableCompression: c.DisableCompression,

		ApplicationLogLevel:       c.ApplicationLogLevel.String(),
		ApplicationLogPrefix:      c.ApplicationLogPrefix,
		ApplicationLogJSONEnabled: c.ApplicationLogJSONEnabled,
		AccessLogDisabled:         c.AccessLogDisabled,
		AccessLogJSONEnabled:      c.AccessLogJSONEnabled,

		MetricsPrefix:          c.MetricsPrefix,
		EnableRuntimeMetrics:   c.RuntimeMetrics,
		HistogramMetricBuckets: c.HistogramMetricBuckets,

		OpenTelemetry: c.OpenTelemetry,
	}
}

func (c *Config) parseHistogramBuckets(bucketString string, defaultBuckets []float64) ([]float64, error) {
	if bucketString == "" {
		return defaultBuckets, nil
	}

	var result []float64
	thresholds := strings.Split(bucketString, ",")
	for _, v := range thresholds {
		bucket, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse histogram-metric-buckets: %w", err)
		}
		result = append(result, bucket)
	}
	sort.Float64s(result)
	return result, nil
}
