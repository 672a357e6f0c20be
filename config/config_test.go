package config

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/edgerouter/circuit"
	"github.com/zalando/edgerouter/manifest"
	"github.com/zalando/edgerouter/origin"
	"github.com/zalando/edgerouter/otel"
	"github.com/zalando/edgerouter/proxy"
)

func defaultConfig(with func(*Config)) *Config {
	cfg := &Config{
		Address:                        ":9090",
		SupportListener:                ":9911",
		ReadHeaderTimeoutServer:        60 * time.Second,
		IdleTimeoutServer:              60 * time.Second,
		RoutesManifest:                 "routes-manifest.json",
		ManifestLoadRetries:            3,
		ManifestLoadTimeout:            10 * time.Second,
		Locales:                        commaListFlag(),
		StorageDomain:                  "assets",
		StorageRegion:                  origin.DefaultRegion,
		ComputeTimeout:                 proxy.DefaultComputeTimeout,
		ComputeBreakerTimeout:          10 * time.Second,
		ComputeBreakerHalfOpenRequests: 1,
		ApplicationLogLevel:            log.InfoLevel,
		ApplicationLogLevelString:      "INFO",
		ApplicationLogPrefix:           "[APP]",
		MetricsPrefix:                  "edgerouter",
		RuntimeMetrics:                 true,
		HistogramMetricBuckets:         prometheus.DefBuckets,
	}

	if with != nil {
		with(cfg)
	}

	return cfg
}

func validConfig() *Config {
	cfg := NewConfig()
	cfg.RoutesManifest = "routes-manifest.json"
	cfg.StorageDomain = "assets"
	return cfg
}

func Test_NewConfigWithArgs(t *testing.T) {
	trailingSlash := true
	for _, tt := range []struct {
		name    string
		args    []string
		want    *Config
		wantErr bool
	}{
		{
			name:    "test args len bigger than 0 throws an error",
			args:    []string{"edgerouter", "-routes-manifest=routes-manifest.json", "arg1"},
			wantErr: true,
		},
		{
			name:    "test non-existing config file throw an error",
			args:    []string{"edgerouter", "-config-file=non-existent.yaml"},
			wantErr: true,
		},
		{
			name:    "test missing routes manifest",
			args:    []string{"edgerouter", "-storage-domain=assets"},
			wantErr: true,
		},
		{
			name:    "test missing store",
			args:    []string{"edgerouter", "-routes-manifest=routes-manifest.json"},
			wantErr: true,
		},
		{
			name: "test defaults",
			args: []string{"edgerouter", "-routes-manifest=routes-manifest.json", "-storage-domain=assets"},
			want: defaultConfig(nil),
		},
		{
			name: "test locales flag",
			args: []string{
				"edgerouter",
				"-routes-manifest=routes-manifest.json",
				"-storage-domain=assets",
				"-default-locale=en",
				"-locales=en, nl",
				"-trailing-slash=false",
			},
			want: defaultConfig(func(c *Config) {
				f := false
				c.DefaultLocale = "en"
				c.Locales = &listFlag{
					sep:     ",",
					allowed: map[string]bool{},
					value:   "en, nl",
					values:  []string{"en", "nl"},
				}
				c.TrailingSlashString = "false"
				c.TrailingSlash = &f
			}),
		},
		{
			name: "test only valid flag overwrite yaml file",
			args: []string{"edgerouter", "-config-file=testdata/test.yaml", "-address=localhost:8080", "-compute-breaker-failures=3"},
			want: defaultConfig(func(c *Config) {
				c.ConfigFile = "testdata/test.yaml"
				c.Address = "localhost:8080"
				c.RoutesManifest = "testdata/routes-manifest.json"
				c.PrerenderManifest = "https://assets.example.org/prerender-manifest.json"
				c.BasePath = "/basepath"
				c.TrailingSlashString = "true"
				c.TrailingSlash = &trailingSlash
				c.DefaultLocale = "en"
				c.Locales = &listFlag{
					sep:     ",",
					allowed: map[string]bool{},
					value:   "en,nl",
					values:  []string{"en", "nl"},
				}
				c.StorageDomain = "assets.s3.amazonaws.com"
				c.StorageRegion = "eu-central-1"
				c.ComputeURL = "http://localhost:3000"
				c.ComputeTimeout = 5 * time.Second
				c.ComputeBreakerFailures = 3
				c.ApplicationLogLevel = log.DebugLevel
				c.ApplicationLogLevelString = "DEBUG"
				c.HistogramMetricBucketsString = "0.1,0.01,1"
				c.HistogramMetricBuckets = []float64{0.01, 0.1, 1}
				c.OpenTelemetry = &otel.Options{ServiceName: "shop-router"}
			}),
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := cfg.ParseArgs(tt.args[0], tt.args[1:])

			if (err != nil) != tt.wantErr {
				t.Fatalf("config.NewConfig() error: %v, wantErr: %v", err, tt.wantErr)
			}

			if !tt.wantErr {
				d := cmp.Diff(cfg, tt.want,
					cmp.AllowUnexported(listFlag{}),
					cmpopts.IgnoreFields(Config{}, "Flags"),
				)
				if d != "" {
					t.Errorf("config.NewConfig() want vs got:\n%s", d)
				}
			}
		})
	}
}

func Test_Validate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		change  func(c *Config)
		want    error
		wantErr bool
	}{
		{
			name: "test wrong loglevel",
			change: func(c *Config) {
				c.ApplicationLogLevelString = "wrongLevel"
			},
			want:    errors.New(`not a valid logrus Level: "wrongLevel"`),
			wantErr: true,
		},
		{
			name:   "test valid config",
			change: func(c *Config) {},
		},
		{
			name: "test missing routes manifest",
			change: func(c *Config) {
				c.RoutesManifest = ""
			},
			want:    errors.New("missing routes-manifest"),
			wantErr: true,
		},
		{
			name: "test wrong trailing slash",
			change: func(c *Config) {
				c.TrailingSlashString = "sometimes"
			},
			want:    errors.New(`invalid trailing-slash: "sometimes"`),
			wantErr: true,
		},
		{
			name: "test locales without default locale",
			change: func(c *Config) {
				c.Locales.Set("en,nl")
			},
			want:    errors.New("missing default-locale for the locales: en,nl"),
			wantErr: true,
		},
		{
			name: "test missing store",
			change: func(c *Config) {
				c.StorageDomain = ""
			},
			want:    errors.New("missing store domain or URL"),
			wantErr: true,
		},
		{
			name: "test wrong store URL",
			change: func(c *Config) {
				c.StorageURL = "localhost:9000"
			},
			want:    errors.New("invalid store URL: localhost:9000"),
			wantErr: true,
		},
		{
			name: "test negative compute timeout",
			change: func(c *Config) {
				c.ComputeTimeout = -time.Second
			},
			want:    errors.New("invalid negative compute timeout"),
			wantErr: true,
		},
		{
			name: "test wrong HistoGramBuckets",
			change: func(c *Config) {
				c.HistogramMetricBucketsString = "5,10,abc"
			},
			wantErr: true,
			want:    errors.New(`unable to parse histogram-metric-buckets: strconv.ParseFloat: parsing "abc": invalid syntax`),
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.change(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("config.NewConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != nil && err.Error() != tt.want.Error() {
				t.Errorf("Failed to get wanted error, got: %v, want: %v", err, tt.want)
			}
		})
	}
}

func TestToOptions(t *testing.T) {
	cfg := NewConfig()
	err := cfg.ParseArgs("edgerouter", []string{
		"-config-file=testdata/test.yaml",
		"-access-log-json-enabled",
		"-runtime-metrics=false",
		"-disable-compression",
	})
	require.NoError(t, err)

	o := cfg.ToOptions()
	trailingSlash := true
	assert.Equal(t, "localhost:9999", o.Address)
	assert.Equal(t, "testdata/routes-manifest.json", o.RoutesManifest)
	assert.Equal(t, manifest.Overrides{
		BasePath:      "/basepath",
		TrailingSlash: &trailingSlash,
		DefaultLocale: "en",
		Locales:       []string{"en", "nl"},
	}, o.ManifestOverrides)
	assert.Equal(t, uint(3), o.ManifestLoadRetries)
	assert.Equal(t, origin.Store{Domain: "assets.s3.amazonaws.com", Region: "eu-central-1"}, o.Store)
	assert.Equal(t, "http://localhost:3000", o.ComputeURL)
	assert.Equal(t, 5*time.Second, o.ComputeTimeout)
	assert.Equal(t, circuit.BreakerSettings{Failures: 5, Timeout: 10 * time.Second, HalfOpenRequests: 1}, o.ComputeBreaker)
	assert.True(t, o.DisableCompression)
	assert.Equal(t, "debug", o.ApplicationLogLevel)
	assert.Equal(t, "[APP]", o.ApplicationLogPrefix)
	assert.True(t, o.AccessLogJSONEnabled)
	assert.False(t, o.AccessLogDisabled)
	assert.False(t, o.EnableRuntimeMetrics)
	assert.Equal(t, []float64{0.01, 0.1, 1}, o.HistogramMetricBuckets)
	assert.Equal(t, &otel.Options{ServiceName: "shop-router"}, o.OpenTelemetry)
}

func Test_parseHistogramBuckets(t *testing.T) {
	for _, tt := range []struct {
		name    string
		args    string
		want    []float64
		wantErr bool
	}{
		{
			name: "test default",
			args: "",
			want: prometheus.DefBuckets,
		},
		{
			name: "test parse 1",
			args: "1",
			want: []float64{1},
		},
		{
			name: "test parse unordered",
			args: "2, 1,1.5",
			want: []float64{1, 1.5, 2},
		},
		{
			name:    "test parse failure",
			args:    "1,two",
			wantErr: true,
		}} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := new(Config)
			got, err := cfg.parseHistogramBuckets(tt.args, prometheus.DefBuckets)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
