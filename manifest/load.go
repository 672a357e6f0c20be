package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultHTTPTimeout = 10 * time.Second

// LoadError is returned when a manifest document cannot be read or is
// invalid. The router cannot operate without valid manifests, the caller
// is expected to stop the process.
type LoadError struct {
	Document string
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s manifest from %s: %v", e.Document, e.Location, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadOptions tell where the manifest documents are loaded from.
type LoadOptions struct {

	// RoutesManifest is a file path or an HTTP(S) URL. Required.
	RoutesManifest string

	// PrerenderManifest is a file path or an HTTP(S) URL. When empty, no
	// pages are considered prerendered.
	PrerenderManifest string

	// Overrides applied to the route manifest.
	Overrides Overrides

	// HTTPTimeout is the timeout of a single download attempt.
	HTTPTimeout time.Duration

	// Retries is the number of additional download attempts of a remote
	// document. Local files are read once.
	Retries uint

	// Client used for remote documents. Defaults to a client with
	// HTTPTimeout.
	Client *http.Client

	newBackOff func() backoff.BackOff
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func (o *LoadOptions) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}

	timeout := o.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &http.Client{Timeout: timeout}
}

func (o *LoadOptions) backOff() backoff.BackOff {
	if o.newBackOff != nil {
		return o.newBackOff()
	}

	return backoff.NewExponentialBackOff()
}

func download(ctx context.Context, o *LoadOptions, location string) ([]byte, error) {
	client := o.client()
	return backoff.Retry(ctx, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		rsp, err := client.Do(req)
		if err != nil {
			log.Warnf("Failed to download %s: %v", location, err)
			return nil, err
		}

		defer rsp.Body.Close()
		switch {
		case rsp.StatusCode >= http.StatusInternalServerError || rsp.StatusCode == http.StatusTooManyRequests:
			log.Warnf("Failed to download %s: %s", location, rsp.Status)
			return nil, fmt.Errorf("unexpected status: %s", rsp.Status)
		case rsp.StatusCode != http.StatusOK:
			return nil, backoff.Permanent(fmt.Errorf("unexpected status: %s", rsp.Status))
		}

		return io.ReadAll(rsp.Body)
	},
		backoff.WithBackOff(o.backOff()),
		backoff.WithMaxTries(o.Retries+1),
	)
}

func read(ctx context.Context, o *LoadOptions, location string) ([]byte, error) {
	if isRemote(location) {
		return download(ctx, o, location)
	}

	return os.ReadFile(location)
}

// Load reads and parses the route manifest and the prerender manifest.
// The two documents are loaded concurrently.
func Load(ctx context.Context, o LoadOptions) (*Manifest, *Prerender, error) {
	if o.RoutesManifest == "" {
		return nil, nil, &LoadError{Document: "routes", Err: fmt.Errorf("no location")}
	}

	var (
		m *Manifest
		p *Prerender
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := read(ctx, &o, o.RoutesManifest)
		if err == nil {
			m, err = ParseWithOverrides(data, o.Overrides)
		}

		if err != nil {
			return &LoadError{Document: "routes", Location: o.RoutesManifest, Err: err}
		}

		return nil
	})

	g.Go(func() error {
		if o.PrerenderManifest == "" {
			p = EmptyPrerender()
			return nil
		}

		data, err := read(ctx, &o, o.PrerenderManifest)
		if err == nil {
			p, err = ParsePrerender(data)
		}

		if err != nil {
			return &LoadError{Document: "prerender", Location: o.PrerenderManifest, Err: err}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	log.Infof(
		"Manifests loaded, build: %s, routes: %s, prerender: %s, static pages: %d, dynamic pages: %d",
		m.BuildID, m.Fingerprint, p.Fingerprint, len(m.StaticRoutes), len(m.DynamicRoutes),
	)

	return m, p, nil
}
