package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/zalando/edgerouter/circuit"
)

// Headers passing the render parameters to the compute backend.
const (
	PageHeader       = "X-Edge-Page"
	PagePathHeader   = "X-Edge-Page-Path"
	ParamsHeader     = "X-Edge-Params"
	LocaleHeader     = "X-Edge-Locale"
	DataHeader       = "X-Edge-Data"
	PreviewHeader    = "X-Edge-Preview"
	FallbackHeader   = "X-Edge-Fallback"
	StatusCodeHeader = "X-Edge-Status"
)

// DefaultComputeTimeout is used when no timeout is configured.
const DefaultComputeTimeout = 30 * time.Second

var (
	// ErrBreakerOpen is returned when the circuit breaker of the
	// compute backend is open.
	ErrBreakerOpen = errors.New("compute circuit breaker open")

	errNoRenderer = errors.New("no compute backend configured")
)

var hopHeaders = map[string]bool{
	"Te":                  true,
	"Connection":          true,
	"Proxy-Connection":    true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// RenderRequest describes a page render.
type RenderRequest struct {

	// Request is the incoming request.
	Request *http.Request

	Page     string
	PagePath string

	// URI is the normalized path with the query, as the page sees it.
	URI string

	Params   map[string]string
	Locale   string
	Data     bool
	Preview  bool
	Fallback bool

	// StatusCode is set when rendering an error page.
	StatusCode int
}

// Renderer renders pages with the compute backend. The caller closes the
// body of the returned response.
type Renderer interface {
	Render(context.Context, *RenderRequest) (*http.Response, error)
}

// HTTPRendererOptions configure the HTTP compute client.
type HTTPRendererOptions struct {

	// URL of the compute backend.
	URL string

	// Timeout of a render, including reading the response body.
	// Defaults to DefaultComputeTimeout.
	Timeout time.Duration

	Breaker circuit.BreakerSettings

	// Transport of the compute requests. Defaults to
	// http.DefaultTransport.
	Transport http.RoundTripper
}

// HTTPRenderer forwards the render requests to a compute backend over
// HTTP.
type HTTPRenderer struct {
	base    string
	client  *http.Client
	breaker *circuit.Breaker
}

var _ Renderer = (*HTTPRenderer)(nil)

// NewHTTPRenderer creates a compute client.
func NewHTTPRenderer(o HTTPRendererOptions) (*HTTPRenderer, error) {
	u, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid compute URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid compute URL: %s", o.URL)
	}

	if o.Timeout <= 0 {
		o.Timeout = DefaultComputeTimeout
	}

	if o.Breaker.Name == "" {
		o.Breaker.Name = u.Host
	}

	return &HTTPRenderer{
		base:    strings.TrimSuffix(o.URL, "/"),
		client:  &http.Client{Timeout: o.Timeout, Transport: o.Transport},
		breaker: circuit.NewBreaker(o.Breaker),
	}, nil
}

func copyHeaderExcluding(to, from http.Header, excludeHeaders map[string]bool) {
	for k, v := range from {
		// the lookup is done with the canonical version of the header
		ck := http.CanonicalHeaderKey(k)
		if _, ok := excludeHeaders[ck]; !ok {
			to[ck] = v
		}
	}
}

func encodeParams(params map[string]string) string {
	v := make(url.Values, len(params))
	for k, p := range params {
		v.Set(k, p)
	}

	return v.Encode()
}

func (r *HTTPRenderer) newRequest(ctx context.Context, rr *RenderRequest) (*http.Request, error) {
	method := http.MethodGet
	if rr.Request != nil && rr.StatusCode == 0 {
		method = rr.Request.Method
	}

	req, err := http.NewRequestWithContext(ctx, method, r.base+rr.URI, nil)
	if err != nil {
		return nil, err
	}

	if rr.Request != nil {
		copyHeaderExcluding(req.Header, rr.Request.Header, hopHeaders)

		// error pages are rendered without the request body
		if rr.StatusCode == 0 && rr.Request.Body != nil && rr.Request.ContentLength != 0 {
			req.Body = rr.Request.Body
			req.ContentLength = rr.Request.ContentLength
		}
	}

	req.Header.Set(PageHeader, rr.Page)
	req.Header.Set(PagePathHeader, rr.PagePath)
	if len(rr.Params) > 0 {
		req.Header.Set(ParamsHeader, encodeParams(rr.Params))
	}

	if rr.Locale != "" {
		req.Header.Set(LocaleHeader, rr.Locale)
	}

	if rr.Data {
		req.Header.Set(DataHeader, "true")
	}

	if rr.Preview {
		req.Header.Set(PreviewHeader, "true")
	}

	if rr.Fallback {
		req.Header.Set(FallbackHeader, "true")
	}

	if rr.StatusCode != 0 {
		req.Header.Set(StatusCodeHeader, strconv.Itoa(rr.StatusCode))
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

// the compute backend is considered unavailable when it cannot be reached
// or its gateway reports it
func unavailable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Render sends the render request to the compute backend. Failed
// connections and gateway errors count as failures for the circuit
// breaker, and are returned as errors.
func (r *HTTPRenderer) Render(ctx context.Context, rr *RenderRequest) (*http.Response, error) {
	done, ok := r.breaker.Allow()
	if !ok {
		return nil, ErrBreakerOpen
	}

	req, err := r.newRequest(ctx, rr)
	if err != nil {
		done(true)
		return nil, err
	}

	rsp, err := r.client.Do(req)
	if err != nil {
		done(false)
		return nil, fmt.Errorf("compute request failed: %w", err)
	}

	if unavailable(rsp.StatusCode) {
		rsp.Body.Close()
		done(false)
		return nil, fmt.Errorf("compute unavailable: %d", rsp.StatusCode)
	}

	done(true)
	return rsp, nil
}
