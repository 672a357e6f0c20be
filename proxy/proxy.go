package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/zalando/edgerouter/decision"
	"github.com/zalando/edgerouter/logging"
	"github.com/zalando/edgerouter/manifest"
	"github.com/zalando/edgerouter/metrics"
	"github.com/zalando/edgerouter/origin"
	"github.com/zalando/edgerouter/postprocess"
)

// FlowIDHeader carries the ID of a request flow across the services.
const FlowIDHeader = "X-Flow-Id"

const tracerName = "github.com/zalando/edgerouter/proxy"

const previewCacheControl = "private, no-cache, no-store, max-age=0, must-revalidate"

// Options of the proxy.
type Options struct {

	// Builder makes the routing decisions. Required.
	Builder *decision.Builder

	// Store serves the static artifacts.
	Store origin.Store

	// StoreTransport is used for the requests to the static store.
	// Defaults to http.DefaultTransport.
	StoreTransport http.RoundTripper

	// Renderer renders the pages with the compute backend. When nil,
	// every render fails.
	Renderer Renderer

	// Metrics receives the measurements. Defaults to metrics.Void.
	Metrics metrics.Metrics

	// TracerProvider creates the server spans. Defaults to the global
	// tracer provider.
	TracerProvider trace.TracerProvider

	// DisableCompression disables the brotli and gzip encoding of the
	// rendered responses.
	DisableCompression bool
}

// Proxy answers the incoming requests based on their routing decision.
type Proxy struct {
	builder        *decision.Builder
	store          origin.Store
	storeTransport http.RoundTripper
	renderer       Renderer
	metrics        metrics.Metrics
	tracer         trace.Tracer
	compress       bool
}

var _ http.Handler = (*Proxy)(nil)

// New creates a proxy.
func New(o Options) *Proxy {
	if o.Metrics == nil {
		o.Metrics = metrics.Void{}
	}

	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}

	if o.StoreTransport == nil {
		o.StoreTransport = http.DefaultTransport
	}

	return &Proxy{
		builder:        o.Builder,
		store:          o.Store,
		storeTransport: o.StoreTransport,
		renderer:       o.Renderer,
		metrics:        o.Metrics,
		tracer:         o.TracerProvider.Tracer(tracerName),
		compress:       !o.DisableCompression,
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}

	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// request scoped state
type flow struct {
	w        *statusWriter
	r        *http.Request
	req      *decision.Request
	headers  []manifest.Header
	decision decision.Decision
	span     trace.Span
}

func applyHeaders(h http.Header, headers []manifest.Header) {
	for _, hh := range headers {
		h.Set(hh.Key, hh.Value)
	}
}

func isrCacheControl(revalidate int) string {
	return "s-maxage=" + strconv.Itoa(revalidate) + ", stale-while-revalidate"
}

func (p *Proxy) redirect(f *flow, d *decision.Redirect) {
	h := f.w.Header()
	applyHeaders(h, f.headers)
	h.Set("Location", d.Location)
	h.Set("Refresh", "0;url="+d.Location)
	f.w.WriteHeader(d.StatusCode)
}

func (p *Proxy) serveStore(f *flow, prefix, objectPath string, revalidate int) {
	target, err := p.store.Target(prefix, objectPath)
	if err != nil {
		log.Errorf("Failed to serve %s: %v", objectPath, err)
		p.writeError(f, "", http.StatusInternalServerError, false)
		return
	}

	start := time.Now()
	rp := &httputil.ReverseProxy{
		Transport: p.storeTransport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL = target
			pr.Out.Host = target.Host

			// the store serves only reads
			if pr.Out.Method != http.MethodHead {
				pr.Out.Method = http.MethodGet
			}

			pr.Out.Body = nil
			pr.Out.ContentLength = 0
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Authorization")
			otel.GetTextMapPropagator().Inject(pr.Out.Context(), propagation.HeaderCarrier(pr.Out.Header))
		},
		ModifyResponse: func(rsp *http.Response) error {
			p.metrics.MeasureStore(rsp.StatusCode, start)
			rsp.StatusCode = postprocess.Status(f.decision, rsp.StatusCode, p.builder.Manifest())
			if revalidate > 0 && rsp.StatusCode == http.StatusOK {
				rsp.Header.Set("Cache-Control", isrCacheControl(revalidate))
			}

			applyHeaders(rsp.Header, f.headers)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.metrics.IncErrorsStore()
			log.Errorf("Failed to serve %s from the store: %v", target, err)
			f.span.RecordError(err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	rp.ServeHTTP(f.w, f.r)
}

func (p *Proxy) render(f *flow, rr *RenderRequest) (*http.Response, error) {
	if p.renderer == nil {
		return nil, errNoRenderer
	}

	start := time.Now()
	rsp, err := p.renderer.Render(f.r.Context(), rr)
	if err != nil {
		p.metrics.IncErrorsCompute()
		return nil, err
	}

	p.metrics.MeasureCompute(start)
	return rsp, nil
}

func (p *Proxy) writeResponse(f *flow, rsp *http.Response, status int, cacheControl string) {
	defer rsp.Body.Close()

	h := f.w.Header()
	copyHeaderExcluding(h, rsp.Header, hopHeaders)
	if cacheControl != "" {
		h.Set("Cache-Control", cacheControl)
	}

	applyHeaders(h, f.headers)

	var enc string
	if p.compress && canEncodeEntity(f.r, rsp, status) {
		enc = acceptedEncoding(f.r)
	}

	if enc != "" {
		setEncodingHeaders(h, enc)
	}

	f.w.WriteHeader(status)
	if err := copyBody(f.w, rsp.Body, enc); err != nil {
		log.Errorf("Failed to copy the rendered response: %v", err)
	}
}

func (p *Proxy) invokeCompute(f *flow, d *decision.InvokeCompute) {
	rsp, err := p.render(f, &RenderRequest{
		Request:  f.r,
		Page:     d.Page,
		PagePath: d.PagePath,
		URI:      d.URI,
		Params:   d.Params,
		Locale:   d.Locale,
		Data:     d.Data,
		Preview:  d.Preview,
		Fallback: d.Fallback,
	})

	if err != nil {
		log.Errorf("Failed to render %s: %v", d.Page, err)
		f.span.RecordError(err)
		f.span.SetStatus(codes.Error, "render failed")

		se := decision.NewServerError(p.builder.Manifest(), d.Data)
		f.decision = se
		p.errorPage(f, se.ErrorPage, se.ErrorPagePath, http.StatusInternalServerError, se.Data)
		return
	}

	var cacheControl string
	switch {
	case d.Preview:
		cacheControl = previewCacheControl
	case d.RevalidateSeconds > 0 && rsp.StatusCode == http.StatusOK:
		cacheControl = isrCacheControl(d.RevalidateSeconds)
	}

	p.writeResponse(f, rsp, rsp.StatusCode, cacheControl)
}

type dataError struct {
	Page       string `json:"page"`
	StatusCode int    `json:"statusCode"`
}

func (p *Proxy) writeError(f *flow, page string, status int, data bool) {
	h := f.w.Header()
	applyHeaders(h, f.headers)
	if data {
		h.Set("Content-Type", "application/json")
		h.Set("Cache-Control", "no-store")
		f.w.WriteHeader(status)
		if err := json.NewEncoder(f.w).Encode(dataError{Page: page, StatusCode: status}); err != nil {
			log.Errorf("Failed to write the error: %v", err)
		}

		return
	}

	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	f.w.WriteHeader(status)
	fmt.Fprintln(f.w, http.StatusText(status))
}

// renders the error page with the status. Data requests get the JSON
// error. Without an error page, or when rendering fails, a plain error is
// written.
func (p *Proxy) errorPage(f *flow, page, pagePath string, status int, data bool) {
	if data || page == "" {
		p.writeError(f, page, status, data)
		return
	}

	rsp, err := p.render(f, &RenderRequest{
		Request:    f.r,
		Page:       page,
		PagePath:   pagePath,
		URI:        f.req.URI,
		StatusCode: status,
	})

	if err != nil {
		log.Errorf("Failed to render the error page %s: %v", page, err)
		p.writeError(f, page, status, false)
		return
	}

	p.writeResponse(f, rsp, status, "")
}

func (p *Proxy) notFound(f *flow, d *decision.NotFound) {
	if d.Static && !d.Data {
		p.serveStore(f, d.StoragePrefix, d.ErrorPagePath, 0)
		return
	}

	p.errorPage(f, d.ErrorPage, d.ErrorPagePath, http.StatusNotFound, d.Data)
}

func flowID(r *http.Request) string {
	if id := r.Header.Get(FlowIDHeader); id != "" {
		return id
	}

	id := uuid.NewString()
	r.Header.Set(FlowIDHeader, id)
	return id
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := flowID(r)
	w.Header().Set(FlowIDHeader, id)
	logging.SetFlowID(r.Context(), id)

	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := p.tracer.Start(ctx, "route", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	r = r.WithContext(ctx)
	req := decision.FromHTTP(r)
	d := p.builder.Decide(req)
	kind := d.Kind().String()
	p.metrics.MeasureDecision(kind, start)
	logging.SetDecision(r.Context(), kind)
	span.SetAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.target", req.URI),
		attribute.String("flow_id", id),
		attribute.String("edgerouter.decision", kind),
	)

	f := &flow{
		w:        &statusWriter{ResponseWriter: w},
		r:        r,
		req:      req,
		headers:  p.builder.HeadersFor(req.URI),
		decision: d,
		span:     span,
	}

	switch dt := d.(type) {
	case *decision.Redirect:
		p.redirect(f, dt)
	case *decision.ServeStatic:
		span.SetAttributes(attribute.String("edgerouter.origin_path", dt.StoragePrefix+dt.OriginPath))
		p.serveStore(f, dt.StoragePrefix, dt.OriginPath, dt.RevalidateSeconds)
	case *decision.InvokeCompute:
		span.SetAttributes(attribute.String("edgerouter.page", dt.Page))
		p.invokeCompute(f, dt)
	case *decision.NotFound:
		p.notFound(f, dt)
	case *decision.ServerError:
		p.errorPage(f, dt.ErrorPage, dt.ErrorPagePath, http.StatusInternalServerError, dt.Data)
	default:
		p.writeError(f, "", http.StatusInternalServerError, false)
	}

	code := f.w.code
	if code == 0 {
		code = http.StatusOK
	}

	span.SetAttributes(attribute.Int("http.status_code", code))
	if code >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(code))
	}

	p.metrics.MeasureResponse(code, r.Method, f.decision.Kind().String(), start)
}
