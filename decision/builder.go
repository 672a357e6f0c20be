package decision

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/zalando/edgerouter/manifest"
	"github.com/zalando/edgerouter/pathnorm"
	"github.com/zalando/edgerouter/preview"
	"github.com/zalando/edgerouter/routing"
)

// Builder makes the routing decisions of an application. It is safe for
// concurrent use.
type Builder struct {
	manifest      *manifest.Manifest
	prerender     *manifest.Prerender
	localeMatcher language.Matcher
}

// New creates a decision builder. The manifests are only read. When the
// prerender manifest is nil, no page is considered prerendered.
func New(m *manifest.Manifest, p *manifest.Prerender) *Builder {
	if p == nil {
		p = manifest.EmptyPrerender()
	}

	b := &Builder{manifest: m, prerender: p}
	if m.HasLocales() && m.I18n.LocaleDetection {
		b.localeMatcher = newLocaleMatcher(m.I18n.Locales)
	}

	return b
}

// Manifest returns the route manifest of the builder.
func (b *Builder) Manifest() *manifest.Manifest { return b.manifest }

// NewServerError returns the decision used when rendering a page failed.
// The error page is the generic error page of the application, when it
// has one.
func NewServerError(m *manifest.Manifest, data bool) *ServerError {
	if r, ok := m.Page(manifest.ErrorPage); ok {
		return &ServerError{ErrorPage: r.Page, ErrorPagePath: r.ComputeFile(), Data: data}
	}

	return &ServerError{Data: data}
}

func (b *Builder) staticErrorPage(page string, data bool) (*NotFound, bool) {
	r, ok := b.manifest.Page(page)
	if !ok || !r.IsStatic() {
		return nil, false
	}

	return &NotFound{
		ErrorPage:     r.Page,
		ErrorPagePath: r.HTMLPath(),
		Static:        true,
		StoragePrefix: b.manifest.StaticPagesPrefix(),
		Data:          data,
	}, true
}

// the error page is selected from the most specific to the most generic:
// localized static, static, rendered not found page, rendered error page
func (b *Builder) notFound(locale string, data bool) *NotFound {
	if locale != "" {
		if nf, ok := b.staticErrorPage("/"+locale+manifest.NotFoundPage, data); ok {
			return nf
		}
	}

	if nf, ok := b.staticErrorPage(manifest.NotFoundPage, data); ok {
		return nf
	}

	for _, page := range []string{manifest.NotFoundPage, manifest.ErrorPage} {
		if r, ok := b.manifest.Page(page); ok {
			return &NotFound{ErrorPage: r.Page, ErrorPagePath: r.ComputeFile(), Data: data}
		}
	}

	return &NotFound{Data: data}
}

// returns the prerender state of a match, trying the localized path first
func (b *Builder) prerenderStatus(m *routing.Match) (manifest.PrerenderStatus, int, string) {
	if m.Locale != "" && !m.Localized {
		lp := "/" + m.Locale
		if m.Path != "/" {
			lp += m.Path
		}

		if s, rev := b.prerender.Status(lp, m.Route.Page); s == manifest.Built {
			return s, rev, lp
		}
	}

	s, rev := b.prerender.Status(m.Path, m.Route.Page)
	return s, rev, m.Path
}

func htmlPath(resolved string) string {
	if resolved == "/" {
		return "/index.html"
	}

	return resolved + ".html"
}

func locale(m *routing.Match, n pathnorm.Result) string {
	if n.Locale != "" {
		return n.Locale
	}

	// data paths carry the locale after the build ID
	return m.Locale
}

func (b *Builder) compute(m *routing.Match, n pathnorm.Result, ps preview.State, pending bool, revalidate int) *InvokeCompute {
	return &InvokeCompute{
		Page:              m.Route.Page,
		PagePath:          m.Route.ComputeFile(),
		URI:               n.WithQuery(n.Path),
		Params:            m.Params,
		CatchAll:          m.CatchAll,
		Locale:            locale(m, n),
		Data:              m.Data,
		Preview:           ps.Active,
		API:               m.Route.IsAPI(),
		Fallback:          pending,
		RevalidateSeconds: revalidate,
	}
}

func (b *Builder) page(m *routing.Match, n pathnorm.Result, ps preview.State) Decision {
	r := m.Route
	if r.IsAPI() {
		if m.Data {
			return b.notFound(locale(m, n), true)
		}

		return b.compute(m, n, ps, false, 0)
	}

	status, revalidate, resolved := b.prerenderStatus(m)
	switch {
	case ps.Active:
		return b.compute(m, n, ps, false, 0)
	case status == manifest.Missing:
		return b.notFound(locale(m, n), m.Data)
	case status == manifest.Pending:
		return b.compute(m, n, ps, true, revalidate)
	case !r.IsStatic() && status != manifest.Built:
		return b.compute(m, n, ps, false, 0)
	case m.Data:
		return &ServeStatic{
			OriginPath:        m.DataPath,
			StoragePrefix:     b.manifest.DataStoragePrefix(),
			Page:              r.Page,
			Data:              true,
			RevalidateSeconds: revalidate,
		}
	}

	originPath := r.HTMLPath()
	if status == manifest.Built {
		originPath = htmlPath(resolved)
	}

	return &ServeStatic{
		OriginPath:        originPath,
		StoragePrefix:     b.manifest.StaticPagesPrefix(),
		Page:              r.Page,
		RevalidateSeconds: revalidate,
	}
}

func (b *Builder) decide(r *Request) Decision {
	n := pathnorm.Normalize(r.URI, b.manifest)
	if n.OutsideBasePath {
		return b.notFound("", false)
	}

	if n.Redirect != "" {
		return &Redirect{Location: n.Redirect, StatusCode: http.StatusPermanentRedirect}
	}

	if d, ok := b.customRedirect(r, n); ok {
		return d
	}

	if d, ok := b.detectLocale(r, n); ok {
		return d
	}

	ps := preview.Resolve(r.Cookies, r.CookieErr)
	m, ok := routing.Lookup(n.PagePath, b.manifest)
	if !ok {
		return b.notFound(n.Locale, manifest.IsDataPath(n.PagePath))
	}

	if m.Kind == routing.PublicFile {
		return &ServeStatic{OriginPath: m.Path, StoragePrefix: b.manifest.PublicFilesPrefix()}
	}

	return b.page(m, n, ps)
}

// Decide returns the routing decision of a request. It always returns
// exactly one decision, even for malformed requests. Unexpected failures
// are logged and result in ServerError.
func (b *Builder) Decide(r *Request) (d Decision) {
	defer func() {
		if err := recover(); err != nil {
			var uri string
			if r != nil {
				uri = r.URI
			}

			log.Errorf("Failed to route %s: %v", uri, err)
			d = NewServerError(b.manifest, false)
		}
	}()

	return b.decide(r)
}
