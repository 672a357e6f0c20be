package manifest

import (
	"path"
	"strings"
)

const (
	// DataPathPrefix is the prefix of the versioned data requests, relative
	// to the base path.
	DataPathPrefix = "/_next/data"

	// AssetPathPrefix is the prefix of the build assets, relative to the base
	// path.
	AssetPathPrefix = "/_next/"

	// APIPathPrefix is the prefix of the API routes.
	APIPathPrefix = "/api"

	// ErrorPage is the page rendering the generic error responses.
	ErrorPage = "/_error"

	// NotFoundPage is the page of the custom not found response.
	NotFoundPage = "/404"
)

// I18n contains the internationalization settings of an application.
type I18n struct {
	DefaultLocale   string   `json:"defaultLocale"`
	Locales         []string `json:"locales"`
	LocaleDetection bool     `json:"localeDetection,omitempty"`
}

// Route is a page of the application, served either as a static HTML
// artifact, by rendering it with the compute backend, or both.
type Route struct {

	// Page is the route path of the page, e.g. /users/[user].
	Page string

	// HTML is the build output path of the static artifact, e.g.
	// pages/users/[user].html. Empty when the page is rendered only.
	HTML string

	// Compute is the entry point used by the compute backend, e.g.
	// pages/users/[user].js.
	Compute string

	// Pattern is the compiled matcher of dynamic pages, nil for static
	// pages.
	Pattern *Pattern
}

// DataRoute maps a versioned data path pattern to the page that provides
// the data.
type DataRoute struct {
	Path string
	Page string
}

// Manifest is the in-memory representation of the route manifest. It is
// never modified after Parse or Load returned it.
type Manifest struct {
	Version       int
	BuildID       string
	BasePath      string
	TrailingSlash bool
	I18n          *I18n
	Redirects     []*RedirectRule
	Headers       []*HeaderRule
	StaticRoutes  map[string]*Route

	// DynamicRoutes contains the dynamic pages in declaration order.
	DynamicRoutes []*Route

	DataRoutes  []DataRoute
	PublicFiles map[string]bool

	// Fingerprint identifies the source document.
	Fingerprint string

	// data paths of the pages without dynamic segments
	dataPages map[string]string

	singleSegment []*Route
	catchAll      []*Route
}

// IsStatic tells whether the page has a prerendered HTML artifact.
func (r *Route) IsStatic() bool { return r.HTML != "" }

// IsDynamic tells whether the page has dynamic segments.
func (r *Route) IsDynamic() bool { return r.Pattern != nil }

// IsAPI tells whether the route is an API route. API routes are always
// served by the compute backend.
func (r *Route) IsAPI() bool {
	return r.Page == APIPathPrefix || strings.HasPrefix(r.Page, APIPathPrefix+"/")
}

// HTMLPath returns the path of the static artifact relative to the static
// pages storage prefix, e.g. /users/[user].html.
func (r *Route) HTMLPath() string {
	return "/" + strings.TrimPrefix(r.HTML, "pages/")
}

// ComputeFile returns the entry point of the page for the compute backend.
// When the page has only a static artifact, the entry point is derived
// from the artifact path.
func (r *Route) ComputeFile() string {
	if r.Compute != "" {
		return r.Compute
	}

	return strings.TrimSuffix(r.HTML, path.Ext(r.HTML)) + ".js"
}

// SingleSegmentRoutes returns the dynamic pages without catch-all segments,
// ordered by precedence.
func (m *Manifest) SingleSegmentRoutes() []*Route { return m.singleSegment }

// CatchAllRoutes returns the dynamic pages with a catch-all or optional
// catch-all segment, ordered by precedence.
func (m *Manifest) CatchAllRoutes() []*Route { return m.catchAll }

// Page returns the static page registered for the exact path.
func (m *Manifest) Page(p string) (*Route, bool) {
	r, ok := m.StaticRoutes[p]
	return r, ok
}

// IsPublicFile tells whether the path, relative to the base path, is a
// cataloged public file.
func (m *Manifest) IsPublicFile(p string) bool {
	return m.PublicFiles[p]
}

// DataPrefix returns the prefix of the data requests of the current build,
// relative to the base path.
func (m *Manifest) DataPrefix() string {
	return DataPathPrefix + "/" + m.BuildID
}

// DataPage returns the page providing the data object of a data path of
// the current build, relative to the base path, when the page has no
// dynamic segments. Data paths of dynamic pages are patterns, and they
// are resolved by matching the page path.
func (m *Manifest) DataPage(p string) (string, bool) {
	page, ok := m.dataPages[p]
	return page, ok
}

// IsDataPath tells whether the path, relative to the base path, is a
// versioned data request.
func IsDataPath(p string) bool {
	return p == DataPathPrefix || strings.HasPrefix(p, DataPathPrefix+"/")
}

// HasLocales tells whether internationalization is configured.
func (m *Manifest) HasLocales() bool {
	return m.I18n != nil && len(m.I18n.Locales) > 0
}

// DefaultLocale returns the default locale, or empty string when
// internationalization is not configured.
func (m *Manifest) DefaultLocale() string {
	if !m.HasLocales() {
		return ""
	}

	return m.I18n.DefaultLocale
}

// SplitLocale splits the locale prefix from a path relative to the base
// path. When the path has no configured locale prefix, it returns an empty
// locale and the path unchanged.
func (m *Manifest) SplitLocale(p string) (string, string) {
	if !m.HasLocales() {
		return "", p
	}

	for _, l := range m.I18n.Locales {
		if p == "/"+l {
			return l, "/"
		}

		if strings.HasPrefix(p, "/"+l+"/") {
			return l, p[len(l)+1:]
		}
	}

	return "", p
}

// HasLocale tells whether the locale is configured.
func (m *Manifest) HasLocale(locale string) bool {
	if !m.HasLocales() {
		return false
	}

	for _, l := range m.I18n.Locales {
		if l == locale {
			return true
		}
	}

	return false
}

// StaticPagesPrefix is the storage prefix of the prerendered HTML pages.
func (m *Manifest) StaticPagesPrefix() string {
	return m.BasePath + "/static-pages"
}

// PublicFilesPrefix is the storage prefix of the public files.
func (m *Manifest) PublicFilesPrefix() string {
	return m.BasePath + "/public"
}

// DataStoragePrefix is the storage prefix of the prerendered data files.
// The object keys below it contain the complete data path.
func (m *Manifest) DataStoragePrefix() string {
	return m.BasePath
}
