/*
Package pathnorm canonicalizes the request paths before they are matched
against the route manifest.

The normalization cleans the path, strips the base path, enforces the
trailing slash policy of the application, and inserts the default locale
when the path does not carry one. When the trailing slash of the request
path does not conform to the policy, the result contains the location of
the canonical path, and the request needs to be redirected before any
route matching.

Data requests, public files and other paths that look like files never
end with a slash, regardless of the policy. The root path of an
application without a base path is never redirected.
*/
package pathnorm

import (
	"path"
	"strings"

	"github.com/dimfeld/httppath"

	"github.com/zalando/edgerouter/manifest"
)

// Result is the outcome of the normalization of a single request path.
type Result struct {

	// Path is the complete canonical path, including the base path and
	// the locale.
	Path string

	// PagePath is the path used for route matching: relative to the base
	// path, without trailing slash, with the locale prefix when
	// internationalization applies to the path.
	PagePath string

	// Locale is the locale of the request, either found in the path or
	// the default locale. Empty when internationalization does not apply.
	Locale string

	// DefaultLocale is set when the locale was not present in the path.
	DefaultLocale bool

	// RawQuery is the query string of the request, without the '?'.
	RawQuery string

	// Redirect is the canonical location, including the query, when the
	// request path violates the trailing slash policy.
	Redirect string

	// OutsideBasePath is set when the application has a base path and the
	// request path is not below it.
	OutsideBasePath bool

	hasQuery bool
}

// WithQuery appends the original query string to a location, when the
// request had one.
func (r Result) WithQuery(location string) string {
	if !r.hasQuery {
		return location
	}

	if strings.Contains(location, "?") {
		if r.RawQuery == "" {
			return location
		}

		return location + "&" + r.RawQuery
	}

	return location + "?" + r.RawQuery
}

// IsFile tells whether the last segment of the path has an extension.
func IsFile(p string) bool {
	return path.Ext(p) != ""
}

// IsAssetPath tells whether a path relative to the base path points to
// a build asset.
func IsAssetPath(p string) bool {
	return strings.HasPrefix(p, manifest.AssetPathPrefix)
}

// IsAPIPath tells whether a path relative to the base path points to an
// API route.
func IsAPIPath(p string) bool {
	return p == manifest.APIPathPrefix || strings.HasPrefix(p, manifest.APIPathPrefix+"/")
}

// paths never ending with a slash
func noTrailingSlash(p string, m *manifest.Manifest) bool {
	return manifest.IsDataPath(p) || m.IsPublicFile(p) || IsFile(p)
}

// paths without locale
func localeExempt(p string, m *manifest.Manifest) bool {
	return manifest.IsDataPath(p) || m.IsPublicFile(p) || IsAssetPath(p) || IsAPIPath(p)
}

func splitQuery(rawURI string) (string, string, bool) {
	if i := strings.IndexByte(rawURI, '?'); i >= 0 {
		return rawURI[:i], rawURI[i+1:], true
	}

	return rawURI, "", false
}

// returns the path relative to the base path, and false when the path is
// outside of it
func stripBasePath(p, basePath string) (string, bool) {
	if basePath == "" {
		return p, true
	}

	if p == basePath {
		return "/", true
	}

	if strings.HasPrefix(p, basePath+"/") {
		return p[len(basePath):], true
	}

	return "", false
}

// Normalize normalizes a raw request URI, path and optional query,
// against the route manifest. The manifest is only read.
func Normalize(rawURI string, m *manifest.Manifest) Result {
	p, query, hasQuery := splitQuery(rawURI)
	p = httppath.Clean(p)

	r := Result{RawQuery: query, hasQuery: hasQuery}
	rel, ok := stripBasePath(p, m.BasePath)
	if !ok {
		r.Path = p
		r.PagePath = p
		r.OutsideBasePath = true
		return r
	}

	trimmed := strings.TrimRight(rel, "/")
	slash := m.TrailingSlash && !noTrailingSlash(trimmed, m)

	var canonical string
	switch {
	case trimmed == "" && m.BasePath == "":
		canonical = "/"
	case slash:
		canonical = m.BasePath + trimmed + "/"
	default:
		canonical = m.BasePath + trimmed
	}

	if trimmed == "" {
		trimmed = "/"
	}

	if canonical != p {
		r.Path = canonical
		r.PagePath = trimmed
		r.Redirect = r.WithQuery(canonical)
		return r
	}

	r.Path = canonical
	r.PagePath = trimmed
	if !m.HasLocales() || localeExempt(trimmed, m) {
		return r
	}

	locale, _ := m.SplitLocale(trimmed)
	if locale != "" {
		r.Locale = locale
		return r
	}

	r.Locale = m.DefaultLocale()
	r.DefaultLocale = true
	if trimmed == "/" {
		r.PagePath = "/" + r.Locale
	} else {
		r.PagePath = "/" + r.Locale + trimmed
	}

	r.Path = m.BasePath + r.PagePath
	if slash {
		r.Path += "/"
	}

	return r
}
