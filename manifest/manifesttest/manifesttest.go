/*
Package manifesttest provides a route manifest and a prerender manifest
of a sample application, used by the tests of the routing packages.
*/
package manifesttest

import (
	"testing"

	"github.com/zalando/edgerouter/manifest"
)

// BuildID of the sample application.
const BuildID = "build-id"

// Routes is the route manifest of the sample application, without base
// path and i18n settings. Catch-all pages are declared before the more
// specific pages on purpose.
const Routes = `{
	"version": 1,
	"buildId": "build-id",
	"staticRoutes": [
		{"page": "/", "html": "pages/index.html"},
		{"page": "/terms", "html": "pages/terms.html"},
		{"page": "/tests/prerender-manifest/example-static-page", "html": "pages/tests/prerender-manifest/example-static-page.html"},
		{"page": "/preview", "html": "pages/preview.html", "compute": "pages/preview.js"},
		{"page": "/customers", "compute": "pages/customers/index.js"},
		{"page": "/erroredPage", "compute": "pages/erroredPage.js"},
		{"page": "/_error", "compute": "pages/_error.js"},
		{"page": "/404", "html": "pages/404.html"},
		{"page": "/nl/404", "html": "pages/nl/404.html"},
		{"page": "/api/getCustomers", "compute": "pages/api/getCustomers.js"}
	],
	"dynamicRoutes": [
		{"page": "/customers/[...catchAll]", "compute": "pages/customers/[...catchAll].js"},
		{"page": "/users/[...user]", "html": "pages/users/[...user].html"},
		{"page": "/[root]", "compute": "pages/[root].js"},
		{"page": "/users/[user]", "html": "pages/users/[user].html"},
		{"page": "/[username]/[id]", "html": "pages/[username]/[id].html"},
		{"page": "/tests/prerender-manifest-fallback/[slug]", "html": "pages/tests/prerender-manifest-fallback/[slug].html"},
		{"page": "/blog/[id]", "compute": "pages/blog/[id].js"},
		{"page": "/customers/[customer]", "compute": "pages/customers/[customer].js"},
		{"page": "/customers/[customer]/[post]", "compute": "pages/customers/[customer]/[post].js"},
		{"page": "/customers/[customer]/profile", "compute": "pages/customers/[customer]/profile.js"},
		{"page": "/docs/[[...slug]]", "compute": "pages/docs/[[...slug]].js"},
		{"page": "/api/users/[id]", "compute": "pages/api/users/[id].js"}
	],
	"publicFiles": ["/favicon.ico", "/manifest.json"],
	"redirects": [
		{"source": "/old-blog/:slug", "destination": "/blog/:slug", "statusCode": 301},
		{
			"source": "/legacy/:path*",
			"destination": "https://legacy.example.org/:path*",
			"permanent": false,
			"has": [{"type": "header", "key": "X-Legacy", "value": "1"}]
		}
	],
	"headers": [
		{"source": "/users/:user", "headers": [{"key": "X-Frame-Options", "value": "DENY"}]}
	]
}`

// Prerender is the prerender manifest of the sample application.
const Prerender = `{
	"version": 2,
	"routes": {
		"/tests/prerender-manifest/example-static-page": {"initialRevalidateSeconds": false},
		"/tests/prerender-manifest-fallback/built": {"initialRevalidateSeconds": 60},
		"/users/built/path": {"initialRevalidateSeconds": false}
	},
	"dynamicRoutes": {
		"/tests/prerender-manifest-fallback/[slug]": {
			"fallback": "/tests/prerender-manifest-fallback/[slug].html",
			"initialRevalidateSeconds": 60
		},
		"/users/[...user]": {"fallback": false}
	}
}`

// BasePath is the base path used by the base path scenarios.
const BasePath = "/basepath"

// WithBasePath returns the overrides deploying the sample application
// under BasePath with the locales en (default) and nl.
func WithBasePath() manifest.Overrides {
	return manifest.Overrides{
		BasePath:      BasePath,
		DefaultLocale: "en",
		Locales:       []string{"en", "nl"},
	}
}

// Manifest parses the sample route manifest with the overrides.
func Manifest(t testing.TB, o manifest.Overrides) *manifest.Manifest {
	t.Helper()
	m, err := manifest.ParseWithOverrides([]byte(Routes), o)
	if err != nil {
		t.Fatalf("failed to parse the sample manifest: %v", err)
	}

	return m
}

// PrerenderManifest parses the sample prerender manifest.
func PrerenderManifest(t testing.TB) *manifest.Prerender {
	t.Helper()
	p, err := manifest.ParsePrerender([]byte(Prerender))
	if err != nil {
		t.Fatalf("failed to parse the sample prerender manifest: %v", err)
	}

	return p
}
