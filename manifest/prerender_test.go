package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/edgerouter/manifest"
	"github.com/zalando/edgerouter/manifest/manifesttest"
)

func TestPrerenderStatus(t *testing.T) {
	p := manifesttest.PrerenderManifest(t)

	for _, test := range []struct {
		title      string
		path, page string
		status     manifest.PrerenderStatus
		revalidate int
	}{{
		title:  "built without revalidation",
		path:   "/tests/prerender-manifest/example-static-page",
		page:   "/tests/prerender-manifest/example-static-page",
		status: manifest.Built,
	}, {
		title:      "built with revalidation",
		path:       "/tests/prerender-manifest-fallback/built",
		page:       "/tests/prerender-manifest-fallback/[slug]",
		status:     manifest.Built,
		revalidate: 60,
	}, {
		title:      "fallback pending",
		path:       "/tests/prerender-manifest-fallback/not-built",
		page:       "/tests/prerender-manifest-fallback/[slug]",
		status:     manifest.Pending,
		revalidate: 60,
	}, {
		title:  "no fallback",
		path:   "/users/a/b",
		page:   "/users/[...user]",
		status: manifest.Missing,
	}, {
		title:  "no fallback but built",
		path:   "/users/built/path",
		page:   "/users/[...user]",
		status: manifest.Built,
	}, {
		title:  "not prerendered",
		path:   "/terms",
		page:   "/terms",
		status: manifest.NotPrerendered,
	}} {
		t.Run(test.title, func(t *testing.T) {
			s, r := p.Status(test.path, test.page)
			assert.Equal(t, test.status, s, s.String())
			assert.Equal(t, test.revalidate, r)
		})
	}
}

func TestPrerenderFallbackTypes(t *testing.T) {
	p, err := manifest.ParsePrerender([]byte(`{
		"version": 2,
		"routes": {},
		"dynamicRoutes": {
			"/fallback/[slug]": {"fallback": "/fallback/[slug].html"},
			"/blocking/[slug]": {"fallback": null},
			"/none/[slug]": {"fallback": false}
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, manifest.FallbackStatic, p.DynamicRoutes["/fallback/[slug]"].Type)
	assert.Equal(t, manifest.FallbackBlocking, p.DynamicRoutes["/blocking/[slug]"].Type)
	assert.Equal(t, manifest.FallbackNone, p.DynamicRoutes["/none/[slug]"].Type)
	assert.Equal(t, "blocking", manifest.FallbackBlocking.String())

	s, _ := p.Status("/blocking/x", "/blocking/[slug]")
	assert.Equal(t, manifest.Pending, s)
}

func TestPrerenderInvalid(t *testing.T) {
	for _, doc := range []string{
		`{"routes": {"/a": {"initialRevalidateSeconds": "soon"}}}`,
		`{"dynamicRoutes": {"/a/[b]": {"fallback": 42}}}`,
		`{"routes": `,
	} {
		_, err := manifest.ParsePrerender([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestNilPrerender(t *testing.T) {
	var p *manifest.Prerender
	s, r := p.Status("/a", "/a")
	assert.Equal(t, manifest.NotPrerendered, s)
	assert.Zero(t, r)

	s, _ = manifest.EmptyPrerender().Status("/a", "/a")
	assert.Equal(t, manifest.NotPrerendered, s)
}
