package routing

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/edgerouter/manifest"
	"github.com/zalando/edgerouter/manifest/manifesttest"
)

type expectedMatch struct {
	Kind      Kind
	Page      string
	Path      string
	Locale    string
	Localized bool
	Params    map[string]string
	CatchAll  []string
	Data      bool
}

func toExpected(m *Match) expectedMatch {
	e := expectedMatch{
		Kind:      m.Kind,
		Path:      m.Path,
		Locale:    m.Locale,
		Localized: m.Localized,
		Params:    m.Params,
		CatchAll:  m.CatchAll,
		Data:      m.Data,
	}

	if m.Route != nil {
		e.Page = m.Route.Page
	}

	return e
}

func TestLookup(t *testing.T) {
	m := manifesttest.Manifest(t, manifesttest.WithBasePath())

	for _, test := range []struct {
		path     string
		expected *expectedMatch
	}{{
		path:     "/",
		expected: &expectedMatch{Kind: StaticPage, Page: "/", Path: "/"},
	}, {
		path:     "/en",
		expected: &expectedMatch{Kind: StaticPage, Page: "/", Path: "/", Locale: "en"},
	}, {
		path:     "/en/terms",
		expected: &expectedMatch{Kind: StaticPage, Page: "/terms", Path: "/terms", Locale: "en"},
	}, {
		path:     "/nl/404",
		expected: &expectedMatch{Kind: StaticPage, Page: "/nl/404", Path: "/404", Locale: "nl", Localized: true},
	}, {
		path:     "/en/404",
		expected: &expectedMatch{Kind: StaticPage, Page: "/404", Path: "/404", Locale: "en"},
	}, {
		path:     "/favicon.ico",
		expected: &expectedMatch{Kind: PublicFile, Path: "/favicon.ico"},
	}, {
		path: "/en/users/batman",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/users/[user]",
			Path:   "/users/batman",
			Locale: "en",
			Params: map[string]string{"user": "batman"},
		},
	}, {
		path: "/users/bat%20man",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/users/[user]",
			Path:   "/users/bat%20man",
			Params: map[string]string{"user": "bat man"},
		},
	}, {
		path: "/users/%zz",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/users/[user]",
			Path:   "/users/%zz",
			Params: map[string]string{"user": "%zz"},
		},
	}, {
		path: "/users/a/b",
		expected: &expectedMatch{
			Kind:     CatchAllPage,
			Page:     "/users/[...user]",
			Path:     "/users/a/b",
			Params:   map[string]string{"user": "a/b"},
			CatchAll: []string{"a", "b"},
		},
	}, {
		path: "/john/42",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/[username]/[id]",
			Path:   "/john/42",
			Params: map[string]string{"username": "john", "id": "42"},
		},
	}, {
		path: "/batman",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/[root]",
			Path:   "/batman",
			Params: map[string]string{"root": "batman"},
		},
	}, {
		path: "/blog/1",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/blog/[id]",
			Path:   "/blog/1",
			Params: map[string]string{"id": "1"},
		},
	}, {
		path: "/en/customers/test/catch/all",
		expected: &expectedMatch{
			Kind:     CatchAllPage,
			Page:     "/customers/[...catchAll]",
			Path:     "/customers/test/catch/all",
			Locale:   "en",
			Params:   map[string]string{"catchAll": "test/catch/all"},
			CatchAll: []string{"test", "catch", "all"},
		},
	}, {
		path: "/customers/superman",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/customers/[customer]",
			Path:   "/customers/superman",
			Params: map[string]string{"customer": "superman"},
		},
	}, {
		path: "/customers/superman/profile",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/customers/[customer]/profile",
			Path:   "/customers/superman/profile",
			Params: map[string]string{"customer": "superman"},
		},
	}, {
		path: "/customers/superman/post-1",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/customers/[customer]/[post]",
			Path:   "/customers/superman/post-1",
			Params: map[string]string{"customer": "superman", "post": "post-1"},
		},
	}, {
		path:     "/customers",
		expected: &expectedMatch{Kind: StaticPage, Page: "/customers", Path: "/customers"},
	}, {
		path: "/docs",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/[root]",
			Path:   "/docs",
			Params: map[string]string{"root": "docs"},
		},
	}, {
		path: "/docs/a/b%2Fc",
		expected: &expectedMatch{
			Kind:     CatchAllPage,
			Page:     "/docs/[[...slug]]",
			Path:     "/docs/a/b%2Fc",
			Params:   map[string]string{"slug": "a/b/c"},
			CatchAll: []string{"a", "b/c"},
		},
	}, {
		path: "/api/users/1",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/api/users/[id]",
			Path:   "/api/users/1",
			Params: map[string]string{"id": "1"},
		},
	}, {
		path: "/_next/data/build-id/customers/superman.json",
		expected: &expectedMatch{
			Kind:   DynamicPage,
			Page:   "/customers/[customer]",
			Path:   "/customers/superman",
			Params: map[string]string{"customer": "superman"},
			Data:   true,
		},
	}, {
		path:     "/_next/data/build-id/index.json",
		expected: &expectedMatch{Kind: StaticPage, Page: "/", Path: "/", Data: true},
	}, {
		path:     "/_next/data/build-id/nl.json",
		expected: &expectedMatch{Kind: StaticPage, Page: "/", Path: "/", Locale: "nl", Data: true},
	}, {
		path:     "/_next/data/build-id/nl/terms.json",
		expected: &expectedMatch{Kind: StaticPage, Page: "/terms", Path: "/terms", Locale: "nl", Data: true},
	}, {
		path:     "/_next/data/build-id",
		expected: &expectedMatch{Kind: StaticPage, Page: "/", Path: "/", Data: true},
	}, {
		path: "/_next/data/other-build/terms.json",
	}, {
		path: "/_next/data/build-id/terms",
	}, {
		path: "/_next/data",
	}, {
		path: "/page/does/not/exist",
	}} {
		t.Run(test.path, func(t *testing.T) {
			rm, ok := Lookup(test.path, m)
			if test.expected == nil {
				assert.False(t, ok)
				assert.Nil(t, rm)
				return
			}

			require.True(t, ok)
			if diff := cmp.Diff(*test.expected, toExpected(rm), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("unexpected match (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDataPath(t *testing.T) {
	m := manifesttest.Manifest(t, manifesttest.WithBasePath())

	for p, dataPath := range map[string]string{
		"/_next/data/build-id":                         "/_next/data/build-id/index.json",
		"/_next/data/build-id/index.json":              "/_next/data/build-id/index.json",
		"/_next/data/build-id/terms.json":              "/_next/data/build-id/terms.json",
		"/_next/data/build-id/nl/terms.json":           "/_next/data/build-id/nl/terms.json",
		"/_next/data/build-id/customers/superman.json": "/_next/data/build-id/customers/superman.json",
	} {
		rm, ok := Lookup(p, m)
		require.True(t, ok, p)
		assert.True(t, rm.Data, p)
		assert.Equal(t, dataPath, rm.DataPath, p)
	}

	rm, ok := Lookup("/terms", m)
	require.True(t, ok)
	assert.Empty(t, rm.DataPath)
}

func TestOptionalCatchAll(t *testing.T) {
	m, err := manifest.Parse([]byte(`{
		"buildId": "b",
		"dynamicRoutes": [
			{"page": "/docs/[[...slug]]", "compute": "pages/docs/[[...slug]].js"},
			{"page": "/[[...all]]", "compute": "pages/[[...all]].js"}
		]
	}`))
	require.NoError(t, err)

	for _, test := range []struct {
		path     string
		page     string
		catchAll []string
	}{
		{"/docs", "/docs/[[...slug]]", []string{}},
		{"/docs/a", "/docs/[[...slug]]", []string{"a"}},
		{"/", "/[[...all]]", []string{}},
		{"/a/b", "/[[...all]]", []string{"a", "b"}},
	} {
		rm, ok := Lookup(test.path, m)
		require.True(t, ok, test.path)
		assert.Equal(t, CatchAllPage, rm.Kind, test.path)
		assert.Equal(t, test.page, rm.Route.Page, test.path)
		assert.Equal(t, test.path, rm.Path, test.path)
		assert.Equal(t, test.catchAll, rm.CatchAll, test.path)
	}
}

// routes of the sample manifest, in a different declaration order
func reorderedManifest(t *testing.T, catchAllFirst bool) *manifest.Manifest {
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(manifesttest.Routes), &doc))

	sample := manifesttest.Manifest(t, manifest.Overrides{})
	isCatchAll := make(map[string]bool)
	for _, r := range sample.CatchAllRoutes() {
		isCatchAll[r.Page] = true
	}

	var single, catchAll []interface{}
	for _, r := range doc["dynamicRoutes"].([]interface{}) {
		page := r.(map[string]interface{})["page"].(string)
		if isCatchAll[page] {
			catchAll = append(catchAll, r)
		} else {
			single = append(single, r)
		}
	}

	if catchAllFirst {
		doc["dynamicRoutes"] = append(catchAll, single...)
	} else {
		doc["dynamicRoutes"] = append(single, catchAll...)
	}

	b, err := json.Marshal(doc)
	require.NoError(t, err)

	m, err := manifest.Parse(b)
	require.NoError(t, err)
	return m
}

func TestCatchAllNeverShadows(t *testing.T) {
	first := reorderedManifest(t, true)
	last := reorderedManifest(t, false)

	for _, p := range []string{
		"/",
		"/terms",
		"/users/batman",
		"/users/a/b",
		"/customers",
		"/customers/superman",
		"/customers/superman/profile",
		"/customers/superman/post",
		"/customers/a/b/c",
		"/docs",
		"/docs/x",
		"/john/42",
		"/batman",
		"/page/does/not/exist",
	} {
		m1, ok1 := Lookup(p, first)
		m2, ok2 := Lookup(p, last)
		require.Equal(t, ok1, ok2, p)
		if !ok1 {
			continue
		}

		assert.Equal(t, toExpected(m1), toExpected(m2), p)
		if m1.Kind == CatchAllPage {
			for _, r := range first.SingleSegmentRoutes() {
				assert.False(t, r.Pattern.Regexp.MatchString(p), "%s shadowed %s", m1.Route.Page, r.Page)
			}
		}
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "static", StaticPage.String())
	assert.Equal(t, "dynamic", DynamicPage.String())
	assert.Equal(t, "catch-all", CatchAllPage.String())
	assert.Equal(t, "public", PublicFile.String())
}
