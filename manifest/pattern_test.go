package manifest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern(t *testing.T) {
	for _, test := range []struct {
		title    string
		page     string
		match    []string
		noMatch  []string
		segments []Segment
		literals int
		catchAll bool
		optional bool
		fail     error
	}{{
		title: "static page",
		page:  "/terms",
	}, {
		title:    "single segment",
		page:     "/users/[user]",
		match:    []string{"/users/batman"},
		noMatch:  []string{"/users", "/users/", "/users/a/b"},
		segments: []Segment{{Name: "user"}},
		literals: 1,
	}, {
		title:    "two segments",
		page:     "/[username]/[id]",
		match:    []string{"/john/42"},
		noMatch:  []string{"/john", "/john/42/x"},
		segments: []Segment{{Name: "username"}, {Name: "id"}},
	}, {
		title:    "catch-all",
		page:     "/customers/[...catchAll]",
		match:    []string{"/customers/a", "/customers/a/b/c"},
		noMatch:  []string{"/customers", "/customers/"},
		segments: []Segment{{Name: "catchAll", CatchAll: true}},
		literals: 1,
		catchAll: true,
	}, {
		title:    "optional catch-all",
		page:     "/docs/[[...slug]]",
		match:    []string{"/docs", "/docs/a", "/docs/a/b"},
		noMatch:  []string{"/doc", "/docsa"},
		segments: []Segment{{Name: "slug", CatchAll: true, Optional: true}},
		literals: 1,
		catchAll: true,
		optional: true,
	}, {
		title:    "root optional catch-all",
		page:     "/[[...all]]",
		match:    []string{"", "/a/b"},
		segments: []Segment{{Name: "all", CatchAll: true, Optional: true}},
		catchAll: true,
		optional: true,
	}, {
		title:   "literal with regexp characters",
		page:    "/a.b/[id]",
		match:   []string{"/a.b/1"},
		noMatch: []string{"/axb/1"},
		segments: []Segment{
			{Name: "id"},
		},
		literals: 1,
	}, {
		title: "catch-all not last",
		page:  "/[...all]/tail",
		fail:  errCatchAllNotLast,
	}, {
		title: "empty name",
		page:  "/users/[]",
		fail:  errEmptySegmentName,
	}, {
		title: "invalid name",
		page:  "/users/[a.b]",
		fail:  errInvalidSegmentName,
	}, {
		title: "partial segment",
		page:  "/users/prefix-[id]",
		fail:  errInvalidSegment,
	}, {
		title: "duplicate name",
		page:  "/[id]/[id]",
		fail:  errDuplicateSegment,
	}, {
		title: "relative page",
		page:  "users/[id]",
		fail:  errInvalidPage,
	}} {
		t.Run(test.title, func(t *testing.T) {
			p, err := compilePattern(test.page)
			if test.fail != nil {
				assert.True(t, errors.Is(err, test.fail), "got: %v", err)
				return
			}

			require.NoError(t, err)
			if test.segments == nil {
				assert.Nil(t, p)
				return
			}

			require.NotNil(t, p)
			if diff := cmp.Diff(test.segments, p.Segments); diff != "" {
				t.Errorf("invalid segments (-want +got):\n%s", diff)
			}

			assert.Equal(t, test.literals, p.Literals)
			assert.Equal(t, test.catchAll, p.CatchAll)
			assert.Equal(t, test.optional, p.Optional)

			for _, m := range test.match {
				assert.True(t, p.Regexp.MatchString(m), "expected match: %q", m)
			}

			for _, m := range test.noMatch {
				assert.False(t, p.Regexp.MatchString(m), "unexpected match: %q", m)
			}
		})
	}
}

func TestOrderDynamicRoutes(t *testing.T) {
	var routes []*Route
	for _, page := range []string{
		"/customers/[...catchAll]",
		"/[root]",
		"/users/[user]",
		"/[username]/[id]",
		"/docs/[[...slug]]",
		"/customers/[customer]/profile",
		"/[...all]",
		"/blog/[id]",
	} {
		r, err := newRoute(routeDoc{Page: page, Compute: "pages" + page + ".js"})
		require.NoError(t, err)
		routes = append(routes, r)
	}

	pages := func(rs []*Route) []string {
		var p []string
		for _, r := range rs {
			p = append(p, r.Page)
		}

		return p
	}

	single, catchAll := orderDynamicRoutes(routes)
	assert.Equal(t, []string{
		"/customers/[customer]/profile",
		"/users/[user]",
		"/blog/[id]",
		"/[root]",
		"/[username]/[id]",
	}, pages(single))

	assert.Equal(t, []string{
		"/customers/[...catchAll]",
		"/docs/[[...slug]]",
		"/[...all]",
	}, pages(catchAll))
}
