package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FallbackType tells how a path of a dynamic page is served when it was
// not prerendered during the build.
type FallbackType int

const (
	// FallbackBlocking renders the missing path on demand.
	FallbackBlocking FallbackType = iota

	// FallbackStatic marks a path that is not yet built: it still needs
	// to be rendered by the compute backend on the first request.
	FallbackStatic

	// FallbackNone answers not found for paths that were not built.
	FallbackNone
)

func (t FallbackType) String() string {
	switch t {
	case FallbackStatic:
		return "fallback"
	case FallbackNone:
		return "none"
	default:
		return "blocking"
	}
}

// PrerenderStatus is the state of a resolved page path in the prerender
// manifest.
type PrerenderStatus int

const (
	// NotPrerendered means that the page does not take part in
	// prerendering, its static artifact is served as is.
	NotPrerendered PrerenderStatus = iota

	// Built means that the artifact of the path exists.
	Built

	// Pending means that the path needs to be rendered on demand.
	Pending

	// Missing means that the path was not built and no fallback exists.
	Missing
)

func (s PrerenderStatus) String() string {
	switch s {
	case Built:
		return "built"
	case Pending:
		return "pending"
	case Missing:
		return "missing"
	default:
		return "not-prerendered"
	}
}

// PrerenderRoute is a path built during the prerendering.
type PrerenderRoute struct {

	// InitialRevalidateSeconds is zero when the artifact never expires.
	InitialRevalidateSeconds int
}

// PrerenderFallback is the fallback setting of a dynamic page.
type PrerenderFallback struct {
	Type                     FallbackType
	InitialRevalidateSeconds int
}

// Prerender is the in-memory representation of the prerender manifest.
// It is never modified after it was loaded.
type Prerender struct {
	Version       int
	Routes        map[string]PrerenderRoute
	DynamicRoutes map[string]PrerenderFallback
	Fingerprint   string
}

type prerenderRouteDoc struct {
	InitialRevalidateSeconds json.RawMessage `json:"initialRevalidateSeconds"`
	Fallback                 json.RawMessage `json:"fallback"`
}

type prerenderDoc struct {
	Version       int                          `json:"version"`
	Routes        map[string]prerenderRouteDoc `json:"routes"`
	DynamicRoutes map[string]prerenderRouteDoc `json:"dynamicRoutes"`
}

var jsonNull = []byte("null")

// revalidate seconds are either a number or false
func revalidateSeconds(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) || bytes.Equal(raw, []byte("false")) {
		return 0, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("invalid initialRevalidateSeconds: %s", raw)
	}

	return int(f), nil
}

// fallback is a string (fallback page), null (blocking) or false (none)
func fallbackType(raw json.RawMessage) (FallbackType, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, jsonNull):
		return FallbackBlocking, nil
	case bytes.Equal(raw, []byte("false")):
		return FallbackNone, nil
	case bytes.Equal(raw, []byte("true")) || raw[0] == '"':
		return FallbackStatic, nil
	default:
		return 0, fmt.Errorf("invalid fallback: %s", raw)
	}
}

func newPrerender(doc *prerenderDoc) (*Prerender, error) {
	p := &Prerender{
		Version:       doc.Version,
		Routes:        make(map[string]PrerenderRoute, len(doc.Routes)),
		DynamicRoutes: make(map[string]PrerenderFallback, len(doc.DynamicRoutes)),
	}

	for path, r := range doc.Routes {
		s, err := revalidateSeconds(r.InitialRevalidateSeconds)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", path, err)
		}

		p.Routes[path] = PrerenderRoute{InitialRevalidateSeconds: s}
	}

	for page, r := range doc.DynamicRoutes {
		t, err := fallbackType(r.Fallback)
		if err != nil {
			return nil, fmt.Errorf("dynamic route %s: %w", page, err)
		}

		s, err := revalidateSeconds(r.InitialRevalidateSeconds)
		if err != nil {
			return nil, fmt.Errorf("dynamic route %s: %w", page, err)
		}

		p.DynamicRoutes[page] = PrerenderFallback{Type: t, InitialRevalidateSeconds: s}
	}

	return p, nil
}

// EmptyPrerender returns a prerender manifest without entries, used when
// the application does not prerender any pages.
func EmptyPrerender() *Prerender {
	return &Prerender{
		Routes:        make(map[string]PrerenderRoute),
		DynamicRoutes: make(map[string]PrerenderFallback),
	}
}

// Status returns the prerender state of a resolved path, e.g.
// /blog/hello, of the page, e.g. /blog/[slug]. It also returns the
// revalidation period of the artifact, when any.
func (p *Prerender) Status(resolvedPath, page string) (PrerenderStatus, int) {
	if p == nil {
		return NotPrerendered, 0
	}

	if r, ok := p.Routes[resolvedPath]; ok {
		return Built, r.InitialRevalidateSeconds
	}

	f, ok := p.DynamicRoutes[page]
	if !ok {
		return NotPrerendered, 0
	}

	if f.Type == FallbackNone {
		return Missing, 0
	}

	return Pending, f.InitialRevalidateSeconds
}
