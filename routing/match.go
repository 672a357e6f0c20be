package routing

import (
	"net/url"
	"strings"

	"github.com/zalando/edgerouter/manifest"
)

// Kind tells which rule matched the path.
type Kind int

const (
	StaticPage Kind = iota
	DynamicPage
	CatchAllPage
	PublicFile
)

func (k Kind) String() string {
	switch k {
	case DynamicPage:
		return "dynamic"
	case CatchAllPage:
		return "catch-all"
	case PublicFile:
		return "public"
	default:
		return "static"
	}
}

// Match is the result of a successful lookup.
type Match struct {
	Kind Kind

	// Route is the matched page. Nil for public files.
	Route *manifest.Route

	// Path is the resolved path relative to the base path, without the
	// locale, e.g. /users/batman. For data requests, it is the path of
	// the page providing the data.
	Path string

	// Locale is the locale prefix of the path, when any.
	Locale string

	// Localized is set when the matched static page is the localized
	// variant, e.g. /nl/404.
	Localized bool

	// Params contains the unescaped values of the dynamic segments.
	// Catch-all values are joined with /.
	Params map[string]string

	// CatchAll contains the unescaped segments captured by a catch-all
	// segment. Empty for an optional catch-all matching its parent.
	CatchAll []string

	// Data is set for data requests.
	Data bool

	// DataPath is the path of the data object of a data request,
	// relative to the base path, e.g. /_next/data/build-id/index.json.
	DataPath string
}

func unescape(s string) string {
	u, err := url.PathUnescape(s)
	if err != nil {
		return s
	}

	return u
}

func matchStatic(p, locale, rest string, m *manifest.Manifest) (*Match, bool) {
	if r, ok := m.Page(p); ok {
		return &Match{Kind: StaticPage, Route: r, Path: rest, Locale: locale, Localized: locale != ""}, true
	}

	if locale == "" {
		return nil, false
	}

	if r, ok := m.Page(rest); ok {
		return &Match{Kind: StaticPage, Route: r, Path: rest, Locale: locale}, true
	}

	return nil, false
}

func newDynamicMatch(r *manifest.Route, captures []string, rest, locale string) *Match {
	k := DynamicPage
	if r.Pattern.CatchAll {
		k = CatchAllPage
	}

	dm := &Match{
		Kind:   k,
		Route:  r,
		Path:   rest,
		Locale: locale,
		Params: make(map[string]string, len(r.Pattern.Segments)),
	}

	for i, s := range r.Pattern.Segments {
		raw := captures[i+1]
		if !s.CatchAll {
			dm.Params[s.Name] = unescape(raw)
			continue
		}

		dm.CatchAll = []string{}
		if raw != "" {
			for _, si := range strings.Split(raw, "/") {
				dm.CatchAll = append(dm.CatchAll, unescape(si))
			}
		}

		dm.Params[s.Name] = strings.Join(dm.CatchAll, "/")
	}

	return dm
}

func matchDynamic(rest, locale string, m *manifest.Manifest) (*Match, bool) {
	// the optional catch-all of the root page matches the empty path
	subject := rest
	if subject == "/" {
		subject = ""
	}

	for _, group := range [][]*manifest.Route{m.SingleSegmentRoutes(), m.CatchAllRoutes()} {
		for _, r := range group {
			if captures := r.Pattern.Regexp.FindStringSubmatch(subject); captures != nil {
				return newDynamicMatch(r, captures, rest, locale), true
			}
		}
	}

	return nil, false
}

func matchPage(p string, m *manifest.Manifest) (*Match, bool) {
	locale, rest := m.SplitLocale(p)
	if pm, ok := matchStatic(p, locale, rest, m); ok {
		return pm, true
	}

	return matchDynamic(rest, locale, m)
}

// returns the page path of a data request of the current build, and the
// path of its data object
func dataPagePath(p string, m *manifest.Manifest) (string, string, bool) {
	// the bare prefix is the data of the index page
	if p == m.DataPrefix() {
		return "/", m.DataPrefix() + "/index.json", true
	}

	prefix := m.DataPrefix() + "/"
	if !strings.HasPrefix(p, prefix) || !strings.HasSuffix(p, ".json") {
		return "", "", false
	}

	if page, ok := m.DataPage(p); ok {
		return page, p, true
	}

	page := strings.TrimSuffix(p[len(prefix)-1:], ".json")
	if page == "/" || page == "/index" {
		return "/", p, true
	}

	locale, rest := m.SplitLocale(page)
	if locale != "" && rest == "/index" {
		return "/" + locale, p, true
	}

	return page, p, true
}

// Lookup finds the page serving a normalized path relative to the base
// path, as returned in pathnorm.Result.PagePath. The manifest is only
// read.
func Lookup(p string, m *manifest.Manifest) (*Match, bool) {
	if manifest.IsDataPath(p) {
		page, dataPath, ok := dataPagePath(p, m)
		if !ok {
			return nil, false
		}

		dm, ok := matchPage(page, m)
		if !ok {
			return nil, false
		}

		dm.Data = true
		dm.DataPath = dataPath
		return dm, true
	}

	locale, rest := m.SplitLocale(p)
	if sm, ok := matchStatic(p, locale, rest, m); ok {
		return sm, true
	}

	if m.IsPublicFile(p) {
		return &Match{Kind: PublicFile, Path: p}, true
	}

	return matchDynamic(rest, locale, m)
}
