package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
	"sigs.k8s.io/yaml"
)

// SupportedVersion is the version of the route manifest document
// understood by this package.
const SupportedVersion = 1

var (
	errUnsupportedVersion = errors.New("unsupported manifest version")
	errMissingBuildID     = errors.New("missing buildId")
	errInvalidBasePath    = errors.New("base path must start and must not end with /")
	errDuplicatePage      = errors.New("duplicate page")
	errMissingArtifact    = errors.New("page without html and compute entry")
	errInvalidLocales     = errors.New("invalid i18n configuration")
	errInvalidPublicFile  = errors.New("public file must start with /")
)

type routeDoc struct {
	Page    string `json:"page"`
	HTML    string `json:"html,omitempty"`
	Compute string `json:"compute,omitempty"`
}

type redirectDoc struct {
	Source      string      `json:"source"`
	Destination string      `json:"destination"`
	StatusCode  int         `json:"statusCode,omitempty"`
	Permanent   *bool       `json:"permanent,omitempty"`
	Has         []Condition `json:"has,omitempty"`
}

type headerDoc struct {
	Source  string   `json:"source"`
	Headers []Header `json:"headers"`
}

type document struct {
	Version       int           `json:"version"`
	BuildID       string        `json:"buildId"`
	BasePath      string        `json:"basePath"`
	TrailingSlash bool          `json:"trailingSlash"`
	I18n          *I18n         `json:"i18n,omitempty"`
	StaticRoutes  []routeDoc    `json:"staticRoutes"`
	DynamicRoutes []routeDoc    `json:"dynamicRoutes"`
	PublicFiles   []string      `json:"publicFiles"`
	Redirects     []redirectDoc `json:"redirects"`
	Headers       []headerDoc   `json:"headers"`
}

// Overrides replace settings of the route manifest with values from the
// process configuration. They are applied before validation, the
// resulting Manifest is immutable.
type Overrides struct {

	// BasePath replaces the base path when not empty.
	BasePath string

	// TrailingSlash replaces the trailing slash policy when not nil.
	TrailingSlash *bool

	// DefaultLocale and Locales replace the i18n settings when Locales
	// is not empty.
	DefaultLocale string
	Locales       []string
}

func fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// converts YAML or JSON input to JSON, and checks the document version
func toJSON(data []byte, supported int) ([]byte, int, error) {
	j, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, 0, err
	}

	v := gjson.GetBytes(j, "version")
	if !v.Exists() {
		return j, supported, nil
	}

	if supported > 0 && v.Int() != int64(supported) {
		return nil, 0, fmt.Errorf("%w: %s", errUnsupportedVersion, v.Raw)
	}

	return j, int(v.Int()), nil
}

func validateBasePath(p string) error {
	if p == "" {
		return nil
	}

	if p[0] != '/' || strings.HasSuffix(p, "/") {
		return fmt.Errorf("%w: %q", errInvalidBasePath, p)
	}

	return nil
}

func validateI18n(i *I18n) error {
	if i == nil {
		return nil
	}

	if len(i.Locales) == 0 {
		return fmt.Errorf("%w: no locales", errInvalidLocales)
	}

	found := false
	for _, l := range i.Locales {
		if l == "" || strings.Contains(l, "/") {
			return fmt.Errorf("%w: invalid locale %q", errInvalidLocales, l)
		}

		if _, err := language.Parse(l); err != nil {
			log.Warnf("locale %q is not a valid BCP 47 language tag: %v", l, err)
		}

		if l == i.DefaultLocale {
			found = true
		}
	}

	if !found {
		return fmt.Errorf("%w: default locale %q not in the locales", errInvalidLocales, i.DefaultLocale)
	}

	return nil
}

func (o Overrides) apply(doc *document) {
	if o.BasePath != "" {
		doc.BasePath = o.BasePath
	}

	if o.TrailingSlash != nil {
		doc.TrailingSlash = *o.TrailingSlash
	}

	if len(o.Locales) > 0 {
		doc.I18n = &I18n{
			DefaultLocale: o.DefaultLocale,
			Locales:       o.Locales,
		}
	}
}

func newRoute(d routeDoc) (*Route, error) {
	if d.HTML == "" && d.Compute == "" {
		return nil, fmt.Errorf("%s: %w", d.Page, errMissingArtifact)
	}

	p, err := compilePattern(d.Page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Page, err)
	}

	return &Route{
		Page:    d.Page,
		HTML:    d.HTML,
		Compute: d.Compute,
		Pattern: p,
	}, nil
}

func dataPath(buildID, page string) string {
	if page == "/" {
		page = "/index"
	}

	return DataPathPrefix + "/" + buildID + page + ".json"
}

// Parse parses a route manifest document, in JSON or YAML format.
func Parse(data []byte) (*Manifest, error) {
	return ParseWithOverrides(data, Overrides{})
}

// ParseWithOverrides parses a route manifest document and applies the
// overrides before validating it.
func ParseWithOverrides(data []byte, o Overrides) (*Manifest, error) {
	j, version, err := toJSON(data, SupportedVersion)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(j, &doc); err != nil {
		return nil, err
	}

	o.apply(&doc)

	if doc.BuildID == "" {
		return nil, errMissingBuildID
	}

	if err := validateBasePath(doc.BasePath); err != nil {
		return nil, err
	}

	if err := validateI18n(doc.I18n); err != nil {
		return nil, err
	}

	m := &Manifest{
		Version:       version,
		BuildID:       doc.BuildID,
		BasePath:      doc.BasePath,
		TrailingSlash: doc.TrailingSlash,
		I18n:          doc.I18n,
		StaticRoutes:  make(map[string]*Route, len(doc.StaticRoutes)),
		PublicFiles:   make(map[string]bool, len(doc.PublicFiles)),
		Fingerprint:   fingerprint(data),
	}

	pages := make(map[string]bool)
	for _, d := range doc.StaticRoutes {
		if pages[d.Page] {
			return nil, fmt.Errorf("%w: %s", errDuplicatePage, d.Page)
		}

		r, err := newRoute(d)
		if err != nil {
			return nil, err
		}

		if r.IsDynamic() {
			return nil, fmt.Errorf("%s: %w", d.Page, errUnexpectedDynamic)
		}

		pages[d.Page] = true
		m.StaticRoutes[d.Page] = r
		m.DataRoutes = append(m.DataRoutes, DataRoute{Path: dataPath(m.BuildID, d.Page), Page: d.Page})
	}

	for _, d := range doc.DynamicRoutes {
		if pages[d.Page] {
			return nil, fmt.Errorf("%w: %s", errDuplicatePage, d.Page)
		}

		r, err := newRoute(d)
		if err != nil {
			return nil, err
		}

		if !r.IsDynamic() {
			return nil, fmt.Errorf("%s: %w", d.Page, errNoDynamicSegment)
		}

		pages[d.Page] = true
		m.DynamicRoutes = append(m.DynamicRoutes, r)
		m.DataRoutes = append(m.DataRoutes, DataRoute{Path: dataPath(m.BuildID, d.Page), Page: d.Page})
	}

	m.singleSegment, m.catchAll = orderDynamicRoutes(m.DynamicRoutes)
	m.dataPages = make(map[string]string, len(m.StaticRoutes))
	for _, dr := range m.DataRoutes {
		if _, ok := m.StaticRoutes[dr.Page]; ok {
			m.dataPages[dr.Path] = dr.Page
		}
	}

	for _, f := range doc.PublicFiles {
		if f == "" || f[0] != '/' {
			return nil, fmt.Errorf("%w: %q", errInvalidPublicFile, f)
		}

		m.PublicFiles[f] = true
	}

	for _, d := range doc.Redirects {
		r, err := newRedirectRule(d)
		if err != nil {
			return nil, err
		}

		m.Redirects = append(m.Redirects, r)
	}

	for _, d := range doc.Headers {
		r, err := newHeaderRule(d)
		if err != nil {
			return nil, err
		}

		m.Headers = append(m.Headers, r)
	}

	return m, nil
}

// ParsePrerender parses a prerender manifest document, in JSON or YAML
// format.
func ParsePrerender(data []byte) (*Prerender, error) {
	j, _, err := toJSON(data, 0)
	if err != nil {
		return nil, err
	}

	var doc prerenderDoc
	if err := json.Unmarshal(j, &doc); err != nil {
		return nil, err
	}

	p, err := newPrerender(&doc)
	if err != nil {
		return nil, err
	}

	p.Fingerprint = fingerprint(data)
	return p, nil
}
