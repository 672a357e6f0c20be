package decision

import (
	"net"
	"net/url"
	"strings"

	"github.com/zalando/edgerouter/manifest"
	"github.com/zalando/edgerouter/pathnorm"
)

func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}

	return host
}

func conditionMet(c *manifest.Condition, r *Request, query url.Values) bool {
	switch c.Type {
	case manifest.ConditionHeader:
		for _, v := range r.Header[c.Key] {
			if c.Matches(v, true) {
				return true
			}
		}

		return false
	case manifest.ConditionCookie:
		v, ok := r.Cookies[c.Key]
		return c.Matches(v, ok)
	case manifest.ConditionQuery:
		v, ok := query[c.Key]
		if !ok {
			return false
		}

		for _, vi := range v {
			if c.Matches(vi, true) {
				return true
			}
		}

		return false
	case manifest.ConditionHost:
		return c.Matches(hostname(r.Host), r.Host != "")
	default:
		return false
	}
}

func conditionsMet(rule *manifest.RedirectRule, r *Request, rawQuery string) bool {
	if len(rule.Conditions) == 0 {
		return true
	}

	query, _ := url.ParseQuery(rawQuery)
	for _, c := range rule.Conditions {
		if !conditionMet(c, r, query) {
			return false
		}
	}

	return true
}

// the custom redirects apply to the page paths without the locale
func (b *Builder) customRedirect(r *Request, n pathnorm.Result) (*Redirect, bool) {
	if len(b.manifest.Redirects) == 0 ||
		manifest.IsDataPath(n.PagePath) ||
		pathnorm.IsAssetPath(n.PagePath) {
		return nil, false
	}

	_, p := b.manifest.SplitLocale(n.PagePath)
	for _, rule := range b.manifest.Redirects {
		params, ok := rule.Match(p)
		if !ok || !conditionsMet(rule, r, n.RawQuery) {
			continue
		}

		location := rule.Location(params)
		if strings.HasPrefix(location, "/") {
			location = b.manifest.BasePath + location
		}

		return &Redirect{Location: n.WithQuery(location), StatusCode: rule.StatusCode}, true
	}

	return nil, false
}

// HeadersFor returns the headers of the header rules matching the request
// URI, in declaration order.
func (b *Builder) HeadersFor(uri string) []manifest.Header {
	if len(b.manifest.Headers) == 0 {
		return nil
	}

	n := pathnorm.Normalize(uri, b.manifest)
	if n.OutsideBasePath {
		return nil
	}

	_, p := b.manifest.SplitLocale(n.PagePath)

	var h []manifest.Header
	for _, rule := range b.manifest.Headers {
		if rule.Matches(p) {
			h = append(h, rule.Headers...)
		}
	}

	return h
}
