package manifest

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// ConditionType names the request attribute checked by a rule condition.
type ConditionType string

const (
	ConditionHeader ConditionType = "header"
	ConditionCookie ConditionType = "cookie"
	ConditionQuery  ConditionType = "query"
	ConditionHost   ConditionType = "host"
)

var (
	errInvalidSource        = errors.New("rule source must start with /")
	errInvalidParam         = errors.New("invalid rule parameter")
	errMissingDestination   = errors.New("redirect without destination")
	errInvalidRedirectCode  = errors.New("invalid redirect status code")
	errInvalidConditionType = errors.New("invalid condition type")
	errMissingConditionKey  = errors.New("condition without key")
	errInvalidHeader        = errors.New("invalid header")
)

var destinationParamRx = regexp.MustCompile(`:([A-Za-z0-9_]+)[*+?]?`)

// Condition is an additional requirement of a redirect rule. When Value
// is empty, only the presence of the attribute is checked, otherwise the
// value has to match completely.
type Condition struct {
	Type  ConditionType `json:"type"`
	Key   string        `json:"key,omitempty"`
	Value string        `json:"value,omitempty"`

	rx *regexp.Regexp
}

// RedirectRule is a custom redirect declared by the application.
type RedirectRule struct {
	Source      string
	Destination string
	StatusCode  int
	Conditions  []*Condition

	source *sourcePattern
}

// Header is a single response header set by a header rule.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HeaderRule sets response headers on the paths matching its source.
type HeaderRule struct {
	Source  string
	Headers []Header

	source *sourcePattern
}

type sourcePattern struct {
	rx     *regexp.Regexp
	params []string
}

// compiles the path-to-regexp style sources used by redirect and header
// rules: /blog/:slug, /docs/:path*, /:path+
func compileSource(source string) (*sourcePattern, error) {
	if source == "" || source[0] != '/' {
		return nil, errInvalidSource
	}

	var (
		sp sourcePattern
		rx strings.Builder
	)

	rx.WriteString("^")
	if source != "/" {
		parts := strings.Split(source[1:], "/")
		for i, part := range parts {
			if !strings.HasPrefix(part, ":") {
				rx.WriteString("/")
				rx.WriteString(regexp.QuoteMeta(part))
				continue
			}

			name := part[1:]
			modifier := byte(0)
			if n := len(name); n > 0 && (name[n-1] == '*' || name[n-1] == '+' || name[n-1] == '?') {
				modifier = name[n-1]
				name = name[:n-1]
			}

			if !segmentNameRx.MatchString(name) {
				return nil, fmt.Errorf("%w: %s", errInvalidParam, part)
			}

			if modifier != 0 && modifier != '?' && i != len(parts)-1 {
				return nil, fmt.Errorf("%w: %s must be last", errInvalidParam, part)
			}

			switch modifier {
			case '*':
				rx.WriteString("(?:/(.+))?")
			case '+':
				rx.WriteString("/(.+)")
			case '?':
				rx.WriteString("(?:/([^/]+))?")
			default:
				rx.WriteString("/([^/]+)")
			}

			sp.params = append(sp.params, name)
		}
	} else {
		rx.WriteString("/")
	}

	rx.WriteString("$")
	compiled, err := regexp.Compile(rx.String())
	if err != nil {
		return nil, err
	}

	sp.rx = compiled
	return &sp, nil
}

func (sp *sourcePattern) match(p string) (map[string]string, bool) {
	m := sp.rx.FindStringSubmatch(p)
	if m == nil {
		return nil, false
	}

	params := make(map[string]string, len(sp.params))
	for i, name := range sp.params {
		params[name] = m[i+1]
	}

	return params, true
}

func newCondition(c *Condition) (*Condition, error) {
	switch c.Type {
	case ConditionHeader, ConditionCookie, ConditionQuery:
		if c.Key == "" {
			return nil, errMissingConditionKey
		}
	case ConditionHost:
	default:
		return nil, fmt.Errorf("%w: %q", errInvalidConditionType, c.Type)
	}

	cc := *c
	if c.Value != "" {
		rx, err := regexp.Compile("^(?:" + c.Value + ")$")
		if err != nil {
			return nil, err
		}

		cc.rx = rx
	}

	if cc.Type == ConditionHeader {
		cc.Key = strings.ToLower(cc.Key)
	}

	return &cc, nil
}

// Matches checks a request attribute against the condition. The present
// argument tells whether the attribute exists in the request.
func (c *Condition) Matches(value string, present bool) bool {
	if !present {
		return false
	}

	if c.rx == nil {
		return true
	}

	return c.rx.MatchString(value)
}

func newRedirectRule(d redirectDoc) (*RedirectRule, error) {
	sp, err := compileSource(d.Source)
	if err != nil {
		return nil, fmt.Errorf("redirect %s: %w", d.Source, err)
	}

	if d.Destination == "" {
		return nil, fmt.Errorf("redirect %s: %w", d.Source, errMissingDestination)
	}

	code := d.StatusCode
	if code == 0 {
		code = http.StatusTemporaryRedirect
		if d.Permanent == nil || *d.Permanent {
			code = http.StatusPermanentRedirect
		}
	}

	if code < 300 || code > 399 {
		return nil, fmt.Errorf("redirect %s: %w: %d", d.Source, errInvalidRedirectCode, code)
	}

	r := &RedirectRule{
		Source:      d.Source,
		Destination: d.Destination,
		StatusCode:  code,
		source:      sp,
	}

	for i := range d.Has {
		c, err := newCondition(&d.Has[i])
		if err != nil {
			return nil, fmt.Errorf("redirect %s: %w", d.Source, err)
		}

		r.Conditions = append(r.Conditions, c)
	}

	return r, nil
}

// Match matches a path relative to the base path and without locale
// against the rule source, returning the captured parameters.
func (r *RedirectRule) Match(p string) (map[string]string, bool) {
	return r.source.match(p)
}

// Location substitutes the captured parameters in the destination.
// Parameters not captured by the source are left untouched.
func (r *RedirectRule) Location(params map[string]string) string {
	return destinationParamRx.ReplaceAllStringFunc(r.Destination, func(token string) string {
		name := destinationParamRx.FindStringSubmatch(token)[1]
		if v, ok := params[name]; ok {
			return v
		}

		return token
	})
}

func newHeaderRule(d headerDoc) (*HeaderRule, error) {
	sp, err := compileSource(d.Source)
	if err != nil {
		return nil, fmt.Errorf("headers %s: %w", d.Source, err)
	}

	for _, h := range d.Headers {
		if !httpguts.ValidHeaderFieldName(h.Key) || !httpguts.ValidHeaderFieldValue(h.Value) {
			return nil, fmt.Errorf("headers %s: %w: %q", d.Source, errInvalidHeader, h.Key)
		}
	}

	return &HeaderRule{Source: d.Source, Headers: d.Headers, source: sp}, nil
}

// Matches tells whether the rule applies to a path relative to the base
// path and without locale.
func (r *HeaderRule) Matches(p string) bool {
	return r.source.rx.MatchString(p)
}
