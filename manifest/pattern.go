package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	errInvalidPage        = errors.New("page must start with /")
	errCatchAllNotLast    = errors.New("catch-all segment must be the last segment")
	errEmptySegmentName   = errors.New("empty dynamic segment name")
	errInvalidSegmentName = errors.New("invalid dynamic segment name")
	errInvalidSegment     = errors.New("invalid dynamic segment")
	errDuplicateSegment   = errors.New("duplicate dynamic segment name")
	errNoDynamicSegment   = errors.New("dynamic route without dynamic segment")
	errUnexpectedDynamic  = errors.New("static route with dynamic segment")
)

var segmentNameRx = regexp.MustCompile(`^[A-Za-z0-9_$-]+$`)

// Segment is a dynamic segment of a page pattern.
type Segment struct {
	Name string

	// CatchAll is set for [...name] and [[...name]] segments.
	CatchAll bool

	// Optional is set for [[...name]] segments, matching also zero path
	// segments.
	Optional bool
}

// Pattern is the compiled form of a dynamic page path.
type Pattern struct {

	// Regexp matches a complete path. The capturing groups correspond to
	// the Segments in order. The optional catch-all pattern of the root
	// page matches the empty string instead of /.
	Regexp *regexp.Regexp

	Segments []Segment

	// Literals is the number of non-dynamic segments.
	Literals int

	// CatchAll is set when the last segment is a catch-all segment.
	CatchAll bool

	// Optional is set when the last segment is an optional catch-all
	// segment.
	Optional bool
}

func isDynamicToken(s string) bool {
	return strings.ContainsAny(s, "[]")
}

func segmentName(name string) (string, error) {
	if name == "" {
		return "", errEmptySegmentName
	}

	if !segmentNameRx.MatchString(name) {
		return "", fmt.Errorf("%w: %s", errInvalidSegmentName, name)
	}

	return name, nil
}

// compilePattern compiles a page path like /blog/[id]/[...rest] into a
// Pattern. Returns nil and no error for pages without dynamic segments.
func compilePattern(page string) (*Pattern, error) {
	if page == "" || page[0] != '/' {
		return nil, errInvalidPage
	}

	if !isDynamicToken(page) {
		return nil, nil
	}

	var (
		p     Pattern
		rx    strings.Builder
		names = make(map[string]bool)
	)

	rx.WriteString("^")
	parts := strings.Split(page[1:], "/")
	for i, part := range parts {
		last := i == len(parts)-1

		var (
			s   Segment
			err error
		)

		switch {
		case strings.HasPrefix(part, "[[...") && strings.HasSuffix(part, "]]"):
			s.Name, err = segmentName(part[5 : len(part)-2])
			s.CatchAll, s.Optional = true, true
			rx.WriteString("(?:/(.+))?")
		case strings.HasPrefix(part, "[...") && strings.HasSuffix(part, "]"):
			s.Name, err = segmentName(part[4 : len(part)-1])
			s.CatchAll = true
			rx.WriteString("/(.+)")
		case strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]"):
			s.Name, err = segmentName(part[1 : len(part)-1])
			rx.WriteString("/([^/]+)")
		case isDynamicToken(part):
			return nil, fmt.Errorf("%w: %s", errInvalidSegment, part)
		default:
			p.Literals++
			rx.WriteString("/")
			rx.WriteString(regexp.QuoteMeta(part))
			continue
		}

		if err != nil {
			return nil, err
		}

		if s.CatchAll && !last {
			return nil, errCatchAllNotLast
		}

		if names[s.Name] {
			return nil, fmt.Errorf("%w: %s", errDuplicateSegment, s.Name)
		}

		names[s.Name] = true
		p.Segments = append(p.Segments, s)
		p.CatchAll = s.CatchAll
		p.Optional = s.Optional
	}

	rx.WriteString("$")
	compiled, err := regexp.Compile(rx.String())
	if err != nil {
		return nil, err
	}

	p.Regexp = compiled
	return &p, nil
}

type routesByPrecedence []*Route

func (rs routesByPrecedence) Len() int      { return len(rs) }
func (rs routesByPrecedence) Swap(i, j int) { rs[i], rs[j] = rs[j], rs[i] }
func (rs routesByPrecedence) Less(i, j int) bool {
	return rs[i].Pattern.Literals > rs[j].Pattern.Literals
}

// splits the dynamic routes into the single segment and the catch-all
// groups, and sorts both once, during construction time
func orderDynamicRoutes(routes []*Route) (single, catchAll []*Route) {
	for _, r := range routes {
		if r.Pattern.CatchAll {
			catchAll = append(catchAll, r)
		} else {
			single = append(single, r)
		}
	}

	sort.Stable(routesByPrecedence(single))
	sort.Stable(routesByPrecedence(catchAll))
	return
}
