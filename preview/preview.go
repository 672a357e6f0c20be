/*
Package preview detects the preview mode of a request.

A request is in preview mode when it carries both the bypass cookie and
the preview data cookie set by the application. The signature of the
preview data is not validated here, that is done by the compute backend
rendering the page. For routing, preview mode only means that no static
artifact may be served.
*/
package preview

import (
	"errors"
	"net/http"
)

const (
	// BypassCookie carries the bypass token.
	BypassCookie = "__prerender_bypass"

	// DataCookie carries the signed preview data.
	DataCookie = "__next_preview_data"
)

// State is the preview state of a request.
type State struct {
	Active bool

	// Bypass and Data are the raw cookie values, forwarded to the compute
	// backend when preview mode is active.
	Bypass string
	Data   string
}

// ParseCookies parses the values of all the Cookie header lines. When the
// same cookie name occurs multiple times, the last value wins. Malformed
// lines are reported in the returned error, while the cookies of the
// valid lines are still returned.
func ParseCookies(lines []string) (map[string]string, error) {
	var errs []error
	cookies := make(map[string]string)
	for _, line := range lines {
		cs, err := http.ParseCookie(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		for _, c := range cs {
			cookies[c.Name] = c.Value
		}
	}

	return cookies, errors.Join(errs...)
}

// Resolve returns the preview state based on the parsed cookies. When the
// cookie parsing failed, preview mode is inactive.
func Resolve(cookies map[string]string, parseErr error) State {
	if parseErr != nil {
		return State{}
	}

	bypass, data := cookies[BypassCookie], cookies[DataCookie]
	if bypass == "" || data == "" {
		return State{}
	}

	return State{Active: true, Bypass: bypass, Data: data}
}
