package decision

import (
	"net/http"
	"strings"

	"github.com/zalando/edgerouter/preview"
)

// Request contains the attributes of an incoming request relevant for
// routing. It is created per request and discarded after the decision.
type Request struct {
	Method string

	// URI is the escaped path with the optional query, as received.
	URI string

	Host string

	// Header contains the request headers with lower-case keys. All the
	// values are kept in the received order.
	Header map[string][]string

	// Cookies contains the cookies of all the Cookie header lines, the
	// last value of a name wins.
	Cookies map[string]string

	// CookieErr is set when any of the Cookie header lines is malformed.
	CookieErr error
}

// NewRequest creates a routing request. The header keys are lower-cased
// and the cookies are parsed from the cookie header lines.
func NewRequest(method, uri, host string, header map[string][]string) *Request {
	h := make(map[string][]string, len(header))
	for k, v := range header {
		lk := strings.ToLower(k)
		h[lk] = append(h[lk], v...)
	}

	cookies, err := preview.ParseCookies(h["cookie"])
	return &Request{
		Method:    method,
		URI:       uri,
		Host:      host,
		Header:    h,
		Cookies:   cookies,
		CookieErr: err,
	}
}

// FromHTTP creates a routing request from an HTTP request.
func FromHTTP(r *http.Request) *Request {
	return NewRequest(r.Method, r.URL.RequestURI(), r.Host, r.Header)
}

// HeaderValue returns the first value of a header.
func (r *Request) HeaderValue(key string) (string, bool) {
	v := r.Header[strings.ToLower(key)]
	if len(v) == 0 {
		return "", false
	}

	return v[0], true
}
