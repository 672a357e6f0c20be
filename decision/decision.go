/*
Package decision combines the path normalization, the route matching and
the preview state of a request into a single routing decision.

A decision is one of the variants ServeStatic, InvokeCompute, Redirect,
NotFound and ServerError. No other variants exist, the callers are
expected to switch over them exhaustively:

	switch d := b.Decide(r).(type) {
	case *decision.ServeStatic:
	case *decision.InvokeCompute:
	case *decision.Redirect:
	case *decision.NotFound:
	case *decision.ServerError:
	}

Deciding is side effect free. It reads only the manifests passed to the
builder, and it doesn't keep any state between the requests.
*/
package decision

// Kind identifies the variant of a decision.
type Kind int

const (
	KindServeStatic Kind = iota
	KindInvokeCompute
	KindRedirect
	KindNotFound
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindServeStatic:
		return "serve-static"
	case KindInvokeCompute:
		return "invoke-compute"
	case KindRedirect:
		return "redirect"
	case KindNotFound:
		return "not-found"
	case KindServerError:
		return "server-error"
	default:
		return "unknown"
	}
}

// Decision is the outcome of routing a single request.
type Decision interface {
	Kind() Kind
	decision()
}

// ServeStatic serves an object of the static store.
type ServeStatic struct {

	// OriginPath is the object path relative to the storage prefix, e.g.
	// /users/[user].html.
	OriginPath string `json:"originPath,omitempty"`

	// StoragePrefix is the prefix of the object in the store, e.g.
	// /basepath/static-pages.
	StoragePrefix string `json:"storagePrefix,omitempty"`

	// Page is the matched page. Empty for public files.
	Page string `json:"page,omitempty"`

	// Data is set when the object is the JSON data of a page.
	Data bool `json:"data,omitempty"`

	// RevalidateSeconds is the revalidation period of a prerendered
	// artifact, zero when it never expires.
	RevalidateSeconds int `json:"revalidateSeconds,omitempty"`
}

// InvokeCompute renders the response with the compute backend.
type InvokeCompute struct {

	// Page is the matched page, e.g. /customers/[customer].
	Page string `json:"page,omitempty"`

	// PagePath is the entry point of the page in the compute backend, e.g.
	// pages/customers/[customer].js.
	PagePath string `json:"pagePath,omitempty"`

	// URI is the normalized request path with the original query.
	URI string `json:"uri,omitempty"`

	// Params contains the values of the dynamic segments.
	Params map[string]string `json:"params,omitempty"`

	// CatchAll contains the segments of a catch-all segment.
	CatchAll []string `json:"catchAll,omitempty"`

	Locale string `json:"locale,omitempty"`

	// Data is set when the response is the JSON data of the page, without
	// the HTML document.
	Data bool `json:"data,omitempty"`

	// Preview is set when the request is in preview mode.
	Preview bool `json:"preview,omitempty"`

	// API is set for API routes.
	API bool `json:"api,omitempty"`

	// Fallback is set when the path of a prerendered page was not built
	// yet.
	Fallback bool `json:"fallback,omitempty"`

	RevalidateSeconds int `json:"revalidateSeconds,omitempty"`
}

// Redirect tells the client to request the canonical location.
type Redirect struct {

	// Location contains the original query.
	Location string `json:"location,omitempty"`

	StatusCode int `json:"statusCode,omitempty"`
}

// NotFound answers with the not found error page.
type NotFound struct {

	// ErrorPage is the selected error page, e.g. /404. Empty when the
	// application has no error page.
	ErrorPage string `json:"errorPage,omitempty"`

	// ErrorPagePath is the object path of the static error page, e.g.
	// /404.html, or the compute entry point when Static is false.
	ErrorPagePath string `json:"errorPagePath,omitempty"`

	// Static is set when the error page is served from the store.
	Static bool `json:"static,omitempty"`

	StoragePrefix string `json:"storagePrefix,omitempty"`

	// Data is set for data requests.
	Data bool `json:"data,omitempty"`
}

// ServerError answers with the error page rendered with status 500.
type ServerError struct {

	// ErrorPage is the selected error page, e.g. /_error. Empty when the
	// application has no error page.
	ErrorPage string `json:"errorPage,omitempty"`

	// ErrorPagePath is the compute entry point of the error page.
	ErrorPagePath string `json:"errorPagePath,omitempty"`

	Data bool `json:"data,omitempty"`
}

func (*ServeStatic) Kind() Kind   { return KindServeStatic }
func (*InvokeCompute) Kind() Kind { return KindInvokeCompute }
func (*Redirect) Kind() Kind      { return KindRedirect }
func (*NotFound) Kind() Kind      { return KindNotFound }
func (*ServerError) Kind() Kind   { return KindServerError }

func (*ServeStatic) decision()   {}
func (*InvokeCompute) decision() {}
func (*Redirect) decision()      {}
func (*NotFound) decision()      {}
func (*ServerError) decision()   {}
