/*
Package postprocess fixes the status codes of the responses served from
the static store.

The store has no concept of error status for its objects: a stored not
found page is served with 200. The post-processing turns the success
status of a served not found page into 404. The status 500 is reported
only for server errors decided by the router, a stored /500.html page is
never rewritten.
*/
package postprocess

import (
	"net/http"
	"strings"

	"github.com/zalando/edgerouter/decision"
	"github.com/zalando/edgerouter/manifest"
)

// IsNotFoundArtifact tells whether the URI of a served object is a not
// found page of the application: /404.html or /{locale}/404.html below
// the static pages prefix of the manifest. Public files and data objects
// named 404.html are not.
func IsNotFoundArtifact(uri string, m *manifest.Manifest) bool {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
	}

	rel, ok := strings.CutPrefix(uri, m.StaticPagesPrefix()+"/")
	if !ok {
		return false
	}

	if rel == "404.html" {
		return true
	}

	locale, rest, ok := strings.Cut(rel, "/")
	return ok && rest == "404.html" && m.HasLocale(locale)
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// Status returns the final status of a response, based on the decision
// that produced it and the status received from the origin.
func Status(d decision.Decision, originStatus int, m *manifest.Manifest) int {
	switch dt := d.(type) {
	case *decision.ServerError:
		return http.StatusInternalServerError
	case *decision.NotFound:
		if success(originStatus) {
			return http.StatusNotFound
		}
	case *decision.ServeStatic:
		if success(originStatus) && IsNotFoundArtifact(dt.StoragePrefix+dt.OriginPath, m) {
			return http.StatusNotFound
		}
	}

	return originStatus
}

// StatusForURI returns the final status of a response served from the
// store, when only the URI of the served object is known.
func StatusForURI(uri string, originStatus int, m *manifest.Manifest) int {
	if success(originStatus) && IsNotFoundArtifact(uri, m) {
		return http.StatusNotFound
	}

	return originStatus
}
