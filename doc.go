/*
Package edgerouter provides the request router in front of a serverless
deployment of a server rendered web application.

The router answers every request of the application with exactly one
outcome: a redirect, an artifact served from the static object store, a
page rendered by the compute backend, a not found page or a server
error page. The outcome is decided from the route manifest and the
prerender manifest produced by the build of the application, without
any I/O.

# Quickstart

Start the router with a local manifest, a bucket and a compute backend:

	edgerouter \
		-routes-manifest routes-manifest.json \
		-prerender-manifest prerender-manifest.json \
		-storage-domain assets -storage-region eu-central-1 \
		-compute-url http://localhost:3000 &
	curl -i localhost:9090/

Check the decisions for a set of URIs, without serving them:

	routecheck -routes-manifest routes-manifest.json /terms/ /blog/hello

# Routing Decisions

The decisions are made in the 'decision' package. A request path is
first normalized, 'pathnorm': the base path is removed, the trailing
slash policy is enforced with permanent redirects, and the locale prefix
is resolved. Then the custom redirects of the manifest and the locale
detection of the index page are applied. Finally, the path is matched
against the pages of the application, 'routing', in the order of the
static pages, the public files, the dynamic pages and the catch-all
pages.

A matched page is served from the store when it is static or
prerendered, and rendered by the compute backend otherwise. Active
preview mode, 'preview', always renders. Pages with a pending fallback
are rendered, pages without fallback that were not prerendered are not
found.

# Serving

The 'proxy' package executes the decisions. Static artifacts are
proxied from the store, whose endpoint is selected by the 'origin'
package, and the status of the served not found pages is fixed by
'postprocess'. Renders are sent to the compute backend over HTTP, behind
a circuit breaker, 'circuit'. Failed renders are answered with the error
page of the application and the status 500.

# Operations

The router writes the application log and the access log with logrus,
'logging'. Prometheus metrics, 'metrics', and a health check are
exposed on the support listener, by default :9911, under /metrics and
/healthz. On SIGTERM, the health check reports unhealthy for the
configured period before the listeners are closed.

The command line flags and the YAML configuration file are documented
in the 'config' package.
*/
package edgerouter
