/*
Package proxy implements the HTTP front of the router.

The proxy makes a routing decision for each incoming request, and turns
it into a response:

1. Redirect:

The proxy answers with the status of the decision, and the Location and
Refresh headers pointing to the canonical location.

2. ServeStatic:

The request is forwarded to the static store, addressing the object
below its storage prefix, on the endpoint selected for the region of the
store. The status of the store response is post-processed, so that a
served not found page is answered with 404. Prerendered pages with a
revalidation period get a shared cache lifetime.

3. InvokeCompute:

The page is rendered by the compute backend, through the Renderer. When
rendering fails, or the circuit breaker of the backend is open, the
proxy answers with the error page of the application and status 500.
Rendered text responses are encoded with brotli or gzip when the client
accepts it, unless the compute backend has already encoded them.

4. NotFound and ServerError:

Static error pages are served from the store, other error pages are
rendered by the compute backend with the status of the decision. Data
requests always get a JSON error body instead of an error page.

The header rules of the application are applied to every response. Each
request gets a flow ID, the X-Flow-Id header, unless it already has one,
and a server span of the configured OpenTelemetry tracer provider.
*/
package proxy
