/*
Package manifest implements the read-only model of the build-time routing
data used by the edge router.

Two documents are loaded once at process start: the route manifest and the
prerender manifest. Both can be provided as JSON or YAML, from the local
filesystem or from an HTTP(S) URL.

The route manifest lists the static pages, the dynamic pages, the public
files, the custom redirect and header rules, the base path and the
internationalization settings:

	{
	  "version": 1,
	  "buildId": "build-id",
	  "basePath": "/basepath",
	  "trailingSlash": false,
	  "i18n": {"defaultLocale": "en", "locales": ["en", "nl"]},
	  "staticRoutes": [
	    {"page": "/", "html": "pages/index.html"},
	    {"page": "/customers", "compute": "pages/customers/index.js"}
	  ],
	  "dynamicRoutes": [
	    {"page": "/users/[user]", "html": "pages/users/[user].html"},
	    {"page": "/customers/[...catchAll]", "compute": "pages/customers/[...catchAll].js"}
	  ],
	  "publicFiles": ["/favicon.ico"]
	}

Dynamic pages support single segments ([id]), catch-all segments
([...slug]) and optional catch-all segments ([[...slug]]). Their patterns
are compiled and ordered once, at load time: single segment patterns
before catch-all patterns, and within each group the pattern with more
literal segments first, keeping the declaration order between equals.

The prerender manifest follows the layout produced by Next.js and tells
which concrete paths were built and how not yet built paths of a dynamic
page are handled (fallback, blocking or none).

A Manifest and a Prerender value are never modified after they were
created, and can be shared by any number of goroutines.
*/
package manifest
