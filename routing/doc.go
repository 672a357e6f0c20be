/*
Package routing implements matching of normalized request paths to the
pages of the route manifest.

# Precedence

The first matching rule wins:

1. exact static page. When the path has a locale prefix, the localized
page is tried first, e.g. /nl/404, then the page without the locale.

2. public files, served as they are.

3. data requests, /_next/data/{buildId}/{page}.json. The build ID and the
.json suffix are removed, /index means the root page, and the rest is
matched with the rules 1, 4 and 5. The result is marked as data.

4. dynamic pages with single segments, e.g. /users/[user]. Pages with
more literal segments come first, and between pages with the same number
of literal segments, the earlier declared one.

5. catch-all pages, e.g. /docs/[...slug], and optional catch-all pages,
e.g. /docs/[[...slug]], ordered the same way. The optional catch-all
pages match their parent path, too.

Dynamic pages only ever see the path without the locale prefix.

# Parameters

The values of the dynamic segments are path unescaped. When a value
cannot be unescaped, the raw value is used. The catch-all segments are
available both as the joined value and as the list of the segments.

The matcher doesn't hold any state. The ordering of the dynamic pages is
done once, when the manifest is parsed.
*/
package routing
