package decision

import (
	"net/http"

	"golang.org/x/text/language"

	"github.com/zalando/edgerouter/pathnorm"
)

// LocaleCookie stores the locale preferred by the user.
const LocaleCookie = "NEXT_LOCALE"

func newLocaleMatcher(locales []string) language.Matcher {
	tags := make([]language.Tag, len(locales))
	for i, l := range locales {
		tags[i] = language.Make(l)
	}

	return language.NewMatcher(tags)
}

func (b *Builder) preferredLocale(r *Request) string {
	if l, ok := r.Cookies[LocaleCookie]; ok && b.manifest.HasLocale(l) {
		return l
	}

	accept, ok := r.HeaderValue("Accept-Language")
	if !ok {
		return ""
	}

	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return ""
	}

	_, index, confidence := b.localeMatcher.Match(tags...)
	if confidence == language.No {
		return ""
	}

	return b.manifest.I18n.Locales[index]
}

// requests to the index page without a locale are redirected to the
// preferred locale of the user, when it is not the default locale
func (b *Builder) detectLocale(r *Request, n pathnorm.Result) (*Redirect, bool) {
	if b.localeMatcher == nil || !n.DefaultLocale || n.PagePath != "/"+n.Locale {
		return nil, false
	}

	l := b.preferredLocale(r)
	if l == "" || l == n.Locale {
		return nil, false
	}

	location := b.manifest.BasePath + "/" + l
	if b.manifest.TrailingSlash {
		location += "/"
	}

	return &Redirect{Location: n.WithQuery(location), StatusCode: http.StatusTemporaryRedirect}, true
}
