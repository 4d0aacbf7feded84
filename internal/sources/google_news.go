package sources

import (
	"log/slog"
	"net/url"
	"strings"
)

const googleNewsSearchURL = "https://news.google.com/rss/search"

// GoogleNewsURL builds the RSS search URL for a topic query, e.g.
// q=AI+OR+ChatGPT&hl=ja&gl=JP&ceid=JP:ja.
func GoogleNewsURL(query, language, region string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", language)
	params.Set("gl", region)
	params.Set("ceid", region+":"+primaryLanguage(language))

	return googleNewsSearchURL + "?" + params.Encode()
}

func NewGoogleNewsSource(name, query, language, region string, maxItems int, logger *slog.Logger) *RSSSource {
	return NewRSSSource(name, GoogleNewsURL(query, language, region), maxItems, logger)
}

func primaryLanguage(language string) string {
	if i := strings.IndexAny(language, "-_"); i > 0 {
		return language[:i]
	}
	return language
}
