// Package extract fetches an article page and returns its readable text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"newsdigest/internal/cache"
)

const maxPageBytes = 5 << 20

type Extractor struct {
	client *http.Client
	limit  int
	cache  *cache.Cache[string, string]
}

func New(limit int, timeout time.Duration) *Extractor {
	return &Extractor{
		client: &http.Client{Timeout: timeout},
		limit:  limit,
	}
}

// WithCache keeps extracted text for ttl so articles offered again on a later run are
// not fetched twice.
func (e *Extractor) WithCache(ttl time.Duration) *Extractor {
	e.cache = cache.NewCache[string, string](cache.CacheConfig{TTL: ttl}, func(k string) string { return k })
	return e
}

// Text returns up to limit runes of the article at u. When readability finds no body the
// page's meta description is used instead.
func (e *Extractor) Text(ctx context.Context, u string) (string, error) {
	if u == "" {
		return "", fmt.Errorf("URL is empty")
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("URL missing scheme or host")
	}

	if e.cache != nil {
		if text, ok := e.cache.Get(u); ok {
			return text, nil
		}
	}

	text, err := e.fetch(ctx, u, parsed)
	if err != nil {
		return "", err
	}

	if e.cache != nil {
		e.cache.Set(u, text)
	}
	return text, nil
}

func (e *Extractor) fetch(ctx context.Context, u string, parsed *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch page: %s", resp.Status)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	text := ""
	if article, err := readability.FromReader(bytes.NewReader(page), parsed); err == nil {
		text = strings.TrimSpace(article.TextContent)
	}

	if text == "" {
		text, err = metaDescription(page)
		if err != nil {
			return "", err
		}
	}

	if text == "" {
		return "", fmt.Errorf("no readable content at %s", u)
	}

	return truncate(text, e.limit), nil
}

func metaDescription(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	for _, selector := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if content = strings.TrimSpace(content); content != "" {
				return content, nil
			}
		}
	}
	return "", nil
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
