package sources

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/text/unicode/norm"

	"newsdigest/internal/types"
)

const defaultMaxItems = 100

type RSSSource struct {
	name     string
	feedURL  string
	parser   *gofeed.Parser
	maxItems int
	logger   *slog.Logger
	now      func() time.Time
}

func NewRSSSource(name string, feedURL string, maxItems int, logger *slog.Logger) *RSSSource {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	if logger == nil {
		logger = slog.Default()
	}

	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 30 * time.Second}

	return &RSSSource{
		name:     name,
		feedURL:  feedURL,
		parser:   parser,
		maxItems: maxItems,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *RSSSource) Name() string {
	return r.name
}

func (r *RSSSource) FeedURL() string {
	return r.feedURL
}

func (r *RSSSource) Fetch(ctx context.Context) ([]types.CandidateItem, error) {
	r.logger.Debug("RSS source fetching feed", "source", r.name, "feed_url", r.feedURL)

	feed, err := r.parser.ParseURLWithContext(r.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	limit := r.maxItems
	if limit > len(feed.Items) {
		limit = len(feed.Items)
	}

	r.logger.Debug("RSS source retrieved items", "source", r.name, "count", len(feed.Items), "limit", limit)

	items := make([]types.CandidateItem, 0, limit)
	for _, feedItem := range feed.Items[:limit] {
		item, ok := r.convertToItem(feedItem)
		if !ok {
			r.logger.Debug("RSS source skipping item without link", "source", r.name, "title", feedItem.Title)
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (r *RSSSource) convertToItem(feedItem *gofeed.Item) (types.CandidateItem, bool) {
	link := strings.TrimSpace(feedItem.Link)
	if link == "" {
		return types.CandidateItem{}, false
	}

	published := strings.TrimSpace(feedItem.Published)
	if published == "" {
		published = strings.TrimSpace(feedItem.Updated)
	}
	if published == "" {
		published = r.now().Format(time.RFC3339)
	}

	return types.CandidateItem{
		ID:          link,
		Title:       cleanTitle(feedItem.Title),
		PublishedAt: published,
		Source:      r.name,
	}, true
}

var htmlStripper = bluemonday.StrictPolicy()

// cleanTitle strips markup and folds full-width characters common in Japanese feeds.
func cleanTitle(s string) string {
	s = htmlStripper.Sanitize(s)
	s = html.UnescapeString(s)
	s = norm.NFKC.String(s)
	return strings.TrimSpace(s)
}
