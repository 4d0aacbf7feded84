package feed

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"newsdigest/internal/config"
	"newsdigest/internal/targets"
	"newsdigest/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func item(id, title, summary string) types.CuratedItem {
	return types.CuratedItem{
		CandidateItem: types.CandidateItem{ID: id, Title: title, PublishedAt: "2025-12-11T00:00:00Z"},
		Summary:       summary,
		Score:         80,
	}
}

func parseFile(t *testing.T, path string) *gofeed.Feed {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open feed: %v", err)
	}
	defer f.Close()

	feed, err := gofeed.NewParser().Parse(f)
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}
	return feed
}

func TestPublishWritesFeed(t *testing.T) {
	for _, format := range []string{TypeRSS, TypeAtom, TypeJSON} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "digest."+format)
			target := New("feed", config.FeedTargetConfig{Path: path, Format: format}, discardLogger())

			outcome, err := target.Publish(context.Background(), []types.CuratedItem{
				item("https://example.com/a", "A", "**bold** summary"),
				item("https://example.com/b", "B", "plain"),
			})
			if err != nil || outcome != targets.Published {
				t.Fatalf("Publish() = %v, %v", outcome, err)
			}

			feed := parseFile(t, path)
			if len(feed.Items) != 2 {
				t.Fatalf("items = %d, want 2", len(feed.Items))
			}
			if feed.Items[0].Title != "A" || feed.Items[0].Link != "https://example.com/a" {
				t.Fatalf("first item = %+v", feed.Items[0])
			}
		})
	}
}

func TestPublishKeepsEarlierEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digest.xml")
	target := New("feed", config.FeedTargetConfig{Path: path}, discardLogger())
	target.now = func() time.Time { return time.Date(2025, 12, 11, 0, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	if _, err := target.Publish(ctx, []types.CuratedItem{item("https://example.com/old", "Old", "s")}); err != nil {
		t.Fatalf("first Publish() error = %v", err)
	}
	if _, err := target.Publish(ctx, []types.CuratedItem{
		item("https://example.com/new", "New", "s"),
		item("https://example.com/old", "Old again", "s"),
	}); err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}

	feed := parseFile(t, path)
	var titles []string
	for _, it := range feed.Items {
		titles = append(titles, it.Title)
	}
	if strings.Join(titles, ",") != "New,Old again" {
		t.Fatalf("titles = %v, want [New Old again]", titles)
	}
}

func TestPublishRendersMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digest.xml")
	target := New("feed", config.FeedTargetConfig{Path: path, Format: TypeAtom}, discardLogger())

	if _, err := target.Publish(context.Background(), []types.CuratedItem{item("https://example.com/a", "A", "**bold**")}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	feed := parseFile(t, path)
	if !strings.Contains(feed.Items[0].Content, "<strong>bold</strong>") {
		t.Fatalf("content = %q", feed.Items[0].Content)
	}
}

func TestPublishWithoutPathSkips(t *testing.T) {
	target := New("feed", config.FeedTargetConfig{}, discardLogger())
	outcome, err := target.Publish(context.Background(), []types.CuratedItem{item("u", "t", "s")})
	if outcome != targets.Skipped || !types.IsKind(err, types.SinkMisconfigured) {
		t.Fatalf("Publish() = %v, %v", outcome, err)
	}
}
