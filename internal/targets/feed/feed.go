// Package feed keeps a digest feed file (RSS, Atom or JSON Feed) up to date.
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gorilla/feeds"
	"github.com/mmcdole/gofeed"
	"github.com/yuin/goldmark"

	"newsdigest/internal/config"
	"newsdigest/internal/targets"
	"newsdigest/internal/types"
)

const (
	TypeRSS  = "rss"
	TypeAtom = "atom"
	TypeJSON = "json"

	DefaultMaxItems = 50
)

type Target struct {
	name     string
	path     string
	format   string
	title    string
	link     string
	maxItems int
	markdown goldmark.Markdown
	now      func() time.Time
	logger   *slog.Logger
}

func New(name string, cfg config.FeedTargetConfig, logger *slog.Logger) *Target {
	title := cfg.Title
	if title == "" {
		title = "AI News Digest"
	}
	link := cfg.Link
	if link == "" {
		link = "http://localhost/"
	}
	format := cfg.Format
	if format == "" {
		format = TypeRSS
	}

	return &Target{
		name:     name,
		path:     cfg.Path,
		format:   format,
		title:    title,
		link:     link,
		maxItems: DefaultMaxItems,
		markdown: goldmark.New(),
		now:      time.Now,
		logger:   logger,
	}
}

func (t *Target) Name() string {
	return t.name
}

// Publish prepends items to the feed file, keeping earlier entries up to the item limit.
func (t *Target) Publish(ctx context.Context, items []types.CuratedItem) (targets.Outcome, error) {
	if t.path == "" {
		return targets.Skipped, types.NewStageError(types.SinkMisconfigured, "publish", fmt.Errorf("feed path is not set"))
	}
	if len(items) == 0 {
		return targets.Skipped, nil
	}

	previous, err := t.load()
	if err != nil {
		t.logger.Warn("Could not read existing feed, starting a new one", "path", t.path, "error", err)
	}

	now := t.now().UTC()
	entries := make([]*feeds.Item, 0, len(items)+len(previous))
	seen := make(map[string]struct{})

	for _, item := range items {
		entry, err := t.convertToFeedItem(item, now)
		if err != nil {
			return targets.Failed, types.NewStageError(types.SinkUnavailable, "publish", err)
		}
		seen[entry.Id] = struct{}{}
		entries = append(entries, entry)
	}
	for _, entry := range previous {
		if _, dup := seen[entry.Id]; dup {
			continue
		}
		seen[entry.Id] = struct{}{}
		entries = append(entries, entry)
	}
	if len(entries) > t.maxItems {
		entries = entries[:t.maxItems]
	}

	feed := &feeds.Feed{
		Title:       t.title,
		Link:        &feeds.Link{Href: t.link},
		Description: "Daily digest of important AI news",
		Created:     now,
		Updated:     now,
		Items:       entries,
	}

	if err := t.write(feed); err != nil {
		return targets.Failed, types.NewStageError(types.SinkUnavailable, "publish", err)
	}

	t.logger.Debug("Wrote feed", "target", t.name, "path", t.path, "format", t.format, "entries", len(entries))
	return targets.Published, nil
}

func (t *Target) convertToFeedItem(item types.CuratedItem, now time.Time) (*feeds.Item, error) {
	var buf bytes.Buffer
	if err := t.markdown.Convert([]byte(item.Summary), &buf); err != nil {
		return nil, fmt.Errorf("failed to render summary: %w", err)
	}

	created := now
	if item.PublishedAt != "" {
		if parsed, err := dateparse.ParseAny(item.PublishedAt); err == nil {
			created = parsed.UTC()
		}
	}

	return &feeds.Item{
		Id:          item.ID,
		Title:       item.Title,
		Link:        &feeds.Link{Href: item.ID},
		Description: item.Summary,
		Content:     buf.String(),
		Created:     created,
		Updated:     now,
	}, nil
}

// load reads back the entries of a feed file written by an earlier run.
func (t *Target) load() ([]*feeds.Item, error) {
	f, err := os.Open(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parsed, err := gofeed.NewParser().Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]*feeds.Item, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		id := item.GUID
		if id == "" {
			id = item.Link
		}
		if id == "" {
			continue
		}

		entry := &feeds.Item{
			Id:          id,
			Title:       item.Title,
			Link:        &feeds.Link{Href: item.Link},
			Description: item.Description,
			Content:     item.Content,
		}
		if item.PublishedParsed != nil {
			entry.Created = *item.PublishedParsed
		}
		if item.UpdatedParsed != nil {
			entry.Updated = *item.UpdatedParsed
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (t *Target) write(feed *feeds.Feed) error {
	var (
		out string
		err error
	)
	switch t.format {
	case TypeAtom:
		out, err = feed.ToAtom()
	case TypeJSON:
		out, err = feed.ToJSON()
	default:
		out, err = feed.ToRss()
	}
	if err != nil {
		return fmt.Errorf("failed to render %s feed: %w", t.format, err)
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create feed directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".feed-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(out); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}

	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("failed to replace feed: %w", err)
	}
	return nil
}
