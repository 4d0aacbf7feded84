package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Feed is one subscription listed in an OPML outline.
type Feed struct {
	URL  string
	Name string
}

type outline struct {
	Title    string    `xml:"title,attr"`
	Text     string    `xml:"text,attr"`
	XMLURL   string    `xml:"xmlUrl,attr"`
	Children []outline `xml:"outline"`
}

// ParseOPML returns the feeds of an OPML document depth-first, in document order.
// A feed URL listed under several categories is returned once.
func ParseOPML(data []byte) ([]Feed, error) {
	var doc struct {
		XMLName xml.Name  `xml:"opml"`
		Body    []outline `xml:"body>outline"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OPML: %w", err)
	}

	seen := make(map[string]struct{})
	var feeds []Feed

	var walk func([]outline)
	walk = func(outlines []outline) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				if _, dup := seen[o.XMLURL]; !dup {
					seen[o.XMLURL] = struct{}{}
					feeds = append(feeds, Feed{URL: o.XMLURL, Name: feedName(o)})
				}
			}
			walk(o.Children)
		}
	}
	walk(doc.Body)

	return feeds, nil
}

func feedName(o outline) string {
	for _, candidate := range []string{o.Title, o.Text, o.XMLURL} {
		if candidate != "" {
			return sanitizeName(candidate)
		}
	}
	return ""
}

// sanitizeName lowercases name and keeps only [a-z0-9_], mapping separators to '_'.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(strings.ToLower(name), "&", "and")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r == ' ', r == '.', r == '-':
			return '_'
		default:
			return -1
		}
	}, name)
}

// LoadOPML reads an OPML document from a local path or an http(s) URL.
func LoadOPML(ctx context.Context, location string) ([]Feed, error) {
	var (
		data []byte
		err  error
	)

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		data, err = fetchOPML(ctx, location)
	} else if data, err = os.ReadFile(location); err != nil {
		err = fmt.Errorf("failed to read OPML file: %w", err)
	}
	if err != nil {
		return nil, err
	}

	return ParseOPML(data)
}

// NewOPMLSources expands an OPML outline into one RSS source per feed, in document order.
func NewOPMLSources(ctx context.Context, name, location string, maxItems int, logger *slog.Logger) ([]Source, error) {
	feeds, err := LoadOPML(ctx, location)
	if err != nil {
		return nil, err
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("no feeds found in OPML %s", location)
	}

	out := make([]Source, 0, len(feeds))
	for _, feed := range feeds {
		out = append(out, NewRSSSource(name+"_"+feed.Name, feed.URL, maxItems, logger))
	}
	return out, nil
}

func fetchOPML(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build OPML request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OPML: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch OPML: %s", resp.Status)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 5<<20))
}
