package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"newsdigest/internal/config"
	"newsdigest/internal/targets"
	"newsdigest/internal/types"
)

var fixedNow = time.Date(2025, 12, 11, 9, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func curated(n int) []types.CuratedItem {
	items := make([]types.CuratedItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, types.CuratedItem{
			CandidateItem: types.CandidateItem{
				ID:          fmt.Sprintf("https://example.com/%d", i),
				Title:       fmt.Sprintf("Story %d", i),
				PublishedAt: "Thu, 11 Dec 2025 00:00:00 GMT",
			},
			Summary: fmt.Sprintf("Summary %d", i),
			Score:   90 - i,
		})
	}
	return items
}

type recorder struct {
	mu       sync.Mutex
	messages []discordgo.WebhookParams
	status   int
	body     string
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var msg discordgo.WebhookParams
	if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	r.messages = append(r.messages, msg)

	if r.status != 0 {
		w.WriteHeader(r.status)
		w.Write([]byte(r.body))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func newWebhook(url string) *Webhook {
	w := NewWebhook("discord", config.DiscordTargetConfig{
		WebhookURL: url,
		Header:     "✨ **本日の重要AIニュース** ✨",
		Footer:     "AI News Bot",
	}, discardLogger())
	w.now = func() time.Time { return fixedNow }
	return w
}

func TestPublishSingleMessage(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	outcome, err := newWebhook(server.URL).Publish(context.Background(), curated(4))
	if err != nil || outcome != targets.Published {
		t.Fatalf("Publish() = %v, %v; want published", outcome, err)
	}

	if len(rec.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(rec.messages))
	}
	msg := rec.messages[0]
	if msg.Content != "✨ **本日の重要AIニュース** ✨" {
		t.Fatalf("content = %q", msg.Content)
	}
	if len(msg.Embeds) != 4 {
		t.Fatalf("embeds = %d, want 4", len(msg.Embeds))
	}

	wantColors := []int{0xFFD700, 0xC0C0C0, 0xCD7F32, 0x5865F2}
	for i, embed := range msg.Embeds {
		if embed.Color != wantColors[i] {
			t.Errorf("embed %d color = %#x, want %#x", i, embed.Color, wantColors[i])
		}
		if want := fmt.Sprintf("[%d] Story %d", i+1, i); embed.Title != want {
			t.Errorf("embed %d title = %q, want %q", i, embed.Title, want)
		}
		if embed.URL != fmt.Sprintf("https://example.com/%d", i) {
			t.Errorf("embed %d url = %q", i, embed.URL)
		}
		if embed.Timestamp != "2025-12-11T00:00:00Z" {
			t.Errorf("embed %d timestamp = %q", i, embed.Timestamp)
		}
		if embed.Footer == nil || embed.Footer.Text != "AI News Bot" {
			t.Errorf("embed %d footer = %+v", i, embed.Footer)
		}
	}
}

func TestPublishChunksAtTenEmbeds(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	outcome, err := newWebhook(server.URL).Publish(context.Background(), curated(12))
	if err != nil || outcome != targets.Published {
		t.Fatalf("Publish() = %v, %v", outcome, err)
	}

	if len(rec.messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(rec.messages))
	}
	if len(rec.messages[0].Embeds) != 10 || len(rec.messages[1].Embeds) != 2 {
		t.Fatalf("embeds per message = %d, %d", len(rec.messages[0].Embeds), len(rec.messages[1].Embeds))
	}
	if rec.messages[1].Content != "" {
		t.Fatalf("follow-up content = %q, want empty", rec.messages[1].Content)
	}
	if got := rec.messages[1].Embeds[0].Title; got != "[11] Story 10" {
		t.Fatalf("follow-up first title = %q", got)
	}
}

func TestPublishMissingURLSkipsWithoutCall(t *testing.T) {
	outcome, err := newWebhook("").Publish(context.Background(), curated(1))
	if outcome != targets.Skipped {
		t.Fatalf("outcome = %v, want skipped", outcome)
	}
	if !types.IsKind(err, types.SinkMisconfigured) {
		t.Fatalf("error = %v, want SinkMisconfigured", err)
	}
}

func TestPublishNon2xxFails(t *testing.T) {
	rec := &recorder{status: http.StatusBadRequest, body: `{"message":"Invalid Form Body"}`}
	server := httptest.NewServer(rec)
	defer server.Close()

	outcome, err := newWebhook(server.URL).Publish(context.Background(), curated(2))
	if outcome != targets.Failed {
		t.Fatalf("outcome = %v, want failed", outcome)
	}
	if !types.IsKind(err, types.SinkUnavailable) {
		t.Fatalf("error = %v, want SinkUnavailable", err)
	}
	if !strings.Contains(err.Error(), "Invalid Form Body") {
		t.Fatalf("error %q does not include response body", err)
	}
}

func TestTimestampFallback(t *testing.T) {
	tests := map[string]string{
		"":                              "2025-12-11T09:30:00Z",
		"not a date":                    "2025-12-11T09:30:00Z",
		"2025-12-10T08:00:00+09:00":     "2025-12-09T23:00:00Z",
		"Wed, 10 Dec 2025 12:00:00 GMT": "2025-12-10T12:00:00Z",
	}
	for in, want := range tests {
		if got := Timestamp(in, fixedNow); got != want {
			t.Errorf("Timestamp(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmbedTruncatesDescription(t *testing.T) {
	item := curated(1)[0]
	item.Summary = strings.Repeat("あ", 5000)

	embed := NewEmbed(item, 1, "", fixedNow)
	if n := len([]rune(embed.Description)); n != maxDescription {
		t.Fatalf("description runes = %d, want %d", n, maxDescription)
	}
	if embed.Footer != nil {
		t.Fatal("footer set without text")
	}
}

func TestBuildMessagesSplitsByTotalLength(t *testing.T) {
	items := curated(5)
	for i := range items {
		items[i].Summary = strings.Repeat("x", 2500)
	}

	messages := BuildMessages(items, "header", "footer", fixedNow)

	if len(messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(messages))
	}
	rank := 1
	for i, msg := range messages {
		total := 0
		for _, embed := range msg.Embeds {
			total += embedChars(embed)
			if want := fmt.Sprintf("[%d] ", rank); !strings.HasPrefix(embed.Title, want) {
				t.Fatalf("embed title %q, want prefix %q", embed.Title, want)
			}
			rank++
		}
		if total > MaxMessageChars {
			t.Fatalf("message %d carries %d chars, limit %d", i, total, MaxMessageChars)
		}
		if (i == 0) != (msg.Content == "header") {
			t.Fatalf("message %d content = %q", i, msg.Content)
		}
	}
	if rank != 6 {
		t.Fatalf("rendered %d embeds, want 5", rank-1)
	}
}

func TestEmbedFitsMessageWithLongFooter(t *testing.T) {
	item := curated(1)[0]
	item.Title = strings.Repeat("t", 400)
	item.Summary = strings.Repeat("s", 5000)

	embed := NewEmbed(item, 1, strings.Repeat("f", 3000), fixedNow)

	if n := embedChars(embed); n > MaxMessageChars {
		t.Fatalf("embed chars = %d, limit %d", n, MaxMessageChars)
	}
	if n := len([]rune(embed.Footer.Text)); n != maxFooter {
		t.Fatalf("footer runes = %d, want %d", n, maxFooter)
	}
}
