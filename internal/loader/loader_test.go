package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"

	"newsdigest/internal/components"
	"newsdigest/internal/config"
	"newsdigest/internal/storage"
	"newsdigest/internal/targets"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>AI</title>
<link>https://example.com/</link>
<item><title>Article One</title><link>https://example.com/1</link><pubDate>Thu, 11 Dec 2025 00:00:00 GMT</pubDate></item>
<item><title>Article Two</title><link>https://example.com/2</link><pubDate>Thu, 11 Dec 2025 01:00:00 GMT</pubDate></item>
<item><title>Article Three</title><link>https://example.com/3</link><pubDate>Thu, 11 Dec 2025 02:00:00 GMT</pubDate></item>
</channel>
</rss>`

var urlLine = regexp.MustCompile(`URL: (\S+)`)

// newOracle answers every prompt with a verdict whose score depends on the article URL.
func newOracle(t *testing.T, scores map[string]int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		match := urlLine.FindStringSubmatch(req.Prompt)
		if match == nil {
			http.Error(w, "no url in prompt", http.StatusBadRequest)
			return
		}
		verdict, _ := json.Marshal(map[string]any{
			"title":   "Headline " + match[1],
			"url":     match[1],
			"summary": "Summary of " + match[1],
			"score":   scores[match[1]],
		})
		body, _ := json.Marshal(map[string]any{
			"model":    "test-model",
			"response": string(verdict),
			"done":     true,
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

type webhookRecorder struct {
	mu       sync.Mutex
	messages []discordgo.WebhookParams
}

func (rec *webhookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var msg discordgo.WebhookParams
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec.mu.Lock()
	rec.messages = append(rec.messages, msg)
	rec.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAndBuildRunsEndToEnd(t *testing.T) {
	t.Setenv("DISCORD_WEBHOOK_URL", "")

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer feed.Close()

	oracle := newOracle(t, map[string]int{
		"https://example.com/1": 90,
		"https://example.com/2": 40,
		"https://example.com/3": 70,
	})

	webhook := &webhookRecorder{}
	discordServer := httptest.NewServer(webhook)
	defer discordServer.Close()

	path := writeConfig(t, fmt.Sprintf(`
[bot]
name = "test"
run_once = true

[storage]
type = "memory"

[platform]
type = "ollama"
model = "test-model"
base_url = %q

[[sources]]
name = "feed"
type = "rss"
enabled = true
feed_url = %q

[curator]
top_n = 2
delay = "0s"

[targets.discord]
webhook_url = %q
`, oracle.URL, feed.URL, discordServer.URL))

	ctx := context.Background()
	st, err := LoadAndBuild(ctx, path, discardLogger())
	if err != nil {
		t.Fatalf("LoadAndBuild: %v", err)
	}
	defer st.Close(ctx)

	report, err := st.Pipeline.Run(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if report.Fetched != 3 || report.Unprocessed != 3 || report.Curated != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.Outcome != targets.Published || !report.Recorded {
		t.Fatalf("expected published and recorded, got %+v", report)
	}

	if len(webhook.messages) != 1 {
		t.Fatalf("expected 1 webhook message, got %d", len(webhook.messages))
	}
	embeds := webhook.messages[0].Embeds
	if len(embeds) != 2 {
		t.Fatalf("expected 2 embeds, got %d", len(embeds))
	}
	if embeds[0].URL != "https://example.com/1" || embeds[1].URL != "https://example.com/3" {
		t.Fatalf("unexpected ranking: %s, %s", embeds[0].URL, embeds[1].URL)
	}

	report, err = st.Pipeline.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Unprocessed != 1 || report.Curated != 1 {
		t.Fatalf("second run should only see the unpublished article: %+v", report)
	}
	if len(webhook.messages) != 2 || webhook.messages[1].Embeds[0].URL != "https://example.com/2" {
		t.Fatalf("second run should publish the remaining article")
	}
}

func TestLoadAndBuildWithoutCredentialsDegrades(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DISCORD_WEBHOOK_URL", "")

	path := writeConfig(t, `
[storage]
type = "postgres"

[[sources]]
type = "rss"
enabled = true
feed_url = "http://127.0.0.1:1/feed"
`)
	t.Setenv("DATABASE_URL", "")

	ctx := context.Background()
	st, err := LoadAndBuild(ctx, path, discardLogger())
	if err != nil {
		t.Fatalf("LoadAndBuild: %v", err)
	}
	defer st.Close(ctx)

	if st.Config.Platform.Type != "gemini" {
		t.Fatalf("platform = %q, want gemini", st.Config.Platform.Type)
	}
	store := st.Registry.Get(components.StorageComponentName).(*components.StorageComponent).Store()
	if _, ok := store.(*storage.Disabled); !ok {
		t.Fatalf("store = %T, want *storage.Disabled", store)
	}
	if st.Bot == nil || st.Bot.Name() != "newsdigest" {
		t.Fatalf("unexpected bot: %+v", st.Bot)
	}
}

func TestLoadAndBuildRejectsBadPromptFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	path := writeConfig(t, `
[storage]
type = "memory"

[curator]
prompt_file = "/does/not/exist.tmpl"
`)

	if _, err := LoadAndBuild(context.Background(), path, discardLogger()); err == nil {
		t.Fatal("expected error for missing prompt file")
	}
}

func TestLoaderCreateSourceUnsupported(t *testing.T) {
	l := NewLoader(nil, discardLogger())
	if _, err := l.createSource(context.Background(), config.SourceConfig{Name: "x", Type: "carrier_pigeon"}); err == nil {
		t.Fatal("expected unsupported source error")
	}
}
