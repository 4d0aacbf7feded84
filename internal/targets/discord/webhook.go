// Package discord posts digests to a Discord channel webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"newsdigest/internal/config"
	"newsdigest/internal/targets"
	"newsdigest/internal/types"
)

type Webhook struct {
	name       string
	url        string
	header     string
	footer     string
	httpClient *http.Client
	now        func() time.Time
	logger     *slog.Logger
}

func NewWebhook(name string, cfg config.DiscordTargetConfig, logger *slog.Logger) *Webhook {
	return &Webhook{
		name:   name,
		url:    cfg.WebhookURL,
		header: cfg.Header,
		footer: cfg.Footer,
		httpClient: &http.Client{
			Timeout: config.ParseDuration(cfg.Timeout, 30*time.Second),
		},
		now:    time.Now,
		logger: logger,
	}
}

func (w *Webhook) Name() string {
	return w.name
}

func (w *Webhook) Publish(ctx context.Context, items []types.CuratedItem) (targets.Outcome, error) {
	if w.url == "" {
		return targets.Skipped, types.NewStageError(types.SinkMisconfigured, "publish", fmt.Errorf("discord webhook url is not set"))
	}

	if len(items) == 0 {
		return targets.Skipped, nil
	}

	messages := BuildMessages(items, w.header, w.footer, w.now())
	for i, msg := range messages {
		if err := w.send(ctx, msg); err != nil {
			return targets.Failed, types.NewStageError(types.SinkUnavailable, "publish", err)
		}
		w.logger.Debug("Sent discord message", "target", w.name, "part", i+1, "parts", len(messages), "embeds", len(msg.Embeds))
	}

	return targets.Published, nil
}

func (w *Webhook) send(ctx context.Context, msg any) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		var errorResp ErrorResponse
		if json.Unmarshal(body, &errorResp) == nil && errorResp.RetryAfter > 0 {
			return fmt.Errorf("discord webhook rate limited, retry after %.1fs, body: %s", errorResp.RetryAfter, string(body))
		}
		return fmt.Errorf("discord webhook rate limited, body: %s", string(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord webhook returned status code: %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

func (w *Webhook) Shutdown() {
	w.httpClient.CloseIdleConnections()
}
