package components

import (
	"context"
	"log/slog"

	"newsdigest/internal/config"
	"newsdigest/internal/targets"
	"newsdigest/internal/targets/discord"
	"newsdigest/internal/targets/feed"
)

type TargetsComponent struct {
	config    config.TargetsConfig
	logger    *slog.Logger
	webhook   *discord.Webhook
	publisher *targets.Publisher
}

func NewTargetsComponent(cfg config.TargetsConfig, logger *slog.Logger) *TargetsComponent {
	return &TargetsComponent{
		config: cfg,
		logger: logger,
	}
}

func (c *TargetsComponent) Name() string {
	return TargetsComponentName
}

func (c *TargetsComponent) Dependencies() []string {
	return []string{}
}

func (c *TargetsComponent) Validate() error {
	return nil
}

func (c *TargetsComponent) Initialize(ctx context.Context) error {
	c.webhook = discord.NewWebhook("discord", c.config.Discord, c.logger)
	sinks := []targets.Sink{c.webhook}

	if c.config.Feed.Enabled {
		sinks = append(sinks, feed.New("feed", c.config.Feed, c.logger))
	}

	c.publisher = targets.NewPublisher(c.logger, sinks...)
	return nil
}

func (c *TargetsComponent) Close(ctx context.Context) error {
	if c.webhook != nil {
		c.webhook.Shutdown()
	}
	return nil
}

func (c *TargetsComponent) Publisher() *targets.Publisher {
	return c.publisher
}
