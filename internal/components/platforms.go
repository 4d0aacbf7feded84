package components

import (
	"context"
	"fmt"
	"log/slog"

	"newsdigest/internal/config"
	"newsdigest/internal/platforms"
)

type PlatformComponent struct {
	config   config.PlatformConfig
	logger   *slog.Logger
	provider platforms.Provider
}

func NewPlatformComponent(cfg config.PlatformConfig, logger *slog.Logger) *PlatformComponent {
	return &PlatformComponent{
		config: cfg,
		logger: logger,
	}
}

func (c *PlatformComponent) Name() string {
	return PlatformComponentName
}

func (c *PlatformComponent) Dependencies() []string {
	return []string{}
}

func (c *PlatformComponent) Validate() error {
	switch c.config.Type {
	case "", "gemini", "openai", "ollama":
		return nil
	default:
		return fmt.Errorf("platform: unsupported type %s", c.config.Type)
	}
}

func (c *PlatformComponent) Initialize(ctx context.Context) error {
	provider, err := platforms.New(ctx, c.config, c.logger)
	if err != nil {
		return fmt.Errorf("platform: %w", err)
	}
	c.provider = provider
	return nil
}

func (c *PlatformComponent) Close(ctx context.Context) error {
	return nil
}

func (c *PlatformComponent) Provider() platforms.Provider {
	return c.provider
}
