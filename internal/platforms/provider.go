package platforms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsdigest/internal/config"
	"newsdigest/internal/types"
)

// Provider is an oracle that answers a single prompt with raw text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Disabled stands in for a provider whose credential is unset.
type Disabled struct {
	Platform string
	Reason   string
}

func (d *Disabled) Name() string {
	return d.Platform
}

func (d *Disabled) Complete(context.Context, string) (string, error) {
	return "", types.NewStageError(types.OracleUnavailable, "curate", fmt.Errorf("%s disabled: %s", d.Platform, d.Reason))
}

// IsDisabled reports whether p is the capability-absent provider.
func IsDisabled(p Provider) bool {
	_, ok := p.(*Disabled)
	return ok
}

// New builds the provider selected by cfg. A missing credential yields a Disabled provider
// rather than an error; only a broken configuration is reported as one.
func New(ctx context.Context, cfg config.PlatformConfig, logger *slog.Logger) (Provider, error) {
	timeout := config.ParseDuration(cfg.Timeout, 60*time.Second)

	switch cfg.Type {
	case "ollama":
		return NewOllamaPlatform(cfg.Model, cfg.BaseURL, timeout)
	case "openai":
		if cfg.APIKey == "" {
			logger.Warn("OpenAI API key not set, curation disabled")
			return &Disabled{Platform: "openai", Reason: "api key not set"}, nil
		}
		return NewOpenAIPlatform(cfg.Model, cfg.APIKey, cfg.BaseURL, timeout), nil
	case "", "gemini":
		if cfg.APIKey == "" {
			logger.Warn("Gemini API key not set, curation disabled")
			return &Disabled{Platform: "gemini", Reason: "api key not set"}, nil
		}
		return NewGeminiPlatform(ctx, cfg.Model, cfg.APIKey, timeout)
	default:
		return nil, fmt.Errorf("unsupported platform type: %s", cfg.Type)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
