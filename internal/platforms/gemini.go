package platforms

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

type GeminiPlatform struct {
	llm     *googleai.GoogleAI
	model   string
	timeout time.Duration
}

func NewGeminiPlatform(ctx context.Context, model, apiKey string, timeout time.Duration) (*GeminiPlatform, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiPlatform{
		llm:     llm,
		model:   model,
		timeout: timeout,
	}, nil
}

func (g *GeminiPlatform) Name() string { return "gemini" }

func (g *GeminiPlatform) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	text, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithModel(g.model))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return text, nil
}
