package platforms

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIPlatform calls any OpenAI-compatible chat completions endpoint.
type OpenAIPlatform struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIPlatform(model, apiKey, baseURL string, timeout time.Duration) *OpenAIPlatform {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIPlatform{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}
}

func (o *OpenAIPlatform) Name() string { return "openai" }

func (o *OpenAIPlatform) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
