package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

type OllamaPlatform struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewOllamaPlatform talks to baseURL when set, otherwise to OLLAMA_HOST.
func NewOllamaPlatform(model, baseURL string, timeout time.Duration) (*OllamaPlatform, error) {
	if model == "" {
		return nil, fmt.Errorf("failed to create Ollama client, model cannot be empty")
	}

	var client *api.Client
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama base_url: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
	}

	return &OllamaPlatform{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

func (o *OllamaPlatform) Name() string { return "ollama" }

func (o *OllamaPlatform) Client() *api.Client { return o.client }

func (o *OllamaPlatform) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: new(bool),
	}

	var out strings.Builder
	respFunc := func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	}

	if err := o.client.Generate(ctx, req, respFunc); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	return out.String(), nil
}
