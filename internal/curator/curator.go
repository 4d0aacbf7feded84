// Package curator scores candidates with an oracle provider and keeps the best ones.
package curator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"text/template"
	"time"

	"golang.org/x/time/rate"

	"newsdigest/internal/platforms"
	"newsdigest/internal/types"
)

type Strategy string

const (
	PerItem Strategy = "per_item"
	Batch   Strategy = "batch"
)

// TextExtractor supplies article text to enrich the prompt.
type TextExtractor interface {
	Text(ctx context.Context, url string) (string, error)
}

type Options struct {
	Strategy  Strategy
	Delay     time.Duration
	Language  string
	Template  *template.Template
	Extractor TextExtractor
}

type Curator struct {
	provider  platforms.Provider
	strategy  Strategy
	language  string
	prompt    *template.Template
	limiter   *rate.Limiter
	extractor TextExtractor
	logger    *slog.Logger
}

func New(provider platforms.Provider, opts Options, logger *slog.Logger) (*Curator, error) {
	if provider == nil {
		return nil, fmt.Errorf("curator: provider cannot be nil")
	}

	strategy := opts.Strategy
	switch strategy {
	case "":
		strategy = PerItem
	case PerItem, Batch:
	default:
		return nil, fmt.Errorf("curator: unsupported strategy %q", strategy)
	}

	prompt := opts.Template
	if prompt == nil {
		prompt = defaultTemplate(strategy)
	}

	language := opts.Language
	if language == "" {
		language = "Japanese"
	}

	// A token bucket of size one spaces request starts by at least Delay without waiting
	// before the first request or after the last.
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	return &Curator{
		provider:  provider,
		strategy:  strategy,
		language:  language,
		prompt:    prompt,
		limiter:   rate.NewLimiter(limit, 1),
		extractor: opts.Extractor,
		logger:    logger,
	}, nil
}

func (c *Curator) Strategy() Strategy {
	return c.strategy
}

// Curate returns at most topN curated items ordered by descending score. Items with equal
// scores keep their candidate order.
func (c *Curator) Curate(ctx context.Context, candidates []types.CandidateItem, topN int) []types.CuratedItem {
	if len(candidates) == 0 || topN <= 0 {
		return []types.CuratedItem{}
	}

	if platforms.IsDisabled(c.provider) {
		c.logger.Warn("Oracle provider disabled, skipping curation", "provider", c.provider.Name(), "candidates", len(candidates))
		return []types.CuratedItem{}
	}

	var curated []types.CuratedItem
	switch c.strategy {
	case Batch:
		curated = c.curateBatch(ctx, candidates)
	default:
		curated = c.curatePerItem(ctx, candidates)
	}

	sort.SliceStable(curated, func(i, j int) bool {
		return curated[i].Score > curated[j].Score
	})

	if len(curated) > topN {
		curated = curated[:topN]
	}

	c.logger.Info("Curation complete", "strategy", c.strategy, "candidates", len(candidates), "selected", len(curated))
	return curated
}

func (c *Curator) curatePerItem(ctx context.Context, candidates []types.CandidateItem) []types.CuratedItem {
	curated := make([]types.CuratedItem, 0, len(candidates))

	for i, candidate := range candidates {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn("Curation interrupted", "processed", i, "error", err)
			break
		}

		c.logger.Debug("Scoring item", "index", i+1, "total", len(candidates), "title", candidate.Title)

		item, err := c.scoreItem(ctx, candidate)
		if err != nil {
			c.logger.Warn("Dropping item", "id", candidate.ID, "error", err)
			continue
		}
		curated = append(curated, item)
	}

	return curated
}

func (c *Curator) scoreItem(ctx context.Context, candidate types.CandidateItem) (types.CuratedItem, error) {
	prompt, err := render(c.prompt, promptData{
		Language: c.language,
		Item:     newPromptItem(candidate, c.articleText(ctx, candidate)),
	})
	if err != nil {
		return types.CuratedItem{}, err
	}

	raw, err := c.provider.Complete(ctx, prompt)
	if err != nil {
		return types.CuratedItem{}, types.NewStageError(types.OracleUnavailable, "curate", err)
	}

	item, err := parseItem(raw, candidate)
	if err != nil {
		return types.CuratedItem{}, types.NewStageError(types.OracleMalformedResponse, "curate", err)
	}
	return item, nil
}

// curateBatch fails closed: any error producing or parsing the list yields no items.
func (c *Curator) curateBatch(ctx context.Context, candidates []types.CandidateItem) []types.CuratedItem {
	items := make([]promptItem, 0, len(candidates))
	for _, candidate := range candidates {
		items = append(items, newPromptItem(candidate, c.articleText(ctx, candidate)))
	}

	prompt, err := render(c.prompt, promptData{Language: c.language, Items: items})
	if err != nil {
		c.logger.Error("Failed to render batch prompt", "error", err)
		return []types.CuratedItem{}
	}

	raw, err := c.provider.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("Batch curation failed", "error", types.NewStageError(types.OracleUnavailable, "curate", err))
		return []types.CuratedItem{}
	}

	curated, dropped, err := parseBatch(raw, candidates)
	if err != nil {
		c.logger.Warn("Batch curation failed", "error", types.NewStageError(types.OracleMalformedResponse, "curate", err))
		return []types.CuratedItem{}
	}

	if dropped > 0 {
		c.logger.Debug("Dropped batch entries", "dropped", dropped)
	}
	return curated
}

func (c *Curator) articleText(ctx context.Context, candidate types.CandidateItem) string {
	if c.extractor == nil {
		return ""
	}

	text, err := c.extractor.Text(ctx, candidate.ID)
	if err != nil {
		c.logger.Debug("Article text unavailable", "id", candidate.ID, "error", err)
		return ""
	}
	return text
}
