package sources

import (
	"context"
	"log/slog"

	"newsdigest/internal/types"
)

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]types.CandidateItem, error)
}

// Reader pulls every configured source in order and drops repeated IDs, keeping the
// first occurrence. A failing source contributes nothing; Fetch itself never fails.
type Reader struct {
	sources []Source
	logger  *slog.Logger
}

func NewReader(sources []Source, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		sources: sources,
		logger:  logger,
	}
}

func (r *Reader) Sources() []Source {
	return r.sources
}

func (r *Reader) Fetch(ctx context.Context) []types.CandidateItem {
	seen := make(map[string]struct{})
	items := make([]types.CandidateItem, 0)

	for _, source := range r.sources {
		if ctx.Err() != nil {
			break
		}

		fetched, err := source.Fetch(ctx)
		if err != nil {
			stageErr := types.NewStageError(types.SourceUnavailable, "fetch", err)
			r.logger.Warn("Source failed, continuing without it", "source", source.Name(), "error", stageErr)
			continue
		}

		added := 0
		for _, item := range fetched {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			items = append(items, item)
			added++
		}

		r.logger.Info("Source fetched", "source", source.Name(), "count", len(fetched), "new", added)
	}

	return items
}
