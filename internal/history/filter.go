// Package history decides which candidates are new and records what was published.
package history

import (
	"context"
	"log/slog"

	"newsdigest/internal/storage"
	"newsdigest/internal/types"
)

const DefaultCap = 10

// Filter removes already processed candidates and bounds how many reach the curator.
type Filter struct {
	store  storage.Store
	limit  int
	logger *slog.Logger
}

func NewFilter(store storage.Store, limit int, logger *slog.Logger) *Filter {
	if limit <= 0 {
		limit = DefaultCap
	}
	return &Filter{store: store, limit: limit, logger: logger}
}

func (f *Filter) Cap() int {
	return f.limit
}

// FilterUnprocessed returns the candidates absent from the store in input order, truncated
// to the cap. When the store cannot be queried the first cap candidates are returned.
func (f *Filter) FilterUnprocessed(ctx context.Context, candidates []types.CandidateItem) []types.CandidateItem {
	if len(candidates) == 0 {
		return []types.CandidateItem{}
	}

	existing, err := f.store.ExistsBatch(ctx, types.IDs(candidates))
	if err != nil {
		if !types.IsKind(err, types.StoreUnavailable) {
			err = types.NewStageError(types.StoreUnavailable, "filter", err)
		}
		fallback := f.truncate(candidates)
		f.logger.Warn("History lookup failed, treating candidates as unprocessed",
			"error", err,
			"candidates", len(candidates),
			"kept", len(fallback))
		return fallback
	}

	unprocessed := make([]types.CandidateItem, 0, len(candidates))
	for _, c := range candidates {
		if _, seen := existing[c.ID]; !seen {
			unprocessed = append(unprocessed, c)
		}
	}

	result := f.truncate(unprocessed)
	f.logger.Info("Filtered candidates against history",
		"candidates", len(candidates),
		"already_processed", len(candidates)-len(unprocessed),
		"kept", len(result))
	return result
}

func (f *Filter) truncate(items []types.CandidateItem) []types.CandidateItem {
	n := min(len(items), f.limit)
	out := make([]types.CandidateItem, n)
	copy(out, items[:n])
	return out
}
