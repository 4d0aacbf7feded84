package core

import (
	"context"

	"newsdigest/internal/targets"
	"newsdigest/internal/types"
)

// Stage collaborators. The concrete implementations live in sources, history, curator
// and targets.

type Fetcher interface {
	Fetch(ctx context.Context) []types.CandidateItem
}

type HistoryFilter interface {
	FilterUnprocessed(ctx context.Context, candidates []types.CandidateItem) []types.CandidateItem
}

type Curator interface {
	Curate(ctx context.Context, candidates []types.CandidateItem, topN int) []types.CuratedItem
}

type Publisher interface {
	Publish(ctx context.Context, items []types.CuratedItem) targets.Outcome
}

type Recorder interface {
	Record(ctx context.Context, items []types.CuratedItem) error
}

type State string

const (
	StateStart     State = "START"
	StateFetched   State = "FETCHED"
	StateFiltered  State = "FILTERED"
	StateCurated   State = "CURATED"
	StatePublished State = "PUBLISHED"
	StateRecorded  State = "RECORDED"
	StateDone      State = "DONE"
)
