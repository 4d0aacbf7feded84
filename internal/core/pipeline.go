package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"newsdigest/internal/targets"
)

type PipelineConfig struct {
	Reader            Fetcher
	Filter            HistoryFilter
	Curator           Curator
	Publisher         Publisher
	Recorder          Recorder
	TopN              int
	RecordWhenSkipped bool
	Logger            *slog.Logger
}

// Report summarizes one run.
type Report struct {
	RunID       string
	Path        []State
	Fetched     int
	Unprocessed int
	Curated     int
	Outcome     targets.Outcome
	Recorded    bool
	RecordErr   error
	Duration    time.Duration
}

// Final returns the last state reached before DONE.
func (r Report) Final() State {
	for i := len(r.Path) - 1; i >= 0; i-- {
		if r.Path[i] != StateDone {
			return r.Path[i]
		}
	}
	return StateStart
}

type Pipeline struct {
	reader            Fetcher
	filter            HistoryFilter
	curator           Curator
	publisher         Publisher
	recorder          Recorder
	topN              int
	recordWhenSkipped bool
	logger            *slog.Logger
}

func NewPipeline(config PipelineConfig) (*Pipeline, error) {
	switch {
	case config.Reader == nil:
		return nil, fmt.Errorf("pipeline: reader is required")
	case config.Filter == nil:
		return nil, fmt.Errorf("pipeline: history filter is required")
	case config.Curator == nil:
		return nil, fmt.Errorf("pipeline: curator is required")
	case config.Publisher == nil:
		return nil, fmt.Errorf("pipeline: publisher is required")
	case config.Recorder == nil:
		return nil, fmt.Errorf("pipeline: recorder is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		reader:            config.Reader,
		filter:            config.Filter,
		curator:           config.Curator,
		publisher:         config.Publisher,
		recorder:          config.Recorder,
		topN:              config.TopN,
		recordWhenSkipped: config.RecordWhenSkipped,
		logger:            logger,
	}, nil
}

// Run executes one pass of fetch, filter, curate, publish and record. Stage failures are
// contained and reported; the error is non-nil only when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString(), Path: []State{StateStart}}
	logger := p.logger.With("run_id", report.RunID)

	finish := func(err error) (Report, error) {
		report.Path = append(report.Path, StateDone)
		report.Duration = time.Since(start)
		logger.Info("Run finished",
			"state", report.Final(),
			"fetched", report.Fetched,
			"unprocessed", report.Unprocessed,
			"curated", report.Curated,
			"outcome", report.Outcome.String(),
			"recorded", report.Recorded,
			"duration", report.Duration)
		return report, err
	}
	advance := func(state State) {
		report.Path = append(report.Path, state)
		logger.Debug("Pipeline state", "state", state)
	}

	logger.Info("Starting run")

	candidates := p.reader.Fetch(ctx)
	report.Fetched = len(candidates)
	advance(StateFetched)
	if err := ctx.Err(); err != nil {
		return finish(err)
	}
	if len(candidates) == 0 {
		logger.Info("No articles found")
		return finish(nil)
	}

	unprocessed := p.filter.FilterUnprocessed(ctx, candidates)
	report.Unprocessed = len(unprocessed)
	advance(StateFiltered)
	if err := ctx.Err(); err != nil {
		return finish(err)
	}
	if len(unprocessed) == 0 {
		logger.Info("No new articles to process")
		return finish(nil)
	}

	curated := p.curator.Curate(ctx, unprocessed, p.topN)
	report.Curated = len(curated)
	advance(StateCurated)
	if err := ctx.Err(); err != nil {
		return finish(err)
	}
	if len(curated) == 0 {
		logger.Info("No articles selected")
		return finish(nil)
	}

	report.Outcome = p.publisher.Publish(ctx, curated)
	advance(StatePublished)
	if err := ctx.Err(); err != nil {
		return finish(err)
	}

	if !p.shouldRecord(report.Outcome) {
		logger.Warn("Not recording items", "outcome", report.Outcome.String())
		return finish(nil)
	}

	if err := p.recorder.Record(ctx, curated); err != nil {
		report.RecordErr = err
	} else {
		report.Recorded = true
	}
	advance(StateRecorded)

	return finish(ctx.Err())
}

// Failed publishes are not recorded so the items are offered again next run.
func (p *Pipeline) shouldRecord(outcome targets.Outcome) bool {
	switch outcome {
	case targets.Published:
		return true
	case targets.Skipped:
		return p.recordWhenSkipped
	default:
		return false
	}
}
