// Package targets publishes curated digests to one or more sinks.
package targets

import (
	"context"
	"log/slog"

	"newsdigest/internal/types"
)

type Outcome int

const (
	Skipped Outcome = iota
	Published
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Published:
		return "published"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// Sink delivers a whole digest. A sink that is not configured returns Skipped.
type Sink interface {
	Name() string
	Publish(ctx context.Context, items []types.CuratedItem) (Outcome, error)
}

type Publisher struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger, sinks ...Sink) *Publisher {
	return &Publisher{sinks: sinks, logger: logger}
}

func (p *Publisher) Sinks() []Sink {
	return p.sinks
}

// Publish sends items to every sink in order. The result is Published when any sink
// published, Skipped when every sink skipped, and Failed otherwise.
func (p *Publisher) Publish(ctx context.Context, items []types.CuratedItem) Outcome {
	if len(p.sinks) == 0 {
		p.logger.Warn("No publish targets configured, skipping publish")
		return Skipped
	}

	published, failed := 0, 0
	for _, sink := range p.sinks {
		outcome, err := sink.Publish(ctx, items)
		switch outcome {
		case Published:
			published++
			p.logger.Info("Published digest", "target", sink.Name(), "items", len(items))
		case Failed:
			failed++
			p.logger.Error("Failed to publish digest", "target", sink.Name(), "error", err)
		default:
			p.logger.Warn("Skipped publishing digest", "target", sink.Name(), "error", err)
		}
	}

	switch {
	case published > 0:
		return Published
	case failed > 0:
		return Failed
	default:
		return Skipped
	}
}
