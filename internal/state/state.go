package state

import (
	"context"

	"newsdigest/internal/components"
	"newsdigest/internal/config"
	"newsdigest/internal/core"
)

// State is everything a command needs after loading: the resolved config, the
// initialized components, the pipeline and the bot that schedules it.
type State struct {
	Config   *config.Config
	Registry *components.Registry
	Pipeline *core.Pipeline
	Bot      *core.Bot
}

func NewState(cfg *config.Config, registry *components.Registry, pipeline *core.Pipeline, bot *core.Bot) *State {
	return &State{
		Config:   cfg,
		Registry: registry,
		Pipeline: pipeline,
		Bot:      bot,
	}
}

func (s *State) Close(ctx context.Context) error {
	if s.Registry == nil {
		return nil
	}
	return s.Registry.CloseAll(ctx)
}
