package loader

import (
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"newsdigest/internal/components"
	"newsdigest/internal/config"
	"newsdigest/internal/core"
	"newsdigest/internal/curator"
	"newsdigest/internal/extract"
	"newsdigest/internal/history"
	"newsdigest/internal/platforms"
	"newsdigest/internal/sources"
	"newsdigest/internal/state"
)

const (
	extractTimeout  = 30 * time.Second
	extractCacheTTL = 48 * time.Hour
)

type Loader struct {
	config *config.Config
	logger *slog.Logger
}

func NewLoader(cfg *config.Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		config: cfg,
		logger: logger,
	}
}

func (l *Loader) Initialize(ctx context.Context) (*state.State, error) {
	registry := components.NewRegistry(l.logger)
	l.logger.Info("Initializing all components")

	if err := registry.Register(components.NewStorageComponent(l.config.Storage, l.logger)); err != nil {
		return nil, fmt.Errorf("failed to register storage component: %w", err)
	}

	if err := registry.Register(components.NewPlatformComponent(l.config.Platform, l.logger)); err != nil {
		return nil, fmt.Errorf("failed to register platform component: %w", err)
	}

	if err := registry.Register(components.NewTargetsComponent(l.config.Targets, l.logger)); err != nil {
		return nil, fmt.Errorf("failed to register targets component: %w", err)
	}

	if err := registry.InitializeAll(ctx); err != nil {
		_ = registry.CloseAll(ctx)
		return nil, fmt.Errorf("component initialization failed: %w", err)
	}

	l.logger.Info("All components initialized successfully", "order", registry.Order())

	pipeline, err := l.buildPipeline(ctx, registry)
	if err != nil {
		_ = registry.CloseAll(ctx)
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	bot := core.NewBot(core.BotConfig{
		Name:     l.config.Bot.Name,
		Pipeline: pipeline,
		Interval: config.ParseDuration(l.config.Bot.Interval, 24*time.Hour),
		RunOnce:  l.config.Bot.RunOnce,
		Logger:   l.logger,
		ShutdownFn: func() error {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return registry.CloseAll(closeCtx)
		},
	})

	return state.NewState(l.config, registry, pipeline, bot), nil
}

func (l *Loader) buildPipeline(ctx context.Context, registry *components.Registry) (*core.Pipeline, error) {
	store := registry.Get(components.StorageComponentName).(*components.StorageComponent).Store()
	provider := registry.Get(components.PlatformComponentName).(*components.PlatformComponent).Provider()
	publisher := registry.Get(components.TargetsComponentName).(*components.TargetsComponent).Publisher()

	srcs, err := l.buildSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build sources: %w", err)
	}

	cur, err := l.buildCurator(provider)
	if err != nil {
		return nil, err
	}

	return core.NewPipeline(core.PipelineConfig{
		Reader:            sources.NewReader(srcs, l.logger),
		Filter:            history.NewFilter(store, l.config.Pipeline.HistoryCap, l.logger),
		Curator:           cur,
		Publisher:         publisher,
		Recorder:          history.NewRecorder(store, l.logger),
		TopN:              l.config.Curator.TopN,
		RecordWhenSkipped: l.config.Pipeline.ShouldRecordWhenSkipped(),
		Logger:            l.logger,
	})
}

func (l *Loader) buildCurator(provider platforms.Provider) (*curator.Curator, error) {
	cfg := l.config.Curator

	var tmpl *template.Template
	if cfg.PromptFile != "" {
		loaded, err := curator.LoadTemplate(cfg.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompt template: %w", err)
		}
		tmpl = loaded
	}

	opts := curator.Options{
		Strategy: curator.Strategy(cfg.Strategy),
		Delay:    config.ParseDuration(cfg.Delay, 3*time.Second),
		Language: cfg.Language,
		Template: tmpl,
	}
	if cfg.ExtractText {
		opts.Extractor = extract.New(cfg.ExtractLimit, extractTimeout).WithCache(extractCacheTTL)
	}

	return curator.New(provider, opts, l.logger)
}

func (l *Loader) buildSources(ctx context.Context) ([]sources.Source, error) {
	var out []sources.Source

	for _, sourceCfg := range l.config.Sources {
		if !sourceCfg.Enabled {
			continue
		}

		created, err := l.createSource(ctx, sourceCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create source %s: %w", sourceCfg.Name, err)
		}
		out = append(out, created...)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no enabled sources")
	}
	return out, nil
}

func (l *Loader) createSource(ctx context.Context, cfg config.SourceConfig) ([]sources.Source, error) {
	switch cfg.Type {
	case "google_news":
		return []sources.Source{
			sources.NewGoogleNewsSource(cfg.Name, cfg.Query, cfg.Language, cfg.Region, cfg.MaxItems, l.logger),
		}, nil

	case "rss":
		if cfg.FeedURL == "" {
			return nil, fmt.Errorf("feed_url is required for RSS source")
		}
		return []sources.Source{
			sources.NewRSSSource(cfg.Name, cfg.FeedURL, cfg.MaxItems, l.logger),
		}, nil

	case "opml":
		return sources.NewOPMLSources(ctx, cfg.Name, cfg.FeedURL, cfg.MaxItems, l.logger)

	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Type)
	}
}

func LoadAndBuild(ctx context.Context, configPath string, logger *slog.Logger) (*state.State, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewLoader(cfg, logger).Initialize(ctx)
}
