package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Runner is a single pipeline pass.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

type Bot struct {
	name       string
	pipeline   Runner
	interval   time.Duration
	runOnce    bool
	logger     *slog.Logger
	mu         sync.RWMutex
	running    bool
	inFlight   atomic.Bool
	runs       sync.WaitGroup
	stopCh     chan struct{}
	stopOnce   sync.Once
	shutdownFn func() error
}

type BotConfig struct {
	Name       string
	Pipeline   Runner
	Interval   time.Duration
	RunOnce    bool
	Logger     *slog.Logger
	ShutdownFn func() error
}

func NewBot(config BotConfig) *Bot {
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Bot{
		name:       config.Name,
		pipeline:   config.Pipeline,
		interval:   config.Interval,
		runOnce:    config.RunOnce,
		logger:     config.Logger.With("bot", config.Name),
		stopCh:     make(chan struct{}),
		shutdownFn: config.ShutdownFn,
	}
}

// Start blocks until the bot stops. In run-once mode it returns after a single run.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot already running")
	}
	b.running = true
	b.mu.Unlock()

	if b.runOnce {
		return b.runOnceMode(ctx)
	}

	return b.runContinuousMode(ctx)
}

func (b *Bot) runOnceMode(ctx context.Context) error {
	defer b.markStopped()

	if _, err := b.pipeline.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("pipeline execution failed: %w", err)
	}

	return nil
}

func (b *Bot) runContinuousMode(ctx context.Context) error {
	defer b.markStopped()
	defer b.runs.Wait()

	b.logger.Info("Bot started", "interval", b.interval)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.stopCh:
			return nil
		case <-ticker.C:
			b.trigger(ctx)
		}
	}
}

// trigger starts a run unless the previous one is still going.
func (b *Bot) trigger(ctx context.Context) {
	if !b.inFlight.CompareAndSwap(false, true) {
		b.logger.Warn("Previous run still in progress, skipping tick")
		return
	}

	b.runs.Add(1)
	go func() {
		defer b.runs.Done()
		defer b.inFlight.Store(false)

		report, err := b.pipeline.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error("Pipeline run failed", "run_id", report.RunID, "error", err)
		}
	}()
}

func (b *Bot) Stop(ctx context.Context) error {
	b.mu.RLock()
	running := b.running
	b.mu.RUnlock()

	if running {
		b.stopOnce.Do(func() { close(b.stopCh) })
	}

	done := make(chan struct{})
	go func() {
		b.runs.Wait()
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		b.logger.Warn("Timed out waiting for run to finish")
	}

	if b.shutdownFn != nil {
		if err := b.shutdownFn(); err != nil {
			return fmt.Errorf("custom shutdown failed: %w", err)
		}
	}

	return nil
}

func (b *Bot) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

func (b *Bot) Name() string {
	return b.name
}

func (b *Bot) markStopped() {
	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
}
