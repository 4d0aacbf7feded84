package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"newsdigest/internal/config"
	"newsdigest/internal/loader"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "newsdigest",
		Short:         "AI news digest bot",
		Long:          "Fetches AI news, ranks unseen articles with an LLM and posts the best ones to Discord.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file")

	root.AddCommand(
		runCmd(&configPath),
		onceCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the digest on the configured interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), *configPath, false)
		},
	}
}

func onceCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run the digest a single time and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), *configPath, true)
		},
	}
}

func run(parent context.Context, configPath string, forceOnce bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if forceOnce {
		cfg.Bot.RunOnce = true
	}

	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	logger.Info("Loaded configuration", "path", configPath)

	st, err := loader.NewLoader(cfg, logger).Initialize(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	bot := st.Bot

	logger.Info("Starting bot", "bot", bot.Name(), "run_once", cfg.Bot.RunOnce)

	errChan := make(chan error, 1)
	go func() {
		errChan <- bot.Start(ctx)
	}()

	var runErr error
	select {
	case runErr = <-errChan:
	case <-ctx.Done():
		logger.Info("Initiating shutdown")
		runErr = <-errChan
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := bot.Stop(shutdownCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("shutdown error: %w", err))
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("Bot stopped successfully")
	return nil
}
