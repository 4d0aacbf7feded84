package components

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"newsdigest/internal/config"
	"newsdigest/internal/storage"
	_ "newsdigest/internal/storage/mongo"
	_ "newsdigest/internal/storage/postgres"
	_ "newsdigest/internal/storage/redis"
	_ "newsdigest/internal/storage/sqlite"
	_ "newsdigest/internal/storage/supabase"
)

// StorageComponent opens the history store. A backend that cannot be opened is replaced
// with a disabled store so the run continues without deduplication.
type StorageComponent struct {
	config config.StorageConfig
	logger *slog.Logger
	store  storage.Store
}

func NewStorageComponent(cfg config.StorageConfig, logger *slog.Logger) *StorageComponent {
	return &StorageComponent{
		config: cfg,
		logger: logger,
	}
}

func (c *StorageComponent) Name() string {
	return StorageComponentName
}

func (c *StorageComponent) Dependencies() []string {
	return []string{}
}

func (c *StorageComponent) Validate() error {
	storageType := c.config.Type
	if storageType == "" {
		storageType = "sqlite"
	}
	if !slices.Contains(storage.Registered(), storageType) {
		return fmt.Errorf("storage: unsupported type %s", storageType)
	}
	return nil
}

func (c *StorageComponent) Initialize(ctx context.Context) error {
	store, err := storage.New(ctx, c.config)
	if err != nil {
		c.logger.Warn("History store unavailable, continuing without it",
			"type", c.config.Type,
			"error", err)
		c.store = storage.NewDisabled(err.Error())
		return nil
	}

	c.logger.Info("History store ready", "type", c.config.Type)
	c.store = store
	return nil
}

func (c *StorageComponent) Close(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Close(ctx)
}

func (c *StorageComponent) Store() storage.Store {
	return c.store
}
