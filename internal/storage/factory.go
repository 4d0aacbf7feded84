package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"newsdigest/internal/config"
)

// ErrNotConfigured is returned by a factory when a required credential or endpoint is unset.
var ErrNotConfigured = errors.New("storage not configured")

type FactoryFunc func(ctx context.Context, cfg config.StorageConfig) (Store, error)

var (
	factoryFuncs = map[string]FactoryFunc{}
	mu           sync.RWMutex
)

func RegisterFactory(storageType string, fn FactoryFunc) {
	mu.Lock()
	defer mu.Unlock()
	factoryFuncs[storageType] = fn
}

func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factoryFuncs))
	for name := range factoryFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "sqlite"
	}

	mu.RLock()
	fn, exists := factoryFuncs[storageType]
	mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}

	return fn(ctx, cfg)
}

func init() {
	RegisterFactory("memory", func(context.Context, config.StorageConfig) (Store, error) {
		return NewMemory(), nil
	})
}
