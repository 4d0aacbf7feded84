package storage

import (
	"context"

	"newsdigest/internal/types"
)

// Store is the persisted history of published items, keyed by item ID.
type Store interface {
	// ExistsBatch reports which of ids are already recorded.
	ExistsBatch(ctx context.Context, ids []string) (map[string]struct{}, error)
	// InsertBatch writes records, ignoring IDs that already exist, and returns how many were new.
	InsertBatch(ctx context.Context, records []types.ProcessedRecord) (int, error)
	Close(ctx context.Context) error
}
