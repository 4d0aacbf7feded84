package storage

import (
	"context"
	"fmt"

	"newsdigest/internal/types"
)

// Disabled stands in for a store whose credentials are missing or whose backend could not
// be reached at startup. Every operation fails with StoreUnavailable.
type Disabled struct {
	Reason string
}

func NewDisabled(reason string) *Disabled {
	return &Disabled{Reason: reason}
}

func (d *Disabled) err() error {
	return types.NewStageError(types.StoreUnavailable, "storage", fmt.Errorf("store disabled: %s", d.Reason))
}

func (d *Disabled) ExistsBatch(context.Context, []string) (map[string]struct{}, error) {
	return nil, d.err()
}

func (d *Disabled) InsertBatch(context.Context, []types.ProcessedRecord) (int, error) {
	return 0, d.err()
}

func (d *Disabled) Close(context.Context) error {
	return nil
}
