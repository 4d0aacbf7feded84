package history

import (
	"context"
	"log/slog"

	"newsdigest/internal/storage"
	"newsdigest/internal/types"
)

type Recorder struct {
	store  storage.Store
	logger *slog.Logger
}

func NewRecorder(store storage.Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record writes one record per item. Errors are logged and returned but never retried.
func (r *Recorder) Record(ctx context.Context, items []types.CuratedItem) error {
	if len(items) == 0 {
		return nil
	}

	inserted, err := r.store.InsertBatch(ctx, types.Records(items))
	if err != nil {
		if !types.IsKind(err, types.StoreUnavailable) {
			err = types.NewStageError(types.StoreUnavailable, "record", err)
		}
		r.logger.Error("Failed to record processed items", "items", len(items), "error", err)
		return err
	}

	r.logger.Info("Recorded processed items", "items", len(items), "inserted", inserted)
	return nil
}
