// Package supabase stores history through the Supabase PostgREST API.
package supabase

import (
	"context"
	"fmt"
	"log/slog"

	supa "github.com/supabase-community/supabase-go"

	"newsdigest/internal/config"
	"newsdigest/internal/storage"
	"newsdigest/internal/types"
)

// PostgREST encodes the id set into the query string, so lookups are chunked.
const lookupChunk = 50

func init() {
	storage.RegisterFactory("supabase", func(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
		return New(cfg.URL, cfg.Key, cfg.Table)
	})
}

type row struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at"`
}

type SupabaseStorage struct {
	client *supa.Client
	table  string
}

func New(url, key, table string) (*SupabaseStorage, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase url and key: %w", storage.ErrNotConfigured)
	}
	if table == "" {
		table = config.DefaultTable
	}

	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize supabase client: %w", err)
	}

	slog.Info("Initialized Supabase storage", "table", table)
	return &SupabaseStorage{client: client, table: table}, nil
}

func (s *SupabaseStorage) ExistsBatch(ctx context.Context, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})

	for start := 0; start < len(ids); start += lookupChunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+lookupChunk, len(ids))

		var rows []row
		_, err := s.client.From(s.table).
			Select("url", "", false).
			In("url", ids[start:end]).
			ExecuteTo(&rows)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", s.table, err)
		}

		for _, r := range rows {
			found[r.URL] = struct{}{}
		}
	}

	return found, nil
}

// InsertBatch skips IDs that already exist so stored rows are never overwritten.
func (s *SupabaseStorage) InsertBatch(ctx context.Context, records []types.ProcessedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}

	existing, err := s.ExistsBatch(ctx, ids)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(records))
	rows := make([]row, 0, len(records))
	for _, r := range records {
		if _, ok := existing[r.ID]; ok {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		rows = append(rows, row{
			URL:         r.ID,
			Title:       r.Title,
			Summary:     r.Summary,
			PublishedAt: r.PublishedAt,
		})
	}

	if len(rows) == 0 {
		return 0, nil
	}

	if _, _, err := s.client.From(s.table).Insert(rows, false, "", "minimal", "").Execute(); err != nil {
		return 0, fmt.Errorf("insert into %s: %w", s.table, err)
	}

	return len(rows), nil
}

func (s *SupabaseStorage) Close(context.Context) error {
	return nil
}
