// Package sqlstore implements the history store on database/sql for the sqlite and
// postgres backends. Both share the ai_news_articles schema from their migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"newsdigest/internal/types"
)

const (
	Table = "ai_news_articles"

	// chunkSize keeps statements under SQLite's bound-parameter limit.
	chunkSize = 200
)

type Store struct {
	db          *sql.DB
	placeholder sq.PlaceholderFormat
}

func New(db *sql.DB, placeholder sq.PlaceholderFormat) *Store {
	return &Store{
		db:          db,
		placeholder: placeholder,
	}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ExistsBatch(ctx context.Context, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})

	for _, chunk := range chunks(ids, chunkSize) {
		query, args, err := sq.Select("url").
			From(Table).
			Where(sq.Eq{"url": chunk}).
			PlaceholderFormat(s.placeholder).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build existence query: %w", err)
		}

		if err := s.collect(ctx, query, args, found); err != nil {
			return nil, err
		}
	}

	return found, nil
}

func (s *Store) collect(ctx context.Context, query string, args []interface{}, found map[string]struct{}) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return fmt.Errorf("failed to scan url: %w", err)
		}
		found[url] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}
	return nil
}

func (s *Store) InsertBatch(ctx context.Context, records []types.ProcessedRecord) (int, error) {
	inserted := 0

	for _, chunk := range chunks(records, chunkSize) {
		builder := sq.Insert(Table).
			Columns("url", "title", "summary", "published_at").
			Suffix("ON CONFLICT (url) DO NOTHING").
			PlaceholderFormat(s.placeholder)

		for _, r := range chunk {
			builder = builder.Values(r.ID, r.Title, r.Summary, r.PublishedAt)
		}

		query, args, err := builder.ToSql()
		if err != nil {
			return inserted, fmt.Errorf("failed to build insert: %w", err)
		}

		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert records: %w", err)
		}

		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	slog.Debug("Inserted history records", "requested", len(records), "inserted", inserted)
	return inserted, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
