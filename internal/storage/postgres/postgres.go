// Package postgres stores history in a Postgres table through the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"newsdigest/internal/config"
	"newsdigest/internal/storage"
	"newsdigest/internal/storage/sqlstore"
)

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	storage.RegisterFactory("postgres", func(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
		return New(ctx, cfg.DSN, config.ParseDuration(cfg.Timeout, 10*time.Second))
	})
}

type PostgresStorage struct {
	*sqlstore.Store
}

func New(ctx context.Context, dsn string, timeout time.Duration) (*PostgresStorage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn: %w", storage.ErrNotConfigured)
	}

	slog.Info("Initializing Postgres storage")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStorage{Store: sqlstore.New(db, sq.Dollar)}, nil
}
