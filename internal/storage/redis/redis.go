// Package redis stores history in a single hash mapping item ID to its JSON record.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"newsdigest/internal/config"
	"newsdigest/internal/storage"
	"newsdigest/internal/types"
)

func init() {
	storage.RegisterFactory("redis", func(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
		return New(ctx, cfg.DSN, cfg.Table, config.ParseDuration(cfg.Timeout, 5*time.Second))
	})
}

type entry struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at"`
	CreatedAt   string `json:"created_at"`
}

type RedisStorage struct {
	client *goredis.Client
	key    string
}

func New(ctx context.Context, url, key string, timeout time.Duration) (*RedisStorage, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url: %w", storage.ErrNotConfigured)
	}

	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return NewWithClient(ctx, goredis.NewClient(opts), key, timeout)
}

func NewWithClient(ctx context.Context, client *goredis.Client, key string, timeout time.Duration) (*RedisStorage, error) {
	if key == "" {
		key = config.DefaultTable
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	slog.Info("Initialized Redis storage", "key", key)
	return &RedisStorage{client: client, key: key}, nil
}

func (s *RedisStorage) ExistsBatch(ctx context.Context, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(ids) == 0 {
		return found, nil
	}

	values, err := s.client.HMGet(ctx, s.key, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("hmget %s: %w", s.key, err)
	}

	for i, v := range values {
		if v != nil {
			found[ids[i]] = struct{}{}
		}
	}
	return found, nil
}

func (s *RedisStorage) InsertBatch(ctx context.Context, records []types.ProcessedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	cmds := make([]*goredis.BoolCmd, 0, len(records))

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, r := range records {
			value, err := json.Marshal(entry{
				Title:       r.Title,
				Summary:     r.Summary,
				PublishedAt: r.PublishedAt,
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
			cmds = append(cmds, pipe.HSetNX(ctx, s.key, r.ID, value))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("hsetnx %s: %w", s.key, err)
	}

	inserted := 0
	for _, cmd := range cmds {
		if cmd.Val() {
			inserted++
		}
	}
	return inserted, nil
}

func (s *RedisStorage) Close(context.Context) error {
	return s.client.Close()
}
