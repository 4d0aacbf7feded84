// Package mongo stores history as documents whose _id is the item ID.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"newsdigest/internal/config"
	"newsdigest/internal/storage"
	"newsdigest/internal/types"
)

const duplicateKeyCode = 11000

func init() {
	storage.RegisterFactory("mongo", func(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
		return New(ctx, cfg.DSN, cfg.Database, cfg.Table, config.ParseDuration(cfg.Timeout, 10*time.Second))
	})
}

type document struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Summary     string    `bson:"summary"`
	PublishedAt string    `bson:"published_at"`
	CreatedAt   time.Time `bson:"created_at"`
}

type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func New(ctx context.Context, uri, database, collection string, timeout time.Duration) (*MongoStorage, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri: %w", storage.ErrNotConfigured)
	}
	if database == "" {
		database = "newsdigest"
	}
	if collection == "" {
		collection = config.DefaultTable
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)

	slog.Info("Initialized MongoDB storage", "database", database, "collection", collection)
	return &MongoStorage{client: client, collection: coll}, nil
}

func (s *MongoStorage) ExistsBatch(ctx context.Context, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(ids) == 0 {
		return found, nil
	}

	cursor, err := s.collection.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var result struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode id: %w", err)
		}
		found[result.ID] = struct{}{}
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return found, nil
}

func (s *MongoStorage) InsertBatch(ctx context.Context, records []types.ProcessedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(records))
	for _, r := range records {
		docs = append(docs, document{
			ID:          r.ID,
			Title:       r.Title,
			Summary:     r.Summary,
			PublishedAt: r.PublishedAt,
			CreatedAt:   now,
		})
	}

	_, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(docs), nil
	}

	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) {
		return 0, fmt.Errorf("failed to insert records: %w", err)
	}

	return insertedFromBulkError(len(docs), bulkErr)
}

// insertedFromBulkError counts the documents an unordered InsertMany wrote. Duplicate-key
// failures mean the record already exists; any other write error or a write concern error
// fails the batch.
func insertedFromBulkError(total int, bulkErr mongo.BulkWriteException) (int, error) {
	duplicates := 0
	for _, we := range bulkErr.WriteErrors {
		if we.Code != duplicateKeyCode {
			return total - len(bulkErr.WriteErrors), fmt.Errorf("failed to insert records: %w", bulkErr)
		}
		duplicates++
	}

	if bulkErr.WriteConcernError != nil {
		return total - duplicates, fmt.Errorf("write concern not satisfied: %w", bulkErr)
	}

	return total - duplicates, nil
}

func (s *MongoStorage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
