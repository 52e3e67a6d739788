package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shelfstalk/internal/types"
)

// MongoStorage writes records to a MongoDB collection.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStorage creates a new MongoDB storage backend.
func NewMongoStorage(uri, database, collection string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoStorage{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Store(records []*types.BookDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	docs := make([]any, 0, len(records))
	for _, record := range records {
		doc, err := asDocument(wrap(record, now))
		if err != nil {
			return &types.StorageError{Backend: s.Name(), Err: err}
		}
		docs = append(docs, doc)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	s.count += len(records)
	s.logger.Debug("records stored in mongodb", "count", len(records), "total", s.count)
	return nil
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_records", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes records to multiple backends simultaneously.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

func (s *MultiStorage) Store(records []*types.BookDetail) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Store(records); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStorage) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
