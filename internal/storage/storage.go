package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shelfstalk/internal/config"
	"shelfstalk/internal/types"
)

// sourceName tags every stored record with its origin site.
const sourceName = "goodreads"

// Storage is the interface for all record sinks.
type Storage interface {
	// Store persists a batch of records.
	Store(records []*types.BookDetail) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// envelope wraps a record with the metadata stamped at write time.
type envelope struct {
	*types.BookDetail
	Source    string    `json:"_source"`
	ScrapedAt time.Time `json:"_scrapedAt"`
}

func wrap(record *types.BookDetail, ts time.Time) envelope {
	return envelope{BookDetail: record, Source: sourceName, ScrapedAt: ts}
}

// asDocument flattens an envelope into a map for document stores.
func asDocument(env envelope) (map[string]any, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return doc, nil
}

// New creates the storage backend(s) picked by the configuration.
// A comma-separated type fans out to multiple backends.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	typeNames := strings.Split(cfg.Type, ",")
	backends := make([]Storage, 0, len(typeNames))

	for _, name := range typeNames {
		name = strings.TrimSpace(name)
		var (
			backend Storage
			err     error
		)
		switch name {
		case "json", "jsonl", "csv":
			backend, err = NewFileStorage(name, cfg.OutputPath, logger)
		case "mongodb":
			backend, err = NewMongoStorage(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		default:
			err = fmt.Errorf("unsupported storage type: %s", name)
		}
		if err != nil {
			return nil, err
		}
		backends = append(backends, backend)
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiStorage(backends, logger), nil
}
