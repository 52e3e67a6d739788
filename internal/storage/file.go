package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shelfstalk/internal/types"
)

// --- JSON Storage ---

// JSONStorage buffers records and writes them as a JSON array on Close.
type JSONStorage struct {
	path    string
	records []envelope
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewJSONStorage creates a new JSON file storage.
func NewJSONStorage(outputPath string, logger *slog.Logger) (*JSONStorage, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &JSONStorage{
		path:    outputPath,
		records: make([]envelope, 0),
		logger:  logger.With("component", "json_storage"),
	}, nil
}

func (s *JSONStorage) Name() string { return "json" }

func (s *JSONStorage) Store(records []*types.BookDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, record := range records {
		s.records = append(s.records, wrap(record, now))
	}
	s.logger.Debug("records buffered", "count", len(records), "total", len(s.records))
	return nil
}

func (s *JSONStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Create(s.path)
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.records); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	s.logger.Info("JSON written", "path", s.path, "records", len(s.records))
	return nil
}

// --- JSONL Storage ---

// JSONLStorage writes records as newline-delimited JSON (one object per line).
type JSONLStorage struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLStorage creates a new JSONL file storage (streaming writes).
func NewJSONLStorage(outputPath string, logger *slog.Logger) (*JSONLStorage, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	return &JSONLStorage{
		path:   outputPath,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "jsonl_storage"),
	}, nil
}

func (s *JSONLStorage) Name() string { return "jsonl" }

func (s *JSONLStorage) Store(records []*types.BookDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, record := range records {
		if err := s.enc.Encode(wrap(record, now)); err != nil {
			return &types.StorageError{Backend: s.Name(), Err: err}
		}
		s.count++
	}
	return nil
}

func (s *JSONLStorage) Close() error {
	s.logger.Info("JSONL written", "path", s.path, "records", s.count)
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// --- CSV Storage ---

// CSVStorage writes records as CSV rows with a fixed column layout.
type CSVStorage struct {
	path        string
	file        *os.File
	writer      *csv.Writer
	headers     []string
	wroteHeader bool
	mu          sync.Mutex
	count       int
	logger      *slog.Logger
}

// NewCSVStorage creates a new CSV file storage.
func NewCSVStorage(outputPath string, logger *slog.Logger) (*CSVStorage, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	headers := append(types.FlatHeaders(), "_source", "_scraped_at")
	return &CSVStorage{
		path:    outputPath,
		file:    f,
		writer:  csv.NewWriter(f),
		headers: headers,
		logger:  logger.With("component", "csv_storage"),
	}, nil
}

func (s *CSVStorage) Name() string { return "csv" }

func (s *CSVStorage) Store(records []*types.BookDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.wroteHeader {
		if err := s.writer.Write(s.headers); err != nil {
			return &types.StorageError{Backend: s.Name(), Err: err}
		}
		s.wroteHeader = true
	}

	now := time.Now().UTC()
	for _, record := range records {
		flat := record.FlatFields()
		flat["_source"] = sourceName
		flat["_scraped_at"] = now.Format(time.RFC3339)

		row := make([]string, len(s.headers))
		for i, h := range s.headers {
			row[i] = flat[h]
		}
		if err := s.writer.Write(row); err != nil {
			return &types.StorageError{Backend: s.Name(), Err: err}
		}
		s.count++
	}

	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVStorage) Close() error {
	s.logger.Info("CSV written", "path", s.path, "records", s.count)
	if s.writer != nil {
		s.writer.Flush()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// NewFileStorage creates the appropriate file-based storage by type.
func NewFileStorage(storageType, outputDir string, logger *slog.Logger) (Storage, error) {
	switch storageType {
	case "json":
		return NewJSONStorage(filepath.Join(outputDir, "books.json"), logger)
	case "jsonl":
		return NewJSONLStorage(filepath.Join(outputDir, "books.jsonl"), logger)
	case "csv":
		return NewCSVStorage(filepath.Join(outputDir, "books.csv"), logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
