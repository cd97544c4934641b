package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pairPool/internal/model"
)

// JsonlStorage appends engine output to JSONL files. An empty path
// disables that stream.
type JsonlStorage struct {
	logsPath   string
	eventsPath string
	errorsPath string
	mu         sync.Mutex
}

func NewJsonlStorage(logsPath, eventsPath, errorsPath string) *JsonlStorage {
	return &JsonlStorage{logsPath: logsPath, eventsPath: eventsPath, errorsPath: errorsPath}
}

// PutLogBatch appends a batch of log records as JSON lines.
func (s *JsonlStorage) PutLogBatch(_ context.Context, logs []model.LogRecord) error {
	return appendBatch(&s.mu, s.logsPath, logs)
}

// PutEventBatch appends a batch of typed events as JSON lines.
func (s *JsonlStorage) PutEventBatch(_ context.Context, events []model.TypedEvent) error {
	return appendBatch(&s.mu, s.eventsPath, events)
}

// PutErrorBatch appends a batch of rejected operations as JSON lines.
func (s *JsonlStorage) PutErrorBatch(_ context.Context, errs []model.OpError) error {
	return appendBatch(&s.mu, s.errorsPath, errs)
}

func appendBatch[T any](mu *sync.Mutex, path string, records []T) error {
	if len(records) == 0 || path == "" {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	w, err := NewJSONLWriter(path, true)
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// JSONLWriter writes one JSON value per line through a buffer.
type JSONLWriter struct {
	file   *os.File
	writer *bufio.Writer
}

// NewJSONLWriter opens path for writing, creating parent directories. In
// append mode existing lines are kept; otherwise the file is truncated.
func NewJSONLWriter(path string, appendMode bool) (*JSONLWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &JSONLWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *JSONLWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *JSONLWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	return w.file.Close()
}
