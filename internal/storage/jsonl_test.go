package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pairPool/internal/model"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

func TestJsonlStorageAppends(t *testing.T) {
	dir := t.TempDir()
	logsPath := filepath.Join(dir, "out", "logs.jsonl")
	errorsPath := filepath.Join(dir, "out", "errors.jsonl")
	s := NewJsonlStorage(logsPath, "", errorsPath)
	ctx := context.Background()

	if err := s.PutLogBatch(ctx, []model.LogRecord{{BlockNumber: 1}, {BlockNumber: 2}}); err != nil {
		t.Fatalf("put logs: %v", err)
	}
	if err := s.PutLogBatch(ctx, []model.LogRecord{{BlockNumber: 3}}); err != nil {
		t.Fatalf("put logs: %v", err)
	}
	if err := s.PutErrorBatch(ctx, []model.OpError{{Seq: 9, Error: "expired"}}); err != nil {
		t.Fatalf("put errors: %v", err)
	}
	if err := s.PutEventBatch(ctx, []model.TypedEvent{{EventName: "SwapExecuted"}}); err != nil {
		t.Fatalf("disabled stream should not fail: %v", err)
	}

	lines := readLines(t, logsPath)
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d", len(lines))
	}
	var last model.LogRecord
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if last.BlockNumber != 3 {
		t.Fatalf("unexpected order: %+v", last)
	}

	errLines := readLines(t, errorsPath)
	if len(errLines) != 1 {
		t.Fatalf("expected 1 error line, got %d", len(errLines))
	}
}

type failingSink struct {
	calls int
}

func (f *failingSink) PutLogBatch(context.Context, []model.LogRecord) error {
	f.calls++
	return errors.New("down")
}

func (f *failingSink) PutEventBatch(context.Context, []model.TypedEvent) error { return nil }
func (f *failingSink) PutErrorBatch(context.Context, []model.OpError) error    { return nil }

func TestMultiStopsAtFirstError(t *testing.T) {
	first, second := &failingSink{}, &failingSink{}
	m := Multi{first, second}
	if err := m.PutLogBatch(context.Background(), []model.LogRecord{{}}); err == nil {
		t.Fatalf("expected error")
	}
	if first.calls != 1 || second.calls != 0 {
		t.Fatalf("calls: first=%d second=%d", first.calls, second.calls)
	}
}
