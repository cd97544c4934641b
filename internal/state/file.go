package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pairPool/internal/model"
)

// FileSnapshotStore keeps the snapshot in a JSON file. An empty path
// disables it.
type FileSnapshotStore struct {
	Path string
}

func (s *FileSnapshotStore) Load(ctx context.Context) (model.PoolSnapshot, bool, error) {
	var snap model.PoolSnapshot
	ok, err := readJSON(s.path(), &snap)
	if err != nil || !ok {
		return model.PoolSnapshot{}, ok, err
	}
	return snap, true, nil
}

func (s *FileSnapshotStore) Save(ctx context.Context, snap model.PoolSnapshot) error {
	if s.path() == "" {
		return nil
	}
	snap.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return writeJSON(s.path(), snap)
}

func (s *FileSnapshotStore) path() string {
	if s == nil {
		return ""
	}
	return s.Path
}

// FileProgressStore keeps a progress marker in a JSON file.
type FileProgressStore struct {
	Path string
}

type progressRecord struct {
	LastProcessed uint64 `json:"last_processed"`
	UpdatedAt     string `json:"updated_at"`
}

func (s *FileProgressStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	var rec progressRecord
	ok, err := readJSON(s.Path, &rec)
	if err != nil || !ok {
		return 0, ok, err
	}
	return rec.LastProcessed, true, nil
}

func (s *FileProgressStore) Save(ctx context.Context, last uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	return writeJSON(s.Path, progressRecord{
		LastProcessed: last,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func readJSON(path string, out interface{}) (bool, error) {
	if path == "" {
		return false, nil
	}
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat state: %w", err)
	}
	if stat.IsDir() {
		return false, fmt.Errorf("state path is a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parse state: %w", err)
	}
	return true, nil
}

func writeJSON(path string, value interface{}) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}
