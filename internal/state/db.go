package state

import (
	"context"
	"fmt"

	"pairPool/internal/model"
	"pairPool/internal/storage/postgres"
)

// DBSnapshotStore keeps the snapshot of one pool in Postgres.
type DBSnapshotStore struct {
	Store   *postgres.Store
	ChainID uint64
	Pool    string
}

func (s *DBSnapshotStore) Load(ctx context.Context) (model.PoolSnapshot, bool, error) {
	if s == nil || s.Store == nil {
		return model.PoolSnapshot{}, false, nil
	}
	return s.Store.LoadPoolSnapshot(ctx, s.ChainID, s.Pool)
}

func (s *DBSnapshotStore) Save(ctx context.Context, snap model.PoolSnapshot) error {
	if s == nil || s.Store == nil {
		return nil
	}
	if snap.Address != s.Pool {
		return fmt.Errorf("snapshot of %s saved to store for %s", snap.Address, s.Pool)
	}
	return s.Store.SavePoolSnapshot(ctx, snap)
}

// DBProgressStore keeps a progress marker in the engine_state table.
type DBProgressStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBProgressStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, s.Name)
}

func (s *DBProgressStore) Save(ctx context.Context, last uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, last)
}
