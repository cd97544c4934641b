// Package state persists pool snapshots and processing progress, either in
// local files or in Postgres.
package state

import (
	"context"

	"pairPool/internal/model"
)

// SnapshotStore persists the latest pool snapshot.
type SnapshotStore interface {
	Load(ctx context.Context) (model.PoolSnapshot, bool, error)
	Save(ctx context.Context, snap model.PoolSnapshot) error
}

// ProgressStore persists the last processed position of a stream.
type ProgressStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, last uint64) error
}
