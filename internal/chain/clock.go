package chain

import (
	"context"
	"fmt"
	"sync/atomic"
)

// TimestampSource reports the latest block time.
type TimestampSource interface {
	LatestTimestamp(ctx context.Context) (uint64, error)
}

// BlockClock reports the timestamp of the most recently observed block.
// Refresh must be called before Now returns anything but zero.
type BlockClock struct {
	source TimestampSource
	now    atomic.Uint64
}

func NewBlockClock(source TimestampSource) *BlockClock {
	return &BlockClock{source: source}
}

// Refresh reads the latest block time. The clock never moves backwards.
func (c *BlockClock) Refresh(ctx context.Context) error {
	ts, err := c.source.LatestTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("latest block timestamp: %w", err)
	}
	for {
		cur := c.now.Load()
		if ts <= cur || c.now.CompareAndSwap(cur, ts) {
			return nil
		}
	}
}

func (c *BlockClock) Now() uint64 {
	return c.now.Load()
}
