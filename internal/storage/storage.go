package storage

import (
	"context"

	"pairPool/internal/model"
)

// Sink receives the output of the replay engine.
type Sink interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
	PutEventBatch(ctx context.Context, events []model.TypedEvent) error
	PutErrorBatch(ctx context.Context, errs []model.OpError) error
}

// Multi fans every batch out to each sink in order and stops at the first
// error.
type Multi []Sink

func (m Multi) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	for _, s := range m {
		if err := s.PutLogBatch(ctx, logs); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) PutEventBatch(ctx context.Context, events []model.TypedEvent) error {
	for _, s := range m {
		if err := s.PutEventBatch(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) PutErrorBatch(ctx context.Context, errs []model.OpError) error {
	for _, s := range m {
		if err := s.PutErrorBatch(ctx, errs); err != nil {
			return err
		}
	}
	return nil
}
