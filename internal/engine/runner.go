package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pairPool/internal/amm"
	"pairPool/internal/asset"
	"pairPool/internal/metrics"
	"pairPool/internal/model"
	"pairPool/internal/state"
	"pairPool/internal/storage"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	ChainID      uint64
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Refresher advances an external clock before each batch.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Summary counts what a run did.
type Summary struct {
	Applied  int
	Rejected int
	Events   int
	LastSeq  uint64
}

// Runner replays operations through an Executor and publishes the results.
type Runner struct {
	cfg       RunConfig
	exec      *Executor
	sink      storage.Sink
	snapshots state.SnapshotStore
	refresher Refresher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, exec *Executor, sink storage.Sink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		exec:   exec,
		sink:   sink,
		logger: logger,
	}
}

// WithSnapshots enables resume and per-batch checkpoints.
func (r *Runner) WithSnapshots(store state.SnapshotStore) *Runner {
	r.snapshots = store
	return r
}

func (r *Runner) WithRefresher(refresher Refresher) *Runner {
	r.refresher = refresher
	return r
}

func (r *Runner) WithMetrics(m *metrics.Metrics) *Runner {
	r.metrics = m
	return r
}

// Run applies ops in sequence order. Operations at or below the sequence of
// a restored snapshot are skipped.
func (r *Runner) Run(ctx context.Context, ops []model.Operation) (Summary, error) {
	var summary Summary
	if r.exec == nil {
		return summary, fmt.Errorf("executor is nil")
	}
	if r.sink == nil {
		return summary, fmt.Errorf("sink is nil")
	}
	if r.cfg.BatchSize == 0 {
		return summary, fmt.Errorf("batch size must be greater than zero")
	}
	for i := 1; i < len(ops); i++ {
		if ops[i].Seq <= ops[i-1].Seq {
			return summary, fmt.Errorf("operation seq %d not after %d", ops[i].Seq, ops[i-1].Seq)
		}
	}

	if r.snapshots != nil {
		snap, ok, err := r.snapshots.Load(ctx)
		if err != nil {
			return summary, fmt.Errorf("load snapshot: %w", err)
		}
		if ok {
			if err := r.exec.Restore(snap); err != nil {
				return summary, err
			}
			summary.LastSeq = snap.LastSeq
			r.logger.Info("resume from snapshot", zap.Uint64("last_seq", snap.LastSeq), zap.String("pool", snap.Address))
		}
	}

	start := 0
	for start < len(ops) && ops[start].Seq <= summary.LastSeq {
		start++
	}
	ops = ops[start:]
	if len(ops) == 0 {
		r.logger.Info("nothing to replay", zap.Uint64("last_seq", summary.LastSeq))
		return summary, nil
	}

	batches, err := BatchOperations(ops, r.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, batch := range batches {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if err := r.runBatch(ctx, batch.Ops, &summary); err != nil {
			return summary, err
		}
		r.logger.Info("batch complete",
			zap.Uint64("from", batch.Range.From),
			zap.Uint64("to", batch.Range.To),
			zap.Int("ops", len(batch.Ops)),
			zap.Int("applied", summary.Applied),
			zap.Int("rejected", summary.Rejected),
		)
	}

	return summary, nil
}

func (r *Runner) runBatch(ctx context.Context, batch []model.Operation, summary *Summary) error {
	if r.refresher != nil {
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.retryLogger("clock"), r.refresher.Refresh)
		if err != nil {
			return fmt.Errorf("refresh clock: %w", err)
		}
	}

	ingestedAt := time.Now().UTC()
	var (
		logs   []model.LogRecord
		events []model.TypedEvent
		errs   []model.OpError
	)
	for _, op := range batch {
		began := time.Now()
		_, emitted, applyErr := r.exec.Apply(ctx, op)
		r.metrics.ObserveOp(op.Kind, applyErr, time.Since(began))

		timestamp := op.Timestamp
		if timestamp == 0 {
			timestamp = r.exec.Now()
		}
		if applyErr != nil {
			summary.Rejected++
			errs = append(errs, buildOpError(op, timestamp, applyErr))
			r.logger.Debug("operation rejected", zap.Uint64("seq", op.Seq), zap.String("kind", op.Kind), zap.Error(applyErr))
			continue
		}

		summary.Applied++
		if len(emitted) == 0 {
			continue
		}
		opLogs, opEvents, err := buildRecords(r.cfg.ChainID, r.exec.Address(), op, emitted, timestamp, r.exec.Meta(), ingestedAt)
		if err != nil {
			return err
		}
		logs = append(logs, opLogs...)
		events = append(events, opEvents...)
		for _, ev := range emitted {
			r.metrics.ObserveEvent(ev.EventName())
		}
	}
	summary.Events += len(events)
	summary.LastSeq = batch[len(batch)-1].Seq

	if err := r.flush(ctx, logs, events, errs); err != nil {
		return err
	}

	if r.snapshots != nil {
		snap := r.exec.Snapshot(r.cfg.ChainID, summary.LastSeq)
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.retryLogger("snapshot"), func(ctx context.Context) error {
			return r.snapshots.Save(ctx, snap)
		})
		if err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}

	r.exec.View(func(pool *amm.Pool, _ *asset.Ledger) {
		reserveA, reserveB := pool.Reserves()
		r.metrics.SetPoolState(pool.AssetA().Hex(), pool.AssetB().Hex(), reserveA, reserveB, pool.TotalSupply(), summary.LastSeq)
	})
	return nil
}

func (r *Runner) flush(ctx context.Context, logs []model.LogRecord, events []model.TypedEvent, errs []model.OpError) error {
	if len(logs) > 0 {
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.retryLogger("logs"), func(ctx context.Context) error {
			return r.sink.PutLogBatch(ctx, logs)
		})
		if err != nil {
			return fmt.Errorf("store logs: %w", err)
		}
	}
	if len(events) > 0 {
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.retryLogger("events"), func(ctx context.Context) error {
			return r.sink.PutEventBatch(ctx, events)
		})
		if err != nil {
			return fmt.Errorf("store events: %w", err)
		}
	}
	if len(errs) > 0 {
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.retryLogger("errors"), func(ctx context.Context) error {
			return r.sink.PutErrorBatch(ctx, errs)
		})
		if err != nil {
			return fmt.Errorf("store errors: %w", err)
		}
	}
	return nil
}

func (r *Runner) retryLogger(stream string) func(error) {
	return func(err error) {
		r.metrics.ObserveSinkRetry(stream)
		r.logger.Warn("write failed, retrying", zap.String("stream", stream), zap.Error(err))
	}
}
