package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pairPool/internal/model"
)

// Store provides Postgres persistence for pool state, events and metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}

// SavePoolSnapshot replaces the stored state of a pool in one transaction.
func (s *Store) SavePoolSnapshot(ctx context.Context, snap model.PoolSnapshot) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		chainID := int64(snap.ChainID)
		if _, err := tx.Exec(ctx, `
			INSERT INTO pools (
				chain_id, pool_address, asset_a, asset_b, reserve_a, reserve_b, total_supply, last_seq, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (chain_id, pool_address)
			DO UPDATE SET
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				total_supply = EXCLUDED.total_supply,
				last_seq = EXCLUDED.last_seq,
				updated_at = now()
		`,
			chainID,
			snap.Address,
			snap.AssetA,
			snap.AssetB,
			snap.ReserveA,
			snap.ReserveB,
			snap.TotalSupply,
			int64(snap.LastSeq),
		); err != nil {
			return fmt.Errorf("upsert pool: %w", err)
		}

		for _, table := range []string{"pool_shares", "pool_holdings", "pool_allowances"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE chain_id=$1 AND pool_address=$2`, chainID, snap.Address); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		batch := &pgx.Batch{}
		for account, amount := range snap.Shares {
			batch.Queue(`INSERT INTO pool_shares (chain_id, pool_address, account, amount) VALUES ($1, $2, $3, $4)`,
				chainID, snap.Address, account, amount)
		}
		for _, h := range snap.Holdings {
			batch.Queue(`INSERT INTO pool_holdings (chain_id, pool_address, asset, account, amount) VALUES ($1, $2, $3, $4, $5)`,
				chainID, snap.Address, h.Asset, h.Account, h.Amount)
		}
		for _, a := range snap.Allowances {
			batch.Queue(`INSERT INTO pool_allowances (chain_id, pool_address, asset, owner, spender, amount) VALUES ($1, $2, $3, $4, $5, $6)`,
				chainID, snap.Address, a.Asset, a.Owner, a.Spender, a.Amount)
		}
		return sendBatch(ctx, tx, batch)
	})
}

// LoadPoolSnapshot reads the stored state of a pool.
func (s *Store) LoadPoolSnapshot(ctx context.Context, chainID uint64, address string) (model.PoolSnapshot, bool, error) {
	snap := model.PoolSnapshot{
		ChainID: chainID,
		Address: address,
		Shares:  make(map[string]string),
	}
	var lastSeq int64
	var updatedAt time.Time
	row := s.pool.QueryRow(ctx, `
		SELECT asset_a, asset_b, reserve_a, reserve_b, total_supply, last_seq, updated_at
		FROM pools WHERE chain_id=$1 AND pool_address=$2
	`, int64(chainID), address)
	if err := row.Scan(&snap.AssetA, &snap.AssetB, &snap.ReserveA, &snap.ReserveB, &snap.TotalSupply, &lastSeq, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolSnapshot{}, false, nil
		}
		return model.PoolSnapshot{}, false, fmt.Errorf("load pool: %w", err)
	}
	snap.LastSeq = uint64(lastSeq)
	snap.UpdatedAt = updatedAt.UTC().Format(time.RFC3339Nano)

	rows, err := s.pool.Query(ctx, `SELECT account, amount FROM pool_shares WHERE chain_id=$1 AND pool_address=$2`, int64(chainID), address)
	if err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("load shares: %w", err)
	}
	var account, amount string
	if _, err := pgx.ForEachRow(rows, []any{&account, &amount}, func() error {
		snap.Shares[account] = amount
		return nil
	}); err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("scan shares: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT asset, account, amount FROM pool_holdings WHERE chain_id=$1 AND pool_address=$2 ORDER BY asset, account`, int64(chainID), address)
	if err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("load holdings: %w", err)
	}
	snap.Holdings, err = pgx.CollectRows(rows, pgx.RowToStructByPos[model.Holding])
	if err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("scan holdings: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT asset, owner, spender, amount FROM pool_allowances WHERE chain_id=$1 AND pool_address=$2 ORDER BY asset, owner, spender`, int64(chainID), address)
	if err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("load allowances: %w", err)
	}
	snap.Allowances, err = pgx.CollectRows(rows, pgx.RowToStructByPos[model.Allowance])
	if err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("scan allowances: %w", err)
	}
	return snap, true, nil
}

// PutLogBatch inserts pool logs, ignoring ones already stored.
func (s *Store) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range logs {
		batch.Queue(`
			INSERT INTO pool_logs (chain_id, block_number, tx_hash, log_index, pool_address, topics, data, ts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
		`,
			int64(l.ChainID),
			int64(l.BlockNumber),
			l.TxHash,
			int64(l.LogIndex),
			l.Address,
			l.Topics,
			l.Data,
			int64(l.Timestamp),
		)
	}
	return sendBatch(ctx, s.pool, batch)
}

// PutEventBatch inserts typed events, ignoring ones already stored.
func (s *Store) PutEventBatch(ctx context.Context, events []model.TypedEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		decoded, err := json.Marshal(ev.Decoded)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", ev.EventName, err)
		}
		meta, err := json.Marshal(ev.PoolMeta)
		if err != nil {
			return fmt.Errorf("marshal pool meta: %w", err)
		}
		batch.Queue(`
			INSERT INTO pool_events (chain_id, block_number, tx_hash, log_index, pool_address, event_name, ts, decoded, pool_meta)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
		`,
			int64(ev.ChainID),
			int64(ev.BlockNumber),
			ev.TxHash,
			int64(ev.LogIndex),
			ev.Address,
			ev.EventName,
			int64(ev.Timestamp),
			string(decoded),
			string(meta),
		)
	}
	return sendBatch(ctx, s.pool, batch)
}

// PutErrorBatch records rejected operations.
func (s *Store) PutErrorBatch(ctx context.Context, errs []model.OpError) error {
	if len(errs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range errs {
		batch.Queue(`
			INSERT INTO op_errors (seq, kind, caller, ts, error, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (seq) DO UPDATE SET error = EXCLUDED.error
		`,
			int64(e.Seq),
			e.Kind,
			e.Caller,
			int64(e.Timestamp),
			e.Error,
		)
	}
	return sendBatch(ctx, s.pool, batch)
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				chain_id, pool_address, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, add_count, remove_count, volume_a, volume_b, liquidity_minted, liquidity_burned,
				reserve_a, reserve_b, price_ab, tvl_b, tvl_method, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now(),now())
			ON CONFLICT (chain_id, pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				add_count = EXCLUDED.add_count,
				remove_count = EXCLUDED.remove_count,
				volume_a = EXCLUDED.volume_a,
				volume_b = EXCLUDED.volume_b,
				liquidity_minted = EXCLUDED.liquidity_minted,
				liquidity_burned = EXCLUDED.liquidity_burned,
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				price_ab = EXCLUDED.price_ab,
				tvl_b = EXCLUDED.tvl_b,
				tvl_method = EXCLUDED.tvl_method,
				updated_at = now()
		`,
			int64(m.ChainID),
			m.PoolAddress,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.AddCount),
			int64(m.RemoveCount),
			m.VolumeA,
			m.VolumeB,
			m.LiquidityMinted,
			m.LiquidityBurned,
			m.ReserveA,
			m.ReserveB,
			m.PriceAB,
			m.TVLB,
			m.TVLMethod,
		)
	}
	return sendBatch(ctx, s.pool, batch)
}

// LoadState returns the progress value stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var value int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM engine_state WHERE name=$1`, name)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(value), true, nil
}

// SaveState upserts the progress value for name.
func (s *Store) SaveState(ctx context.Context, name string, value uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO engine_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, int64(value))
	return err
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func sendBatch(ctx context.Context, conn batchSender, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	br := conn.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}
