// Package aggregate folds typed pool events into fixed time windows.
package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pairPool/internal/chain"
	"pairPool/internal/model"
	"pairPool/internal/state"
)

// WindowStore receives finished windows. *postgres.Store implements it.
type WindowStore interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    state.ProgressStore
	Decimals      map[common.Address]uint8
}

// Aggregator aggregates typed events into pool window metrics.
type Aggregator struct {
	cfg          Config
	store        WindowStore
	chainClient  *chain.Client
	logger       *zap.Logger
	tokens       *tokenResolver
	accumulators map[string]*Accumulator
	supply       map[string]*big.Int
}

// NewAggregator builds an Aggregator. chainClient is optional; it is used
// for token decimals and for TVL when events carry no reserves. Without it
// such events are rejected.
func NewAggregator(cfg Config, store WindowStore, chainClient *chain.Client, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		store:        store,
		chainClient:  chainClient,
		logger:       logger,
		tokens:       newTokenResolver(chainClient, cfg.Decimals),
		accumulators: make(map[string]*Accumulator),
		supply:       make(map[string]*big.Int),
	}
}

// Run executes aggregation over a typed events JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return a.RunReader(ctx, file)
}

// RunReader aggregates typed events read from r.
func (a *Aggregator) RunReader(ctx context.Context, r io.Reader) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, resumed, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, windows, skipped, failed, stateless int

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode typed event", zap.Error(err))
			continue
		}

		if resumed && record.Timestamp <= startTs {
			skipped++
			continue
		}
		if a.chainClient == nil && !hasPoolState(record.PoolMeta) {
			stateless++
			a.logger.Warn("event carries no pool state",
				zap.String("pool", record.Address),
				zap.String("event", record.EventName),
				zap.Uint64("block", record.BlockNumber),
			)
			continue
		}

		windowStart := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		accKey := poolKey(record.Address)
		acc := a.accumulators[accKey]
		if acc == nil || acc.WindowStart != windowStart {
			if acc != nil {
				metrics, err := a.flushAccumulator(ctx, acc)
				if err != nil {
					return err
				}
				if metrics != nil {
					batch = append(batch, *metrics)
					windows++
				}
			}
			acc = NewAccumulator(record, windowStart, windowEnd, a.supply[accKey])
			a.accumulators[accKey] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", record.Address), zap.String("event", record.EventName))
			continue
		}
		if s := acc.LastSupply(); s != nil {
			a.supply[accKey] = s
		}

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	for _, acc := range a.accumulators {
		metrics, err := a.flushAccumulator(ctx, acc)
		if err != nil {
			return err
		}
		if metrics != nil {
			batch = append(batch, *metrics)
			windows++
		}
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("stateless", stateless),
	)
	if stateless > 0 && stateless == total-skipped-failed {
		return fmt.Errorf("no event carries pool state: decode with live meta or aggregate the run output")
	}

	return nil
}

// loadStartTimestamp reports the last final timestamp. ok is false when
// nothing has been aggregated yet, so every event counts.
func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, bool, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, true, nil
	}
	if a.cfg.StateStore == nil {
		return 0, false, nil
	}
	return a.cfg.StateStore.Load(ctx)
}

func hasPoolState(meta model.PoolMeta) bool {
	return meta.ReserveA != "" && meta.ReserveB != "" && meta.TotalSupply != ""
}

// saveState records how far aggregation is final: just before the oldest
// window that is still open.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flushAccumulator(ctx context.Context, acc *Accumulator) (*model.PoolWindowMetrics, error) {
	if acc == nil {
		return nil, nil
	}

	poolMeta := acc.PoolMeta
	if poolMeta.AssetA == "" || poolMeta.AssetB == "" {
		a.logger.Warn("missing pool meta", zap.String("pool", acc.PoolAddress))
		return nil, nil
	}

	tokenA, err := a.tokens.Resolve(ctx, poolMeta.AssetA)
	if err != nil {
		a.logger.Warn("asset A metadata", zap.String("token", poolMeta.AssetA), zap.Error(err))
	}
	tokenB, err := a.tokens.Resolve(ctx, poolMeta.AssetB)
	if err != nil {
		a.logger.Warn("asset B metadata", zap.String("token", poolMeta.AssetB), zap.Error(err))
	}
	decimalsA, decimalsB := tokenA.Decimals, tokenB.Decimals
	if tokenA.Source == model.TokenSourceNone || tokenB.Source == model.TokenSourceNone {
		a.logger.Debug("amounts in base units", zap.String("pool", acc.PoolAddress))
	}

	metrics := &model.PoolWindowMetrics{
		ChainID:         acc.ChainID,
		PoolAddress:     acc.PoolAddress,
		WindowSizeSecs:  int64(a.cfg.WindowSeconds),
		WindowStart:     time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:       time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:       acc.SwapCount,
		AddCount:        acc.AddCount,
		RemoveCount:     acc.RemoveCount,
		VolumeA:         formatTokenAmount(acc.VolumeA, decimalsA),
		VolumeB:         formatTokenAmount(acc.VolumeB, decimalsB),
		LiquidityMinted: acc.Minted.String(),
		LiquidityBurned: acc.Burned.String(),
	}

	if poolMeta.ReserveA != "" && poolMeta.ReserveB != "" {
		reserveA, errA := parseBigInt(poolMeta.ReserveA)
		reserveB, errB := parseBigInt(poolMeta.ReserveB)
		if errA == nil && errB == nil {
			metrics.ReserveA = optional(formatTokenAmount(reserveA, decimalsA))
			metrics.ReserveB = optional(formatTokenAmount(reserveB, decimalsB))
			metrics.PriceAB = optional(computePrice(reserveA, reserveB, decimalsA, decimalsB))
		}
	}

	tvl, method, err := a.poolTVL(ctx, acc)
	if err != nil {
		a.logger.Warn("tvl fetch failed", zap.String("pool", acc.PoolAddress), zap.Error(err))
	}
	if tvl != nil {
		metrics.TVLB = optional(formatTokenAmount(tvl, decimalsB))
	}
	metrics.TVLMethod = method

	return metrics, nil
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func poolKey(address string) string {
	return strings.ToLower(address)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
