package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"pairPool/internal/aggregate"
	"pairPool/internal/amm"
	"pairPool/internal/dex"
	"pairPool/internal/metrics"
	"pairPool/internal/model"
	"pairPool/internal/state"
)

type memSink struct {
	logs      []model.LogRecord
	events    []model.TypedEvent
	errs      []model.OpError
	failLogs  int
	logWrites int
}

func (s *memSink) PutLogBatch(_ context.Context, logs []model.LogRecord) error {
	s.logWrites++
	if s.failLogs > 0 {
		s.failLogs--
		return errors.New("sink unavailable")
	}
	s.logs = append(s.logs, logs...)
	return nil
}

func (s *memSink) PutEventBatch(_ context.Context, events []model.TypedEvent) error {
	s.events = append(s.events, events...)
	return nil
}

func (s *memSink) PutErrorBatch(_ context.Context, errs []model.OpError) error {
	s.errs = append(s.errs, errs...)
	return nil
}

func testRunConfig() RunConfig {
	return RunConfig{ChainID: 31337, BatchSize: 4, MaxRetries: 2, RetryBackoff: time.Millisecond}
}

func TestRunnerPublishesEventsAndErrors(t *testing.T) {
	require := require.New(t)
	ops := scenarioOps()
	ops = append(ops, swapOp(11, bob, tokenA, tokenB, "0"))

	sink := &memSink{}
	exec := newTestExecutor(t, nil)
	summary, err := NewRunner(testRunConfig(), exec, sink, nil).Run(context.Background(), ops)
	require.NoError(err)

	require.Equal(10, summary.Applied)
	require.Equal(1, summary.Rejected)
	require.Equal(2, summary.Events)
	require.Equal(uint64(11), summary.LastSeq)

	require.Len(sink.logs, 2)
	require.Len(sink.events, 2)
	require.Len(sink.errs, 1)
	require.Equal(uint64(11), sink.errs[0].Seq)
	require.Contains(sink.errs[0].Error, amm.ErrInsufficientInput.Error())

	added := sink.events[0]
	require.Equal(amm.EventLiquidityAdded, added.EventName)
	require.Equal(uint64(5), added.BlockNumber)
	require.Equal("1000", added.PoolMeta.ReserveA)
	require.Equal("4000", added.PoolMeta.ReserveB)
	require.Equal(exec.Address().Hex(), added.Address)

	swapped := sink.events[1]
	require.Equal(amm.EventSwapExecuted, swapped.EventName)
	require.Equal("3637", swapped.PoolMeta.ReserveB)
	data, ok := swapped.Decoded.(model.SwapExecutedData)
	require.True(ok)
	require.Equal("363", data.AmountOut)

	topic, err := dex.TopicOf(amm.EventSwapExecuted)
	require.NoError(err)
	require.Equal(topic.Hex(), sink.logs[1].Topics[0])
	require.Equal(sink.logs[1].TxHash, swapped.TxHash)
	require.Equal(uint64(1_000), sink.logs[1].Timestamp)
}

func TestRunnerDecodesOwnLogs(t *testing.T) {
	require := require.New(t)
	sink := &memSink{}
	exec := newTestExecutor(t, nil)
	_, err := NewRunner(testRunConfig(), exec, sink, nil).Run(context.Background(), scenarioOps())
	require.NoError(err)

	cache := dex.NewPoolMetaCache()
	cache.Set(exec.Address(), model.PoolMeta{AssetA: tokenA.Hex(), AssetB: tokenB.Hex()})
	decoder, err := dex.NewPoolDecoder(dex.DecoderConfig{})
	require.NoError(err)
	for i, record := range sink.logs {
		require.True(decoder.CanDecode(record.Topics[0]))
		ev, err := decoder.Decode(record, dex.DecodeContext{Context: context.Background(), PoolMetaCache: cache})
		require.NoError(err)
		require.Equal(sink.events[i].EventName, ev.EventName)
		require.Equal(sink.events[i].Decoded, ev.Decoded)
	}
}

func TestRunnerResumesFromSnapshot(t *testing.T) {
	require := require.New(t)
	ops := scenarioOps()
	store := &state.FileSnapshotStore{Path: filepath.Join(t.TempDir(), "snapshot.json")}

	first := &memSink{}
	_, err := NewRunner(testRunConfig(), newTestExecutor(t, nil), first, nil).
		WithSnapshots(store).
		Run(context.Background(), ops[:5])
	require.NoError(err)
	require.Len(first.events, 1)

	second := &memSink{}
	resumed := newTestExecutor(t, nil)
	summary, err := NewRunner(testRunConfig(), resumed, second, nil).
		WithSnapshots(store).
		Run(context.Background(), ops)
	require.NoError(err)
	require.Equal(5, summary.Applied)
	require.Len(second.events, 1)
	require.Equal(amm.EventSwapExecuted, second.events[0].EventName)

	straight := newTestExecutor(t, nil)
	applyAll(t, straight, ops)
	require.Equal(straight.Meta(), resumed.Meta())

	snap, ok, err := store.Load(context.Background())
	require.NoError(err)
	require.True(ok)
	require.Equal(uint64(10), snap.LastSeq)

	again := &memSink{}
	summary, err = NewRunner(testRunConfig(), newTestExecutor(t, nil), again, nil).
		WithSnapshots(store).
		Run(context.Background(), ops)
	require.NoError(err)
	require.Zero(summary.Applied)
	require.Empty(again.logs)
}

func TestRunnerRetriesSinkWrites(t *testing.T) {
	require := require.New(t)
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	sink := &memSink{failLogs: 1}

	_, err := NewRunner(testRunConfig(), newTestExecutor(t, nil), sink, nil).
		WithMetrics(m).
		Run(context.Background(), scenarioOps())
	require.NoError(err)
	require.Len(sink.logs, 2)

	require.Equal(1.0, counterSum(t, reg, "pairpool_sink_retries_total"))
	require.Equal(10.0, counterSum(t, reg, "pairpool_operations_total"))
}

// counterSum adds up every series of the named counter.
func counterSum(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestRunnerGivesUpOnSinkFailure(t *testing.T) {
	sink := &memSink{failLogs: 10}
	cfg := testRunConfig()
	cfg.MaxRetries = 1
	_, err := NewRunner(cfg, newTestExecutor(t, nil), sink, nil).Run(context.Background(), scenarioOps())
	require.ErrorContains(t, err, "store logs")
	require.Equal(t, 2, sink.logWrites)
}

func TestRunnerRejectsUnorderedOps(t *testing.T) {
	ops := scenarioOps()
	ops[2].Seq = 1
	_, err := NewRunner(testRunConfig(), newTestExecutor(t, nil), &memSink{}, nil).Run(context.Background(), ops)
	require.Error(t, err)
}

type countingRefresher struct{ calls int }

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls++
	return nil
}

func TestRunnerRefreshesClockPerBatch(t *testing.T) {
	refresher := &countingRefresher{}
	_, err := NewRunner(testRunConfig(), newTestExecutor(t, nil), &memSink{}, nil).
		WithRefresher(refresher).
		Run(context.Background(), scenarioOps())
	require.NoError(t, err)
	require.Equal(t, 3, refresher.calls)
}

type memWindows struct {
	rows []model.PoolWindowMetrics
}

func (m *memWindows) UpsertWindowMetrics(_ context.Context, rows []model.PoolWindowMetrics) error {
	m.rows = append(m.rows, rows...)
	return nil
}

func TestReplayedEventsAggregateIntoWindows(t *testing.T) {
	require := require.New(t)
	sink := &memSink{}
	exec := newTestExecutor(t, &ReplayClock{Fallback: amm.FixedClock(7_300)})
	_, err := NewRunner(testRunConfig(), exec, sink, nil).Run(context.Background(), scenarioOps())
	require.NoError(err)
	require.Len(sink.events, 2)

	var input bytes.Buffer
	for _, ev := range sink.events {
		require.Equal(uint64(7_300), ev.Timestamp)
		raw, err := json.Marshal(ev)
		require.NoError(err)
		input.Write(raw)
		input.WriteByte('\n')
	}

	windows := &memWindows{}
	agg := aggregate.NewAggregator(aggregate.Config{WindowSeconds: 3600}, windows, nil, nil)
	require.NoError(agg.RunReader(context.Background(), &input))
	require.Len(windows.rows, 1)
	require.Equal(int64(7_200), windows.rows[0].WindowStart.Unix())
	require.Equal(uint64(1), windows.rows[0].AddCount)
	require.Equal(uint64(1), windows.rows[0].SwapCount)
	require.Equal("2000", windows.rows[0].LiquidityMinted)
}
