package aggregate

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"pairPool/internal/amm"
	"pairPool/internal/model"
)

const (
	testPool   = "0x00000000000000000000000000000000000000Aa"
	testAssetA = "0x000000000000000000000000000000000000a0a0"
	testAssetB = "0x000000000000000000000000000000000000b0b0"
)

type memWindows struct {
	rows []model.PoolWindowMetrics
}

func (m *memWindows) UpsertWindowMetrics(_ context.Context, metrics []model.PoolWindowMetrics) error {
	m.rows = append(m.rows, metrics...)
	return nil
}

type memProgress struct {
	last uint64
	ok   bool
}

func (m *memProgress) Load(context.Context) (uint64, bool, error) { return m.last, m.ok, nil }

func (m *memProgress) Save(_ context.Context, last uint64) error {
	m.last, m.ok = last, true
	return nil
}

func eventLine(t *testing.T, seq, ts uint64, name string, data interface{}, reserveA, reserveB, supply string) string {
	t.Helper()
	raw, err := json.Marshal(model.TypedEvent{
		ChainID:     1,
		BlockNumber: seq,
		Address:     testPool,
		EventName:   name,
		Timestamp:   ts,
		Decoded:     data,
		PoolMeta: model.PoolMeta{
			AssetA:      testAssetA,
			AssetB:      testAssetB,
			ReserveA:    reserveA,
			ReserveB:    reserveB,
			TotalSupply: supply,
		},
	})
	require.NoError(t, err)
	return string(raw)
}

func sampleEvents(t *testing.T) string {
	t.Helper()
	lines := []string{
		eventLine(t, 1, 100, amm.EventLiquidityAdded,
			model.LiquidityAddedData{Provider: "0x1", AmountA: "1000", AmountB: "4000", Liquidity: "2000"},
			"1000", "4000", "2000"),
		eventLine(t, 2, 110, amm.EventSwapExecuted,
			model.SwapExecutedData{User: "0x2", TokenIn: testAssetA, TokenOut: testAssetB, AmountIn: "100", AmountOut: "363"},
			"1100", "3637", "2000"),
		"not json",
		eventLine(t, 3, 3700, amm.EventLiquidityRemoved,
			model.LiquidityRemovedData{Provider: "0x1", AmountA: "550", AmountB: "1818"},
			"550", "1819", "1000"),
		eventLine(t, 4, 3710, amm.EventSwapExecuted,
			model.SwapExecutedData{User: "0x2", TokenIn: testAssetB, TokenOut: testAssetA, AmountIn: "10", AmountOut: "1"},
			"549", "1829", "1000"),
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestAggregatorWindows(t *testing.T) {
	require := require.New(t)
	store := &memWindows{}
	progress := &memProgress{}
	agg := NewAggregator(Config{WindowSeconds: 3600, StateStore: progress}, store, nil, nil)

	require.NoError(agg.RunReader(context.Background(), strings.NewReader(sampleEvents(t))))
	require.Len(store.rows, 2)

	first := store.rows[0]
	require.Equal(testPool, first.PoolAddress)
	require.Equal(int64(0), first.WindowStart.Unix())
	require.Equal(int64(3600), first.WindowEnd.Unix())
	require.Equal(uint64(1), first.SwapCount)
	require.Equal(uint64(1), first.AddCount)
	require.Equal("100", first.VolumeA)
	require.Equal("363", first.VolumeB)
	require.Equal("2000", first.LiquidityMinted)
	require.Equal("0", first.LiquidityBurned)
	require.Equal("1100", *first.ReserveA)
	require.Equal("3637", *first.ReserveB)
	require.Equal("7274", *first.TVLB)
	require.Equal(tvlMethodReserves, first.TVLMethod)
	require.True(strings.HasPrefix(*first.PriceAB, "3.30636363"))

	second := store.rows[1]
	require.Equal(uint64(1), second.RemoveCount)
	require.Equal(uint64(1), second.SwapCount)
	require.Equal("1000", second.LiquidityBurned)
	require.Equal("1", second.VolumeA)
	require.Equal("10", second.VolumeB)
	require.Equal("549", *second.ReserveA)

	require.True(progress.ok)
	require.Equal(uint64(3710), progress.last)
}

func TestAggregatorResumesFromProgress(t *testing.T) {
	require := require.New(t)
	store := &memWindows{}
	progress := &memProgress{last: 3599, ok: true}
	agg := NewAggregator(Config{WindowSeconds: 3600, StateStore: progress}, store, nil, nil)

	require.NoError(agg.RunReader(context.Background(), strings.NewReader(sampleEvents(t))))
	require.Len(store.rows, 1)
	require.Equal(int64(3600), store.rows[0].WindowStart.Unix())
	// the supply before the window is unknown, so the burn cannot be measured
	require.Equal("0", store.rows[0].LiquidityBurned)
}

func TestAggregatorCountsEventsAtEpochWithoutProgress(t *testing.T) {
	require := require.New(t)
	store := &memWindows{}
	progress := &memProgress{}
	input := eventLine(t, 1, 0, amm.EventLiquidityAdded,
		model.LiquidityAddedData{Provider: "0x1", AmountA: "1000", AmountB: "4000", Liquidity: "2000"},
		"1000", "4000", "2000") + "\n"

	agg := NewAggregator(Config{WindowSeconds: 3600, StateStore: progress}, store, nil, nil)
	require.NoError(agg.RunReader(context.Background(), strings.NewReader(input)))
	require.Len(store.rows, 1)
	require.Equal(int64(0), store.rows[0].WindowStart.Unix())
	require.Equal(uint64(1), store.rows[0].AddCount)
}

func TestAggregatorRejectsEventsWithoutPoolState(t *testing.T) {
	require := require.New(t)
	store := &memWindows{}
	input := eventLine(t, 1, 100, amm.EventSwapExecuted,
		model.SwapExecutedData{User: "0x2", TokenIn: testAssetA, TokenOut: testAssetB, AmountIn: "100", AmountOut: "363"},
		"", "", "") + "\n"

	agg := NewAggregator(Config{WindowSeconds: 3600}, store, nil, nil)
	err := agg.RunReader(context.Background(), strings.NewReader(input))
	require.ErrorContains(err, "no event carries pool state")
	require.Empty(store.rows)

	mixed := input + sampleEvents(t)
	store = &memWindows{}
	agg = NewAggregator(Config{WindowSeconds: 3600}, store, nil, nil)
	require.NoError(agg.RunReader(context.Background(), strings.NewReader(mixed)))
	require.Len(store.rows, 2)
	require.Equal(uint64(1), store.rows[0].SwapCount)
}

func TestAggregatorDecimals(t *testing.T) {
	require := require.New(t)
	store := &memWindows{}
	cfg := Config{
		WindowSeconds: 3600,
		Decimals: map[common.Address]uint8{
			common.HexToAddress(testAssetA): 2,
			common.HexToAddress(testAssetB): 3,
		},
	}
	agg := NewAggregator(cfg, store, nil, nil)
	require.NoError(agg.RunReader(context.Background(), strings.NewReader(sampleEvents(t))))

	first := store.rows[0]
	require.Equal("1.00", first.VolumeA)
	require.Equal("0.363", first.VolumeB)
	require.Equal("11.00", *first.ReserveA)
	require.True(strings.HasPrefix(*first.PriceAB, "0.33063636"))
}

func TestAggregatorRejectsZeroWindow(t *testing.T) {
	agg := NewAggregator(Config{}, &memWindows{}, nil, nil)
	require.Error(t, agg.RunReader(context.Background(), strings.NewReader("")))
}

func TestAccumulatorRejectsForeignToken(t *testing.T) {
	record := model.TypedEventRecord{
		Address:   testPool,
		EventName: amm.EventSwapExecuted,
		Decoded:   json.RawMessage(`{"token_in":"0x000000000000000000000000000000000000c0c0","amount_in":"1","amount_out":"1"}`),
		PoolMeta:  model.PoolMeta{AssetA: testAssetA, AssetB: testAssetB},
	}
	acc := NewAccumulator(record, 0, 60, nil)
	require.Error(t, acc.AddEvent(record))
	require.Zero(t, acc.SwapCount)
}

func TestComputePrice(t *testing.T) {
	require := require.New(t)
	require.Equal("", computePrice(nil, nil, 0, 0))
	require.Equal("4.000000000000000000", computePrice(bigInt(1000), bigInt(4000), 18, 18))
	require.Equal("4000.000000000000000000", computePrice(bigInt(1000), bigInt(4000), 18, 15))
}
