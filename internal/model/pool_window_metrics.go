package model

import "time"

// PoolWindowMetrics stores aggregated activity of a pool over one window.
// Reserve and price fields come from the last event of the window and stay
// nil when the events carry no pool state.
type PoolWindowMetrics struct {
	ChainID         uint64
	PoolAddress     string
	WindowSizeSecs  int64
	WindowStart     time.Time
	WindowEnd       time.Time
	SwapCount       uint64
	AddCount        uint64
	RemoveCount     uint64
	VolumeA         string
	VolumeB         string
	LiquidityMinted string
	LiquidityBurned string
	ReserveA        *string
	ReserveB        *string
	PriceAB         *string
	TVLB            *string
	TVLMethod       string
}
