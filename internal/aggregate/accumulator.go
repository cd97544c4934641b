package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"pairPool/internal/amm"
	"pairPool/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	ChainID     uint64
	PoolAddress string
	PoolMeta    model.PoolMeta
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	AddCount    uint64
	RemoveCount uint64
	VolumeA     *big.Int
	VolumeB     *big.Int
	Minted      *big.Int
	Burned      *big.Int
	LastBlock   uint64
	LastTS      uint64
	FirstBlock  uint64

	// lastSupply is the share supply after the latest event, carried across
	// windows so burns can be measured from supply deltas.
	lastSupply *big.Int
}

// NewAccumulator opens a window. prevSupply is the supply seen before the
// window, or nil when unknown.
func NewAccumulator(record model.TypedEventRecord, windowStart, windowEnd uint64, prevSupply *big.Int) *Accumulator {
	return &Accumulator{
		ChainID:     record.ChainID,
		PoolAddress: record.Address,
		PoolMeta:    record.PoolMeta,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeA:     big.NewInt(0),
		VolumeB:     big.NewInt(0),
		Minted:      big.NewInt(0),
		Burned:      big.NewInt(0),
		LastBlock:   record.BlockNumber,
		LastTS:      record.Timestamp,
		FirstBlock:  record.BlockNumber,
		lastSupply:  prevSupply,
	}
}

func (a *Accumulator) AddEvent(record model.TypedEventRecord) error {
	if record.Timestamp >= a.LastTS {
		a.LastTS = record.Timestamp
		a.LastBlock = record.BlockNumber
		if record.PoolMeta.AssetA != "" {
			a.PoolMeta = record.PoolMeta
		}
	}
	if a.FirstBlock == 0 || record.BlockNumber < a.FirstBlock {
		a.FirstBlock = record.BlockNumber
	}

	supply, err := parseBigInt(record.PoolMeta.TotalSupply)
	if err != nil {
		return err
	}
	hasSupply := record.PoolMeta.TotalSupply != ""

	switch record.EventName {
	case amm.EventSwapExecuted:
		var swap model.SwapExecutedData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		if err := a.applySwap(swap); err != nil {
			return err
		}
	case amm.EventLiquidityAdded:
		var added model.LiquidityAddedData
		if err := json.Unmarshal(record.Decoded, &added); err != nil {
			return fmt.Errorf("decode liquidity added: %w", err)
		}
		liquidity, err := parseBigInt(added.Liquidity)
		if err != nil {
			return err
		}
		a.Minted.Add(a.Minted, liquidity)
		a.AddCount++
	case amm.EventLiquidityRemoved:
		var removed model.LiquidityRemovedData
		if err := json.Unmarshal(record.Decoded, &removed); err != nil {
			return fmt.Errorf("decode liquidity removed: %w", err)
		}
		if hasSupply && a.lastSupply != nil && a.lastSupply.Cmp(supply) > 0 {
			a.Burned.Add(a.Burned, new(big.Int).Sub(a.lastSupply, supply))
		}
		a.RemoveCount++
	default:
		return nil
	}

	if hasSupply {
		a.lastSupply = supply
	}
	return nil
}

// applySwap books both legs of a swap against the pool's asset order.
func (a *Accumulator) applySwap(swap model.SwapExecutedData) error {
	amountIn, err := parseBigInt(swap.AmountIn)
	if err != nil {
		return err
	}
	amountOut, err := parseBigInt(swap.AmountOut)
	if err != nil {
		return err
	}

	switch {
	case strings.EqualFold(swap.TokenIn, a.PoolMeta.AssetA):
		a.VolumeA.Add(a.VolumeA, amountIn)
		a.VolumeB.Add(a.VolumeB, amountOut)
	case strings.EqualFold(swap.TokenIn, a.PoolMeta.AssetB):
		a.VolumeB.Add(a.VolumeB, amountIn)
		a.VolumeA.Add(a.VolumeA, amountOut)
	default:
		return fmt.Errorf("swap token %s not in pool %s", swap.TokenIn, a.PoolAddress)
	}
	a.SwapCount++
	return nil
}

// LastSupply reports the share supply after the latest event, or nil.
func (a *Accumulator) LastSupply() *big.Int {
	return a.lastSupply
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return parsed, nil
}
