package amm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	EventLiquidityAdded   = "LiquidityAdded"
	EventLiquidityRemoved = "LiquidityRemoved"
	EventSwapExecuted     = "SwapExecuted"
)

// Event is a state transition recorded by the pool.
type Event interface {
	EventName() string
}

// LiquidityAdded is emitted by AddLiquidity. Amounts are in pool asset order.
type LiquidityAdded struct {
	Provider  common.Address
	AmountA   *uint256.Int
	AmountB   *uint256.Int
	Liquidity *uint256.Int
}

func (LiquidityAdded) EventName() string { return EventLiquidityAdded }

// LiquidityRemoved is emitted by RemoveLiquidity. Amounts are in pool asset order.
type LiquidityRemoved struct {
	Provider common.Address
	AmountA  *uint256.Int
	AmountB  *uint256.Int
}

func (LiquidityRemoved) EventName() string { return EventLiquidityRemoved }

// SwapExecuted is emitted by SwapExact.
type SwapExecuted struct {
	User      common.Address
	TokenIn   common.Address
	TokenOut  common.Address
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
}

func (SwapExecuted) EventName() string { return EventSwapExecuted }

// Observer receives events of committed operations, in emission order.
type Observer func(Event)
