package amm

import (
	"errors"
	"fmt"
)

var (
	ErrExpired                     = errors.New("expired")
	ErrInvalidAssetPair            = errors.New("invalid asset pair")
	ErrInsufficientAmount          = errors.New("insufficient amount")
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrInsufficientOutput          = errors.New("insufficient output amount")
	ErrInsufficientInput           = errors.New("insufficient input amount")
	ErrInsufficientLiquidity       = errors.New("insufficient liquidity")
	ErrNoLiquidity                 = errors.New("no liquidity")
	ErrInsufficientBalance         = errors.New("insufficient share balance")
	ErrZeroAddress                 = errors.New("zero address")
	ErrOverflow                    = errors.New("arithmetic overflow")
	ErrReentrant                   = errors.New("reentrant call")
)

// Side-specific variants match their family with errors.Is.
var (
	ErrInsufficientAAmount = fmt.Errorf("%w: asset A", ErrInsufficientAmount)
	ErrInsufficientBAmount = fmt.Errorf("%w: asset B", ErrInsufficientAmount)
	ErrInsufficientAOutput = fmt.Errorf("%w: asset A", ErrInsufficientOutput)
	ErrInsufficientBOutput = fmt.Errorf("%w: asset B", ErrInsufficientOutput)
)
