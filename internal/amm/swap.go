package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SwapParams describes an exact-input swap.
type SwapParams struct {
	AmountIn     *uint256.Int
	AmountOutMin *uint256.Int
	TokenIn      common.Address
	TokenOut     common.Address
	To           common.Address
	Deadline     uint64
}

// SwapExact sells AmountIn of TokenIn for TokenOut. The output amount is
// reported only through the SwapExecuted event; use Quote to preview it.
func (p *Pool) SwapExact(ctx context.Context, caller common.Address, params SwapParams) error {
	return p.run("swap", func(j *journal) error {
		if err := p.checkDeadline(params.Deadline); err != nil {
			return err
		}
		if _, err := p.orient(params.TokenIn, params.TokenOut); err != nil {
			return err
		}

		amountIn := orZero(params.AmountIn)
		reserveIn := p.reserveOf(params.TokenIn).Clone()
		reserveOut := p.reserveOf(params.TokenOut).Clone()

		amountOut, err := QuoteOut(amountIn, reserveIn, reserveOut)
		if err != nil {
			return err
		}
		if minOut := orZero(params.AmountOutMin); amountOut.Lt(minOut) {
			return fmt.Errorf("%w: %s < min %s", ErrInsufficientOutput, amountOut.Dec(), minOut.Dec())
		}
		newIn, err := add(reserveIn, amountIn)
		if err != nil {
			return err
		}
		newOut, err := sub(reserveOut, amountOut)
		if err != nil {
			return err
		}

		if params.TokenIn == p.assetA {
			p.setReserves(newIn, newOut)
		} else {
			p.setReserves(newOut, newIn)
		}
		p.emit(j, SwapExecuted{
			User:      caller,
			TokenIn:   params.TokenIn,
			TokenOut:  params.TokenOut,
			AmountIn:  amountIn.Clone(),
			AmountOut: amountOut.Clone(),
		})

		if err := p.pull(ctx, params.TokenIn, caller, amountIn); err != nil {
			return err
		}
		return p.push(ctx, params.TokenOut, params.To, amountOut)
	})
}

// Quote previews SwapExact against the current reserves.
func (p *Pool) Quote(tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	tokenOut := p.assetB
	if tokenIn == p.assetB {
		tokenOut = p.assetA
	}
	if _, err := p.orient(tokenIn, tokenOut); err != nil {
		return nil, err
	}
	return QuoteOut(amountIn, p.reserveOf(tokenIn), p.reserveOf(tokenOut))
}

// SpotPrice returns the price of one unit of base in quote, scaled by 1e18.
func (p *Pool) SpotPrice(base, quote common.Address) (*uint256.Int, error) {
	if _, err := p.orient(base, quote); err != nil {
		return nil, err
	}
	return SpotPrice(p.reserveOf(base), p.reserveOf(quote))
}
