package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AddLiquidityParams describes a deposit. AssetA and AssetB may name the
// pool's assets in either order; amounts follow the same order.
type AddLiquidityParams struct {
	AssetA         common.Address
	AssetB         common.Address
	AmountADesired *uint256.Int
	AmountBDesired *uint256.Int
	AmountAMin     *uint256.Int
	AmountBMin     *uint256.Int
	To             common.Address
	Deadline       uint64
}

// AddLiquidityResult reports the deposited amounts in the caller's order.
type AddLiquidityResult struct {
	AmountA   *uint256.Int
	AmountB   *uint256.Int
	Liquidity *uint256.Int
}

// RemoveLiquidityParams describes a withdrawal of Liquidity shares.
type RemoveLiquidityParams struct {
	AssetA     common.Address
	AssetB     common.Address
	Liquidity  *uint256.Int
	AmountAMin *uint256.Int
	AmountBMin *uint256.Int
	To         common.Address
	Deadline   uint64
}

// RemoveLiquidityResult reports the withdrawn amounts in the caller's order.
type RemoveLiquidityResult struct {
	AmountA *uint256.Int
	AmountB *uint256.Int
}

// AddLiquidity deposits both assets at the current price ratio and mints
// shares to params.To. The caller's assets are pulled after the pool state
// and the LiquidityAdded event are final.
func (p *Pool) AddLiquidity(ctx context.Context, caller common.Address, params AddLiquidityParams) (AddLiquidityResult, error) {
	var res AddLiquidityResult
	err := p.run("add_liquidity", func(j *journal) error {
		if err := p.checkDeadline(params.Deadline); err != nil {
			return err
		}
		flipped, err := p.orient(params.AssetA, params.AssetB)
		if err != nil {
			return err
		}

		desiredA, desiredB := orZero(params.AmountADesired), orZero(params.AmountBDesired)
		minA, minB := orZero(params.AmountAMin), orZero(params.AmountBMin)
		if flipped {
			desiredA, desiredB = desiredB, desiredA
			minA, minB = minB, minA
		}

		reserveA, reserveB := p.reserveA.Clone(), p.reserveB.Clone()
		supply := p.shares.TotalSupply()

		usedA, usedB, err := depositAmounts(desiredA, desiredB, minA, minB, reserveA, reserveB, flipped)
		if err != nil {
			return err
		}
		liquidity, err := mintAmount(usedA, usedB, reserveA, reserveB, supply)
		if err != nil {
			return err
		}
		newA, err := add(reserveA, usedA)
		if err != nil {
			return err
		}
		newB, err := add(reserveB, usedB)
		if err != nil {
			return err
		}

		if err := p.mint(j, params.To, liquidity); err != nil {
			return err
		}
		p.setReserves(newA, newB)
		p.emit(j, LiquidityAdded{
			Provider:  caller,
			AmountA:   usedA.Clone(),
			AmountB:   usedB.Clone(),
			Liquidity: liquidity.Clone(),
		})

		if err := p.pull(ctx, p.assetA, caller, usedA); err != nil {
			return err
		}
		if err := p.pull(ctx, p.assetB, caller, usedB); err != nil {
			return err
		}

		if flipped {
			usedA, usedB = usedB, usedA
		}
		res = AddLiquidityResult{AmountA: usedA, AmountB: usedB, Liquidity: liquidity}
		return nil
	})
	if err != nil {
		return AddLiquidityResult{}, err
	}
	return res, nil
}

// depositAmounts picks the amounts that keep the reserve ratio. Arguments
// are in pool order; flipped only selects which error names the side.
func depositAmounts(desiredA, desiredB, minA, minB, reserveA, reserveB *uint256.Int, flipped bool) (*uint256.Int, *uint256.Int, error) {
	if reserveA.IsZero() && reserveB.IsZero() {
		return desiredA.Clone(), desiredB.Clone(), nil
	}

	optimalB, err := QuotePaired(desiredA, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if !optimalB.Gt(desiredB) {
		if optimalB.Lt(minB) {
			return nil, nil, fmt.Errorf("%w: optimal %s < min %s", amountErr(false, flipped), optimalB.Dec(), minB.Dec())
		}
		return desiredA.Clone(), optimalB, nil
	}

	optimalA, err := QuotePaired(desiredB, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	if optimalA.Lt(minA) {
		return nil, nil, fmt.Errorf("%w: optimal %s < min %s", amountErr(true, flipped), optimalA.Dec(), minA.Dec())
	}
	return optimalA, desiredB.Clone(), nil
}

// mintAmount computes the shares owed for a deposit of (usedA, usedB).
func mintAmount(usedA, usedB, reserveA, reserveB, supply *uint256.Int) (*uint256.Int, error) {
	var liquidity *uint256.Int
	if supply.IsZero() {
		product, err := mul(usedA, usedB)
		if err != nil {
			return nil, err
		}
		liquidity = Sqrt(product)
	} else {
		if reserveA.IsZero() || reserveB.IsZero() {
			return nil, ErrInsufficientLiquidity
		}
		fromA, err := mulDiv(usedA, supply, reserveA)
		if err != nil {
			return nil, err
		}
		fromB, err := mulDiv(usedB, supply, reserveB)
		if err != nil {
			return nil, err
		}
		liquidity = Min(fromA, fromB)
	}
	if liquidity.IsZero() {
		return nil, ErrInsufficientLiquidityMinted
	}
	return liquidity, nil
}

// RemoveLiquidity burns the caller's shares and sends the proportional
// reserves to params.To.
func (p *Pool) RemoveLiquidity(ctx context.Context, caller common.Address, params RemoveLiquidityParams) (RemoveLiquidityResult, error) {
	var res RemoveLiquidityResult
	err := p.run("remove_liquidity", func(j *journal) error {
		if err := p.checkDeadline(params.Deadline); err != nil {
			return err
		}
		flipped, err := p.orient(params.AssetA, params.AssetB)
		if err != nil {
			return err
		}

		liquidity := orZero(params.Liquidity)
		if liquidity.IsZero() {
			return ErrInsufficientLiquidityBurned
		}
		minA, minB := orZero(params.AmountAMin), orZero(params.AmountBMin)
		if flipped {
			minA, minB = minB, minA
		}

		if bal := p.shares.BalanceOf(caller); bal.Lt(liquidity) {
			return fmt.Errorf("burn %s from %s holding %s: %w", liquidity.Dec(), caller.Hex(), bal.Dec(), ErrInsufficientBalance)
		}

		reserveA, reserveB := p.reserveA.Clone(), p.reserveB.Clone()
		supply := p.shares.TotalSupply()

		outA, err := mulDiv(liquidity, reserveA, supply)
		if err != nil {
			return err
		}
		outB, err := mulDiv(liquidity, reserveB, supply)
		if err != nil {
			return err
		}
		if outA.Lt(minA) {
			return fmt.Errorf("%w: %s < min %s", outputErr(true, flipped), outA.Dec(), minA.Dec())
		}
		if outB.Lt(minB) {
			return fmt.Errorf("%w: %s < min %s", outputErr(false, flipped), outB.Dec(), minB.Dec())
		}
		newA, err := sub(reserveA, outA)
		if err != nil {
			return err
		}
		newB, err := sub(reserveB, outB)
		if err != nil {
			return err
		}

		if err := p.burn(j, caller, liquidity); err != nil {
			return err
		}
		p.setReserves(newA, newB)
		p.emit(j, LiquidityRemoved{
			Provider: caller,
			AmountA:  outA.Clone(),
			AmountB:  outB.Clone(),
		})

		if err := p.push(ctx, p.assetA, params.To, outA); err != nil {
			return err
		}
		if err := p.push(ctx, p.assetB, params.To, outB); err != nil {
			return err
		}

		if flipped {
			outA, outB = outB, outA
		}
		res = RemoveLiquidityResult{AmountA: outA, AmountB: outB}
		return nil
	})
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	return res, nil
}

// amountErr and outputErr name the side from the caller's point of view.
func amountErr(poolSideA, flipped bool) error {
	if poolSideA != flipped {
		return ErrInsufficientAAmount
	}
	return ErrInsufficientBAmount
}

func outputErr(poolSideA, flipped bool) error {
	if poolSideA != flipped {
		return ErrInsufficientAOutput
	}
	return ErrInsufficientBOutput
}
