package amm

import (
	"github.com/holiman/uint256"
)

// QuoteOut returns floor(amountIn*reserveOut/(reserveIn+amountIn)).
// The result is always strictly below reserveOut.
func QuoteOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrInsufficientInput
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}

	numerator, err := mul(amountIn, reserveOut)
	if err != nil {
		return nil, err
	}
	denominator, err := add(reserveIn, amountIn)
	if err != nil {
		return nil, err
	}
	return numerator.Div(numerator, denominator), nil
}

// QuotePaired returns the amount of the other asset matching amountA at the
// current reserve ratio: floor(amountA*reserveB/reserveA).
func QuotePaired(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA == nil || amountA.IsZero() {
		return nil, ErrInsufficientAmount
	}
	if reserveA == nil || reserveB == nil || reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	return mulDiv(amountA, reserveB, reserveA)
}

// SpotPrice returns reserveQuote*Scale/reserveBase, the price of one unit of
// the base asset expressed in the quote asset.
func SpotPrice(reserveBase, reserveQuote *uint256.Int) (*uint256.Int, error) {
	if reserveBase == nil || reserveQuote == nil || reserveBase.IsZero() || reserveQuote.IsZero() {
		return nil, ErrNoLiquidity
	}
	return mulDiv(reserveQuote, Scale, reserveBase)
}
