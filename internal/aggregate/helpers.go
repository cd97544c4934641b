package aggregate

import (
	"math/big"
)

const ratioScale = 18

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := pow10(decimals)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// computePrice returns the price of one whole A in whole B, or "" when
// either reserve is empty.
func computePrice(reserveA, reserveB *big.Int, decimalsA, decimalsB uint8) string {
	if reserveA == nil || reserveA.Sign() == 0 || reserveB == nil || reserveB.Sign() == 0 {
		return ""
	}
	num := new(big.Int).Mul(reserveB, pow10(decimalsA))
	den := new(big.Int).Mul(reserveA, pow10(decimalsB))
	return new(big.Rat).SetFrac(num, den).FloatString(ratioScale)
}

// tvlFromReserve values the pool in B. At the pool's own price both sides
// are worth the same, so the total is twice the B side.
func tvlFromReserve(reserveB *big.Int) *big.Int {
	if reserveB == nil {
		return nil
	}
	return new(big.Int).Lsh(reserveB, 1)
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
