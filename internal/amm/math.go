package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Scale is the fixed-point unit used by spot prices (1e18).
var Scale = uint256.NewInt(1_000_000_000_000_000_000)

// Sqrt returns floor(sqrt(y)) using the Babylonian method.
func Sqrt(y *uint256.Int) *uint256.Int {
	z := new(uint256.Int)
	if y == nil {
		return z
	}
	if y.GtUint64(3) {
		z.Set(y)
		x := new(uint256.Int).Rsh(y, 1)
		x.AddUint64(x, 1)
		next := new(uint256.Int)
		for x.Lt(z) {
			z.Set(x)
			next.Div(y, x)
			next.Add(next, x)
			x.Rsh(next, 1)
		}
		return z
	}
	if !y.IsZero() {
		z.SetOne()
	}
	return z
}

// Min returns a copy of the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}

func mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

func add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

func sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, fmt.Errorf("%w: %s - %s", ErrOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

// mulDiv computes floor(x*y/d). d must be non-zero.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	product, err := mul(x, y)
	if err != nil {
		return nil, err
	}
	return product.Div(product, d), nil
}

func orZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return x
}
