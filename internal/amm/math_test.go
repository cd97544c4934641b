package amm

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSqrtSmallValues(t *testing.T) {
	require := require.New(t)

	want := []uint64{0, 1, 1, 1, 2, 2, 2, 2, 2, 3}
	for y, w := range want {
		require.Equal(w, Sqrt(uint256.NewInt(uint64(y))).Uint64(), "sqrt(%d)", y)
	}
	require.True(Sqrt(nil).IsZero())
}

func TestSqrtMatchesBigInt(t *testing.T) {
	require := require.New(t)

	max := new(uint256.Int).SetAllOne()
	inputs := []*uint256.Int{
		uint256.NewInt(15),
		uint256.NewInt(16),
		uint256.NewInt(4_000_000),
		uint256.NewInt(4_001_000),
		new(uint256.Int).Lsh(uint256.NewInt(1), 200),
		new(uint256.Int).Sub(max, uint256.NewInt(12345)),
		max,
	}
	for _, y := range inputs {
		want := new(big.Int).Sqrt(y.ToBig())
		require.Equal(0, want.Cmp(Sqrt(y).ToBig()), "sqrt(%s)", y.Dec())
	}
}

func TestMin(t *testing.T) {
	require := require.New(t)

	a, b := uint256.NewInt(3), uint256.NewInt(7)
	require.Equal(uint64(3), Min(a, b).Uint64())
	require.Equal(uint64(3), Min(b, a).Uint64())

	got := Min(a, a)
	got.SetUint64(99)
	require.Equal(uint64(3), a.Uint64())
}

func TestCheckedArithmetic(t *testing.T) {
	require := require.New(t)

	max := new(uint256.Int).SetAllOne()
	_, err := mul(max, uint256.NewInt(2))
	require.ErrorIs(err, ErrOverflow)
	_, err = add(max, uint256.NewInt(1))
	require.ErrorIs(err, ErrOverflow)
	_, err = sub(uint256.NewInt(1), uint256.NewInt(2))
	require.ErrorIs(err, ErrOverflow)

	got, err := mulDiv(uint256.NewInt(7), uint256.NewInt(10), uint256.NewInt(3))
	require.NoError(err)
	require.Equal(uint64(23), got.Uint64())
}
