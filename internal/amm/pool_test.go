package amm

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"pairPool/internal/asset"
)

const (
	testNow      = uint64(1_700_000_000)
	testDeadline = testNow + 600
)

var (
	tokenA = common.HexToAddress("0x000000000000000000000000000000000000a0a0")
	tokenB = common.HexToAddress("0x000000000000000000000000000000000000b0b0")
	tokenC = common.HexToAddress("0x000000000000000000000000000000000000c0c0")
	alice  = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob    = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

type fixture struct {
	pool   *Pool
	bank   *asset.Ledger
	events []Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	bank := asset.NewLedger()
	f := &fixture{bank: bank}
	pool, err := NewPool(Config{
		AssetA:   tokenA,
		AssetB:   tokenB,
		Transfer: bank.Client(PoolAddress(tokenA, tokenB)),
		Clock:    FixedClock(testNow),
	})
	require.NoError(t, err)
	pool.Subscribe(func(ev Event) { f.events = append(f.events, ev) })
	f.pool = pool
	return f
}

// fund mints both assets to account and approves the pool for all of it.
func (f *fixture) fund(t *testing.T, account common.Address, a, b uint64) {
	t.Helper()
	require.NoError(t, f.bank.Mint(tokenA, account, u(a)))
	require.NoError(t, f.bank.Mint(tokenB, account, u(b)))
	unlimited := new(uint256.Int).SetAllOne()
	require.NoError(t, f.bank.Approve(tokenA, account, f.pool.Address(), unlimited))
	require.NoError(t, f.bank.Approve(tokenB, account, f.pool.Address(), unlimited))
}

func (f *fixture) add(t *testing.T, caller common.Address, a, b uint64) AddLiquidityResult {
	t.Helper()
	res, err := f.pool.AddLiquidity(context.Background(), caller, AddLiquidityParams{
		AssetA:         tokenA,
		AssetB:         tokenB,
		AmountADesired: u(a),
		AmountBDesired: u(b),
		To:             caller,
		Deadline:       testDeadline,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) swap(caller common.Address, in, out common.Address, amount uint64) error {
	return f.pool.SwapExact(context.Background(), caller, SwapParams{
		AmountIn: u(amount),
		TokenIn:  in,
		TokenOut: out,
		To:       caller,
		Deadline: testDeadline,
	})
}

func (f *fixture) requireReserves(t *testing.T, a, b uint64) {
	t.Helper()
	ra, rb := f.pool.Reserves()
	require.Equal(t, a, ra.Uint64(), "reserveA")
	require.Equal(t, b, rb.Uint64(), "reserveB")
}

func TestNewPoolRejectsBadPair(t *testing.T) {
	require := require.New(t)

	bank := asset.NewLedger()
	_, err := NewPool(Config{AssetA: tokenA, AssetB: tokenA, Transfer: bank.Client(alice)})
	require.ErrorIs(err, ErrInvalidAssetPair)
	_, err = NewPool(Config{AssetA: tokenA, Transfer: bank.Client(alice)})
	require.ErrorIs(err, ErrInvalidAssetPair)
	_, err = NewPool(Config{AssetA: tokenA, AssetB: tokenB})
	require.Error(err)
}

func TestPoolAddressIsOrderIndependent(t *testing.T) {
	require := require.New(t)

	require.Equal(PoolAddress(tokenA, tokenB), PoolAddress(tokenB, tokenA))
	require.NotEqual(PoolAddress(tokenA, tokenB), PoolAddress(tokenA, tokenC))
}

func TestAddLiquidityEmptyPool(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)

	res := f.add(t, alice, 1000, 4000)
	require.Equal(uint64(1000), res.AmountA.Uint64())
	require.Equal(uint64(4000), res.AmountB.Uint64())
	require.Equal(uint64(2000), res.Liquidity.Uint64())

	f.requireReserves(t, 1000, 4000)
	require.Equal(uint64(2000), f.pool.TotalSupply().Uint64())
	require.Equal(uint64(2000), f.pool.BalanceOf(alice).Uint64())
	require.Equal(uint64(1000), f.bank.BalanceOf(tokenA, f.pool.Address()).Uint64())
	require.Equal(uint64(4000), f.bank.BalanceOf(tokenB, f.pool.Address()).Uint64())

	require.Len(f.events, 1)
	ev, ok := f.events[0].(LiquidityAdded)
	require.True(ok)
	require.Equal(alice, ev.Provider)
	require.Equal(uint64(2000), ev.Liquidity.Uint64())
}

func TestAddLiquidityUsesOptimalAmounts(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)
	f.fund(t, bob, 1000, 1000)
	f.add(t, alice, 1000, 4000)

	res := f.add(t, bob, 100, 1000)
	require.Equal(uint64(100), res.AmountA.Uint64())
	require.Equal(uint64(400), res.AmountB.Uint64())
	require.Equal(uint64(200), res.Liquidity.Uint64())

	res = f.add(t, bob, 500, 440)
	require.Equal(uint64(110), res.AmountA.Uint64())
	require.Equal(uint64(440), res.AmountB.Uint64())
	require.Equal(uint64(220), res.Liquidity.Uint64())

	f.requireReserves(t, 1210, 4840)
	require.Equal(uint64(2420), f.pool.TotalSupply().Uint64())
	require.Equal(uint64(420), f.pool.BalanceOf(bob).Uint64())
}

func TestAddLiquidityReversedPairOrder(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)
	f.fund(t, bob, 1000, 1000)
	f.add(t, alice, 1000, 4000)

	res, err := f.pool.AddLiquidity(context.Background(), bob, AddLiquidityParams{
		AssetA:         tokenB,
		AssetB:         tokenA,
		AmountADesired: u(1000),
		AmountBDesired: u(100),
		To:             bob,
		Deadline:       testDeadline,
	})
	require.NoError(err)
	require.Equal(uint64(400), res.AmountA.Uint64())
	require.Equal(uint64(100), res.AmountB.Uint64())
	f.requireReserves(t, 1100, 4400)

	_, err = f.pool.AddLiquidity(context.Background(), bob, AddLiquidityParams{
		AssetA:         tokenB,
		AssetB:         tokenA,
		AmountADesired: u(1000),
		AmountBDesired: u(100),
		AmountAMin:     u(401),
		To:             bob,
		Deadline:       testDeadline,
	})
	require.ErrorIs(err, ErrInsufficientAAmount)
	require.ErrorIs(err, ErrInsufficientAmount)
}

func TestAddLiquiditySlippage(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)
	f.fund(t, bob, 1000, 1000)
	f.add(t, alice, 1000, 4000)

	params := AddLiquidityParams{
		AssetA:         tokenA,
		AssetB:         tokenB,
		AmountADesired: u(100),
		AmountBDesired: u(1000),
		AmountBMin:     u(401),
		To:             bob,
		Deadline:       testDeadline,
	}
	_, err := f.pool.AddLiquidity(context.Background(), bob, params)
	require.ErrorIs(err, ErrInsufficientBAmount)

	params = AddLiquidityParams{
		AssetA:         tokenA,
		AssetB:         tokenB,
		AmountADesired: u(500),
		AmountBDesired: u(400),
		AmountAMin:     u(101),
		To:             bob,
		Deadline:       testDeadline,
	}
	_, err = f.pool.AddLiquidity(context.Background(), bob, params)
	require.ErrorIs(err, ErrInsufficientAAmount)

	f.requireReserves(t, 1000, 4000)
	require.Len(f.events, 1)
}

func TestAddLiquidityZeroMint(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)

	_, err := f.pool.AddLiquidity(context.Background(), alice, AddLiquidityParams{
		AssetA:         tokenA,
		AssetB:         tokenB,
		AmountADesired: u(0),
		AmountBDesired: u(4000),
		To:             alice,
		Deadline:       testDeadline,
	})
	require.ErrorIs(err, ErrInsufficientLiquidityMinted)
	f.requireReserves(t, 0, 0)
	require.True(f.pool.TotalSupply().IsZero())
}

func TestAddLiquidityInvalidPair(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)
	f.add(t, alice, 1000, 4000)

	for _, pair := range [][2]common.Address{{tokenA, tokenC}, {tokenA, tokenA}, {tokenC, tokenB}} {
		_, err := f.pool.AddLiquidity(context.Background(), alice, AddLiquidityParams{
			AssetA:         pair[0],
			AssetB:         pair[1],
			AmountADesired: u(10),
			AmountBDesired: u(40),
			To:             alice,
			Deadline:       testDeadline,
		})
		require.ErrorIs(err, ErrInvalidAssetPair)
	}
	f.requireReserves(t, 1000, 4000)
	require.Equal(uint64(2000), f.pool.TotalSupply().Uint64())
	require.Len(f.events, 1)
}

func TestDeadlineExpired(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)

	_, err := f.pool.AddLiquidity(context.Background(), alice, AddLiquidityParams{
		AssetA:         tokenA,
		AssetB:         tokenB,
		AmountADesired: u(1000),
		AmountBDesired: u(4000),
		To:             alice,
		Deadline:       testNow - 1,
	})
	require.ErrorIs(err, ErrExpired)

	_, err = f.pool.AddLiquidity(context.Background(), alice, AddLiquidityParams{
		AssetA:         tokenA,
		AssetB:         tokenB,
		AmountADesired: u(1000),
		AmountBDesired: u(4000),
		To:             alice,
		Deadline:       testNow,
	})
	require.NoError(err)

	err = f.pool.SwapExact(context.Background(), alice, SwapParams{
		AmountIn: u(1), TokenIn: tokenA, TokenOut: tokenB, To: alice, Deadline: testNow - 1,
	})
	require.ErrorIs(err, ErrExpired)

	_, err = f.pool.RemoveLiquidity(context.Background(), alice, RemoveLiquidityParams{
		AssetA: tokenA, AssetB: tokenB, Liquidity: u(1), To: alice, Deadline: testNow - 1,
	})
	require.ErrorIs(err, ErrExpired)
}

func TestRemoveLiquidityHalf(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)
	f.add(t, alice, 1000, 4000)

	res, err := f.pool.RemoveLiquidity(context.Background(), alice, RemoveLiquidityParams{
		AssetA:    tokenA,
		AssetB:    tokenB,
		Liquidity: u(1000),
		To:        bob,
		Deadline:  testDeadline,
	})
	require.NoError(err)
	require.Equal(uint64(500), res.AmountA.Uint64())
	require.Equal(uint64(2000), res.AmountB.Uint64())

	f.requireReserves(t, 500, 2000)
	require.Equal(uint64(1000), f.pool.TotalSupply().Uint64())
	require.Equal(uint64(500), f.bank.BalanceOf(tokenA, bob).Uint64())
	require.Equal(uint64(2000), f.bank.BalanceOf(tokenB, bob).Uint64())

	require.Len(f.events, 2)
	ev, ok := f.events[1].(LiquidityRemoved)
	require.True(ok)
	require.Equal(alice, ev.Provider)
	require.Equal(uint64(500), ev.AmountA.Uint64())
}

func TestRemoveLiquidityFailures(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)
	f.add(t, alice, 1000, 4000)

	remove := func(caller common.Address, p RemoveLiquidityParams) error {
		p.To = caller
		p.Deadline = testDeadline
		_, err := f.pool.RemoveLiquidity(context.Background(), caller, p)
		return err
	}

	require.ErrorIs(remove(alice, RemoveLiquidityParams{AssetA: tokenA, AssetB: tokenB, Liquidity: u(0)}), ErrInsufficientLiquidityBurned)
	require.ErrorIs(remove(alice, RemoveLiquidityParams{AssetA: tokenA, AssetB: tokenB, Liquidity: u(2001)}), ErrInsufficientBalance)
	require.ErrorIs(remove(bob, RemoveLiquidityParams{AssetA: tokenA, AssetB: tokenB, Liquidity: u(1)}), ErrInsufficientBalance)
	require.ErrorIs(remove(alice, RemoveLiquidityParams{AssetA: tokenC, AssetB: tokenB, Liquidity: u(1)}), ErrInvalidAssetPair)

	err := remove(alice, RemoveLiquidityParams{AssetA: tokenA, AssetB: tokenB, Liquidity: u(1000), AmountAMin: u(501)})
	require.ErrorIs(err, ErrInsufficientAOutput)
	require.ErrorIs(err, ErrInsufficientOutput)
	err = remove(alice, RemoveLiquidityParams{AssetA: tokenA, AssetB: tokenB, Liquidity: u(1000), AmountBMin: u(2001)})
	require.ErrorIs(err, ErrInsufficientBOutput)
	err = remove(alice, RemoveLiquidityParams{AssetA: tokenB, AssetB: tokenA, Liquidity: u(1000), AmountAMin: u(2001)})
	require.ErrorIs(err, ErrInsufficientAOutput)

	f.requireReserves(t, 1000, 4000)
	require.Equal(uint64(2000), f.pool.BalanceOf(alice).Uint64())
}

func TestRoundTripReturnsDeposit(t *testing.T) {
	require := require.New(t)

	deposits := [][2]uint64{{1000, 4000}, {1000, 4001}, {3, 7}, {123456789, 987654321}, {1, 1}}
	for _, d := range deposits {
		f := newFixture(t)
		f.fund(t, alice, d[0], d[1])
		res := f.add(t, alice, d[0], d[1])

		out, err := f.pool.RemoveLiquidity(context.Background(), alice, RemoveLiquidityParams{
			AssetA:    tokenA,
			AssetB:    tokenB,
			Liquidity: res.Liquidity,
			To:        alice,
			Deadline:  testDeadline,
		})
		require.NoError(err)
		require.LessOrEqual(out.AmountA.Uint64(), d[0])
		require.LessOrEqual(out.AmountB.Uint64(), d[1])
		require.Equal(d[0], out.AmountA.Uint64())
		require.Equal(d[1], out.AmountB.Uint64())
		f.requireReserves(t, 0, 0)
		require.True(f.pool.TotalSupply().IsZero())
	}
}

func TestSwapExact(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)
	f.fund(t, bob, 100, 0)
	f.add(t, alice, 1000, 4000)

	require.NoError(f.swap(bob, tokenA, tokenB, 100))
	f.requireReserves(t, 1100, 3637)
	require.Equal(uint64(363), f.bank.BalanceOf(tokenB, bob).Uint64())
	require.True(f.bank.BalanceOf(tokenA, bob).IsZero())

	require.Len(f.events, 2)
	ev, ok := f.events[1].(SwapExecuted)
	require.True(ok)
	require.Equal(SwapExecuted{User: bob, TokenIn: tokenA, TokenOut: tokenB, AmountIn: u(100), AmountOut: u(363)}, ev)

	require.NoError(f.swap(bob, tokenB, tokenA, 363))
	back, err := QuoteOut(u(363), u(3637), u(1100))
	require.NoError(err)
	f.requireReserves(t, 1100-back.Uint64(), 4000)
}

func TestSwapFailures(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)
	f.fund(t, bob, 100, 0)

	require.ErrorIs(f.swap(bob, tokenA, tokenB, 0), ErrInsufficientInput)
	require.ErrorIs(f.swap(bob, tokenA, tokenB, 10), ErrInsufficientLiquidity)

	f.add(t, alice, 1000, 4000)
	require.ErrorIs(f.swap(bob, tokenA, tokenB, 0), ErrInsufficientInput)
	require.ErrorIs(f.swap(bob, tokenA, tokenA, 10), ErrInvalidAssetPair)
	require.ErrorIs(f.swap(bob, tokenC, tokenB, 10), ErrInvalidAssetPair)

	err := f.pool.SwapExact(context.Background(), bob, SwapParams{
		AmountIn: u(100), AmountOutMin: u(364), TokenIn: tokenA, TokenOut: tokenB, To: bob, Deadline: testDeadline,
	})
	require.ErrorIs(err, ErrInsufficientOutput)

	f.requireReserves(t, 1000, 4000)
	require.Len(f.events, 1)
}

func TestSwapKNeverDecreases(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1_000_000, 3_000_000)
	f.fund(t, bob, 10_000_000, 10_000_000)
	f.add(t, alice, 1_000_000, 3_000_000)

	amounts := []uint64{1, 7, 999, 12_345, 250_000, 3, 1_000_001, 42, 77_777, 5}
	prev, err := f.pool.K()
	require.NoError(err)
	for i, amount := range amounts {
		in, out := tokenA, tokenB
		if i%2 == 1 {
			in, out = tokenB, tokenA
		}
		require.NoError(f.swap(bob, in, out, amount))
		k, err := f.pool.K()
		require.NoError(err)
		require.False(k.Lt(prev), "k decreased after swap %d", i)
		prev = k
	}
}

func TestSharesConserved(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 10_000, 20_000)
	f.fund(t, bob, 10_000, 20_000)

	f.add(t, alice, 5_000, 10_000)
	f.add(t, bob, 1_234, 5_000)
	require.NoError(f.swap(bob, tokenA, tokenB, 777))
	f.add(t, alice, 333, 999)
	require.NoError(f.pool.TransferShares(alice, bob, u(100)))
	_, err := f.pool.RemoveLiquidity(context.Background(), bob, RemoveLiquidityParams{
		AssetA: tokenA, AssetB: tokenB, Liquidity: f.pool.BalanceOf(bob), To: bob, Deadline: testDeadline,
	})
	require.NoError(err)

	sum := new(uint256.Int)
	for _, holder := range f.pool.Holders() {
		sum.Add(sum, f.pool.BalanceOf(holder))
	}
	require.True(sum.Eq(f.pool.TotalSupply()))
	require.Equal([]common.Address{alice}, f.pool.Holders())

	ra, rb := f.pool.Reserves()
	require.True(ra.Eq(f.bank.BalanceOf(tokenA, f.pool.Address())))
	require.True(rb.Eq(f.bank.BalanceOf(tokenB, f.pool.Address())))
}

func TestSpotPrice(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	_, err := f.pool.SpotPrice(tokenA, tokenB)
	require.ErrorIs(err, ErrNoLiquidity)

	f.fund(t, alice, 1000, 4000)
	f.add(t, alice, 1000, 4000)

	price, err := f.pool.SpotPrice(tokenA, tokenB)
	require.NoError(err)
	require.Equal("4000000000000000000", price.Dec())

	price, err = f.pool.SpotPrice(tokenB, tokenA)
	require.NoError(err)
	require.Equal("250000000000000000", price.Dec())

	_, err = f.pool.SpotPrice(tokenA, tokenC)
	require.ErrorIs(err, ErrInvalidAssetPair)

	out, err := f.pool.Quote(tokenA, u(100))
	require.NoError(err)
	require.Equal(uint64(363), out.Uint64())
}

func TestOverflowReverts(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	big := new(uint256.Int).Lsh(u(1), 200)
	_, err := f.pool.AddLiquidity(context.Background(), alice, AddLiquidityParams{
		AssetA:         tokenA,
		AssetB:         tokenB,
		AmountADesired: big,
		AmountBDesired: big,
		To:             alice,
		Deadline:       testDeadline,
	})
	require.ErrorIs(err, ErrOverflow)
	f.requireReserves(t, 0, 0)
}

func TestTransferFailureRevertsPoolState(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)
	f.add(t, alice, 1000, 4000)

	require.NoError(f.bank.Mint(tokenA, bob, u(100)))
	require.NoError(f.bank.Mint(tokenB, bob, u(400)))
	require.NoError(f.bank.Approve(tokenA, bob, f.pool.Address(), u(100)))
	f.bank.Commit()

	rev := f.bank.Snapshot()
	_, err := f.pool.AddLiquidity(context.Background(), bob, AddLiquidityParams{
		AssetA:         tokenA,
		AssetB:         tokenB,
		AmountADesired: u(100),
		AmountBDesired: u(400),
		To:             bob,
		Deadline:       testDeadline,
	})
	require.ErrorIs(err, asset.ErrInsufficientAllowance)
	f.requireReserves(t, 1000, 4000)
	// the pool is reverted, the first pull stays until the ledger is rolled back
	require.True(f.bank.BalanceOf(tokenA, bob).IsZero())
	require.Equal(uint64(1100), f.bank.BalanceOf(tokenA, f.pool.Address()).Uint64())
	f.bank.RevertToSnapshot(rev)
	require.Equal(uint64(1000), f.bank.BalanceOf(tokenA, f.pool.Address()).Uint64())

	f.requireReserves(t, 1000, 4000)
	require.Equal(uint64(2000), f.pool.TotalSupply().Uint64())
	require.True(f.pool.BalanceOf(bob).IsZero())
	require.Equal(uint64(100), f.bank.BalanceOf(tokenA, bob).Uint64())
	require.Len(f.events, 1)
}

func TestReentrantCallRejected(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)
	f.fund(t, bob, 100, 0)
	f.add(t, alice, 1000, 4000)

	var reserveSeen *uint256.Int
	var reentryErr error
	f.bank.SetHook(tokenA, func(ctx context.Context, _, from, to common.Address, amount *uint256.Int) error {
		reserveSeen = f.pool.ReserveB()
		reentryErr = f.swap(bob, tokenA, tokenB, 1)
		return nil
	})

	require.NoError(f.swap(bob, tokenA, tokenB, 100))
	require.ErrorIs(reentryErr, ErrReentrant)
	require.Equal(uint64(3637), reserveSeen.Uint64())
	f.requireReserves(t, 1100, 3637)

	f.bank.SetHook(tokenA, func(ctx context.Context, _, _, _ common.Address, _ *uint256.Int) error {
		return f.pool.TransferShares(alice, bob, u(1))
	})
	f.fund(t, bob, 100, 0)
	err := f.swap(bob, tokenA, tokenB, 100)
	require.ErrorIs(err, ErrReentrant)
	f.requireReserves(t, 1100, 3637)
}

func TestSnapshotRestore(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.fund(t, alice, 1000, 4000)
	f.add(t, alice, 1000, 4000)

	snap := f.pool.Snapshot()

	g := newFixture(t)
	require.NoError(g.pool.Restore(snap))
	ra, rb := g.pool.Reserves()
	require.Equal(uint64(1000), ra.Uint64())
	require.Equal(uint64(4000), rb.Uint64())
	require.Equal(uint64(2000), g.pool.BalanceOf(alice).Uint64())

	snap.TotalSupply = u(1)
	require.Error(g.pool.Restore(snap))

	snap.AssetB = tokenC
	require.ErrorIs(g.pool.Restore(snap), ErrInvalidAssetPair)
}
