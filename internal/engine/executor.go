package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"pairPool/internal/amm"
	"pairPool/internal/asset"
	"pairPool/internal/model"
)

// ReplayClock reports the timestamp of the operation being replayed.
// Operations without one run at Fallback's time, the system clock when nil.
type ReplayClock struct {
	Fallback amm.Clock

	now atomic.Uint64
}

func (c *ReplayClock) Set(ts uint64) { c.now.Store(ts) }
func (c *ReplayClock) Now() uint64   { return c.now.Load() }

func (c *ReplayClock) advance(ts uint64) {
	if ts == 0 {
		fallback := c.Fallback
		if fallback == nil {
			fallback = amm.SystemClock()
		}
		ts = fallback.Now()
	}
	c.Set(ts)
}

// ExecutorConfig wires an Executor. Ledger may be nil for a fresh one.
type ExecutorConfig struct {
	AssetA common.Address
	AssetB common.Address
	Clock  amm.Clock
	Ledger *asset.Ledger
	Logger *zap.Logger
}

// Executor applies operations to one pool and the asset ledger it settles
// against, one at a time.
type Executor struct {
	mu      sync.Mutex
	pool    *amm.Pool
	bank    *asset.Ledger
	clock   amm.Clock
	logger  *zap.Logger
	pending []amm.Event
}

func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = amm.SystemClock()
	}
	if cfg.Ledger == nil {
		cfg.Ledger = asset.NewLedger()
	}
	addr := amm.PoolAddress(cfg.AssetA, cfg.AssetB)
	pool, err := amm.NewPool(amm.Config{
		AssetA:   cfg.AssetA,
		AssetB:   cfg.AssetB,
		Address:  addr,
		Transfer: cfg.Ledger.Client(addr),
		Clock:    cfg.Clock,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	e := &Executor{
		pool:   pool,
		bank:   cfg.Ledger,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
	pool.Subscribe(func(ev amm.Event) {
		e.pending = append(e.pending, ev)
	})
	return e, nil
}

// Apply runs op. Asset movements of a failed operation are rolled back along
// with the pool state, and its events are discarded.
func (e *Executor) Apply(ctx context.Context, op model.Operation) (model.OpResult, []amm.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rc, ok := e.clock.(*ReplayClock); ok {
		rc.advance(op.Timestamp)
	}

	e.pending = e.pending[:0]
	rev := e.bank.Snapshot()
	result, err := e.dispatch(ctx, op)
	if err != nil {
		e.bank.RevertToSnapshot(rev)
		e.pending = e.pending[:0]
		return model.OpResult{}, nil, fmt.Errorf("%s seq %d: %w", op.Kind, op.Seq, err)
	}
	e.bank.Commit()

	events := make([]amm.Event, len(e.pending))
	copy(events, e.pending)
	result.Seq = op.Seq
	result.Kind = op.Kind
	result.Caller = op.Caller
	result.Events = len(events)
	return result, events, nil
}

// View runs fn with exclusive access to the pool and ledger.
func (e *Executor) View(fn func(pool *amm.Pool, bank *asset.Ledger)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.pool, e.bank)
}

func (e *Executor) Address() common.Address { return e.pool.Address() }

func (e *Executor) dispatch(ctx context.Context, op model.Operation) (model.OpResult, error) {
	caller, err := ParseAddress(op.Caller)
	if err != nil {
		return model.OpResult{}, fmt.Errorf("caller: %w", err)
	}
	var p opParser
	switch op.Kind {
	case model.OpFund:
		token, to, amount := p.address(op.Asset), p.addressOr(op.To, caller), p.amount(op.Amount)
		if p.err != nil {
			return model.OpResult{}, p.err
		}
		if err := e.bank.Mint(token, to, amount); err != nil {
			return model.OpResult{}, err
		}
		return model.OpResult{AmountA: amount.Dec()}, nil

	case model.OpApprove:
		token, spender, amount := p.address(op.Asset), p.addressOr(op.Spender, e.pool.Address()), p.amount(op.Amount)
		if p.err != nil {
			return model.OpResult{}, p.err
		}
		if err := e.bank.Approve(token, caller, spender, amount); err != nil {
			return model.OpResult{}, err
		}
		return model.OpResult{AmountA: amount.Dec()}, nil

	case model.OpAddLiquidity:
		params := amm.AddLiquidityParams{
			AssetA:         p.address(op.AssetA),
			AssetB:         p.address(op.AssetB),
			AmountADesired: p.amount(op.AmountADesired),
			AmountBDesired: p.amount(op.AmountBDesired),
			AmountAMin:     p.amount(op.AmountAMin),
			AmountBMin:     p.amount(op.AmountBMin),
			To:             p.addressOr(op.To, caller),
			Deadline:       deadlineOf(op),
		}
		if p.err != nil {
			return model.OpResult{}, p.err
		}
		res, err := e.pool.AddLiquidity(ctx, caller, params)
		if err != nil {
			return model.OpResult{}, err
		}
		return model.OpResult{AmountA: res.AmountA.Dec(), AmountB: res.AmountB.Dec(), Liquidity: res.Liquidity.Dec()}, nil

	case model.OpRemoveLiquidity:
		params := amm.RemoveLiquidityParams{
			AssetA:     p.address(op.AssetA),
			AssetB:     p.address(op.AssetB),
			Liquidity:  p.amount(op.Liquidity),
			AmountAMin: p.amount(op.AmountAMin),
			AmountBMin: p.amount(op.AmountBMin),
			To:         p.addressOr(op.To, caller),
			Deadline:   deadlineOf(op),
		}
		if p.err != nil {
			return model.OpResult{}, p.err
		}
		res, err := e.pool.RemoveLiquidity(ctx, caller, params)
		if err != nil {
			return model.OpResult{}, err
		}
		return model.OpResult{AmountA: res.AmountA.Dec(), AmountB: res.AmountB.Dec(), Liquidity: params.Liquidity.Dec()}, nil

	case model.OpSwap:
		params := amm.SwapParams{
			AmountIn:     p.amount(op.AmountIn),
			AmountOutMin: p.amount(op.AmountOutMin),
			TokenIn:      p.address(op.TokenIn),
			TokenOut:     p.address(op.TokenOut),
			To:           p.addressOr(op.To, caller),
			Deadline:     deadlineOf(op),
		}
		if p.err != nil {
			return model.OpResult{}, p.err
		}
		if err := e.pool.SwapExact(ctx, caller, params); err != nil {
			return model.OpResult{}, err
		}
		result := model.OpResult{AmountA: params.AmountIn.Dec()}
		for _, ev := range e.pending {
			if swap, ok := ev.(amm.SwapExecuted); ok {
				result.AmountB = swap.AmountOut.Dec()
			}
		}
		return result, nil

	case model.OpTransferShares:
		to, amount := p.address(op.To), p.amount(op.Amount)
		if p.err != nil {
			return model.OpResult{}, p.err
		}
		if err := e.pool.TransferShares(caller, to, amount); err != nil {
			return model.OpResult{}, err
		}
		return model.OpResult{Liquidity: amount.Dec()}, nil

	default:
		return model.OpResult{}, fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// opParser keeps the first parse error so a whole operation can be decoded
// before it is checked.
type opParser struct {
	err error
}

func (p *opParser) address(s string) common.Address {
	addr, err := ParseAddress(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return addr
}

func (p *opParser) addressOr(s string, fallback common.Address) common.Address {
	if s == "" {
		return fallback
	}
	return p.address(s)
}

func (p *opParser) amount(s string) *uint256.Int {
	v, err := ParseAmount(s)
	if err != nil {
		if p.err == nil {
			p.err = err
		}
		return new(uint256.Int)
	}
	return v
}

// Now reads the executor's clock.
func (e *Executor) Now() uint64 { return e.clock.Now() }

// Meta describes the pair and its current state.
func (e *Executor) Meta() model.PoolMeta {
	e.mu.Lock()
	defer e.mu.Unlock()
	reserveA, reserveB := e.pool.Reserves()
	return model.PoolMeta{
		AssetA:      e.pool.AssetA().Hex(),
		AssetB:      e.pool.AssetB().Hex(),
		ReserveA:    reserveA.Dec(),
		ReserveB:    reserveB.Dec(),
		TotalSupply: e.pool.TotalSupply().Dec(),
	}
}
