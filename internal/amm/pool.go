// Package amm implements a single-pair constant-product pool with a share
// ledger. A Pool performs no locking: callers serialize operations.
package amm

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// AssetTransfer moves the underlying assets on the pool's behalf. Transfer
// sends from the pool itself; TransferFrom spends the pool's allowance.
//
// A failed operation reverts the pool's own state only. Transfers that
// succeeded before the failure stay with the collaborator, so callers must
// roll it back too (asset.Ledger does this with Snapshot and
// RevertToSnapshot, as engine.Executor does for every operation).
type AssetTransfer interface {
	TransferFrom(ctx context.Context, asset, owner, to common.Address, amount *uint256.Int) error
	Transfer(ctx context.Context, asset, to common.Address, amount *uint256.Int) error
}

// Config wires a Pool to its collaborators.
type Config struct {
	AssetA   common.Address
	AssetB   common.Address
	Address  common.Address // zero derives PoolAddress(AssetA, AssetB)
	Transfer AssetTransfer
	Clock    Clock
	Logger   *zap.Logger
}

// Pool holds the reserves of two assets and the shares issued against them.
type Pool struct {
	address  common.Address
	assetA   common.Address
	assetB   common.Address
	reserveA *uint256.Int
	reserveB *uint256.Int
	shares   *ShareLedger

	transfer  AssetTransfer
	clock     Clock
	logger    *zap.Logger
	observers []Observer

	locked bool
}

// NewPool creates an empty pool for the asset pair.
func NewPool(cfg Config) (*Pool, error) {
	if cfg.AssetA == (common.Address{}) || cfg.AssetB == (common.Address{}) || cfg.AssetA == cfg.AssetB {
		return nil, fmt.Errorf("new pool %s/%s: %w", cfg.AssetA.Hex(), cfg.AssetB.Hex(), ErrInvalidAssetPair)
	}
	if cfg.Transfer == nil {
		return nil, fmt.Errorf("asset transfer is nil")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Address == (common.Address{}) {
		cfg.Address = PoolAddress(cfg.AssetA, cfg.AssetB)
	}

	return &Pool{
		address:  cfg.Address,
		assetA:   cfg.AssetA,
		assetB:   cfg.AssetB,
		reserveA: new(uint256.Int),
		reserveB: new(uint256.Int),
		shares:   NewShareLedger(),
		transfer: cfg.Transfer,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}, nil
}

// PoolAddress derives a deterministic pool account from the unordered pair.
func PoolAddress(a, b common.Address) common.Address {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return common.BytesToAddress(crypto.Keccak256(a.Bytes(), b.Bytes())[12:])
}

// Subscribe registers an observer for committed events.
func (p *Pool) Subscribe(o Observer) {
	p.observers = append(p.observers, o)
}

func (p *Pool) Address() common.Address { return p.address }
func (p *Pool) AssetA() common.Address  { return p.assetA }
func (p *Pool) AssetB() common.Address  { return p.assetB }

// ReserveA returns a copy of the asset A reserve.
func (p *Pool) ReserveA() *uint256.Int { return p.reserveA.Clone() }

// ReserveB returns a copy of the asset B reserve.
func (p *Pool) ReserveB() *uint256.Int { return p.reserveB.Clone() }

// Reserves returns copies of both reserves in pool order.
func (p *Pool) Reserves() (*uint256.Int, *uint256.Int) {
	return p.reserveA.Clone(), p.reserveB.Clone()
}

// K returns reserveA*reserveB, or an error if it does not fit in 256 bits.
func (p *Pool) K() (*uint256.Int, error) {
	return mul(p.reserveA, p.reserveB)
}

func (p *Pool) TotalSupply() *uint256.Int                    { return p.shares.TotalSupply() }
func (p *Pool) BalanceOf(account common.Address) *uint256.Int { return p.shares.BalanceOf(account) }

// Holders lists accounts holding shares.
func (p *Pool) Holders() []common.Address { return p.shares.Holders() }

// TransferShares moves shares between holders. It is guarded like every
// other mutating entry point.
func (p *Pool) TransferShares(from, to common.Address, amount *uint256.Int) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()
	return p.shares.Transfer(from, to, orZero(amount))
}

// reserveOf returns the live reserve for asset; asset must be in the pair.
func (p *Pool) reserveOf(asset common.Address) *uint256.Int {
	if asset == p.assetA {
		return p.reserveA
	}
	return p.reserveB
}

// orient reports whether (x, y) is the pool pair reversed.
func (p *Pool) orient(x, y common.Address) (bool, error) {
	switch {
	case x == p.assetA && y == p.assetB:
		return false, nil
	case x == p.assetB && y == p.assetA:
		return true, nil
	}
	return false, fmt.Errorf("%w: %s/%s", ErrInvalidAssetPair, x.Hex(), y.Hex())
}

func (p *Pool) checkDeadline(deadline uint64) error {
	if now := p.clock.Now(); now > deadline {
		return fmt.Errorf("%w: deadline %d, now %d", ErrExpired, deadline, now)
	}
	return nil
}

func (p *Pool) enter() error {
	if p.locked {
		return ErrReentrant
	}
	p.locked = true
	return nil
}

func (p *Pool) leave() {
	p.locked = false
}

// run executes op under the reentrancy guard with a fresh journal. On
// failure every journaled change is undone; on success the emitted events
// are delivered to observers.
func (p *Pool) run(name string, op func(j *journal) error) error {
	if err := p.enter(); err != nil {
		return err
	}
	j := p.begin()
	err := op(j)
	if err != nil {
		j.revert(p)
		p.leave()
		p.logger.Debug("operation reverted", zap.String("op", name), zap.Error(err))
		return err
	}
	p.leave()
	for _, ev := range j.events {
		for _, o := range p.observers {
			o(ev)
		}
	}
	return nil
}

func (p *Pool) mint(j *journal, to common.Address, amount *uint256.Int) error {
	j.touch(p.shares, to)
	return p.shares.Mint(to, amount)
}

func (p *Pool) burn(j *journal, from common.Address, amount *uint256.Int) error {
	j.touch(p.shares, from)
	return p.shares.Burn(from, amount)
}

func (p *Pool) setReserves(a, b *uint256.Int) {
	p.reserveA = a
	p.reserveB = b
}

func (p *Pool) emit(j *journal, ev Event) {
	j.events = append(j.events, ev)
}

func (p *Pool) pull(ctx context.Context, asset, from common.Address, amount *uint256.Int) error {
	if err := p.transfer.TransferFrom(ctx, asset, from, p.address, amount); err != nil {
		return fmt.Errorf("transfer %s %s from %s: %w", amount.Dec(), asset.Hex(), from.Hex(), err)
	}
	return nil
}

func (p *Pool) push(ctx context.Context, asset, to common.Address, amount *uint256.Int) error {
	if err := p.transfer.Transfer(ctx, asset, to, amount); err != nil {
		return fmt.Errorf("transfer %s %s to %s: %w", amount.Dec(), asset.Hex(), to.Hex(), err)
	}
	return nil
}
