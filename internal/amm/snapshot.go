package amm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Snapshot is a copy of the full pool state.
type Snapshot struct {
	Address     common.Address
	AssetA      common.Address
	AssetB      common.Address
	ReserveA    *uint256.Int
	ReserveB    *uint256.Int
	TotalSupply *uint256.Int
	Balances    map[common.Address]*uint256.Int
}

// Snapshot copies the pool state.
func (p *Pool) Snapshot() Snapshot {
	balances := make(map[common.Address]*uint256.Int, len(p.shares.balances))
	for account, bal := range p.shares.balances {
		balances[account] = bal.Clone()
	}
	return Snapshot{
		Address:     p.address,
		AssetA:      p.assetA,
		AssetB:      p.assetB,
		ReserveA:    p.reserveA.Clone(),
		ReserveB:    p.reserveB.Clone(),
		TotalSupply: p.shares.TotalSupply(),
		Balances:    balances,
	}
}

// Restore replaces the pool state with s. The snapshot must describe the same
// pair and its balances must sum to its total supply.
func (p *Pool) Restore(s Snapshot) error {
	if p.locked {
		return ErrReentrant
	}
	if s.AssetA != p.assetA || s.AssetB != p.assetB {
		return fmt.Errorf("restore %s/%s: %w", s.AssetA.Hex(), s.AssetB.Hex(), ErrInvalidAssetPair)
	}
	ledger := NewShareLedger()
	sum := new(uint256.Int)
	for account, bal := range s.Balances {
		var err error
		if sum, err = add(sum, bal); err != nil {
			return fmt.Errorf("restore balances: %w", err)
		}
		ledger.set(account, bal.Clone())
	}
	if !sum.Eq(orZero(s.TotalSupply)) {
		return fmt.Errorf("restore: balances sum %s != total supply %s", sum.Dec(), orZero(s.TotalSupply).Dec())
	}
	ledger.totalSupply = sum
	p.reserveA = orZero(s.ReserveA).Clone()
	p.reserveB = orZero(s.ReserveB).Clone()
	p.shares = ledger
	return nil
}
