package engine

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairPool/internal/amm"
	"pairPool/internal/asset"
	"pairPool/internal/model"
)

// Snapshot captures the pool and ledger as a persistable record.
func (e *Executor) Snapshot(chainID, lastSeq uint64) model.PoolSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.pool.Snapshot()
	snap := model.PoolSnapshot{
		ChainID:     chainID,
		Address:     s.Address.Hex(),
		AssetA:      s.AssetA.Hex(),
		AssetB:      s.AssetB.Hex(),
		ReserveA:    s.ReserveA.Dec(),
		ReserveB:    s.ReserveB.Dec(),
		TotalSupply: s.TotalSupply.Dec(),
		Shares:      make(map[string]string, len(s.Balances)),
		LastSeq:     lastSeq,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	for account, bal := range s.Balances {
		if bal.IsZero() {
			continue
		}
		snap.Shares[account.Hex()] = bal.Dec()
	}
	for _, b := range e.bank.Balances() {
		snap.Holdings = append(snap.Holdings, model.Holding{
			Asset:   b.Asset.Hex(),
			Account: b.Account.Hex(),
			Amount:  b.Amount.Dec(),
		})
	}
	for _, g := range e.bank.Grants() {
		snap.Allowances = append(snap.Allowances, model.Allowance{
			Asset:   g.Asset.Hex(),
			Owner:   g.Owner.Hex(),
			Spender: g.Spender.Hex(),
			Amount:  g.Amount.Dec(),
		})
	}
	return snap
}

// Restore loads a snapshot taken from a pool over the same pair.
func (e *Executor) Restore(snap model.PoolSnapshot) error {
	s, balances, grants, err := decodeSnapshot(snap)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.Address != e.pool.Address() {
		return fmt.Errorf("restore: snapshot pool %s, executor pool %s", s.Address.Hex(), e.pool.Address().Hex())
	}
	if err := e.pool.Restore(s); err != nil {
		return err
	}
	e.bank.Load(balances, grants)
	return nil
}

func decodeSnapshot(snap model.PoolSnapshot) (amm.Snapshot, []asset.Balance, []asset.Grant, error) {
	var p opParser
	s := amm.Snapshot{
		Address:     p.address(snap.Address),
		AssetA:      p.address(snap.AssetA),
		AssetB:      p.address(snap.AssetB),
		ReserveA:    p.amount(snap.ReserveA),
		ReserveB:    p.amount(snap.ReserveB),
		TotalSupply: p.amount(snap.TotalSupply),
		Balances:    make(map[common.Address]*uint256.Int, len(snap.Shares)),
	}
	for account, amount := range snap.Shares {
		s.Balances[p.address(account)] = p.amount(amount)
	}
	balances := make([]asset.Balance, 0, len(snap.Holdings))
	for _, h := range snap.Holdings {
		balances = append(balances, asset.Balance{
			Asset:   p.address(h.Asset),
			Account: p.address(h.Account),
			Amount:  p.amount(h.Amount),
		})
	}
	grants := make([]asset.Grant, 0, len(snap.Allowances))
	for _, a := range snap.Allowances {
		grants = append(grants, asset.Grant{
			Asset:   p.address(a.Asset),
			Owner:   p.address(a.Owner),
			Spender: p.address(a.Spender),
			Amount:  p.amount(a.Amount),
		})
	}
	if p.err != nil {
		return amm.Snapshot{}, nil, nil, fmt.Errorf("decode snapshot: %w", p.err)
	}
	return s, balances, grants, nil
}
