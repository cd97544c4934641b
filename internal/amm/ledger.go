package amm

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ShareLedger is a fungible balance ledger for pool shares.
// The sum of all balances always equals the total supply.
type ShareLedger struct {
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
}

// NewShareLedger returns an empty ledger.
func NewShareLedger() *ShareLedger {
	return &ShareLedger{
		totalSupply: new(uint256.Int),
		balances:    make(map[common.Address]*uint256.Int),
	}
}

// TotalSupply returns a copy of the total supply.
func (l *ShareLedger) TotalSupply() *uint256.Int {
	return l.totalSupply.Clone()
}

// BalanceOf returns a copy of the account balance.
func (l *ShareLedger) BalanceOf(account common.Address) *uint256.Int {
	if bal, ok := l.balances[account]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

// Holders returns accounts with a non-zero balance in address order.
func (l *ShareLedger) Holders() []common.Address {
	out := make([]common.Address, 0, len(l.balances))
	for account, bal := range l.balances {
		if bal.IsZero() {
			continue
		}
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}

// Mint credits amount to the account and grows the supply.
func (l *ShareLedger) Mint(to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("mint: %w", ErrZeroAddress)
	}
	supply, err := add(l.totalSupply, amount)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	bal, err := add(l.BalanceOf(to), amount)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	l.totalSupply = supply
	l.set(to, bal)
	return nil
}

// Burn debits amount from the account and shrinks the supply.
func (l *ShareLedger) Burn(from common.Address, amount *uint256.Int) error {
	bal := l.BalanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("burn %s from %s holding %s: %w", amount.Dec(), from.Hex(), bal.Dec(), ErrInsufficientBalance)
	}
	l.set(from, bal.Sub(bal, amount))
	l.totalSupply = new(uint256.Int).Sub(l.totalSupply, amount)
	return nil
}

// Transfer moves shares between accounts without changing the supply.
func (l *ShareLedger) Transfer(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("transfer: %w", ErrZeroAddress)
	}
	bal := l.BalanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("transfer %s from %s holding %s: %w", amount.Dec(), from.Hex(), bal.Dec(), ErrInsufficientBalance)
	}
	if from == to {
		return nil
	}
	l.set(from, bal.Sub(bal, amount))
	recv := l.BalanceOf(to)
	l.set(to, recv.Add(recv, amount))
	return nil
}

func (l *ShareLedger) set(account common.Address, balance *uint256.Int) {
	if balance.IsZero() {
		delete(l.balances, account)
		return
	}
	l.balances[account] = balance
}
