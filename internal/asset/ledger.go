// Package asset keeps balances and allowances of fungible assets in memory
// and moves them on behalf of a spender.
package asset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrZeroAddress           = errors.New("zero address")
	ErrOverflow              = errors.New("balance overflow")
)

// Hook runs after a transfer has been applied. A non-nil error fails the
// transfer; the balances stay moved until the caller reverts its snapshot.
type Hook func(ctx context.Context, asset, from, to common.Address, amount *uint256.Int) error

type holding struct {
	asset   common.Address
	account common.Address
}

type grant struct {
	asset   common.Address
	owner   common.Address
	spender common.Address
}

// change is an undo record.
type change struct {
	balance   *holding
	allowance *grant
	prev      *uint256.Int
}

// Ledger stores balances per (asset, account) and allowances per
// (asset, owner, spender).
type Ledger struct {
	mu         sync.Mutex
	balances   map[holding]*uint256.Int
	allowances map[grant]*uint256.Int
	hooks      map[common.Address]Hook
	journal    []change
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[holding]*uint256.Int),
		allowances: make(map[grant]*uint256.Int),
		hooks:      make(map[common.Address]Hook),
	}
}

// SetHook installs a transfer hook for asset; nil removes it.
func (l *Ledger) SetHook(asset common.Address, hook Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hook == nil {
		delete(l.hooks, asset)
		return
	}
	l.hooks[asset] = hook
}

// BalanceOf returns a copy of the account's balance of asset.
func (l *Ledger) BalanceOf(asset, account common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(holding{asset, account}).Clone()
}

// Allowance returns how much spender may move from owner.
func (l *Ledger) Allowance(asset, owner, spender common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowance(grant{asset, owner, spender}).Clone()
}

// Mint credits amount of asset to account.
func (l *Ledger) Mint(asset, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("mint: %w", ErrZeroAddress)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := holding{asset, to}
	next, overflow := new(uint256.Int).AddOverflow(l.balance(key), amount)
	if overflow {
		return fmt.Errorf("mint %s: %w", amount.Dec(), ErrOverflow)
	}
	l.setBalance(key, next)
	return nil
}

// Approve sets the allowance of spender over owner's asset.
func (l *Ledger) Approve(asset, owner, spender common.Address, amount *uint256.Int) error {
	if spender == (common.Address{}) {
		return fmt.Errorf("approve: %w", ErrZeroAddress)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setAllowance(grant{asset, owner, spender}, amount.Clone())
	return nil
}

// Snapshot returns a revision id for RevertToSnapshot.
func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.journal)
}

// RevertToSnapshot undoes every change made after revision.
func (l *Ledger) RevertToSnapshot(revision int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.journal) - 1; i >= revision && i >= 0; i-- {
		c := l.journal[i]
		switch {
		case c.balance != nil:
			l.balances[*c.balance] = c.prev
		case c.allowance != nil:
			l.allowances[*c.allowance] = c.prev
		}
	}
	if revision < len(l.journal) {
		l.journal = l.journal[:revision]
	}
}

// Commit drops the undo journal.
func (l *Ledger) Commit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.journal = l.journal[:0]
}

// Balance is an exported non-zero balance.
type Balance struct {
	Asset   common.Address
	Account common.Address
	Amount  *uint256.Int
}

// Grant is an exported non-zero allowance.
type Grant struct {
	Asset   common.Address
	Owner   common.Address
	Spender common.Address
	Amount  *uint256.Int
}

// Balances lists every non-zero balance ordered by asset then account.
func (l *Ledger) Balances() []Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Balance, 0, len(l.balances))
	for key, amount := range l.balances {
		if amount.IsZero() {
			continue
		}
		out = append(out, Balance{Asset: key.asset, Account: key.account, Amount: amount.Clone()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Asset != out[j].Asset {
			return out[i].Asset.Cmp(out[j].Asset) < 0
		}
		return out[i].Account.Cmp(out[j].Account) < 0
	})
	return out
}

// Grants lists every non-zero allowance ordered by asset, owner, spender.
func (l *Ledger) Grants() []Grant {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Grant, 0, len(l.allowances))
	for key, amount := range l.allowances {
		if amount.IsZero() {
			continue
		}
		out = append(out, Grant{Asset: key.asset, Owner: key.owner, Spender: key.spender, Amount: amount.Clone()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Asset != out[j].Asset {
			return out[i].Asset.Cmp(out[j].Asset) < 0
		}
		if out[i].Owner != out[j].Owner {
			return out[i].Owner.Cmp(out[j].Owner) < 0
		}
		return out[i].Spender.Cmp(out[j].Spender) < 0
	})
	return out
}

// Load replaces the ledger contents and drops the journal. Hooks are kept.
func (l *Ledger) Load(balances []Balance, grants []Grant) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[holding]*uint256.Int, len(balances))
	for _, b := range balances {
		l.balances[holding{b.Asset, b.Account}] = b.Amount.Clone()
	}
	l.allowances = make(map[grant]*uint256.Int, len(grants))
	for _, g := range grants {
		l.allowances[grant{g.Asset, g.Owner, g.Spender}] = g.Amount.Clone()
	}
	l.journal = l.journal[:0]
}

// Client returns a transfer view acting as spender.
func (l *Ledger) Client(spender common.Address) *Client {
	return &Client{ledger: l, spender: spender}
}

func (l *Ledger) move(ctx context.Context, asset, from, to common.Address, amount *uint256.Int, spender *common.Address) error {
	if to == (common.Address{}) {
		return fmt.Errorf("transfer: %w", ErrZeroAddress)
	}

	l.mu.Lock()
	var spend *grant
	if spender != nil && *spender != from {
		spend = &grant{asset, from, *spender}
		if allowed := l.allowance(*spend); allowed.Lt(amount) {
			l.mu.Unlock()
			return fmt.Errorf("spend %s of %s allowance: %w", amount.Dec(), allowed.Dec(), ErrInsufficientAllowance)
		}
	}

	src := holding{asset, from}
	bal := l.balance(src)
	if bal.Lt(amount) {
		l.mu.Unlock()
		return fmt.Errorf("move %s of %s balance: %w", amount.Dec(), bal.Dec(), ErrInsufficientBalance)
	}
	if spend != nil {
		l.setAllowance(*spend, new(uint256.Int).Sub(l.allowance(*spend), amount))
	}
	l.setBalance(src, new(uint256.Int).Sub(bal, amount))
	dst := holding{asset, to}
	l.setBalance(dst, new(uint256.Int).Add(l.balance(dst), amount))
	hook := l.hooks[asset]
	l.mu.Unlock()

	if hook != nil {
		return hook(ctx, asset, from, to, amount)
	}
	return nil
}

func (l *Ledger) balance(key holding) *uint256.Int {
	if bal, ok := l.balances[key]; ok {
		return bal
	}
	return new(uint256.Int)
}

func (l *Ledger) allowance(key grant) *uint256.Int {
	if amt, ok := l.allowances[key]; ok {
		return amt
	}
	return new(uint256.Int)
}

func (l *Ledger) setBalance(key holding, value *uint256.Int) {
	k := key
	l.journal = append(l.journal, change{balance: &k, prev: l.balance(key)})
	l.balances[key] = value
}

func (l *Ledger) setAllowance(key grant, value *uint256.Int) {
	k := key
	l.journal = append(l.journal, change{allowance: &k, prev: l.allowance(key)})
	l.allowances[key] = value
}

// Client moves assets as a fixed spender. It satisfies amm.AssetTransfer
// when the spender is the pool's address.
type Client struct {
	ledger  *Ledger
	spender common.Address
}

// Transfer sends the spender's own asset to another account.
func (c *Client) Transfer(ctx context.Context, asset, to common.Address, amount *uint256.Int) error {
	return c.ledger.move(ctx, asset, c.spender, to, amount, nil)
}

// TransferFrom moves owner's asset using the spender's allowance.
func (c *Client) TransferFrom(ctx context.Context, asset, owner, to common.Address, amount *uint256.Int) error {
	return c.ledger.move(ctx, asset, owner, to, amount, &c.spender)
}
