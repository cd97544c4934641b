package amm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// journal records the state an operation may change so it can be restored.
type journal struct {
	reserveA *uint256.Int
	reserveB *uint256.Int
	supply   *uint256.Int
	balances map[common.Address]*uint256.Int
	events   []Event
}

func (p *Pool) begin() *journal {
	return &journal{
		reserveA: p.reserveA.Clone(),
		reserveB: p.reserveB.Clone(),
		supply:   p.shares.TotalSupply(),
		balances: make(map[common.Address]*uint256.Int),
	}
}

// touch saves the balance of account before its first change.
func (j *journal) touch(l *ShareLedger, account common.Address) {
	if _, ok := j.balances[account]; ok {
		return
	}
	j.balances[account] = l.BalanceOf(account)
}

func (j *journal) revert(p *Pool) {
	p.reserveA = j.reserveA
	p.reserveB = j.reserveB
	p.shares.totalSupply = j.supply
	for account, bal := range j.balances {
		p.shares.set(account, bal)
	}
	j.events = nil
}
