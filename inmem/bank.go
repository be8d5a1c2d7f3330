package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/ledger"
)

// Bank is an in-memory settlement ledger covering the native unit and any
// number of fungible units. It backs local deployments and tests; production
// engines are wired to a real token ledger behind the same capability.
type Bank struct {
	mu       sync.Mutex
	balances map[core.BidUnit]map[core.Account]decimal.Decimal
}

var _ ledger.SettlementBank = (*Bank)(nil)

// NewBank returns an empty bank.
func NewBank() *Bank {
	return &Bank{balances: make(map[core.BidUnit]map[core.Account]decimal.Decimal)}
}

// Mint credits amount of unit to account.
func (b *Bank) Mint(unit core.BidUnit, account core.Account, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(unit, account, amount)
}

// Balance returns account's balance in unit.
func (b *Bank) Balance(unit core.BidUnit, account core.Account) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[unit][account]
}

// PullFrom debits amount of unit from payer into engine escrow. Fails when
// the payer's balance is insufficient.
func (b *Bank) PullFrom(_ context.Context, unit core.BidUnit, payer core.Account, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("negative amount %s", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	balance := b.balances[unit][payer]
	if balance.LessThan(amount) {
		return fmt.Errorf("insufficient %s balance for %s: need %s, have %s", unit, payer, amount, balance)
	}
	b.balances[unit][payer] = balance.Sub(amount)
	return nil
}

// Push credits amount of unit from engine escrow to payee.
func (b *Bank) Push(_ context.Context, unit core.BidUnit, payee core.Account, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("negative amount %s", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(unit, payee, amount)
	return nil
}

func (b *Bank) credit(unit core.BidUnit, account core.Account, amount decimal.Decimal) {
	accounts, ok := b.balances[unit]
	if !ok {
		accounts = make(map[core.Account]decimal.Decimal)
		b.balances[unit] = accounts
	}
	accounts[account] = accounts[account].Add(amount)
}
