package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SeedBalance is a test helper that sets the balance for an account when using
// the in-memory ledger. The total supply is adjusted to match and no hook runs.
func SeedBalance(l Ledger, account common.Address, amount uint64) {
	mem, ok := l.(*inMemoryLedger)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	prev := copyOrZero(mem.balances[account])
	mem.totalSupply = new(uint256.Int).Add(new(uint256.Int).Sub(mem.totalSupply, prev), uint256.NewInt(amount))
	mem.balances[account] = uint256.NewInt(amount)
}

// Journal returns the committed mutations of an in-memory ledger.
func Journal(l Ledger) []Mutation {
	mem, ok := l.(*inMemoryLedger)
	if !ok {
		return nil
	}
	mem.mu.RLock()
	defer mem.mu.RUnlock()
	out := make([]Mutation, len(mem.entries))
	copy(out, mem.entries)
	return out
}
