package ledger

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

type inMemoryLedger struct {
	mu          sync.RWMutex
	hook        Hook
	balances    map[common.Address]*uint256.Int
	allowances  map[allowanceKey]*uint256.Int
	totalSupply *uint256.Int
	entries     []Mutation
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and development runs.
func NewInMemory(opts ...Option) Ledger {
	o := buildOptions(opts)
	return &inMemoryLedger{
		hook:        o.hook,
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[allowanceKey]*uint256.Int),
		totalSupply: new(uint256.Int),
	}
}

func (l *inMemoryLedger) BalanceOf(_ context.Context, account common.Address) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyOrZero(l.balances[account]), nil
}

func (l *inMemoryLedger) Allowance(_ context.Context, owner, spender common.Address) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyOrZero(l.allowances[allowanceKey{owner, spender}]), nil
}

func (l *inMemoryLedger) TotalSupply(_ context.Context) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(uint256.Int).Set(l.totalSupply), nil
}

func (l *inMemoryLedger) Update(ctx context.Context, fn func(tx Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &memoryTx{
		ledger:     l,
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for account, balance := range tx.balances {
		if balance.IsZero() {
			delete(l.balances, account)
			continue
		}
		l.balances[account] = balance
	}
	for key, value := range tx.allowances {
		if value.IsZero() {
			delete(l.allowances, key)
			continue
		}
		l.allowances[key] = value
	}
	if tx.totalSupply != nil {
		l.totalSupply = tx.totalSupply
	}
	l.entries = append(l.entries, tx.entries...)
	return nil
}

// memoryTx buffers writes in overlay maps; the ledger lock is held for its
// whole lifetime by Update.
type memoryTx struct {
	ledger      *inMemoryLedger
	balances    map[common.Address]*uint256.Int
	allowances  map[allowanceKey]*uint256.Int
	totalSupply *uint256.Int
	entries     []Mutation
}

func (tx *memoryTx) BalanceOf(_ context.Context, account common.Address) (*uint256.Int, error) {
	if v, ok := tx.balances[account]; ok {
		return new(uint256.Int).Set(v), nil
	}
	return copyOrZero(tx.ledger.balances[account]), nil
}

func (tx *memoryTx) Allowance(_ context.Context, owner, spender common.Address) (*uint256.Int, error) {
	key := allowanceKey{owner, spender}
	if v, ok := tx.allowances[key]; ok {
		return new(uint256.Int).Set(v), nil
	}
	return copyOrZero(tx.ledger.allowances[key]), nil
}

func (tx *memoryTx) Apply(ctx context.Context, from, to common.Address, value *uint256.Int) error {
	return applyMutation(ctx, tx.ledger.hook, tx, Mutation{From: from, To: to, Value: value})
}

func (tx *memoryTx) Approve(ctx context.Context, owner, spender common.Address, value *uint256.Int) error {
	return approve(ctx, tx, owner, spender, value)
}

func (tx *memoryTx) SpendAllowance(ctx context.Context, owner, spender common.Address, value *uint256.Int) error {
	return spendAllowance(ctx, tx, owner, spender, value)
}

func (tx *memoryTx) setBalance(_ context.Context, account common.Address, value *uint256.Int) error {
	tx.balances[account] = new(uint256.Int).Set(value)
	return nil
}

func (tx *memoryTx) supply(_ context.Context) (*uint256.Int, error) {
	if tx.totalSupply != nil {
		return new(uint256.Int).Set(tx.totalSupply), nil
	}
	return new(uint256.Int).Set(tx.ledger.totalSupply), nil
}

func (tx *memoryTx) setSupply(_ context.Context, value *uint256.Int) error {
	tx.totalSupply = new(uint256.Int).Set(value)
	return nil
}

func (tx *memoryTx) setAllowance(_ context.Context, owner, spender common.Address, value *uint256.Int) error {
	tx.allowances[allowanceKey{owner, spender}] = new(uint256.Int).Set(value)
	return nil
}

func (tx *memoryTx) journal(_ context.Context, m Mutation) error {
	tx.entries = append(tx.entries, Mutation{From: m.From, To: m.To, Value: new(uint256.Int).Set(m.Value)})
	return nil
}

func copyOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
