package identity

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[common.Address]Account
}

// NewMemoryRepository builds an in-memory credentials store for testing and
// development.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[common.Address]Account)}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[account.Address]; exists {
		return ErrExists
	}
	r.accounts[account.Address] = account
	return nil
}

func (r *memoryRepository) FindByAddress(_ context.Context, address common.Address) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[address]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, address common.Address, version int) error {
	return r.modify(address, func(a *Account) { a.TokenVersion = version })
}

func (r *memoryRepository) TouchLogin(_ context.Context, address common.Address, at time.Time) error {
	return r.modify(address, func(a *Account) { a.LastLogin = &at })
}

func (r *memoryRepository) modify(address common.Address, fn func(*Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[address]
	if !ok {
		return ErrNotFound
	}
	fn(&account)
	r.accounts[address] = account
	return nil
}
