package freeze

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type memoryStore struct {
	mu     sync.RWMutex
	frozen map[common.Address]*uint256.Int
}

// NewMemoryStore constructs an in-memory frozen amount store.
func NewMemoryStore() Store {
	return &memoryStore{frozen: make(map[common.Address]*uint256.Int)}
}

func (s *memoryStore) Frozen(_ context.Context, account common.Address) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	amount, ok := s.frozen[account]
	if !ok {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Set(amount), nil
}

func (s *memoryStore) SetFrozen(_ context.Context, account common.Address, amount *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount.IsZero() {
		delete(s.frozen, account)
		return nil
	}
	s.frozen[account] = new(uint256.Int).Set(amount)
	return nil
}
