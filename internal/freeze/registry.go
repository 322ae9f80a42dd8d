// Package freeze tracks administrative holds on account balances.
package freeze

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/congo-pay/feetoken/internal/tokenerr"
)

// Store persists frozen amounts keyed by account. Unseen accounts read as zero.
type Store interface {
	Frozen(ctx context.Context, account common.Address) (*uint256.Int, error)
	SetFrozen(ctx context.Context, account common.Address, amount *uint256.Int) error
}

// Registry applies the freeze rules on top of a Store.
type Registry struct {
	store Store
}

// NewRegistry builds a registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// FrozenOf returns the frozen amount of account.
func (r *Registry) FrozenOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	frozen, err := r.store.Frozen(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("read frozen amount: %w", err)
	}
	return frozen, nil
}

// Freeze adds amount to the frozen amount of account, given its current total
// balance, and returns the new frozen amount.
func (r *Registry) Freeze(ctx context.Context, account common.Address, amount, balance *uint256.Int) (*uint256.Int, error) {
	if err := validate(account, amount); err != nil {
		return nil, err
	}
	current, err := r.FrozenOf(ctx, account)
	if err != nil {
		return nil, err
	}
	next, overflow := new(uint256.Int).AddOverflow(current, amount)
	if overflow {
		return nil, tokenerr.NewAmountError(tokenerr.ErrInsufficientBalance, new(uint256.Int).SetAllOne(), balance)
	}
	if next.Gt(balance) {
		return nil, tokenerr.NewAmountError(tokenerr.ErrInsufficientBalance, next, balance)
	}
	if err := r.store.SetFrozen(ctx, account, next); err != nil {
		return nil, fmt.Errorf("store frozen amount: %w", err)
	}
	return next, nil
}

// Unfreeze releases amount from the frozen amount of account and returns the
// remaining frozen amount.
func (r *Registry) Unfreeze(ctx context.Context, account common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := validate(account, amount); err != nil {
		return nil, err
	}
	current, err := r.FrozenOf(ctx, account)
	if err != nil {
		return nil, err
	}
	if amount.Gt(current) {
		return nil, tokenerr.NewAmountError(tokenerr.ErrInsufficientBalance, amount, current)
	}
	next := new(uint256.Int).Sub(current, amount)
	if err := r.store.SetFrozen(ctx, account, next); err != nil {
		return nil, fmt.Errorf("store frozen amount: %w", err)
	}
	return next, nil
}

// Available returns balance - frozen, floored at zero.
func Available(balance, frozen *uint256.Int) *uint256.Int {
	if frozen == nil {
		return new(uint256.Int).Set(balance)
	}
	if !balance.Gt(frozen) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(balance, frozen)
}

func validate(account common.Address, amount *uint256.Int) error {
	if account == (common.Address{}) {
		return tokenerr.ErrInvalidAddress
	}
	if amount == nil || amount.IsZero() {
		return tokenerr.ErrInvalidAmount
	}
	return nil
}
