package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/congo-pay/feetoken/internal/tokenerr"
)

// state is the storage surface a backend transaction provides. The rules
// applied on top of it live here so both backends enforce them identically.
type state interface {
	View
	setBalance(ctx context.Context, account common.Address, value *uint256.Int) error
	supply(ctx context.Context) (*uint256.Int, error)
	setSupply(ctx context.Context, value *uint256.Int) error
	setAllowance(ctx context.Context, owner, spender common.Address, value *uint256.Int) error
	journal(ctx context.Context, m Mutation) error
}

func applyMutation(ctx context.Context, hook Hook, s state, m Mutation) error {
	zero := common.Address{}
	if m.From == zero && m.To == zero {
		return ErrNullMutation
	}
	if m.Value == nil {
		m.Value = new(uint256.Int)
	}
	if hook != nil {
		if err := hook(ctx, s, m); err != nil {
			return err
		}
	}

	if m.From == zero {
		total, err := s.supply(ctx)
		if err != nil {
			return err
		}
		next, overflow := new(uint256.Int).AddOverflow(total, m.Value)
		if overflow {
			return ErrSupplyOverflow
		}
		if err := s.setSupply(ctx, next); err != nil {
			return err
		}
	} else {
		balance, err := s.BalanceOf(ctx, m.From)
		if err != nil {
			return err
		}
		if m.Value.Gt(balance) {
			return tokenerr.NewAmountError(ErrInsufficientFunds, m.Value, balance)
		}
		if err := s.setBalance(ctx, m.From, new(uint256.Int).Sub(balance, m.Value)); err != nil {
			return err
		}
	}

	if m.To == zero {
		total, err := s.supply(ctx)
		if err != nil {
			return err
		}
		if err := s.setSupply(ctx, new(uint256.Int).Sub(total, m.Value)); err != nil {
			return err
		}
	} else {
		// cannot overflow: every balance is bounded by the supply
		balance, err := s.BalanceOf(ctx, m.To)
		if err != nil {
			return err
		}
		if err := s.setBalance(ctx, m.To, new(uint256.Int).Add(balance, m.Value)); err != nil {
			return err
		}
	}
	return s.journal(ctx, m)
}

func approve(ctx context.Context, s state, owner, spender common.Address, value *uint256.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return tokenerr.ErrInvalidAddress
	}
	return s.setAllowance(ctx, owner, spender, value)
}

func spendAllowance(ctx context.Context, s state, owner, spender common.Address, value *uint256.Int) error {
	current, err := s.Allowance(ctx, owner, spender)
	if err != nil {
		return err
	}
	if current.Eq(MaxAllowance) {
		return nil
	}
	if value.Gt(current) {
		return tokenerr.NewAmountError(tokenerr.ErrInsufficientAllowance, value, current)
	}
	return approve(ctx, s, owner, spender, new(uint256.Int).Sub(current, value))
}
