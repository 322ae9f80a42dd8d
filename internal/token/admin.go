package token

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/congo-pay/feetoken/internal/event"
	"github.com/congo-pay/feetoken/internal/fee"
	"github.com/congo-pay/feetoken/internal/ledger"
	"github.com/congo-pay/feetoken/internal/tokenerr"
)

func (t *Token) onlyOwner(caller common.Address) error {
	if caller != t.owner {
		return tokenerr.ErrNotOwner
	}
	return nil
}

// SetFeeRate changes the transfer fee rate (basis points).
func (t *Token) SetFeeRate(ctx context.Context, caller common.Address, rate uint64) error {
	return t.run(ctx, false, func(ctx context.Context) ([]event.Record, error) {
		if err := t.onlyOwner(caller); err != nil {
			return nil, err
		}
		if rate > fee.MaxRate {
			return nil, tokenerr.FeeRateTooHigh(rate, fee.MaxRate)
		}
		if err := t.saveSettings(ctx, t.owner, rate, t.paused.Load()); err != nil {
			return nil, err
		}
		old, err := t.fees.SetRate(rate)
		if err != nil {
			return nil, err
		}
		t.metrics.admin("set_fee_rate")
		t.logger.Info("fee rate changed", "old_rate", old, "new_rate", rate)
		return []event.Record{event.FeeRateChanged(old, rate)}, nil
	})
}

// FreezeAddress places a hold of amount on account's balance. The balance
// read and the hold are made inside one ledger transaction, so no mutation
// of account, including one made directly through Ledger, can commit between
// them.
func (t *Token) FreezeAddress(ctx context.Context, caller, account common.Address, amount *uint256.Int) error {
	return t.run(ctx, false, func(ctx context.Context) ([]event.Record, error) {
		if err := t.onlyOwner(caller); err != nil {
			return nil, err
		}
		var frozen *uint256.Int
		err := t.ledger.Update(ctx, func(tx ledger.Tx) error {
			balance, err := tx.BalanceOf(ctx, account)
			if err != nil {
				return err
			}
			frozen, err = t.frozen.Freeze(ctx, account, amount, balance)
			return err
		})
		if err != nil {
			return nil, err
		}
		t.metrics.admin("freeze")
		t.logger.Info("address frozen", "account", account.Hex(), "amount", amount.Dec(), "frozen", frozen.Dec())
		return []event.Record{event.AddressFrozen(account, amount)}, nil
	})
}

// UnfreezeAddress releases amount of account's hold.
func (t *Token) UnfreezeAddress(ctx context.Context, caller, account common.Address, amount *uint256.Int) error {
	return t.run(ctx, false, func(ctx context.Context) ([]event.Record, error) {
		if err := t.onlyOwner(caller); err != nil {
			return nil, err
		}
		frozen, err := t.frozen.Unfreeze(ctx, account, amount)
		if err != nil {
			return nil, err
		}
		t.metrics.admin("unfreeze")
		t.logger.Info("address unfrozen", "account", account.Hex(), "amount", amount.Dec(), "frozen", frozen.Dec())
		return []event.Record{event.AddressUnfrozen(account, amount)}, nil
	})
}

// Pause closes the transfer gate.
func (t *Token) Pause(ctx context.Context, caller common.Address) error {
	return t.setPaused(ctx, caller, true)
}

// Unpause opens the transfer gate.
func (t *Token) Unpause(ctx context.Context, caller common.Address) error {
	return t.setPaused(ctx, caller, false)
}

func (t *Token) setPaused(ctx context.Context, caller common.Address, paused bool) error {
	return t.run(ctx, false, func(ctx context.Context) ([]event.Record, error) {
		if err := t.onlyOwner(caller); err != nil {
			return nil, err
		}
		switch {
		case paused && t.paused.Load():
			return nil, tokenerr.ErrEnforcedPause
		case !paused && !t.paused.Load():
			return nil, tokenerr.ErrExpectedPause
		}
		if err := t.saveSettings(ctx, t.owner, t.fees.Rate(), paused); err != nil {
			return nil, err
		}
		t.paused.Store(paused)
		t.metrics.setPaused(paused)
		if paused {
			t.metrics.admin("pause")
			return []event.Record{event.Paused(caller)}, nil
		}
		t.metrics.admin("unpause")
		return []event.Record{event.Unpaused(caller)}, nil
	})
}

// TransferOwnership hands administratorship to newOwner. Handing it to the
// null address is the disabled renounce case and always fails.
func (t *Token) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	if newOwner == (common.Address{}) {
		return tokenerr.ErrRenounceDisabled
	}
	return t.run(ctx, false, func(ctx context.Context) ([]event.Record, error) {
		if err := t.onlyOwner(caller); err != nil {
			return nil, err
		}
		if newOwner == t.owner {
			return nil, tokenerr.ErrSameOwner
		}
		if err := t.saveSettings(ctx, newOwner, t.fees.Rate(), t.paused.Load()); err != nil {
			return nil, err
		}
		previous := t.owner
		t.owner = newOwner
		t.metrics.admin("transfer_ownership")
		t.logger.Info("ownership transferred", "previous_owner", previous.Hex(), "new_owner", newOwner.Hex())
		return []event.Record{event.OwnershipTransferred(previous, newOwner)}, nil
	})
}

// RenounceOwnership always fails: an ownerless token could never release
// frozen balances again.
func (t *Token) RenounceOwnership(ctx context.Context, caller common.Address) error {
	return t.TransferOwnership(ctx, caller, common.Address{})
}

// RecoverERC20 moves amount of an external asset held by the token to the
// owner. The token's own balance can never be recovered.
func (t *Token) RecoverERC20(ctx context.Context, caller, assetID common.Address, amount *uint256.Int) error {
	return t.run(ctx, true, func(ctx context.Context) ([]event.Record, error) {
		if err := t.onlyOwner(caller); err != nil {
			return nil, err
		}
		if assetID == (common.Address{}) {
			return nil, tokenerr.ErrInvalidAddress
		}
		if assetID == t.cfg.Address {
			return nil, tokenerr.ErrSelfRecovery
		}
		a, err := t.assets.Resolve(assetID)
		if err != nil {
			return nil, fmt.Errorf("resolve asset %s: %w", assetID.Hex(), err)
		}
		if amount == nil {
			amount = new(uint256.Int)
		}
		if err := a.Transfer(ctx, t.cfg.Address, t.owner, amount); err != nil {
			return nil, fmt.Errorf("recover %s of %s: %w", amount.Dec(), assetID.Hex(), err)
		}
		t.metrics.admin("recover")
		t.logger.Info("asset recovered", "asset", assetID.Hex(), "amount", amount.Dec(), "to", t.owner.Hex())
		return nil, nil
	})
}
