package token

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/congo-pay/feetoken/internal/asset"
	"github.com/congo-pay/feetoken/internal/event"
	"github.com/congo-pay/feetoken/internal/ledger"
	"github.com/congo-pay/feetoken/internal/tokenerr"
)

// TransferResult captures the outcome of a transfer.
type TransferResult struct {
	From        common.Address
	To          common.Address
	Amount      *uint256.Int
	Fee         *uint256.Int
	Net         *uint256.Int
	Beneficiary common.Address
	// FeeForfeited is set when a fee was due but the beneficiary was the null
	// address; the fee then stays with the sender.
	FeeForfeited bool
	FromBalance  *uint256.Int
	ToBalance    *uint256.Int
	CompletedAt  time.Time
}

// Transfer moves amount from caller to to, charging the transfer fee.
func (t *Token) Transfer(ctx context.Context, caller, to common.Address, amount *uint256.Int) (TransferResult, error) {
	var res TransferResult
	err := t.run(ctx, true, func(ctx context.Context) ([]event.Record, error) {
		if t.paused.Load() {
			return nil, tokenerr.ErrEnforcedPause
		}
		var records []event.Record
		err := t.ledger.Update(ctx, func(tx ledger.Tx) error {
			var err error
			res, records, err = t.transferWithFee(ctx, tx, caller, to, amount)
			return err
		})
		return records, err
	})
	t.metrics.observeTransfer(res, err)
	return res, err
}

// TransferFrom moves amount from from to to on behalf of caller, consuming
// caller's allowance before the transfer itself.
func (t *Token) TransferFrom(ctx context.Context, caller, from, to common.Address, amount *uint256.Int) (TransferResult, error) {
	var res TransferResult
	err := t.run(ctx, true, func(ctx context.Context) ([]event.Record, error) {
		if t.paused.Load() {
			return nil, tokenerr.ErrEnforcedPause
		}
		var records []event.Record
		err := t.ledger.Update(ctx, func(tx ledger.Tx) error {
			if err := tx.SpendAllowance(ctx, from, caller, amount); err != nil {
				return err
			}
			var err error
			res, records, err = t.transferWithFee(ctx, tx, from, to, amount)
			return err
		})
		return records, err
	})
	t.metrics.observeTransfer(res, err)
	return res, err
}

// Approve sets spender's allowance over caller's balance.
func (t *Token) Approve(ctx context.Context, caller, spender common.Address, amount *uint256.Int) error {
	return t.run(ctx, false, func(ctx context.Context) ([]event.Record, error) {
		if amount == nil {
			amount = new(uint256.Int)
		}
		err := t.ledger.Update(ctx, func(tx ledger.Tx) error {
			return tx.Approve(ctx, caller, spender, amount)
		})
		if err != nil {
			return nil, err
		}
		return []event.Record{event.Approval(caller, spender, amount)}, nil
	})
}

// transferWithFee validates the request against the sender's available
// balance, then moves the net amount to the recipient and the fee to the
// owner. The enforcer re-checks each of the two mutations independently.
func (t *Token) transferWithFee(ctx context.Context, tx ledger.Tx, from, to common.Address, amount *uint256.Int) (TransferResult, []event.Record, error) {
	zero := common.Address{}
	if from == zero || to == zero {
		return TransferResult{}, nil, tokenerr.ErrInvalidAddress
	}
	if amount == nil || amount.IsZero() {
		return TransferResult{}, nil, tokenerr.ErrZeroTransfer
	}

	// the full amount must be unfrozen, not only the part reaching the recipient
	available, err := t.availableIn(ctx, tx, from)
	if err != nil {
		return TransferResult{}, nil, err
	}
	if amount.Gt(available) {
		return TransferResult{}, nil, tokenerr.NewAmountError(tokenerr.ErrInsufficientUnfrozenBalance, amount, available)
	}

	feeAmount, netAmount := t.fees.Split(amount)
	if err := tx.Apply(ctx, from, to, netAmount); err != nil {
		return TransferResult{}, nil, err
	}
	records := []event.Record{event.Transfer(from, to, netAmount)}

	res := TransferResult{
		From:        from,
		To:          to,
		Amount:      new(uint256.Int).Set(amount),
		Fee:         feeAmount,
		Net:         netAmount,
		Beneficiary: t.owner,
	}
	if !feeAmount.IsZero() {
		if t.owner == zero {
			res.FeeForfeited = true
		} else {
			if err := tx.Apply(ctx, from, t.owner, feeAmount); err != nil {
				return TransferResult{}, nil, err
			}
			records = append(records,
				event.Transfer(from, t.owner, feeAmount),
				event.TransferFeeCharged(from, feeAmount),
				event.FeeTransferred(t.owner, feeAmount),
			)
		}
	}

	if res.FromBalance, err = tx.BalanceOf(ctx, from); err != nil {
		return TransferResult{}, nil, err
	}
	if res.ToBalance, err = tx.BalanceOf(ctx, to); err != nil {
		return TransferResult{}, nil, err
	}
	res.CompletedAt = time.Now().UTC()
	return res, records, nil
}

// AsAsset exposes the token as an external asset for another token's recovery:
// the holder's balance moves through the regular fee-charging transfer.
func (t *Token) AsAsset() asset.Asset {
	return asset.Func(func(ctx context.Context, holder, to common.Address, amount *uint256.Int) error {
		_, err := t.Transfer(ctx, holder, to, amount)
		return err
	})
}
