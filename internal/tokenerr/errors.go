// Package tokenerr defines the failure taxonomy shared by the fee, freeze,
// ledger and token packages. Every failure aborts the whole operation.
package tokenerr

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	// ErrInvalidAddress occurs when the null address is supplied where a real
	// account is required.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidAmount occurs when a zero amount is supplied to freeze or unfreeze.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrZeroTransfer occurs when a zero amount is supplied to a transfer.
	ErrZeroTransfer = errors.New("zero transfer")

	// ErrInsufficientBalance occurs when a freeze exceeds the total balance or
	// an unfreeze exceeds the frozen amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientUnfrozenBalance occurs when a transfer exceeds the
	// available (unfrozen) balance of the sender.
	ErrInsufficientUnfrozenBalance = errors.New("insufficient unfrozen balance")

	// ErrFeeRateTooHigh occurs when the requested fee rate exceeds the maximum.
	ErrFeeRateTooHigh = errors.New("fee rate too high")

	// ErrSameOwner occurs when ownership is transferred to the current owner.
	ErrSameOwner = errors.New("new owner is the current owner")

	// ErrRenounceDisabled is returned by every attempt to leave the token
	// without an owner.
	ErrRenounceDisabled = errors.New("ownership renouncement is disabled")

	// ErrSelfRecovery is returned when recovery targets the token itself.
	ErrSelfRecovery = errors.New("cannot recover the token itself")

	// ErrNotOwner occurs when an admin operation is invoked by anyone but the owner.
	ErrNotOwner = errors.New("caller is not the owner")

	// ErrEnforcedPause occurs when a transfer is attempted while paused.
	ErrEnforcedPause = errors.New("transfers are paused")

	// ErrExpectedPause occurs when unpausing a token that is not paused.
	ErrExpectedPause = errors.New("transfers are not paused")

	// ErrReentrantCall occurs when a guarded entry point is entered again
	// before the outer call resolved.
	ErrReentrantCall = errors.New("reentrant call")

	// ErrInsufficientAllowance occurs when a delegated transfer exceeds the
	// spender's allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// AmountError carries the offending values of an amount-related failure so
// callers can report them without re-querying state.
type AmountError struct {
	Err       error
	Requested *uint256.Int
	Limit     *uint256.Int
}

// NewAmountError builds an AmountError. The values are copied.
func NewAmountError(kind error, requested, limit *uint256.Int) *AmountError {
	return &AmountError{Err: kind, Requested: clone(requested), Limit: clone(limit)}
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("%v: requested %s, limit %s", e.Err, e.Requested.Dec(), e.Limit.Dec())
}

func (e *AmountError) Unwrap() error {
	return e.Err
}

// FeeRateTooHigh builds the rate failure for a requested rate above max.
func FeeRateTooHigh(requested, max uint64) *AmountError {
	return NewAmountError(ErrFeeRateTooHigh, uint256.NewInt(requested), uint256.NewInt(max))
}

func clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

// Code returns a stable snake_case identifier for err, used in API responses
// and metric labels. Unknown errors map to "internal".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidAddress, "invalid_address"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrZeroTransfer, "zero_transfer"},
	{ErrInsufficientUnfrozenBalance, "insufficient_unfrozen_balance"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrFeeRateTooHigh, "fee_rate_too_high"},
	{ErrSameOwner, "same_owner"},
	{ErrRenounceDisabled, "renounce_disabled"},
	{ErrSelfRecovery, "self_recovery"},
	{ErrNotOwner, "not_owner"},
	{ErrEnforcedPause, "enforced_pause"},
	{ErrExpectedPause, "expected_pause"},
	{ErrReentrantCall, "reentrant_call"},
	{ErrInsufficientAllowance, "insufficient_allowance"},
}
