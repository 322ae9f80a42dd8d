// Package event defines the append-only records emitted by the token and the
// sinks that make them observable to external watchers.
package event

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// Kind names an emitted record.
type Kind string

const (
	KindTransfer             Kind = "Transfer"
	KindApproval             Kind = "Approval"
	KindTransferFeeCharged   Kind = "TransferFeeCharged"
	KindFeeTransferred       Kind = "FeeTransferred"
	KindFeeRateChanged       Kind = "FeeRateChanged"
	KindAddressFrozen        Kind = "AddressFrozen"
	KindAddressUnfrozen      Kind = "AddressUnfrozen"
	KindOwnershipTransferred Kind = "OwnershipTransferred"
	KindPaused               Kind = "Paused"
	KindUnpaused             Kind = "Unpaused"
)

// Record is one emitted record. Args hold the record's named values rendered
// as strings (addresses as checksummed hex, amounts in base 10).
type Record struct {
	ID   string            `json:"id"`
	Seq  uint64            `json:"seq,omitempty"`
	Kind Kind              `json:"kind"`
	Args map[string]string `json:"args"`
	At   time.Time         `json:"at"`
}

// Sink receives records after the operation that produced them committed.
type Sink interface {
	Publish(ctx context.Context, records ...Record) error
}

func newRecord(kind Kind, args map[string]string) Record {
	return Record{ID: uuid.NewString(), Kind: kind, Args: args, At: time.Now().UTC()}
}

// Transfer records a ledger mutation.
func Transfer(from, to common.Address, value *uint256.Int) Record {
	return newRecord(KindTransfer, map[string]string{"from": from.Hex(), "to": to.Hex(), "value": value.Dec()})
}

// Approval records an allowance change.
func Approval(owner, spender common.Address, value *uint256.Int) Record {
	return newRecord(KindApproval, map[string]string{"owner": owner.Hex(), "spender": spender.Hex(), "value": value.Dec()})
}

// TransferFeeCharged records the fee taken from a sender.
func TransferFeeCharged(from common.Address, amount *uint256.Int) Record {
	return newRecord(KindTransferFeeCharged, map[string]string{"from": from.Hex(), "amount": amount.Dec()})
}

// FeeTransferred records the fee paid to the beneficiary.
func FeeTransferred(to common.Address, amount *uint256.Int) Record {
	return newRecord(KindFeeTransferred, map[string]string{"to": to.Hex(), "amount": amount.Dec()})
}

// FeeRateChanged records a fee rate update.
func FeeRateChanged(oldRate, newRate uint64) Record {
	return newRecord(KindFeeRateChanged, map[string]string{
		"old_rate": strconv.FormatUint(oldRate, 10),
		"new_rate": strconv.FormatUint(newRate, 10),
	})
}

// AddressFrozen records a freeze of amount on account.
func AddressFrozen(account common.Address, amount *uint256.Int) Record {
	return newRecord(KindAddressFrozen, map[string]string{"account": account.Hex(), "amount": amount.Dec()})
}

// AddressUnfrozen records a release of amount on account.
func AddressUnfrozen(account common.Address, amount *uint256.Int) Record {
	return newRecord(KindAddressUnfrozen, map[string]string{"account": account.Hex(), "amount": amount.Dec()})
}

// OwnershipTransferred records an administrator change.
func OwnershipTransferred(previous, next common.Address) Record {
	return newRecord(KindOwnershipTransferred, map[string]string{"previous_owner": previous.Hex(), "new_owner": next.Hex()})
}

// Paused records the pause gate closing.
func Paused(account common.Address) Record {
	return newRecord(KindPaused, map[string]string{"account": account.Hex()})
}

// Unpaused records the pause gate opening.
func Unpaused(account common.Address) Record {
	return newRecord(KindUnpaused, map[string]string{"account": account.Hex()})
}

// Fanout publishes every record to each sink in order.
type Fanout []Sink

// Publish delivers records to all sinks and joins their errors.
func (f Fanout) Publish(ctx context.Context, records ...Record) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, records...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
