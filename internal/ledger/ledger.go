package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrInsufficientFunds occurs when the source account balance cannot cover
	// a mutation.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSupplyOverflow occurs when a mint would push the total supply past 2^256-1.
	ErrSupplyOverflow = errors.New("total supply overflow")

	// ErrNullMutation occurs when both sides of a mutation are the zero address.
	ErrNullMutation = errors.New("mutation between null addresses")
)

// Mutation moves Value from From to To. A zero From mints, a zero To burns.
type Mutation struct {
	From  common.Address
	To    common.Address
	Value *uint256.Int
}

// IsIssuance reports whether the mutation mints or burns.
func (m Mutation) IsIssuance() bool {
	return m.From == (common.Address{}) || m.To == (common.Address{})
}

// View exposes balance reads inside or outside a transaction.
type View interface {
	BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error)
}

// Hook is invoked by the ledger before every Apply with a view of the running
// transaction. A non-nil error aborts the whole transaction.
type Hook func(ctx context.Context, view View, m Mutation) error

// Tx is an atomic unit of work. Nothing it does is visible until Update
// returns nil.
type Tx interface {
	View
	Apply(ctx context.Context, from, to common.Address, value *uint256.Int) error
	Approve(ctx context.Context, owner, spender common.Address, value *uint256.Int) error
	SpendAllowance(ctx context.Context, owner, spender common.Address, value *uint256.Int) error
}

// Ledger defines the contract implemented by ledger backends (in-memory, Postgres).
type Ledger interface {
	View
	TotalSupply(ctx context.Context) (*uint256.Int, error)
	// Update runs fn in a transaction, committing its mutations only if fn
	// returns nil.
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Option configures a ledger backend.
type Option func(*options)

type options struct {
	hook Hook
}

// WithMutationHook installs h as the hook run before every Apply.
func WithMutationHook(h Hook) Option {
	return func(o *options) {
		o.hook = h
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MaxAllowance is treated as an unlimited allowance that is never decremented.
var MaxAllowance = new(uint256.Int).SetAllOne()
