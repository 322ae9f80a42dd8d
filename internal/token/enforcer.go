package token

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/congo-pay/feetoken/internal/freeze"
	"github.com/congo-pay/feetoken/internal/ledger"
	"github.com/congo-pay/feetoken/internal/tokenerr"
)

// enforce is installed as the ledger's mutation hook. It re-validates the
// freeze invariant for every non-issuance mutation, whatever path issued it.
func (t *Token) enforce(ctx context.Context, view ledger.View, m ledger.Mutation) error {
	if m.IsIssuance() {
		return nil
	}
	available, err := t.availableIn(ctx, view, m.From)
	if err != nil {
		return err
	}
	if m.Value.Gt(available) {
		t.metrics.rejected(tokenerr.ErrInsufficientUnfrozenBalance, "enforcer")
		return tokenerr.NewAmountError(tokenerr.ErrInsufficientUnfrozenBalance, m.Value, available)
	}
	return nil
}

func (t *Token) availableIn(ctx context.Context, view ledger.View, account common.Address) (*uint256.Int, error) {
	balance, err := view.BalanceOf(ctx, account)
	if err != nil {
		return nil, err
	}
	frozen, err := t.frozen.FrozenOf(ctx, account)
	if err != nil {
		return nil, err
	}
	return freeze.Available(balance, frozen), nil
}
