package freeze

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/feetoken/internal/tokenerr"
)

var holder = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func TestFreezeWithinBalance(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryStore())

	frozen, err := reg.Freeze(ctx, holder, uint256.NewInt(200), uint256.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, uint64(200), frozen.Uint64())

	frozen, err = reg.Freeze(ctx, holder, uint256.NewInt(300), uint256.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, uint64(500), frozen.Uint64())
}

func TestFreezeBeyondBalanceLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryStore())

	_, err := reg.Freeze(ctx, holder, uint256.NewInt(100), uint256.NewInt(500))
	require.NoError(t, err)

	_, err = reg.Freeze(ctx, holder, uint256.NewInt(500), uint256.NewInt(500))
	require.ErrorIs(t, err, tokenerr.ErrInsufficientBalance)

	var amtErr *tokenerr.AmountError
	require.True(t, errors.As(err, &amtErr))
	require.Equal(t, uint64(600), amtErr.Requested.Uint64())
	require.Equal(t, uint64(500), amtErr.Limit.Uint64())

	frozen, err := reg.FrozenOf(ctx, holder)
	require.NoError(t, err)
	require.Equal(t, uint64(100), frozen.Uint64())
}

func TestFreezeRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryStore())

	_, err := reg.Freeze(ctx, common.Address{}, uint256.NewInt(1), uint256.NewInt(10))
	require.ErrorIs(t, err, tokenerr.ErrInvalidAddress)

	_, err = reg.Freeze(ctx, holder, new(uint256.Int), uint256.NewInt(10))
	require.ErrorIs(t, err, tokenerr.ErrInvalidAmount)

	_, err = reg.Unfreeze(ctx, common.Address{}, uint256.NewInt(1))
	require.ErrorIs(t, err, tokenerr.ErrInvalidAddress)

	_, err = reg.Unfreeze(ctx, holder, new(uint256.Int))
	require.ErrorIs(t, err, tokenerr.ErrInvalidAmount)
}

func TestUnfreeze(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryStore())

	_, err := reg.Freeze(ctx, holder, uint256.NewInt(400), uint256.NewInt(500))
	require.NoError(t, err)

	_, err = reg.Unfreeze(ctx, holder, uint256.NewInt(401))
	require.ErrorIs(t, err, tokenerr.ErrInsufficientBalance)
	var amtErr *tokenerr.AmountError
	require.True(t, errors.As(err, &amtErr))
	require.Equal(t, uint64(401), amtErr.Requested.Uint64())
	require.Equal(t, uint64(400), amtErr.Limit.Uint64())

	left, err := reg.Unfreeze(ctx, holder, uint256.NewInt(150))
	require.NoError(t, err)
	require.Equal(t, uint64(250), left.Uint64())
}

func TestAvailable(t *testing.T) {
	require.Equal(t, uint64(300), Available(uint256.NewInt(500), uint256.NewInt(200)).Uint64())
	require.True(t, Available(uint256.NewInt(500), uint256.NewInt(500)).IsZero())
	require.True(t, Available(uint256.NewInt(100), uint256.NewInt(500)).IsZero())
}
