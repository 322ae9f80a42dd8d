package token

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/feetoken/internal/asset"
	"github.com/congo-pay/feetoken/internal/event"
	"github.com/congo-pay/feetoken/internal/freeze"
	"github.com/congo-pay/feetoken/internal/ledger"
	"github.com/congo-pay/feetoken/internal/tokenerr"
)

var (
	tokenAddr = common.HexToAddress("0x0000000000000000000000000000000000001000")
	deployer  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	admin     = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol     = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func testConfig() Config {
	return Config{
		Name:           "Congo Fee Token",
		Symbol:         "CFT",
		Address:        tokenAddr,
		Deployer:       deployer,
		Admin:          admin,
		InitialFeeRate: 300,
	}
}

func openInMemory(opts ...ledger.Option) ledger.Ledger {
	return ledger.NewInMemory(opts...)
}

func newTestToken(t *testing.T, configure ...func(*Config, *Deps)) (*Token, *event.Log) {
	t.Helper()
	cfg := testConfig()
	log := event.NewLog()
	deps := Deps{OpenLedger: openInMemory, Sink: log}
	for _, c := range configure {
		c(&cfg, &deps)
	}
	tok, err := New(context.Background(), cfg, deps)
	require.NoError(t, err)
	return tok, log
}

func amt(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func balanceOf(t *testing.T, tok *Token, account common.Address) uint64 {
	t.Helper()
	b, err := tok.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return b.Uint64()
}

func requireAmountError(t *testing.T, err error, kind error, requested, limit uint64) {
	t.Helper()
	require.ErrorIs(t, err, kind)
	var ae *tokenerr.AmountError
	require.True(t, errors.As(err, &ae), "expected an AmountError, got %v", err)
	require.Equal(t, requested, ae.Requested.Uint64(), "requested")
	require.Equal(t, limit, ae.Limit.Uint64(), "limit")
}

func TestNew_GenesisMintsToDeployerAndHandsOwnershipToAdmin(t *testing.T) {
	tok, log := newTestToken(t)
	ctx := context.Background()

	supply, err := tok.TotalSupply(ctx)
	require.NoError(t, err)
	require.Equal(t, "21314000000000000000000", supply.Dec())

	bal, err := tok.BalanceOf(ctx, deployer)
	require.NoError(t, err)
	require.True(t, bal.Eq(InitialSupply()))
	require.Equal(t, admin, tok.Owner(ctx))

	records := log.Since(0, 0)
	require.Len(t, records, 3)
	require.Equal(t, event.KindTransfer, records[0].Kind)
	require.Equal(t, event.KindOwnershipTransferred, records[1].Kind)
	require.Equal(t, event.KindOwnershipTransferred, records[2].Kind)
	require.Equal(t, admin.Hex(), records[2].Args["new_owner"])
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	cfg.Admin = common.Address{}
	_, err := New(ctx, cfg, Deps{OpenLedger: openInMemory})
	require.ErrorIs(t, err, tokenerr.ErrInvalidAddress)

	cfg = testConfig()
	cfg.InitialFeeRate = 1_001
	_, err = New(ctx, cfg, Deps{OpenLedger: openInMemory})
	require.ErrorIs(t, err, tokenerr.ErrFeeRateTooHigh)

	_, err = New(ctx, testConfig(), Deps{})
	require.Error(t, err)
}

func TestNew_ReopenRestoresSettingsWithoutMinting(t *testing.T) {
	ctx := context.Background()
	settings := NewMemorySettings()
	frozen := freeze.NewMemoryStore()
	var shared ledger.Ledger
	open := func(opts ...ledger.Option) ledger.Ledger {
		shared = ledger.NewInMemory(opts...)
		return shared
	}

	first, err := New(ctx, testConfig(), Deps{OpenLedger: open, Settings: settings, Frozen: frozen})
	require.NoError(t, err)
	require.NoError(t, first.SetFeeRate(ctx, admin, 50))
	require.NoError(t, first.Pause(ctx, admin))

	// a second process opening an already-initialized ledger
	log := event.NewLog()
	reopen := func(opts ...ledger.Option) ledger.Ledger {
		l := ledger.NewInMemory(opts...)
		ledger.SeedBalance(l, deployer, 7)
		return l
	}
	second, err := New(ctx, testConfig(), Deps{OpenLedger: reopen, Settings: settings, Frozen: frozen, Sink: log})
	require.NoError(t, err)

	current, maximum := second.FeeRateInfo()
	require.Equal(t, uint64(50), current)
	require.Equal(t, uint64(1_000), maximum)
	require.True(t, second.Paused())
	require.Equal(t, admin, second.Owner(ctx))
	require.Zero(t, log.Len())

	supply, err := second.TotalSupply(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(7), supply.Uint64())
}

func TestNew_GenesisSkipsMintWhenSupplyExists(t *testing.T) {
	open := func(opts ...ledger.Option) ledger.Ledger {
		l := ledger.NewInMemory(opts...)
		ledger.SeedBalance(l, deployer, 42)
		return l
	}
	tok, log := newTestToken(t, func(_ *Config, d *Deps) { d.OpenLedger = open })

	supply, err := tok.TotalSupply(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(42), supply.Uint64())
	for _, r := range log.Since(0, 0) {
		require.NotEqual(t, event.KindTransfer, r.Kind)
	}
}

func TestTransfer_ChargesFeeToOwner(t *testing.T) {
	tok, log := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 1_000)
	before := log.Len()

	res, err := tok.Transfer(ctx, alice, bob, amt(1_000))
	require.NoError(t, err)
	require.Equal(t, uint64(30), res.Fee.Uint64())
	require.Equal(t, uint64(970), res.Net.Uint64())
	require.False(t, res.FeeForfeited)
	require.Equal(t, admin, res.Beneficiary)
	require.Equal(t, uint64(0), res.FromBalance.Uint64())
	require.Equal(t, uint64(970), res.ToBalance.Uint64())

	require.Equal(t, uint64(0), balanceOf(t, tok, alice))
	require.Equal(t, uint64(970), balanceOf(t, tok, bob))
	require.Equal(t, uint64(30), balanceOf(t, tok, admin))

	records := log.Since(uint64(before), 0)
	kinds := make([]event.Kind, 0, len(records))
	for _, r := range records {
		kinds = append(kinds, r.Kind)
	}
	require.Equal(t, []event.Kind{
		event.KindTransfer,
		event.KindTransfer,
		event.KindTransferFeeCharged,
		event.KindFeeTransferred,
	}, kinds)
	require.Equal(t, "970", records[0].Args["value"])
	require.Equal(t, "30", records[2].Args["amount"])
}

func TestTransfer_ZeroFeeMovesWholeAmount(t *testing.T) {
	tok, log := newTestToken(t, func(c *Config, _ *Deps) { c.InitialFeeRate = 0 })
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 10)
	before := log.Len()

	res, err := tok.Transfer(ctx, alice, bob, amt(10))
	require.NoError(t, err)
	require.True(t, res.Fee.IsZero())
	require.Equal(t, uint64(10), balanceOf(t, tok, bob))
	require.Equal(t, before+1, log.Len())
}

func TestTransfer_DustAmountPaysNoFee(t *testing.T) {
	tok, _ := newTestToken(t)
	ledger.SeedBalance(tok.Ledger(), alice, 33)

	res, err := tok.Transfer(context.Background(), alice, bob, amt(33))
	require.NoError(t, err)
	require.True(t, res.Fee.IsZero())
	require.Equal(t, uint64(33), balanceOf(t, tok, bob))
	require.Equal(t, uint64(0), balanceOf(t, tok, admin))
}

func TestTransfer_RejectsInvalidInput(t *testing.T) {
	tok, _ := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 100)

	_, err := tok.Transfer(ctx, alice, common.Address{}, amt(1))
	require.ErrorIs(t, err, tokenerr.ErrInvalidAddress)

	_, err = tok.Transfer(ctx, common.Address{}, bob, amt(1))
	require.ErrorIs(t, err, tokenerr.ErrInvalidAddress)

	_, err = tok.Transfer(ctx, alice, bob, amt(0))
	require.ErrorIs(t, err, tokenerr.ErrZeroTransfer)

	_, err = tok.Transfer(ctx, alice, bob, amt(101))
	requireAmountError(t, err, tokenerr.ErrInsufficientUnfrozenBalance, 101, 100)
	require.Equal(t, uint64(100), balanceOf(t, tok, alice))
}

func TestTransfer_ForfeitsFeeWithoutBeneficiary(t *testing.T) {
	settings := NewMemorySettings()
	require.NoError(t, settings.Save(context.Background(), Settings{FeeRate: 300}))
	tok, log := newTestToken(t, func(_ *Config, d *Deps) { d.Settings = settings })
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 1_000)

	res, err := tok.Transfer(ctx, alice, bob, amt(1_000))
	require.NoError(t, err)
	require.True(t, res.FeeForfeited)
	require.Equal(t, uint64(30), res.Fee.Uint64())
	require.Equal(t, uint64(970), balanceOf(t, tok, bob))
	require.Equal(t, uint64(30), balanceOf(t, tok, alice))
	for _, r := range log.Since(0, 0) {
		require.NotEqual(t, event.KindFeeTransferred, r.Kind)
	}
}

func TestTransfer_FullyFrozenBalanceCannotMove(t *testing.T) {
	tok, _ := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 500)
	require.NoError(t, tok.FreezeAddress(ctx, admin, alice, amt(500)))

	for _, v := range []uint64{1, 250, 500} {
		_, err := tok.Transfer(ctx, alice, bob, amt(v))
		requireAmountError(t, err, tokenerr.ErrInsufficientUnfrozenBalance, v, 0)
	}
	require.Equal(t, uint64(500), balanceOf(t, tok, alice))
}

func TestTransfer_FullAmountMustBeUnfrozen(t *testing.T) {
	tok, _ := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 1_000)
	require.NoError(t, tok.FreezeAddress(ctx, admin, alice, amt(30)))

	// net 970 alone would fit, but the fee comes out of the same balance
	_, err := tok.Transfer(ctx, alice, bob, amt(1_000))
	requireAmountError(t, err, tokenerr.ErrInsufficientUnfrozenBalance, 1_000, 970)

	_, err = tok.Transfer(ctx, alice, bob, amt(970))
	require.NoError(t, err)
	available, err := tok.AvailableBalanceOf(ctx, alice)
	require.NoError(t, err)
	require.True(t, available.IsZero())
}

func TestLedger_EnforcerBlocksDirectMutations(t *testing.T) {
	tok, _ := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 500)
	require.NoError(t, tok.FreezeAddress(ctx, admin, alice, amt(400)))

	err := tok.Ledger().Update(ctx, func(tx ledger.Tx) error {
		return tx.Apply(ctx, alice, bob, amt(101))
	})
	requireAmountError(t, err, tokenerr.ErrInsufficientUnfrozenBalance, 101, 100)

	// the second mutation sees the first one's effect on the available balance
	err = tok.Ledger().Update(ctx, func(tx ledger.Tx) error {
		if err := tx.Apply(ctx, alice, bob, amt(60)); err != nil {
			return err
		}
		return tx.Apply(ctx, alice, carol, amt(60))
	})
	requireAmountError(t, err, tokenerr.ErrInsufficientUnfrozenBalance, 60, 40)
	require.Equal(t, uint64(500), balanceOf(t, tok, alice))
	require.Equal(t, uint64(0), balanceOf(t, tok, bob))

	// issuance is not subject to the freeze
	err = tok.Ledger().Update(ctx, func(tx ledger.Tx) error {
		return tx.Apply(ctx, common.Address{}, alice, amt(5))
	})
	require.NoError(t, err)
	require.Equal(t, uint64(505), balanceOf(t, tok, alice))
}

func TestFreezeAddress(t *testing.T) {
	tok, log := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 500)

	require.NoError(t, tok.FreezeAddress(ctx, admin, alice, amt(100)))
	before := log.Len()

	err := tok.FreezeAddress(ctx, admin, alice, amt(600))
	requireAmountError(t, err, tokenerr.ErrInsufficientBalance, 700, 500)
	frozen, err := tok.FrozenBalanceOf(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(100), frozen.Uint64())
	require.Equal(t, before, log.Len())

	require.ErrorIs(t, tok.FreezeAddress(ctx, alice, alice, amt(1)), tokenerr.ErrNotOwner)
	require.ErrorIs(t, tok.FreezeAddress(ctx, admin, common.Address{}, amt(1)), tokenerr.ErrInvalidAddress)
	require.ErrorIs(t, tok.FreezeAddress(ctx, admin, alice, amt(0)), tokenerr.ErrInvalidAmount)
}

func TestFreezeAddress_ExceedingEmptyBalance(t *testing.T) {
	tok, _ := newTestToken(t)
	ledger.SeedBalance(tok.Ledger(), alice, 500)

	err := tok.FreezeAddress(context.Background(), admin, alice, amt(600))
	requireAmountError(t, err, tokenerr.ErrInsufficientBalance, 600, 500)
}

func TestUnfreezeAddress(t *testing.T) {
	tok, log := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 500)
	require.NoError(t, tok.FreezeAddress(ctx, admin, alice, amt(300)))

	err := tok.UnfreezeAddress(ctx, admin, alice, amt(301))
	requireAmountError(t, err, tokenerr.ErrInsufficientBalance, 301, 300)

	require.NoError(t, tok.UnfreezeAddress(ctx, admin, alice, amt(200)))
	frozen, err := tok.FrozenBalanceOf(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(100), frozen.Uint64())

	last := log.Since(uint64(log.Len()-1), 0)
	require.Len(t, last, 1)
	require.Equal(t, event.KindAddressUnfrozen, last[0].Kind)
	require.Equal(t, "200", last[0].Args["amount"])

	require.ErrorIs(t, tok.UnfreezeAddress(ctx, bob, alice, amt(1)), tokenerr.ErrNotOwner)
}

func TestSetFeeRate(t *testing.T) {
	tok, log := newTestToken(t)
	ctx := context.Background()

	err := tok.SetFeeRate(ctx, admin, 1_001)
	requireAmountError(t, err, tokenerr.ErrFeeRateTooHigh, 1_001, 1_000)
	current, _ := tok.FeeRateInfo()
	require.Equal(t, uint64(300), current)

	require.ErrorIs(t, tok.SetFeeRate(ctx, alice, 100), tokenerr.ErrNotOwner)

	require.NoError(t, tok.SetFeeRate(ctx, admin, 1_000))
	current, _ = tok.FeeRateInfo()
	require.Equal(t, uint64(1_000), current)

	last := log.Since(uint64(log.Len()-1), 0)
	require.Equal(t, event.KindFeeRateChanged, last[0].Kind)
	require.Equal(t, "300", last[0].Args["old_rate"])
	require.Equal(t, "1000", last[0].Args["new_rate"])

	feeAmount, net := tok.CalculateTransferFee(amt(1_000))
	require.Equal(t, uint64(100), feeAmount.Uint64())
	require.Equal(t, uint64(900), net.Uint64())
}

func TestPauseGate(t *testing.T) {
	tok, _ := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 100)

	require.ErrorIs(t, tok.Pause(ctx, alice), tokenerr.ErrNotOwner)
	require.ErrorIs(t, tok.Unpause(ctx, admin), tokenerr.ErrExpectedPause)
	require.NoError(t, tok.Pause(ctx, admin))
	require.ErrorIs(t, tok.Pause(ctx, admin), tokenerr.ErrEnforcedPause)

	_, err := tok.Transfer(ctx, alice, bob, amt(10))
	require.ErrorIs(t, err, tokenerr.ErrEnforcedPause)
	require.NoError(t, tok.Approve(ctx, alice, bob, amt(10)))
	_, err = tok.TransferFrom(ctx, bob, alice, carol, amt(10))
	require.ErrorIs(t, err, tokenerr.ErrEnforcedPause)

	// freezing stays available while paused
	require.NoError(t, tok.FreezeAddress(ctx, admin, alice, amt(10)))

	require.NoError(t, tok.Unpause(ctx, admin))
	_, err = tok.Transfer(ctx, alice, bob, amt(10))
	require.NoError(t, err)
}

func TestOwnership(t *testing.T) {
	tok, log := newTestToken(t)
	ctx := context.Background()

	require.ErrorIs(t, tok.RenounceOwnership(ctx, admin), tokenerr.ErrRenounceDisabled)
	require.ErrorIs(t, tok.RenounceOwnership(ctx, alice), tokenerr.ErrRenounceDisabled)
	require.ErrorIs(t, tok.TransferOwnership(ctx, admin, common.Address{}), tokenerr.ErrRenounceDisabled)
	require.ErrorIs(t, tok.TransferOwnership(ctx, alice, bob), tokenerr.ErrNotOwner)
	require.ErrorIs(t, tok.TransferOwnership(ctx, admin, admin), tokenerr.ErrSameOwner)
	require.Equal(t, admin, tok.Owner(ctx))

	require.NoError(t, tok.TransferOwnership(ctx, admin, carol))
	require.Equal(t, carol, tok.Owner(ctx))
	require.ErrorIs(t, tok.SetFeeRate(ctx, admin, 10), tokenerr.ErrNotOwner)
	require.NoError(t, tok.SetFeeRate(ctx, carol, 10))

	records := log.Since(0, 0)
	var transferred []event.Record
	for _, r := range records {
		if r.Kind == event.KindOwnershipTransferred {
			transferred = append(transferred, r)
		}
	}
	last := transferred[len(transferred)-1]
	require.Equal(t, admin.Hex(), last.Args["previous_owner"])
	require.Equal(t, carol.Hex(), last.Args["new_owner"])

	// fees now go to the new owner
	ledger.SeedBalance(tok.Ledger(), alice, 1_000)
	_, err := tok.Transfer(ctx, alice, bob, amt(1_000))
	require.NoError(t, err)
	require.Equal(t, uint64(1), balanceOf(t, tok, carol))
}

func TestTransferFrom(t *testing.T) {
	tok, _ := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 1_000)

	require.NoError(t, tok.Approve(ctx, alice, bob, amt(600)))

	_, err := tok.TransferFrom(ctx, bob, alice, carol, amt(601))
	requireAmountError(t, err, tokenerr.ErrInsufficientAllowance, 601, 600)

	res, err := tok.TransferFrom(ctx, bob, alice, carol, amt(500))
	require.NoError(t, err)
	require.Equal(t, uint64(15), res.Fee.Uint64())
	require.Equal(t, uint64(485), balanceOf(t, tok, carol))
	require.Equal(t, uint64(500), balanceOf(t, tok, alice))
	require.Equal(t, uint64(15), balanceOf(t, tok, admin))

	left, err := tok.Allowance(ctx, alice, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(100), left.Uint64())
}

func TestTransferFrom_FailureKeepsAllowance(t *testing.T) {
	tok, _ := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 1_000)
	require.NoError(t, tok.Approve(ctx, alice, bob, amt(1_000)))
	require.NoError(t, tok.FreezeAddress(ctx, admin, alice, amt(600)))

	_, err := tok.TransferFrom(ctx, bob, alice, carol, amt(500))
	requireAmountError(t, err, tokenerr.ErrInsufficientUnfrozenBalance, 500, 400)

	left, err := tok.Allowance(ctx, alice, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), left.Uint64())
	require.Equal(t, uint64(1_000), balanceOf(t, tok, alice))
}

func TestTransferFrom_UnlimitedAllowanceIsNotConsumed(t *testing.T) {
	tok, _ := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 1_000)
	require.NoError(t, tok.Approve(ctx, alice, bob, ledger.MaxAllowance))

	_, err := tok.TransferFrom(ctx, bob, alice, carol, amt(400))
	require.NoError(t, err)
	left, err := tok.Allowance(ctx, alice, bob)
	require.NoError(t, err)
	require.True(t, left.Eq(ledger.MaxAllowance))
}

func TestRecoverERC20(t *testing.T) {
	ctx := context.Background()
	other, _ := newTestToken(t, func(c *Config, _ *Deps) {
		c.Address = common.HexToAddress("0x0000000000000000000000000000000000002000")
		c.InitialFeeRate = 0
	})
	dir := asset.NewDirectory()
	dir.Register(other.Address(), other.AsAsset())
	tok, _ := newTestToken(t, func(_ *Config, d *Deps) { d.Assets = dir })

	// tokens sent to the token's own address by mistake
	_, err := other.Transfer(ctx, deployer, tok.Address(), amt(250))
	require.NoError(t, err)

	require.ErrorIs(t, tok.RecoverERC20(ctx, alice, other.Address(), amt(250)), tokenerr.ErrNotOwner)
	require.ErrorIs(t, tok.RecoverERC20(ctx, admin, common.Address{}, amt(250)), tokenerr.ErrInvalidAddress)
	require.ErrorIs(t, tok.RecoverERC20(ctx, admin, tok.Address(), amt(250)), tokenerr.ErrSelfRecovery)
	require.ErrorIs(t, tok.RecoverERC20(ctx, admin, carol, amt(250)), asset.ErrUnknownAsset)

	require.NoError(t, tok.RecoverERC20(ctx, admin, other.Address(), amt(250)))
	bal, err := other.BalanceOf(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, uint64(250), bal.Uint64())
	bal, err = other.BalanceOf(ctx, tok.Address())
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}

func TestReentrancyIsRejected(t *testing.T) {
	ctx := context.Background()
	dir := asset.NewDirectory()
	tok, _ := newTestToken(t, func(_ *Config, d *Deps) { d.Assets = dir })
	ledger.SeedBalance(tok.Ledger(), tok.Address(), 100)

	hostile := common.HexToAddress("0x0000000000000000000000000000000000003000")
	var nestedBalance uint64
	dir.Register(hostile, asset.Func(func(ctx context.Context, holder, to common.Address, amount *uint256.Int) error {
		// unguarded reads still work under the outer lock
		b, err := tok.BalanceOf(ctx, holder)
		if err != nil {
			return err
		}
		nestedBalance = b.Uint64()
		_, err = tok.Transfer(ctx, holder, to, amount)
		return err
	}))

	err := tok.RecoverERC20(ctx, admin, hostile, amt(10))
	require.ErrorIs(t, err, tokenerr.ErrReentrantCall)
	require.Equal(t, uint64(100), nestedBalance)
	require.Equal(t, uint64(100), balanceOf(t, tok, tok.Address()))

	nestedRecover := common.HexToAddress("0x0000000000000000000000000000000000003001")
	dir.Register(nestedRecover, asset.Func(func(ctx context.Context, _, _ common.Address, amount *uint256.Int) error {
		return tok.RecoverERC20(ctx, admin, hostile, amount)
	}))
	require.ErrorIs(t, tok.RecoverERC20(ctx, admin, nestedRecover, amt(1)), tokenerr.ErrReentrantCall)
}

func TestFailedOperationsPublishNothing(t *testing.T) {
	tok, log := newTestToken(t)
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 10)
	before := log.Len()

	_, err := tok.Transfer(ctx, alice, bob, amt(11))
	require.Error(t, err)
	require.Error(t, tok.SetFeeRate(ctx, admin, 5_000))
	require.Error(t, tok.FreezeAddress(ctx, admin, alice, amt(11)))
	require.Error(t, tok.Unpause(ctx, admin))
	require.Error(t, tok.RenounceOwnership(ctx, admin))
	require.Equal(t, before, log.Len())
}

func TestContractInfo(t *testing.T) {
	tok, _ := newTestToken(t)
	info, err := tok.ContractInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Congo Fee Token", info.Name)
	require.Equal(t, "CFT", info.Symbol)
	require.Equal(t, uint8(18), info.Decimals)
	require.True(t, info.TotalSupply.Eq(InitialSupply()))
	require.Equal(t, admin, info.Owner)
	require.Equal(t, uint64(300), info.FeeRate)
	require.Equal(t, uint64(1_000), info.MaxFeeRate)
	require.False(t, info.Paused)
}

func TestMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	tok, _ := newTestToken(t, func(_ *Config, d *Deps) { d.Metrics = m })
	ctx := context.Background()
	ledger.SeedBalance(tok.Ledger(), alice, 1_000)

	_, err = tok.Transfer(ctx, alice, bob, amt(1_000))
	require.NoError(t, err)
	_, err = tok.Transfer(ctx, alice, bob, amt(1))
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[f.GetName()] += c.GetValue()
			}
		}
	}
	require.Equal(t, float64(1), values["feetoken_transfers_total"])
	require.Equal(t, float64(1), values["feetoken_fees_charged_total"])
	require.Equal(t, float64(1), values["feetoken_rejections_total"])
}

func TestConcurrentTransfersConserveSupply(t *testing.T) {
	tok, _ := newTestToken(t)
	ctx := context.Background()
	accounts := []common.Address{alice, bob, carol}
	for _, a := range accounts {
		ledger.SeedBalance(tok.Ledger(), a, 10_000)
	}
	require.NoError(t, tok.FreezeAddress(ctx, admin, carol, amt(9_000)))

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := accounts[i%3]
			to := accounts[(i+1)%3]
			_, _ = tok.Transfer(ctx, from, to, amt(700))
		}(i)
	}
	wg.Wait()

	requireInvariants(t, tok, append(accounts, admin, deployer))
}

// interleavingStore runs before once, just ahead of the next SetFrozen.
type interleavingStore struct {
	freeze.Store
	before func()
}

func (s *interleavingStore) SetFrozen(ctx context.Context, account common.Address, amount *uint256.Int) error {
	if s.before != nil {
		before := s.before
		s.before = nil
		before()
	}
	return s.Store.SetFrozen(ctx, account, amount)
}

func TestFreezeAddress_SerializesWithDirectLedgerMutations(t *testing.T) {
	ctx := context.Background()
	store := &interleavingStore{Store: freeze.NewMemoryStore()}
	tok, _ := newTestToken(t, func(_ *Config, d *Deps) { d.Frozen = store })
	ledger.SeedBalance(tok.Ledger(), alice, 500)

	direct := make(chan error, 1)
	store.before = func() {
		go func() {
			direct <- tok.Ledger().Update(ctx, func(tx ledger.Tx) error {
				return tx.Apply(ctx, alice, bob, amt(500))
			})
		}()
		// let the mutation commit first if anything allows it to
		select {
		case err := <-direct:
			direct <- err
		case <-time.After(50 * time.Millisecond):
		}
	}

	require.NoError(t, tok.FreezeAddress(ctx, admin, alice, amt(500)))
	requireAmountError(t, <-direct, tokenerr.ErrInsufficientUnfrozenBalance, 500, 0)
	require.Equal(t, uint64(500), balanceOf(t, tok, alice))
	require.Equal(t, uint64(0), balanceOf(t, tok, bob))
	requireInvariants(t, tok, []common.Address{alice, bob, admin, deployer})
}

// creditSink checks on every publish that the Transfer records seen so far
// account for the whole ledger balance of watched.
type creditSink struct {
	mu         sync.Mutex
	tok        *Token
	watched    common.Address
	credited   *uint256.Int
	mismatches int
}

func (s *creditSink) Publish(ctx context.Context, records ...event.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok == nil {
		return nil
	}
	for _, r := range records {
		if r.Kind != event.KindTransfer || r.Args["to"] != s.watched.Hex() {
			continue
		}
		v, err := uint256.FromDecimal(r.Args["value"])
		if err != nil {
			return err
		}
		s.credited.Add(s.credited, v)
	}
	bal, err := s.tok.Ledger().BalanceOf(ctx, s.watched)
	if err != nil {
		return err
	}
	if !bal.Eq(s.credited) {
		s.mismatches++
	}
	return nil
}

func TestConcurrentTransfersPublishInCommitOrder(t *testing.T) {
	ctx := context.Background()
	sink := &creditSink{watched: bob, credited: new(uint256.Int)}
	log := event.NewLog()
	tok, _ := newTestToken(t, func(_ *Config, d *Deps) { d.Sink = event.Fanout{log, sink} })
	ledger.SeedBalance(tok.Ledger(), alice, 1_000_000)
	sink.mu.Lock()
	sink.tok = tok
	sink.mu.Unlock()

	errs := make(chan error, 50)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tok.Transfer(ctx, alice, bob, amt(1_000))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Zero(t, sink.mismatches)
	require.Equal(t, uint64(50*970), sink.credited.Uint64())

	// each transfer's records stay contiguous and Seq follows publish order
	records := log.Since(3, 0)
	require.Len(t, records, 50*4)
	for i, r := range records {
		require.EqualValues(t, i+4, r.Seq)
	}
	for i := 0; i < len(records); i += 4 {
		require.Equal(t, event.KindTransfer, records[i].Kind)
		require.Equal(t, bob.Hex(), records[i].Args["to"])
		require.Equal(t, event.KindFeeTransferred, records[i+3].Kind)
	}
}

func TestRandomOperationsPreserveFreezeInvariant(t *testing.T) {
	tok, _ := newTestToken(t)
	ctx := context.Background()
	accounts := []common.Address{alice, bob, carol}
	for _, a := range accounts {
		ledger.SeedBalance(tok.Ledger(), a, 5_000)
	}
	all := append([]common.Address{admin, deployer}, accounts...)
	rng := rand.New(rand.NewSource(20240601))

	for i := 0; i < 500; i++ {
		a := accounts[rng.Intn(len(accounts))]
		b := accounts[rng.Intn(len(accounts))]
		v := amt(uint64(rng.Intn(3_000)))
		switch rng.Intn(6) {
		case 0, 1:
			_, _ = tok.Transfer(ctx, a, b, v)
		case 2:
			_ = tok.FreezeAddress(ctx, admin, a, v)
		case 3:
			_ = tok.UnfreezeAddress(ctx, admin, a, v)
		case 4:
			_ = tok.SetFeeRate(ctx, admin, uint64(rng.Intn(1_200)))
		case 5:
			_ = tok.Ledger().Update(ctx, func(tx ledger.Tx) error {
				return tx.Apply(ctx, a, b, v)
			})
		}
		requireInvariants(t, tok, all)
	}
}

func requireInvariants(t *testing.T, tok *Token, accounts []common.Address) {
	t.Helper()
	ctx := context.Background()
	sum := new(uint256.Int)
	for _, a := range accounts {
		bal, err := tok.BalanceOf(ctx, a)
		require.NoError(t, err)
		frozen, err := tok.FrozenBalanceOf(ctx, a)
		require.NoError(t, err)
		require.False(t, frozen.Gt(bal), "frozen %s exceeds balance %s for %s", frozen.Dec(), bal.Dec(), a.Hex())
		sum.Add(sum, bal)
	}
	supply, err := tok.TotalSupply(ctx)
	require.NoError(t, err)
	require.True(t, sum.Eq(supply), "balances %s != supply %s", sum.Dec(), supply.Dec())
}
