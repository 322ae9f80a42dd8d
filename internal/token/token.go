// Package token implements a fee-charging, freezable fungible token on top of
// a ledger backend. Every operation on a Token is serialized; every ledger
// mutation passes through the freeze enforcer installed at construction.
package token

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/atomic"

	"github.com/congo-pay/feetoken/internal/asset"
	"github.com/congo-pay/feetoken/internal/event"
	"github.com/congo-pay/feetoken/internal/fee"
	"github.com/congo-pay/feetoken/internal/freeze"
	"github.com/congo-pay/feetoken/internal/ledger"
	"github.com/congo-pay/feetoken/internal/tokenerr"
)

const (
	// Decimals is the token's decimal precision.
	Decimals = 18
	// InitialUnits is the whole-unit supply minted at genesis.
	InitialUnits = 21_314
)

// InitialSupply returns InitialUnits scaled by 10^Decimals.
func InitialSupply() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(InitialUnits), uint256.NewInt(1_000_000_000_000_000_000))
}

// Config describes a token at genesis.
type Config struct {
	Name   string
	Symbol string
	// Address identifies the token itself; it can never be recovered.
	Address  common.Address
	Deployer common.Address
	Admin    common.Address
	// InitialFeeRate is in basis points.
	InitialFeeRate uint64
}

// Deps carries the collaborators of a Token. OpenLedger is required; it is
// handed the freeze enforcer hook and must install it.
type Deps struct {
	OpenLedger func(opts ...ledger.Option) ledger.Ledger
	Frozen     freeze.Store
	Settings   SettingsStore
	Assets     *asset.Directory
	Sink       event.Sink
	Metrics    *Metrics
	Logger     *slog.Logger
}

// Token is the transfer orchestrator and admin surface.
type Token struct {
	mu sync.RWMutex

	cfg      Config
	ledger   ledger.Ledger
	frozen   *freeze.Registry
	fees     *fee.Engine
	settings SettingsStore
	assets   *asset.Directory
	sink     event.Sink
	metrics  *Metrics
	logger   *slog.Logger

	owner  common.Address
	paused *atomic.Bool
}

// New opens the token, minting the initial supply to the deployer and handing
// ownership to the admin the first time it runs against empty stores.
func New(ctx context.Context, cfg Config, deps Deps) (*Token, error) {
	if deps.OpenLedger == nil {
		return nil, fmt.Errorf("ledger opener is required")
	}
	zero := common.Address{}
	switch {
	case cfg.Address == zero:
		return nil, fmt.Errorf("token address: %w", tokenerr.ErrInvalidAddress)
	case cfg.Deployer == zero:
		return nil, fmt.Errorf("deployer address: %w", tokenerr.ErrInvalidAddress)
	case cfg.Admin == zero:
		return nil, fmt.Errorf("admin address: %w", tokenerr.ErrInvalidAddress)
	}

	fees, err := fee.NewEngine(cfg.InitialFeeRate)
	if err != nil {
		return nil, err
	}
	if deps.Frozen == nil {
		deps.Frozen = freeze.NewMemoryStore()
	}
	if deps.Settings == nil {
		deps.Settings = NewMemorySettings()
	}
	if deps.Assets == nil {
		deps.Assets = asset.NewDirectory()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	t := &Token{
		cfg:      cfg,
		frozen:   freeze.NewRegistry(deps.Frozen),
		fees:     fees,
		settings: deps.Settings,
		assets:   deps.Assets,
		sink:     deps.Sink,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		paused:   atomic.NewBool(false),
	}
	t.ledger = deps.OpenLedger(ledger.WithMutationHook(t.enforce))

	saved, found, err := t.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load token settings: %w", err)
	}
	if found {
		if _, err := t.fees.SetRate(saved.FeeRate); err != nil {
			return nil, fmt.Errorf("stored fee rate: %w", err)
		}
		t.owner = saved.Owner
		t.paused.Store(saved.Paused)
		t.metrics.setPaused(saved.Paused)
		t.logger.Info("token opened", "owner", saved.Owner.Hex(), "fee_rate", saved.FeeRate, "paused", saved.Paused)
		return t, nil
	}

	records, err := t.genesis(ctx)
	if err != nil {
		return nil, err
	}
	t.publish(ctx, records)
	t.logger.Info("token initialized", "owner", t.owner.Hex(), "supply", InitialSupply().Dec())
	return t, nil
}

func (t *Token) genesis(ctx context.Context) ([]event.Record, error) {
	var records []event.Record
	supply, err := t.ledger.TotalSupply(ctx)
	if err != nil {
		return nil, err
	}
	// a non-empty ledger means a previous genesis minted but did not save settings
	if supply.IsZero() {
		initial := InitialSupply()
		if err := t.ledger.Update(ctx, func(tx ledger.Tx) error {
			return tx.Apply(ctx, common.Address{}, t.cfg.Deployer, initial)
		}); err != nil {
			return nil, fmt.Errorf("mint initial supply: %w", err)
		}
		records = append(records, event.Transfer(common.Address{}, t.cfg.Deployer, initial))
	}

	records = append(records, event.OwnershipTransferred(common.Address{}, t.cfg.Deployer))
	if t.cfg.Admin != t.cfg.Deployer {
		records = append(records, event.OwnershipTransferred(t.cfg.Deployer, t.cfg.Admin))
	}
	t.owner = t.cfg.Admin
	if err := t.saveSettings(ctx, t.owner, t.fees.Rate(), false); err != nil {
		return nil, err
	}
	return records, nil
}

func (t *Token) saveSettings(ctx context.Context, owner common.Address, rate uint64, paused bool) error {
	err := t.settings.Save(ctx, Settings{Owner: owner, FeeRate: rate, Paused: paused, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("save token settings: %w", err)
	}
	return nil
}

// Address returns the token's own identifier.
func (t *Token) Address() common.Address {
	return t.cfg.Address
}

// Ledger exposes the underlying ledger. Every mutation made through it is
// still checked by the freeze enforcer.
func (t *Token) Ledger() ledger.Ledger {
	return t.ledger
}

// Owner returns the current administrator.
func (t *Token) Owner(ctx context.Context) common.Address {
	defer t.rlock(ctx)()
	return t.owner
}

// Paused reports whether transfers are paused.
func (t *Token) Paused() bool {
	return t.paused.Load()
}

// BalanceOf returns the total balance of account.
func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	defer t.rlock(ctx)()
	return t.ledger.BalanceOf(ctx, account)
}

// TotalSupply returns the issued supply.
func (t *Token) TotalSupply(ctx context.Context) (*uint256.Int, error) {
	defer t.rlock(ctx)()
	return t.ledger.TotalSupply(ctx)
}

// Allowance returns how much spender may still move out of owner's balance.
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error) {
	defer t.rlock(ctx)()
	return t.ledger.Allowance(ctx, owner, spender)
}

// FrozenBalanceOf returns the frozen amount of account.
func (t *Token) FrozenBalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	defer t.rlock(ctx)()
	return t.frozen.FrozenOf(ctx, account)
}

// AvailableBalanceOf returns the balance of account that is not frozen.
func (t *Token) AvailableBalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	defer t.rlock(ctx)()
	return t.availableIn(ctx, t.ledger, account)
}

// FeeRateInfo returns the current and maximum fee rates in basis points.
func (t *Token) FeeRateInfo() (current, maximum uint64) {
	return t.fees.RateInfo()
}

// CalculateTransferFee returns the fee and net split of amount at the current rate.
func (t *Token) CalculateTransferFee(amount *uint256.Int) (feeAmount, netAmount *uint256.Int) {
	return t.fees.Split(amount)
}

// Info is an aggregated read-only snapshot of the token.
type Info struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *uint256.Int
	Owner       common.Address
	FeeRate     uint64
	MaxFeeRate  uint64
	Paused      bool
	Address     common.Address
}

// ContractInfo returns a snapshot of the token's metadata and configuration.
func (t *Token) ContractInfo(ctx context.Context) (Info, error) {
	defer t.rlock(ctx)()
	supply, err := t.ledger.TotalSupply(ctx)
	if err != nil {
		return Info{}, err
	}
	current, maximum := t.fees.RateInfo()
	return Info{
		Name:        t.cfg.Name,
		Symbol:      t.cfg.Symbol,
		Decimals:    Decimals,
		TotalSupply: supply,
		Owner:       t.owner,
		FeeRate:     current,
		MaxFeeRate:  maximum,
		Paused:      t.paused.Load(),
		Address:     t.cfg.Address,
	}, nil
}
