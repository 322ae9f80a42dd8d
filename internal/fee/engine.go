// Package fee computes the transfer fee split and owns the configurable rate.
package fee

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/congo-pay/feetoken/internal/tokenerr"
)

const (
	// BasisDenominator is 100% expressed in basis points.
	BasisDenominator uint64 = 10_000
	// MaxRate is the highest accepted rate (10%).
	MaxRate uint64 = 1_000
)

// Split returns fee = floor(amount*rate/10000) and net = amount - fee.
func Split(amount *uint256.Int, rate uint64) (feeAmount, netAmount *uint256.Int) {
	feeAmount = new(uint256.Int)
	if amount == nil || amount.IsZero() || rate == 0 {
		return feeAmount, cloneOrZero(amount)
	}
	// the 512-bit intermediate keeps amount*rate from wrapping
	feeAmount.MulDivOverflow(amount, uint256.NewInt(rate), uint256.NewInt(BasisDenominator))
	netAmount = new(uint256.Int).Sub(amount, feeAmount)
	return feeAmount, netAmount
}

// Engine holds the current rate. It is safe for concurrent use.
type Engine struct {
	mu   sync.RWMutex
	rate uint64
}

// NewEngine creates an engine starting at rate.
func NewEngine(rate uint64) (*Engine, error) {
	if rate > MaxRate {
		return nil, tokenerr.FeeRateTooHigh(rate, MaxRate)
	}
	return &Engine{rate: rate}, nil
}

// Split computes the split of amount at the current rate.
func (e *Engine) Split(amount *uint256.Int) (feeAmount, netAmount *uint256.Int) {
	e.mu.RLock()
	rate := e.rate
	e.mu.RUnlock()
	return Split(amount, rate)
}

// SetRate replaces the rate and returns the previous one. The rate is left
// unchanged on failure.
func (e *Engine) SetRate(rate uint64) (uint64, error) {
	if rate > MaxRate {
		return 0, tokenerr.FeeRateTooHigh(rate, MaxRate)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.rate
	e.rate = rate
	return old, nil
}

// Rate returns the current rate.
func (e *Engine) Rate() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rate
}

// RateInfo returns the current and maximum rates.
func (e *Engine) RateInfo() (current, maximum uint64) {
	return e.Rate(), MaxRate
}

func cloneOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
