// Package asset resolves external fungible assets that the token may hold and
// recover on its owner's behalf.
package asset

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrUnknownAsset occurs when no asset is registered under an address.
var ErrUnknownAsset = errors.New("unknown asset")

// Asset is an external ledger able to move a holder's balance. Implementations
// must pass ctx on to any call they make back into the token.
type Asset interface {
	Transfer(ctx context.Context, holder, to common.Address, amount *uint256.Int) error
}

// Func adapts a function to the Asset interface.
type Func func(ctx context.Context, holder, to common.Address, amount *uint256.Int) error

// Transfer calls f.
func (f Func) Transfer(ctx context.Context, holder, to common.Address, amount *uint256.Int) error {
	return f(ctx, holder, to, amount)
}

// Directory maps asset addresses to their implementation.
type Directory struct {
	mu     sync.RWMutex
	assets map[common.Address]Asset
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{assets: make(map[common.Address]Asset)}
}

// Register binds id to a.
func (d *Directory) Register(id common.Address, a Asset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assets[id] = a
}

// Resolve returns the asset registered under id.
func (d *Directory) Resolve(id common.Address) (Asset, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.assets[id]
	if !ok {
		return nil, ErrUnknownAsset
	}
	return a, nil
}
