package identity

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotFound occurs when no credentials exist for an address.
	ErrNotFound = errors.New("credentials not found")
	// ErrExists occurs when credentials are registered twice for an address.
	ErrExists = errors.New("credentials already registered")
	// ErrInvalidSecret occurs when a login secret does not match.
	ErrInvalidSecret = errors.New("invalid secret")
)

// Account holds the API credentials bound to a ledger address.
type Account struct {
	Address      common.Address
	SecretHash   []byte
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Credentials request structure.
type Credentials struct {
	Address common.Address
	Secret  string
}
