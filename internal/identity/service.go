package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/feetoken/internal/tokenerr"
)

// MinSecretLength is the shortest accepted API secret.
const MinSecretLength = 12

// Service manages the credentials lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Repository returns the underlying store.
func (s *Service) Repository() Repository {
	return s.repo
}

// Register binds a hashed secret to an address.
func (s *Service) Register(ctx context.Context, creds Credentials) (Account, error) {
	if creds.Address == (common.Address{}) {
		return Account{}, tokenerr.ErrInvalidAddress
	}
	if len(creds.Secret) < MinSecretLength {
		return Account{}, fmt.Errorf("secret must be at least %d characters", MinSecretLength)
	}

	hash, err := HashSecret(creds.Secret)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		Address:    creds.Address,
		SecretHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// EnsureRegistered registers creds unless the address already has credentials.
func (s *Service) EnsureRegistered(ctx context.Context, creds Credentials) error {
	_, err := s.Register(ctx, creds)
	if errors.Is(err, ErrExists) {
		return nil
	}
	return err
}

// Authenticate verifies a secret and records the login.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Account, error) {
	account, err := s.repo.FindByAddress(ctx, creds.Address)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrInvalidSecret
		}
		return Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword(account.SecretHash, []byte(creds.Secret)); err != nil {
		return Account{}, ErrInvalidSecret
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLogin(ctx, account.Address, now); err != nil {
		return Account{}, err
	}
	account.LastLogin = &now
	return account, nil
}

// HashSecret returns the bcrypt hash stored for secret.
func HashSecret(secret string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
}
