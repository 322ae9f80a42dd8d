package auth

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/congo-pay/feetoken/internal/config"
	"github.com/congo-pay/feetoken/internal/identity"
)

var (
	// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked occurs when a token predates the last logout.
	ErrTokenRevoked = errors.New("token version invalidated")
)

type Service struct {
	cfg    config.Config
	idRepo identity.Repository
}

func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues tokens for an account already authenticated by identity.Service.
func (s *Service) Login(account identity.Account) (TokenPair, error) {
	access, accessExp, err := Sign(account.Address, account.TokenVersion, []byte(s.cfg.JWTSecret), s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := Sign(account.Address, account.TokenVersion, []byte(s.cfg.RefreshSecret), s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(time.Until(accessExp).Seconds())}, nil
}

// Refresh verifies the refresh token and returns a new access token if valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	address, version, err := s.verify(ctx, refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	signed, _, err := Sign(address, version, []byte(s.cfg.JWTSecret), s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Authenticate verifies an access token and returns the address it speaks for.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (common.Address, error) {
	address, _, err := s.verify(ctx, accessToken, s.cfg.JWTSecret)
	return address, err
}

// Logout increments the token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, address common.Address) error {
	account, err := s.idRepo.FindByAddress(ctx, address)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, account.Address, account.TokenVersion+1)
}

func (s *Service) verify(ctx context.Context, token, secret string) (common.Address, int, error) {
	claims, err := Parse(token, []byte(secret))
	if err != nil {
		return common.Address{}, 0, ErrInvalidToken
	}
	address, err := claims.Address()
	if err != nil {
		return common.Address{}, 0, ErrInvalidToken
	}
	account, err := s.idRepo.FindByAddress(ctx, address)
	if err != nil {
		return common.Address{}, 0, ErrTokenRevoked
	}
	if account.TokenVersion != claims.Version {
		return common.Address{}, 0, ErrTokenRevoked
	}
	return address, claims.Version, nil
}
