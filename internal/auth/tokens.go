package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "feetoken"

// Claims are carried by access and refresh tokens. The subject is the
// checksummed address; Version must match the stored token version.
type Claims struct {
	Version int `json:"ver"`
	jwt.RegisteredClaims
}

// Address returns the subject as an address.
func (c Claims) Address() (common.Address, error) {
	if !common.IsHexAddress(c.Subject) {
		return common.Address{}, fmt.Errorf("subject %q is not an address", c.Subject)
	}
	return common.HexToAddress(c.Subject), nil
}

// Sign issues an HS256 token for address valid for ttl.
func Sign(address common.Address, version int, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address.Hex(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies the signature and expiry of token and returns its claims.
func Parse(token string, secret []byte) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return Claims{}, err
	}
	if !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return claims, nil
}
