package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
)

const callerLocal = "caller"

// TokenVerifier resolves an access token to the address it was issued for.
type TokenVerifier interface {
	Authenticate(ctx context.Context, accessToken string) (common.Address, error)
}

// JWTAuth returns a middleware that validates access tokens and stores the
// caller address for the handlers behind it.
func JWTAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		address, err := verifier.Authenticate(c.UserContext(), tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}

		c.Locals(callerLocal, address)
		return c.Next()
	}
}

// CallerFrom returns the address authenticated by JWTAuth.
func CallerFrom(c *fiber.Ctx) (common.Address, bool) {
	address, ok := c.Locals(callerLocal).(common.Address)
	return address, ok
}
