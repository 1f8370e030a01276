package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kivu-labs/authd/internal/auth"
)

const bearerPrefix = "Bearer "

// TokenVerifier validates a bearer token and returns the identity it asserts.
type TokenVerifier interface {
	VerifyToken(tokenString string) (auth.Identity, error)
}

// RequireAuth gates protected routes. It extracts the Bearer token from the
// Authorization header, verifies it, and attaches the verified identity to
// the request before handing off. Missing, malformed and invalid tokens all
// reject with 401 without reaching the downstream handler; no store lookup
// happens on this path.
func RequireAuth(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}

		raw := strings.TrimSpace(authz[len(bearerPrefix):])
		identity, err := tokens.VerifyToken(raw)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(auth.IdentityKey, identity)
		return c.Next()
	}
}
