package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kivu-labs/authd/internal/auth"
	"github.com/kivu-labs/authd/internal/middleware"
)

// RegisterAuthRoutes wires the public register/login endpoints and the
// token-gated profile endpoint under /api/auth.
func RegisterAuthRoutes(app *fiber.App, h *auth.Handler, tokens middleware.TokenVerifier) {
	group := app.Group("/api/auth")

	group.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok", "service": "auth-service"})
	})

	group.Post("/register", h.Register)
	group.Post("/login", h.Login)

	protected := group.Group("", middleware.RequireAuth(tokens))
	protected.Get("/me", h.Me)
}
