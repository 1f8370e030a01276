package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kivu-labs/authd/internal/account"
	"github.com/kivu-labs/authd/internal/notification"
)

// IdentityKey is the request-locals key under which the access gate stores
// the verified identity.
const IdentityKey = "auth_identity"

// IdentityFrom returns the verified identity attached to the request, if any.
func IdentityFrom(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(IdentityKey).(Identity)
	return id, ok
}

// Handler exposes the register/login/me endpoints.
type Handler struct {
	service  *Service
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewHandler constructs the auth HTTP handler.
func NewHandler(service *Service, notifier notification.Notifier, logger *slog.Logger) *Handler {
	return &Handler{service: service, notifier: notifier, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountSummary struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func summarize(acct account.Account) accountSummary {
	return accountSummary{ID: acct.ID, Email: acct.Email, CreatedAt: acct.CreatedAt}
}

// Register handles account creation.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}

	acct, err := h.service.Register(c.UserContext(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, ErrEmailRequired), errors.Is(err, ErrPasswordTooShort):
		return fiber.NewError(http.StatusBadRequest,
			fmt.Sprintf("email and password (min %d chars) required", h.service.minPasswordLen))
	case errors.Is(err, account.ErrEmailTaken):
		return fiber.NewError(http.StatusConflict, "account already exists")
	default:
		h.logger.Error("register account", slog.Any("error", err))
		return fiber.NewError(http.StatusServiceUnavailable, "service unavailable")
	}

	if h.notifier != nil {
		// Best effort; registration already succeeded.
		_ = h.notifier.Send(c.UserContext(), notification.Message{
			Kind:        notification.KindAccountRegistered,
			Destination: acct.Email,
			Body:        "welcome aboard",
		})
	}

	h.logger.Info("account registered",
		slog.String("account_id", acct.ID),
		slog.String("email", acct.Email),
	)

	return c.Status(http.StatusCreated).JSON(fiber.Map{"account": summarize(acct)})
}

// Login verifies credentials and returns a signed bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}

	token, err := h.service.Authenticate(c.UserContext(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
	default:
		h.logger.Error("authenticate account", slog.Any("error", err))
		return fiber.NewError(http.StatusServiceUnavailable, "service unavailable")
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"token": token})
}

// Me returns the account behind the request's verified identity.
func (h *Handler) Me(c *fiber.Ctx) error {
	id, ok := IdentityFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	acct, err := h.service.Account(c.UserContext(), id.AccountID)
	switch {
	case err == nil:
	case errors.Is(err, account.ErrNotFound):
		// Token outlived its account; it stays cryptographically valid but
		// there is nothing left to report on.
		return fiber.NewError(http.StatusUnauthorized, "invalid token")
	default:
		h.logger.Error("load account", slog.Any("error", err))
		return fiber.NewError(http.StatusServiceUnavailable, "service unavailable")
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"account": summarize(acct)})
}
