package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kivu-labs/authd/internal/account"
	"github.com/kivu-labs/authd/internal/auth"
)

func setupGate(t *testing.T) (*fiber.App, string) {
	t.Helper()

	svc, err := auth.NewService(account.NewMemoryRepository(), []byte("gate-test-secret"), time.Hour, 6)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	acct, err := svc.Register(context.Background(), "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token, err := svc.IssueToken(acct)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	app := fiber.New()
	app.Get("/protected", RequireAuth(svc), func(c *fiber.Ctx) error {
		id, ok := auth.IdentityFrom(c)
		if !ok {
			return fiber.NewError(http.StatusInternalServerError, "identity missing")
		}
		return c.JSON(fiber.Map{"account_id": id.AccountID, "email": id.Email})
	})

	return app, token
}

func TestRequireAuthRejectsWithoutReachingHandler(t *testing.T) {
	app, _ := setupGate(t)

	cases := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Token abc"},
		{name: "bare token", header: "abc.def.ghi"},
		{name: "garbage token", header: "Bearer not-a-token"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
		if tc.header != "" {
			req.Header.Set(fiber.HeaderAuthorization, tc.header)
		}

		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("%s: app.Test: %v", tc.name, err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, resp.StatusCode)
		}
	}
}

func TestRequireAuthAttachesIdentity(t *testing.T) {
	app, token := setupGate(t)

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRequireAuthIdempotentVerification(t *testing.T) {
	app, token := setupGate(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("attempt %d: app.Test: %v", i, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, resp.StatusCode)
		}
	}
}
