package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kivu-labs/authd/internal/config"
	"github.com/kivu-labs/authd/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		AppName:           "authd-test",
		AppEnv:            "development",
		Port:              "0",
		JWTSecret:         "end-to-end-secret",
		TokenTTL:          time.Hour,
		PasswordMinLength: 6,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(testConfig(), nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := srv.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()

	parsed := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, parsed
}

func TestEndToEndAuthFlow(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, fiber.MethodPost, "/api/auth/register",
		`{"email":"a@x.com","password":"secret1"}`, nil)
	if status != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%v)", status, body)
	}
	acct, ok := body["account"].(map[string]any)
	if !ok {
		t.Fatalf("register: missing account summary in %v", body)
	}
	if acct["email"] != "a@x.com" {
		t.Fatalf("register: expected email a@x.com, got %v", acct["email"])
	}
	if id, _ := acct["id"].(string); id == "" {
		t.Fatalf("register: expected a non-empty account id")
	}
	if _, leaked := acct["password_hash"]; leaked {
		t.Fatalf("register: digest must never appear in responses")
	}

	status, body = do(t, srv, fiber.MethodPost, "/api/auth/login",
		`{"email":"a@x.com","password":"secret1"}`, nil)
	if status != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%v)", status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login: expected a token")
	}

	status, body = do(t, srv, fiber.MethodGet, "/api/auth/me", "",
		map[string]string{fiber.HeaderAuthorization: "Bearer " + token})
	if status != http.StatusOK {
		t.Fatalf("me: expected 200, got %d (%v)", status, body)
	}
	me, ok := body["account"].(map[string]any)
	if !ok || me["email"] != "a@x.com" {
		t.Fatalf("me: expected account a@x.com, got %v", body)
	}

	status, _ = do(t, srv, fiber.MethodPost, "/api/auth/login",
		`{"email":"a@x.com","password":"wrong"}`, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("wrong password login: expected 401, got %d", status)
	}
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, fiber.MethodPost, "/api/auth/register",
		`{"email":"a@x.com","password":"12345"}`, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("short password: expected 400, got %d", status)
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Fatalf("expected an error message body, got %v", body)
	}

	status, _ = do(t, srv, fiber.MethodPost, "/api/auth/register",
		`{"password":"secret1"}`, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("missing email: expected 400, got %d", status)
	}

	// A rejected registration must not have created the account.
	status, _ = do(t, srv, fiber.MethodPost, "/api/auth/login",
		`{"email":"a@x.com","password":"12345"}`, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("login after rejected registration: expected 401, got %d", status)
	}
}

func TestRegisterConflict(t *testing.T) {
	srv := newTestServer(t)

	status, _ := do(t, srv, fiber.MethodPost, "/api/auth/register",
		`{"email":"a@x.com","password":"secret1"}`, nil)
	if status != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", status)
	}

	status, body := do(t, srv, fiber.MethodPost, "/api/auth/register",
		`{"email":"a@x.com","password":"secret2"}`, nil)
	if status != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d (%v)", status, body)
	}
}

func TestLoginFailuresShareClassification(t *testing.T) {
	srv := newTestServer(t)

	do(t, srv, fiber.MethodPost, "/api/auth/register",
		`{"email":"a@x.com","password":"secret1"}`, nil)

	wrongStatus, wrongBody := do(t, srv, fiber.MethodPost, "/api/auth/login",
		`{"email":"a@x.com","password":"nope-nope"}`, nil)
	unknownStatus, unknownBody := do(t, srv, fiber.MethodPost, "/api/auth/login",
		`{"email":"nobody@x.com","password":"secret1"}`, nil)

	if wrongStatus != http.StatusUnauthorized || unknownStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongStatus, unknownStatus)
	}
	if wrongBody["error"] != unknownBody["error"] {
		t.Fatalf("failure bodies must be indistinguishable: %v vs %v", wrongBody, unknownBody)
	}
}

func TestProtectedRouteRejections(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name    string
		headers map[string]string
	}{
		{name: "no header", headers: nil},
		{name: "wrong scheme", headers: map[string]string{fiber.HeaderAuthorization: "Basic abc"}},
		{name: "garbage token", headers: map[string]string{fiber.HeaderAuthorization: "Bearer garbage"}},
	}

	for _, tc := range cases {
		status, body := do(t, srv, fiber.MethodGet, "/api/auth/me", "", tc.headers)
		if status != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, status)
		}
		if msg, _ := body["error"].(string); msg == "" {
			t.Fatalf("%s: expected an error body, got %v", tc.name, body)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, fiber.MethodGet, "/api/auth/health", "", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("service health: got %d %v", status, body)
	}

	status, _ = do(t, srv, fiber.MethodGet, "/", "", nil)
	if status != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", status)
	}

	status, _ = do(t, srv, fiber.MethodGet, "/healthz", "", nil)
	if status != http.StatusOK {
		t.Fatalf("readiness: expected 200, got %d", status)
	}
}

func TestNewRequiresBackendsOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.AppEnv = "production"

	if _, err := New(cfg, nil, nil, logging.Discard()); err == nil {
		t.Fatalf("expected construction to fail without a database in production")
	}
}
