package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jstrand/taskgate/internal/auth"
	"github.com/jstrand/taskgate/internal/user"
)

func refreshCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "rtk" {
			return c
		}
	}
	t.Fatal("expected rtk cookie in response")
	return nil
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name":     "Alice",
		"email":    "Alice@Example.com",
		"password": "secret1",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rr.Code, rr.Body.String())
	}

	var body struct {
		User        user.User `json:"user"`
		AccessToken string    `json:"accessToken"`
	}
	decodeBody(t, rr, &body)

	if body.User.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", body.User.Email)
	}
	if body.User.Role != auth.RoleUser {
		t.Errorf("expected role user, got %q", body.User.Role)
	}
	if body.AccessToken == "" {
		t.Error("expected access token in response")
	}

	// Access token must verify and carry the new identity.
	id, err := env.tokens.VerifyAccess(body.AccessToken)
	if err != nil {
		t.Fatalf("verifying issued access token: %v", err)
	}
	if id.SubjectID != body.User.ID || id.Role != auth.RoleUser {
		t.Errorf("unexpected identity in token: %+v", id)
	}

	cookie := refreshCookie(t, rr)
	if !cookie.HttpOnly {
		t.Error("refresh cookie must be httpOnly")
	}
	if cookie.Path != "/auth" {
		t.Errorf("expected cookie path /auth, got %q", cookie.Path)
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("expected SameSite=Strict, got %v", cookie.SameSite)
	}
	if _, err := env.tokens.VerifyRefresh(cookie.Value); err != nil {
		t.Errorf("cookie does not hold a valid refresh token: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short name", map[string]string{"name": "A", "email": "a@example.com", "password": "secret1"}},
		{"bad email", map[string]string{"name": "Alice", "email": "not-an-email", "password": "secret1"}},
		{"short password", map[string]string{"name": "Alice", "email": "a@example.com", "password": "12345"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/auth/register", "", tt.body)
			assertErrorCode(t, rr, http.StatusUnprocessableEntity, "validation_error")
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Alice", "alice@example.com", auth.RoleUser)

	rr := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name":     "Other Alice",
		"email":    "ALICE@example.com",
		"password": "secret1",
	})
	assertErrorCode(t, rr, http.StatusConflict, "conflict")
}

func TestRegisterIgnoresClientSuppliedRole(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name":     "Mallory",
		"email":    "mallory@example.com",
		"password": "secret1",
		"role":     "admin",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	var body struct {
		User user.User `json:"user"`
	}
	decodeBody(t, rr, &body)
	if body.User.Role != auth.RoleUser {
		t.Errorf("expected role user regardless of request, got %q", body.User.Role)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.seedUser(t, "Alice", "alice@example.com", auth.RoleManager)

	rr := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "ALICE@example.com",
		"password": "password123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rr.Code, rr.Body.String())
	}

	var body struct {
		User        user.User `json:"user"`
		AccessToken string    `json:"accessToken"`
	}
	decodeBody(t, rr, &body)

	if body.User.ID != u.ID {
		t.Errorf("expected user %s, got %s", u.ID, body.User.ID)
	}

	id, err := env.tokens.VerifyAccess(body.AccessToken)
	if err != nil {
		t.Fatalf("verifying access token: %v", err)
	}
	if id.Role != auth.RoleManager {
		t.Errorf("expected manager role in token, got %q", id.Role)
	}

	refreshCookie(t, rr)
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Alice", "alice@example.com", auth.RoleUser)

	// Wrong password and unknown email produce the same response.
	wrongPass := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	unknown := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "password123",
	})

	assertErrorCode(t, wrongPass, http.StatusUnauthorized, "unauthorized")
	assertErrorCode(t, unknown, http.StatusUnauthorized, "unauthorized")

	if wrongPass.Body.String() != unknown.Body.String() {
		t.Error("bad-password and unknown-email responses must be indistinguishable")
	}
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.seedUser(t, "Alice", "alice@example.com", auth.RoleUser)

	refresh, err := env.tokens.IssueRefresh(u.ID)
	if err != nil {
		t.Fatalf("issuing refresh token: %v", err)
	}

	// Promote after the refresh token was minted.
	u.Role = auth.RoleManager

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "rtk", Value: refresh})
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rr.Code, rr.Body.String())
	}

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	decodeBody(t, rr, &body)

	id, err := env.tokens.VerifyAccess(body.AccessToken)
	if err != nil {
		t.Fatalf("verifying refreshed access token: %v", err)
	}
	if id.Role != auth.RoleManager {
		t.Errorf("expected refreshed token to carry new role, got %q", id.Role)
	}

	// No new refresh cookie: session length is fixed from login.
	for _, c := range rr.Result().Cookies() {
		if c.Name == "rtk" {
			t.Error("refresh must not rotate the refresh token")
		}
	}
}

func TestRefreshRejects(t *testing.T) {
	env := newTestEnv(t)
	u, access := env.seedUser(t, "Alice", "alice@example.com", auth.RoleUser)

	tests := []struct {
		name   string
		cookie string
	}{
		{"no cookie", ""},
		{"garbage token", "not.a.jwt"},
		// An access token in the refresh cookie must fail: the classes
		// are signed with independent secrets.
		{"access token as refresh", access},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "rtk", Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			env.router.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rr.Code)
			}
		})
	}

	t.Run("deleted user", func(t *testing.T) {
		refresh, err := env.tokens.IssueRefresh(u.ID)
		if err != nil {
			t.Fatalf("issuing refresh token: %v", err)
		}
		delete(env.users.users, u.ID)

		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "rtk", Value: refresh})
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for deleted user, got %d", rr.Code)
		}
	})
}

func TestRefreshStoreFailureIsServerError(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.seedUser(t, "Alice", "alice@example.com", auth.RoleUser)

	refresh, err := env.tokens.IssueRefresh(u.ID)
	if err != nil {
		t.Fatalf("issuing refresh token: %v", err)
	}

	// A store outage is not an invalid token; the client should retry, not
	// re-authenticate.
	env.users.getByIDErr = errors.New("connection refused")

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "rtk", Value: refresh})
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assertErrorCode(t, rr, http.StatusInternalServerError, "internal_error")
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/auth/logout", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	cookie := refreshCookie(t, rr)
	if cookie.MaxAge >= 0 {
		t.Errorf("expected expired cookie, got MaxAge %d", cookie.MaxAge)
	}
	if cookie.Value != "" {
		t.Errorf("expected empty cookie value, got %q", cookie.Value)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.seedUser(t, "Alice", "alice@example.com", auth.RoleAdmin)

	rr := env.do(t, http.MethodGet, "/auth/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	raw := rr.Body.String()

	var body user.User
	decodeBody(t, rr, &body)
	if body.ID != u.ID || body.Email != u.Email {
		t.Errorf("unexpected user in response: %+v", body)
	}

	// Password hash never leaves the server.
	if strings.Contains(raw, u.PasswordHash) {
		t.Error("password hash must not be serialized")
	}
}
