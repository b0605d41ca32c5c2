package api

import (
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jstrand/taskgate/internal/auth"
	"github.com/jstrand/taskgate/internal/user"
)

// CookieConfig describes the refresh token cookie. The cookie is httpOnly
// and scoped to the auth path so scripts and unrelated endpoints never see
// the long-lived token.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
	MaxAge time.Duration
}

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	users  UserStore
	tokens TokenService
	cookie CookieConfig
}

func newAuthHandler(users UserStore, tokens TokenService, cookie CookieConfig) *authHandler {
	return &authHandler{users: users, tokens: tokens, cookie: cookie}
}

// issueTokens signs the token pair for u and sets the refresh cookie.
func (h *authHandler) issueTokens(w http.ResponseWriter, u *user.User) (string, error) {
	access, err := h.tokens.IssueAccess(auth.Identity{
		SubjectID: u.ID,
		Role:      u.Role,
		Email:     u.Email,
	})
	if err != nil {
		return "", err
	}

	refresh, err := h.tokens.IssueRefresh(u.ID)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    refresh,
		Path:     h.cookie.Path,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	return access, nil
}

// Register handles POST /auth/register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if len(req.Name) < 2 {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "name must be at least 2 characters")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "a valid email is required")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "password must be at least 6 characters")
		return
	}

	u, err := h.users.Create(r.Context(), user.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     auth.RoleUser,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "conflict", "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create user")
		return
	}

	access, err := h.issueTokens(w, u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue tokens")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":        u,
		"accessToken": access,
	})
}

// Login handles POST /auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email and password are required")
		return
	}

	// The same response for unknown email and wrong password, so login
	// can't be used to probe which addresses exist.
	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}
	if !user.CheckPassword(u, req.Password) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}

	access, err := h.issueTokens(w, u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue tokens")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":        u,
		"accessToken": access,
	})
}

// Refresh handles POST /auth/refresh. The user record is reloaded so a role
// change takes effect on the next refresh rather than living in stale access
// tokens forever. No new refresh token is issued: session length is fixed
// from login time.
func (h *authHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookie.Name)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no refresh token")
		return
	}

	subjectID, err := h.tokens.VerifyRefresh(cookie.Value)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
		return
	}

	u, err := h.users.GetByID(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get user")
		return
	}

	access, err := h.tokens.IssueAccess(auth.Identity{
		SubjectID: u.ID,
		Role:      u.Role,
		Email:     u.Email,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue access token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":        u,
		"accessToken": access,
	})
}

// Logout handles POST /auth/logout. The cookie is cleared client-side only;
// an already-captured refresh token stays valid until its natural expiry.
// That is an accepted property of the stateless design, not an oversight.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	u, err := h.users.GetByID(r.Context(), id.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, u)
}
