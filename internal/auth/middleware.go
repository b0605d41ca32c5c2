package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey int

const identityContextKey contextKey = iota

// ContextWithIdentity returns a new context carrying the given identity.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext extracts the identity from the context. ok is false if
// the request never passed RequireAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// AccessVerifier resolves a raw access token to an identity.
type AccessVerifier interface {
	VerifyAccess(token string) (Identity, error)
}

// Failure reasons passed to RequireAuth observers.
const (
	FailureMissingToken = "missing_token"
	FailureInvalidToken = "invalid_token"
)

// RequireAuth returns middleware that authenticates requests using a bearer
// access token in the Authorization header. On success the identity is
// injected into the request context; downstream handlers treat it as
// read-only. Optional observers are invoked with the outcome (for metrics).
func RequireAuth(verifier AccessVerifier, onResult ...func(ok bool, reason string)) func(http.Handler) http.Handler {
	report := func(ok bool, reason string) {
		for _, fn := range onResult {
			fn(ok, reason)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				report(false, FailureMissingToken)
				writeUnauthorized(w, "missing access token")
				return
			}

			id, err := verifier.VerifyAccess(token)
			if err != nil {
				report(false, FailureInvalidToken)
				writeUnauthorized(w, "invalid or expired access token")
				return
			}

			report(true, "")
			ctx := ContextWithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that rejects authenticated requests whose
// identity role is not in the allowed set. Must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeUnauthorized(w, "not authenticated")
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				writeForbidden(w, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{
			Code:    "unauthorized",
			Message: message,
		},
	})
}

func writeForbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{
			Code:    "forbidden",
			Message: message,
		},
	})
}
