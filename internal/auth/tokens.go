package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, wrong signing method, malformed payload, or past expiry.
var ErrInvalidToken = errors.New("invalid token")

// accessClaims is the payload of an access token.
type accessClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies the two token classes. Access tokens carry the
// full identity and are short-lived; refresh tokens carry only the subject id
// and are long-lived. Each class has its own secret so one cannot stand in
// for the other.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time // injectable clock for testing
}

// NewTokens creates a token service with the given secrets and lifetimes.
func NewTokens(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssueAccess signs a short-lived access token for the given identity.
func (t *Tokens) IssueAccess(id Identity) (string, error) {
	now := t.now()
	claims := &accessClaims{
		Role:  id.Role,
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// IssueRefresh signs a long-lived refresh token binding only the subject id.
// Role and email are deliberately omitted; they are re-derived from the user
// store on refresh so role changes take effect.
func (t *Tokens) IssueRefresh(subjectID string) (string, error) {
	now := t.now()
	claims := &jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccess checks signature and expiry against the access secret and
// returns the embedded identity.
func (t *Tokens) VerifyAccess(token string) (Identity, error) {
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.accessSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		SubjectID: claims.Subject,
		Role:      claims.Role,
		Email:     claims.Email,
	}, nil
}

// VerifyRefresh checks signature and expiry against the refresh secret and
// returns the subject id.
func (t *Tokens) VerifyRefresh(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.refreshSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
