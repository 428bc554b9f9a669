// Package identity talks to the identity provider: it verifies session tokens,
// verifies webhook signatures, and calls the backend user API.
package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie the identity provider's frontend SDK sets.
const SessionCookie = "__session"

var (
	ErrMissingToken = errors.New("session token required")
	ErrInvalidToken = errors.New("invalid or expired session token")
	ErrNoVerifier   = errors.New("session verification is not configured")
)

// SessionClaims are the claims carried by a provider session token.
type SessionClaims struct {
	AuthorizedParty string `json:"azp,omitempty"`
	SessionID       string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// SessionVerifier validates RS256 session tokens against the provider's public key.
type SessionVerifier struct {
	key               *rsa.PublicKey
	authorizedParties []string
	leeway            time.Duration
}

// NewSessionVerifier parses pemKey. An empty key yields a verifier that rejects every token.
func NewSessionVerifier(pemKey string, authorizedParties []string) (*SessionVerifier, error) {
	v := &SessionVerifier{authorizedParties: authorizedParties, leeway: 5 * time.Second}
	if pemKey == "" {
		return v, nil
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, fmt.Errorf("parse session public key: %w", err)
	}
	v.key = key
	return v, nil
}

// Verify validates token and returns the caller's user id (the "sub" claim).
func (v *SessionVerifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	if v == nil || v.key == nil {
		return "", ErrNoVerifier
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	if len(v.authorizedParties) > 0 && claims.AuthorizedParty != "" &&
		!slices.Contains(v.authorizedParties, claims.AuthorizedParty) {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
