// Package credentials models the opaque bearer credential the gateway
// forwards to the backend. The gateway never validates signatures (that is
// the backend's authority); it only checks presence and, when the token is a
// readable JWT, expiry, so missing identity fails fast instead of surfacing
// as a generic network error.
package credentials

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissing means no credential was supplied.
	ErrMissing = errors.New("missing credential")
	// ErrExpired means the credential is a JWT whose expiry has passed.
	ErrExpired = errors.New("expired credential")
)

// Credential is an opaque bearer token.
type Credential string

// FromHeader extracts a bearer credential from an Authorization header value.
func FromHeader(header string) (Credential, error) {
	if header == "" {
		return "", ErrMissing
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrMissing
	}
	return Credential(parts[1]), nil
}

// Check fails fast on an absent or locally-expired credential. Tokens that do
// not parse as JWTs are passed through untouched; the backend decides.
func (c Credential) Check() error {
	if c == "" {
		return ErrMissing
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(string(c), claims); err != nil {
		return nil // opaque token, not ours to judge
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if time.Now().After(exp.Time) {
		return ErrExpired
	}
	return nil
}

// Subject returns the JWT subject or user_id claim when the credential is a
// readable JWT, or the whole token otherwise. It keys in-flight attempts per
// user without trusting the token contents for anything else.
func (c Credential) Subject() string {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(string(c), claims); err != nil {
		return string(c)
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub
	}
	if id, ok := claims["user_id"].(string); ok && id != "" {
		return id
	}
	return string(c)
}
