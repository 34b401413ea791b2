// Package auth mints and verifies the two bearer token families: session
// tokens for end users and service tokens for trusted internal callers.
// Each family has its own secret and audience, so neither can be replayed
// as the other.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AudienceSession = "session"
	AudienceService = "service"

	// CallerBypass marks requests admitted by the non-production trust-gate
	// bypass rather than by a service token.
	CallerBypass = "bypass"
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Admin  bool   `json:"adm"`
	Handle string `json:"handle"`
	Email  string `json:"email"`
}

// ServiceClaims is the payload of a service token.
type ServiceClaims struct {
	jwt.RegisteredClaims
	Caller string `json:"caller"`
}

// Identity is the end user reconstructed from a verified session token.
type Identity struct {
	AccountID       string
	IsAdministrator bool
	Handle          string
	Email           string
	ExpiresAt       time.Time
}

// CallerInfo describes the internal caller proven by a service token.
type CallerInfo struct {
	Type      string
	ExpiresAt time.Time
}
