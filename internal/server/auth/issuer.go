package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/server/config"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/dmitrijs2005/gophidentity/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// Option tweaks an Issuer or Verifier.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Issuer signs session and service tokens.
type Issuer struct {
	sessionSecret []byte
	serviceSecret []byte
	issuer        string
	sessionTTL    time.Duration
	serviceTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(cfg *config.Config, opts ...Option) *Issuer {
	o := buildOptions(opts)
	return &Issuer{
		sessionSecret: []byte(cfg.SessionSecret),
		serviceSecret: []byte(cfg.ServiceSecret),
		issuer:        cfg.TokenIssuer,
		sessionTTL:    cfg.SessionTokenTTL,
		serviceTTL:    cfg.ServiceTokenTTL,
		now:           o.now,
	}
}

// IssueSessionToken mints a session token. The administrator flag is derived
// from role, never supplied directly.
func (i *Issuer) IssueSessionToken(accountID string, role models.Role, handle, email string) (string, error) {
	if accountID == "" {
		return "", errors.New("account id is required")
	}
	rc, err := i.registered(accountID, AudienceSession, i.sessionTTL)
	if err != nil {
		return "", err
	}
	claims := SessionClaims{
		RegisteredClaims: rc,
		Admin:            role == models.RoleAdministrator,
		Handle:           handle,
		Email:            email,
	}
	return sign(claims, i.sessionSecret)
}

// IssueServiceToken mints a token asserting that the bearer is an internal
// caller of the given type, e.g. "gateway".
func (i *Issuer) IssueServiceToken(callerType string) (string, error) {
	if callerType == "" {
		return "", errors.New("caller type is required")
	}
	rc, err := i.registered(callerType, AudienceService, i.serviceTTL)
	if err != nil {
		return "", err
	}
	return sign(ServiceClaims{RegisteredClaims: rc, Caller: callerType}, i.serviceSecret)
}

func (i *Issuer) registered(subject, audience string, ttl time.Duration) (jwt.RegisteredClaims, error) {
	id, err := shared.MakeRandHexString(16)
	if err != nil {
		return jwt.RegisteredClaims{}, fmt.Errorf("token id: %w", err)
	}
	now := i.now()
	return jwt.RegisteredClaims{
		ID:        id,
		Issuer:    i.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}, nil
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}
