package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/config"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks tokens minted by Issuer. It is stateless and safe for
// concurrent use.
type Verifier struct {
	sessionSecret []byte
	serviceSecret []byte
	issuer        string
	now           func() time.Time
}

func NewVerifier(cfg *config.Config, opts ...Option) *Verifier {
	o := buildOptions(opts)
	return &Verifier{
		sessionSecret: []byte(cfg.SessionSecret),
		serviceSecret: []byte(cfg.ServiceSecret),
		issuer:        cfg.TokenIssuer,
		now:           o.now,
	}
}

// VerifySessionToken returns the identity carried by raw. Every failure is
// the same generic authentication error.
func (v *Verifier) VerifySessionToken(raw string) (*Identity, error) {
	claims := &SessionClaims{}
	if err := v.parse(raw, claims, v.sessionSecret, AudienceSession); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, invalidToken(errors.New("missing subject"))
	}
	return &Identity{
		AccountID:       claims.Subject,
		IsAdministrator: claims.Admin,
		Handle:          claims.Handle,
		Email:           claims.Email,
		ExpiresAt:       claims.ExpiresAt.Time,
	}, nil
}

// VerifyServiceToken returns the caller proven by raw.
func (v *Verifier) VerifyServiceToken(raw string) (*CallerInfo, error) {
	claims := &ServiceClaims{}
	if err := v.parse(raw, claims, v.serviceSecret, AudienceService); err != nil {
		return nil, err
	}
	if claims.Caller == "" {
		return nil, invalidToken(errors.New("missing caller"))
	}
	return &CallerInfo{Type: claims.Caller, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (v *Verifier) parse(raw string, claims jwt.Claims, secret []byte, audience string) error {
	if raw == "" {
		return invalidToken(errors.New("empty token"))
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, parserOpts...)
	if err != nil {
		return invalidToken(err)
	}
	if !token.Valid {
		return invalidToken(common.ErrInvalidToken)
	}
	return nil
}

func invalidToken(cause error) error {
	return &common.Error{
		Kind:    common.KindAuthentication,
		Message: "invalid token",
		Err:     fmt.Errorf("%w: %v", common.ErrInvalidToken, cause),
	}
}
