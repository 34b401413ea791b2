package services

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/dmitrijs2005/gophidentity/internal/server/password"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// ClientIP is the caller's address as seen by the transport. It is
	// never read from the body.
	ClientIP string `json:"-"`
}

// UpdateInput carries the fields to change; absent fields stay as they are.
// Role is honoured only on administrator updates.
type UpdateInput struct {
	Handle   *string `json:"handle,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// ListInput selects a page of accounts. Zero Limit means DefaultListLimit.
type ListInput struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

func normalizeHandle(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", common.Validation("handle", "handle is required")
	}
	if !handlePattern.MatchString(s) {
		return "", common.Validation("handle", "handle must be 3-32 letters, digits, '_', '.' or '-'")
	}
	return s, nil
}

// NormalizeEmail trims and lower-cases s and checks it is a bare address.
func NormalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", common.Validation("email", "email is required")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return "", common.Validation("email", "email is not a valid address")
	}
	return s, nil
}

func (in RegisterInput) normalize() (RegisterInput, error) {
	var err error
	if in.Handle, err = normalizeHandle(in.Handle); err != nil {
		return in, err
	}
	if in.Email, err = NormalizeEmail(in.Email); err != nil {
		return in, err
	}
	if err := password.Validate(in.Password); err != nil {
		return in, err
	}
	return in, nil
}

// normalize only trims and lower-cases: a malformed email simply matches no
// account, which keeps the rejection identical to a wrong secret.
func (in LoginInput) normalize() (LoginInput, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" {
		return in, common.Validation("email", "email is required")
	}
	if in.Password == "" {
		return in, common.Validation("password", "password is required")
	}
	return in, nil
}

// patch validates the input and converts it to a store patch. The secret is
// validated here but hashed by the caller.
func (in UpdateInput) patch() (models.AccountPatch, error) {
	var p models.AccountPatch
	if in.Handle != nil {
		h, err := normalizeHandle(*in.Handle)
		if err != nil {
			return p, err
		}
		p.Handle = &h
	}
	if in.Email != nil {
		e, err := NormalizeEmail(*in.Email)
		if err != nil {
			return p, err
		}
		p.Email = &e
	}
	if in.Password != nil {
		if err := password.Validate(*in.Password); err != nil {
			return p, err
		}
	}
	if in.Role != nil {
		r, ok := models.ParseRole(strings.TrimSpace(*in.Role))
		if !ok {
			return p, common.Validation("role", "role must be \"standard\" or \"administrator\"")
		}
		p.Role = &r
	}
	if p.Empty() && in.Password == nil {
		return p, common.Validation("", "no fields to update")
	}
	return p, nil
}

func (in ListInput) normalize() (ListInput, error) {
	if in.Offset < 0 {
		return in, common.Validation("offset", "offset must not be negative")
	}
	switch {
	case in.Limit < 0:
		return in, common.Validation("limit", "limit must not be negative")
	case in.Limit == 0:
		in.Limit = DefaultListLimit
	case in.Limit > MaxListLimit:
		in.Limit = MaxListLimit
	}
	return in, nil
}
