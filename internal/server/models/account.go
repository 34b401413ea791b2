package models

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleStandard      Role = "standard"
	RoleAdministrator Role = "administrator"
)

// ParseRole accepts the two known roles and nothing else.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleStandard, RoleAdministrator:
		return Role(s), true
	}
	return "", false
}

// Account is the persisted identity record. CredentialHash never leaves
// the service; use View for anything caller-facing.
type Account struct {
	ID             string
	Handle         string
	Email          string
	CredentialHash string `json:"-"`
	Role           Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a *Account) IsAdministrator() bool {
	return a.Role == RoleAdministrator
}

// View strips credential material from the account.
func (a *Account) View() AccountView {
	return AccountView{
		ID:              a.ID,
		Handle:          a.Handle,
		Email:           a.Email,
		IsAdministrator: a.IsAdministrator(),
		CreatedAt:       a.CreatedAt,
	}
}

// AccountView is the only account shape returned to callers.
type AccountView struct {
	ID              string    `json:"id"`
	Handle          string    `json:"handle"`
	Email           string    `json:"email"`
	IsAdministrator bool      `json:"isAdministrator"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AccountPatch lists the fields an update writes. Nil fields are left
// untouched by the store.
type AccountPatch struct {
	Handle         *string
	Email          *string
	CredentialHash *string
	Role           *Role
}

func (p AccountPatch) Empty() bool {
	return p.Handle == nil && p.Email == nil && p.CredentialHash == nil && p.Role == nil
}

// RoleCounts is the result of a per-role count over all accounts.
type RoleCounts struct {
	Total          int64 `json:"total"`
	Administrators int64 `json:"administrators"`
}

// Standard is implied: every account that is not an administrator.
func (c RoleCounts) Standard() int64 {
	return c.Total - c.Administrators
}
