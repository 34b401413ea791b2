// Package policy decides whether a resolved caller may act on a target
// account. The functions are pure and return classified errors.
package policy

import (
	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
)

// RequireIdentity fails with an authentication error when no end user is
// attached to the request.
func RequireIdentity(id *auth.Identity) error {
	if id == nil {
		return common.Unauthenticated("authentication required")
	}
	return nil
}

// RequireAdmin admits administrators only.
func RequireAdmin(id *auth.Identity) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if !id.IsAdministrator {
		return common.Forbidden("administrator role required")
	}
	return nil
}

// RequireSelfOrAdmin admits the owner of targetID or an administrator.
func RequireSelfOrAdmin(id *auth.Identity, targetID string) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if id.AccountID != targetID && !id.IsAdministrator {
		return common.Forbidden("not allowed to act on this account")
	}
	return nil
}

// CanChangeRole guards role transitions. Only administrators may change a
// role, which is what prevents self-promotion.
func CanChangeRole(id *auth.Identity) error {
	if err := RequireAdmin(id); err != nil {
		return common.Forbidden("role changes require an administrator")
	}
	return nil
}
