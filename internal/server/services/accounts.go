package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/dbx"
	"github.com/dmitrijs2005/gophidentity/internal/logging"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/dmitrijs2005/gophidentity/internal/server/password"
	"github.com/dmitrijs2005/gophidentity/internal/server/policy"
	"github.com/dmitrijs2005/gophidentity/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophidentity/internal/server/repositories/accounts"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// invalidCredentials is the one rejection every failed login gets, whatever
// the cause.
const invalidCredentials = "invalid email or password"

// SessionIssuer mints session tokens.
type SessionIssuer interface {
	IssueSessionToken(accountID string, role models.Role, handle, email string) (string, error)
}

// AuthResult is returned by operations that hand the caller a new session.
type AuthResult struct {
	Token   string             `json:"token"`
	Account models.AccountView `json:"account"`
}

// ListResult is one page of accounts.
type ListResult struct {
	Accounts []models.AccountView `json:"accounts"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
	Total    int64                `json:"total"`
}

// Stats is the per-role account census.
type Stats struct {
	Total          int64 `json:"total"`
	Administrators int64 `json:"administrators"`
	Standard       int64 `json:"standard"`
}

// AccountService implements the account operations. Every method re-checks
// authorization with package policy, so it is safe to call from any
// transport.
type AccountService struct {
	store        accounts.Repository
	hasher       password.Hasher
	issuer       SessionIssuer
	limiter      ratelimit.LoginLimiter
	log          logging.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// ServiceOption tweaks an AccountService.
type ServiceOption func(*AccountService)

// WithLoginLimiter enables login throttling.
func WithLoginLimiter(l ratelimit.LoginLimiter) ServiceOption {
	return func(s *AccountService) { s.limiter = l }
}

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) ServiceOption {
	return func(s *AccountService) { s.storeTimeout = d }
}

// WithLogger sets the service logger.
func WithLogger(l logging.Logger) ServiceOption {
	return func(s *AccountService) { s.log = l }
}

// WithNow replaces time.Now, for tests.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *AccountService) { s.now = now }
}

func NewAccountService(store accounts.Repository, hasher password.Hasher, issuer SessionIssuer, opts ...ServiceOption) *AccountService {
	s := &AccountService{
		store:   store,
		hasher:  hasher,
		issuer:  issuer,
		limiter: ratelimit.Nop{},
		log:     logging.Nop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "accounts")
	return s
}

// call runs one store operation under the store timeout and classifies
// its failure. common.ErrorNotFound is passed through for the caller to
// name the missing resource.
func (s *AccountService) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := dbx.Timeout(ctx, s.storeTimeout)
	defer cancel()

	err := fn(ctx)
	var tagged *common.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrorNotFound
	case errors.As(err, &tagged):
		return tagged
	case dbx.IsTimeout(err):
		return common.Dependency(fmt.Errorf("store timeout: %w", err), true)
	}
	return common.Dependency(err, false)
}

func notFoundAs(err error, what string) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NotFound(what)
	}
	return err
}

func (s *AccountService) timestamp() time.Time {
	// Postgres keeps microseconds; trim so the returned value equals the stored one.
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *AccountService) session(a *models.Account) (*AuthResult, error) {
	token, err := s.issuer.IssueSessionToken(a.ID, a.Role, a.Handle, a.Email)
	if err != nil {
		return nil, common.Dependency(err, false)
	}
	return &AuthResult{Token: token, Account: a.View()}, nil
}

// Register creates a standard account and returns a session for it.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	a, err := s.create(ctx, in, models.RoleStandard)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "account registered", "account_id", a.ID)
	return s.session(a)
}

// CreateAdministrator creates an administrator directly. It has no caller
// check and is meant for operator tooling that already holds store access.
func (s *AccountService) CreateAdministrator(ctx context.Context, in RegisterInput) (*models.AccountView, error) {
	a, err := s.create(ctx, in, models.RoleAdministrator)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "administrator created", "account_id", a.ID)
	v := a.View()
	return &v, nil
}

func (s *AccountService) create(ctx context.Context, in RegisterInput, role models.Role) (*models.Account, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	// Cheap lookups first so a taken handle or email costs no hashing.
	if err := s.ensureFree(ctx, in.Handle, in.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		if common.KindOf(err) == common.KindValidation {
			return nil, err
		}
		return nil, common.Dependency(err, errors.Is(err, context.DeadlineExceeded))
	}

	now := s.timestamp()
	a := &models.Account{
		ID:             uuid.NewString(),
		Handle:         in.Handle,
		Email:          in.Email,
		CredentialHash: hash,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var created *models.Account
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.store.Create(ctx, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *AccountService) ensureFree(ctx context.Context, handle, email string) error {
	checks := []struct {
		field string
		find  func(context.Context, string) (*models.Account, error)
		value string
	}{
		{"handle", s.store.FindByHandle, handle},
		{"email", s.store.FindByEmail, email},
	}
	for _, c := range checks {
		err := s.call(ctx, func(ctx context.Context) error {
			_, err := c.find(ctx, c.value)
			return err
		})
		switch {
		case err == nil:
			return common.Conflict(c.field)
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}
	}
	return nil
}

// Login exchanges email and secret for a session. Unknown email, wrong
// secret and throttled attempts all produce the same rejection.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	key := throttleKey(in)
	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.log.Warn(ctx, "login limiter failed, allowing attempt", "error", err)
		allowed = true
	}
	if !allowed {
		s.log.Info(ctx, "login throttled")
		return nil, common.Unauthenticated(invalidCredentials)
	}

	var a *models.Account
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.store.FindByEmail(ctx, in.Email)
		return err
	})
	if errors.Is(err, common.ErrorNotFound) {
		s.hasher.VerifyAbsent(ctx, in.Password)
		return nil, common.Unauthenticated(invalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(ctx, in.Password, a.CredentialHash)
	if err != nil {
		return nil, common.Dependency(err, false)
	}
	if !ok {
		return nil, common.Unauthenticated(invalidCredentials)
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		s.log.Warn(ctx, "login limiter reset failed", "error", err)
	}
	s.log.Info(ctx, "account logged in", "account_id", a.ID)
	return s.session(a)
}

// throttleKey scopes the login budget to one email from one address.
func throttleKey(in LoginInput) string {
	return in.Email + "|" + in.ClientIP
}

func (s *AccountService) find(ctx context.Context, id string) (*models.Account, error) {
	var a *models.Account
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.store.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, notFoundAs(err, "account")
	}
	return a, nil
}

// GetSelf returns the caller's own account.
func (s *AccountService) GetSelf(ctx context.Context, caller *auth.Identity) (*models.AccountView, error) {
	if err := policy.RequireIdentity(caller); err != nil {
		return nil, err
	}
	a, err := s.find(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}
	v := a.View()
	return &v, nil
}

// GetByID returns any account to an administrator, or the caller's own.
func (s *AccountService) GetByID(ctx context.Context, caller *auth.Identity, id string) (*models.AccountView, error) {
	if err := policy.RequireSelfOrAdmin(caller, id); err != nil {
		return nil, err
	}
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	v := a.View()
	return &v, nil
}

// GetForService serves internal reads. The caller must be a trusted
// origin; no end-user identity is needed.
func (s *AccountService) GetForService(ctx context.Context, caller *auth.CallerInfo, id string) (*models.AccountView, error) {
	if caller == nil {
		return nil, common.Unauthenticated("untrusted origin")
	}
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	v := a.View()
	return &v, nil
}

// UpdateSelf changes the caller's handle, email or secret and returns a
// fresh session carrying the new claims. A role in the input is refused.
func (s *AccountService) UpdateSelf(ctx context.Context, caller *auth.Identity, in UpdateInput) (*AuthResult, error) {
	if err := policy.RequireIdentity(caller); err != nil {
		return nil, err
	}
	if in.Role != nil {
		return nil, common.Forbidden("role cannot be changed on your own account")
	}

	a, err := s.update(ctx, caller.AccountID, in)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "account updated", "account_id", a.ID)
	return s.session(a)
}

// UpdateByID lets an administrator change any field of any account,
// including its role.
func (s *AccountService) UpdateByID(ctx context.Context, caller *auth.Identity, id string, in UpdateInput) (*models.AccountView, error) {
	if err := policy.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if in.Role != nil {
		if err := policy.CanChangeRole(caller); err != nil {
			return nil, err
		}
	}

	a, err := s.update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "account updated by administrator", "account_id", a.ID, "admin_id", caller.AccountID)
	v := a.View()
	return &v, nil
}

func (s *AccountService) update(ctx context.Context, id string, in UpdateInput) (*models.Account, error) {
	patch, err := in.patch()
	if err != nil {
		return nil, err
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(ctx, *in.Password)
		if err != nil {
			if common.KindOf(err) == common.KindValidation {
				return nil, err
			}
			return nil, common.Dependency(err, errors.Is(err, context.DeadlineExceeded))
		}
		patch.CredentialHash = &hash
	}

	var a *models.Account
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.store.UpdateFields(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, notFoundAs(err, "account")
	}
	return a, nil
}

// DeleteSelf removes the caller's own account.
func (s *AccountService) DeleteSelf(ctx context.Context, caller *auth.Identity) error {
	if err := policy.RequireIdentity(caller); err != nil {
		return err
	}
	return s.delete(ctx, caller.AccountID)
}

// DeleteByID lets an administrator remove any account.
func (s *AccountService) DeleteByID(ctx context.Context, caller *auth.Identity, id string) error {
	if err := policy.RequireAdmin(caller); err != nil {
		return err
	}
	return s.delete(ctx, id)
}

func (s *AccountService) delete(ctx context.Context, id string) error {
	err := s.call(ctx, func(ctx context.Context) error {
		return s.store.DeleteByID(ctx, id)
	})
	if err != nil {
		return notFoundAs(err, "account")
	}
	s.log.Info(ctx, "account deleted", "account_id", id)
	return nil
}

// List pages through all accounts in creation order.
func (s *AccountService) List(ctx context.Context, caller *auth.Identity, in ListInput) (*ListResult, error) {
	if err := policy.RequireAdmin(caller); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	var page []*models.Account
	var total int64
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		if total, err = s.store.Count(ctx); err != nil {
			return err
		}
		page, err = s.store.List(ctx, in.Limit, in.Offset)
		return err
	})
	if err != nil {
		return nil, err
	}

	views := make([]models.AccountView, 0, len(page))
	for _, a := range page {
		views = append(views, a.View())
	}
	return &ListResult{Accounts: views, Limit: in.Limit, Offset: in.Offset, Total: total}, nil
}

// Stats counts accounts per role.
func (s *AccountService) Stats(ctx context.Context, caller *auth.Identity) (*Stats, error) {
	if err := policy.RequireAdmin(caller); err != nil {
		return nil, err
	}
	var c models.RoleCounts
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.store.CountByRole(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Stats{Total: c.Total, Administrators: c.Administrators, Standard: c.Standard()}, nil
}
