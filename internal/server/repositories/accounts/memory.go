package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
)

// MemoryRepository keeps accounts in process memory. Uniqueness checks and
// writes happen under one lock, so it gives the same conflict guarantees
// as the SQL stores' unique indexes.
type MemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]*models.Account
	byEmail  map[string]string
	byHandle map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[string]*models.Account),
		byEmail:  make(map[string]string),
		byHandle: make(map[string]string),
	}
}

func clone(a *models.Account) *models.Account {
	c := *a
	return &c
}

func (r *MemoryRepository) checkUnique(excludeID string, handle, email *string) error {
	if handle != nil {
		if id, ok := r.byHandle[*handle]; ok && id != excludeID {
			return common.Conflict("handle")
		}
	}
	if email != nil {
		if id, ok := r.byEmail[*email]; ok && id != excludeID {
			return common.Conflict("email")
		}
	}
	return nil
}

func (r *MemoryRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[account.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if err := r.checkUnique(account.ID, &account.Handle, &account.Email); err != nil {
		return nil, err
	}
	stored := clone(account)
	r.byID[stored.ID] = stored
	r.byHandle[stored.Handle] = stored.ID
	r.byEmail[stored.Email] = stored.ID
	return clone(stored), nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) findByIndex(ctx context.Context, index map[string]string, key string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := index[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findByIndex(ctx, r.byEmail, email)
}

func (r *MemoryRepository) FindByHandle(ctx context.Context, handle string) (*models.Account, error) {
	return r.findByIndex(ctx, r.byHandle, handle)
}

func (r *MemoryRepository) UpdateFields(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := r.checkUnique(id, patch.Handle, patch.Email); err != nil {
		return nil, err
	}

	if patch.Handle != nil {
		delete(r.byHandle, a.Handle)
		a.Handle = *patch.Handle
		r.byHandle[a.Handle] = id
	}
	if patch.Email != nil {
		delete(r.byEmail, a.Email)
		a.Email = *patch.Email
		r.byEmail[a.Email] = id
	}
	if patch.CredentialHash != nil {
		a.CredentialHash = *patch.CredentialHash
	}
	if patch.Role != nil {
		a.Role = *patch.Role
	}
	a.UpdatedAt = time.Now().UTC()
	return clone(a), nil
}

func (r *MemoryRepository) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	delete(r.byHandle, a.Handle)
	delete(r.byEmail, a.Email)
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func (r *MemoryRepository) CountByRole(ctx context.Context) (models.RoleCounts, error) {
	if err := ctx.Err(); err != nil {
		return models.RoleCounts{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := models.RoleCounts{Total: int64(len(r.byID))}
	for _, a := range r.byID {
		if a.IsAdministrator() {
			c.Administrators++
		}
	}
	return c, nil
}

func (r *MemoryRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	all := make([]*models.Account, 0, len(r.byID))
	for _, a := range r.byID {
		all = append(all, clone(a))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
