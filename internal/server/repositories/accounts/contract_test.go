package accounts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func account(handle, email string, role models.Role, created time.Time) *models.Account {
	return &models.Account{
		ID:             uuid.NewString(),
		Handle:         handle,
		Email:          email,
		CredentialHash: "$2a$10$hash-" + handle,
		Role:           role,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

// runRepositoryContract exercises behaviour every Repository must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a, err := repo.Create(ctx, account("alice", "alice@example.com", models.RoleStandard, base))
		require.NoError(t, err)

		byID, err := repo.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Handle)
		assert.True(t, base.Equal(byID.CreatedAt))

		byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, a.ID, byEmail.ID)

		byHandle, err := repo.FindByHandle(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, a.ID, byHandle.ID)

		_, err = repo.FindByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("unique handle and email", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, account("alice", "alice@example.com", models.RoleStandard, base))
		require.NoError(t, err)

		_, err = repo.Create(ctx, account("alice", "other@example.com", models.RoleStandard, base))
		require.Error(t, err)
		assert.Equal(t, "handle", common.AsError(err).Field)

		_, err = repo.Create(ctx, account("alice2", "alice@example.com", models.RoleStandard, base))
		require.Error(t, err)
		assert.Equal(t, common.KindConflict, common.KindOf(err))
		assert.Equal(t, "email", common.AsError(err).Field)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("update keeps original on conflict", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		alice, err := repo.Create(ctx, account("alice", "alice@example.com", models.RoleStandard, base))
		require.NoError(t, err)
		_, err = repo.Create(ctx, account("bob", "bob@example.com", models.RoleStandard, base))
		require.NoError(t, err)

		taken := "bob@example.com"
		_, err = repo.UpdateFields(ctx, alice.ID, models.AccountPatch{Email: &taken})
		require.Error(t, err)
		assert.Equal(t, common.KindConflict, common.KindOf(err))

		got, err := repo.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Email)

		// Writing an account's own current value is not a conflict.
		same := "alice@example.com"
		fresh := "alice@new.example.com"
		_, err = repo.UpdateFields(ctx, alice.ID, models.AccountPatch{Email: &same})
		require.NoError(t, err)
		updated, err := repo.UpdateFields(ctx, alice.ID, models.AccountPatch{Email: &fresh})
		require.NoError(t, err)
		assert.Equal(t, fresh, updated.Email)
		assert.Equal(t, "alice", updated.Handle)

		_, err = repo.FindByEmail(ctx, "alice@example.com")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("update missing", func(t *testing.T) {
		repo := newRepo(t)
		role := models.RoleAdministrator
		_, err := repo.UpdateFields(context.Background(), uuid.NewString(), models.AccountPatch{Role: &role})
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("update missing with taken email", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		_, err := repo.Create(ctx, account("bob", "bob@example.com", models.RoleStandard, base))
		require.NoError(t, err)

		taken := "bob@example.com"
		_, err = repo.UpdateFields(ctx, uuid.NewString(), models.AccountPatch{Email: &taken})
		assert.ErrorIs(t, err, common.ErrorNotFound)
		assert.Equal(t, common.KindDependency, common.KindOf(err), "a bare sentinel, not a conflict")
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a, err := repo.Create(ctx, account("alice", "alice@example.com", models.RoleStandard, base))
		require.NoError(t, err)

		require.NoError(t, repo.DeleteByID(ctx, a.ID))
		assert.ErrorIs(t, repo.DeleteByID(ctx, a.ID), common.ErrorNotFound)

		// Freed keys can be reused.
		_, err = repo.Create(ctx, account("alice", "alice@example.com", models.RoleStandard, base))
		require.NoError(t, err)
	})

	t.Run("counts and list", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			role := models.RoleStandard
			if i%2 == 0 {
				role = models.RoleAdministrator
			}
			h := fmt.Sprintf("user%d", i)
			_, err := repo.Create(ctx, account(h, h+"@example.com", role, base.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
		}

		c, err := repo.CountByRole(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.RoleCounts{Total: 5, Administrators: 3}, c)

		page, err := repo.List(ctx, 2, 1)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "user1", page[0].Handle)
		assert.Equal(t, "user2", page[1].Handle)

		tail, err := repo.List(ctx, 10, 4)
		require.NoError(t, err)
		require.Len(t, tail, 1)
		assert.Equal(t, "user4", tail[0].Handle)

		empty, err := repo.List(ctx, 10, 10)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, newRepo(t).Ping(context.Background()))
	})
}
