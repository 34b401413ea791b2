package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/dbx"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
)

const accountColumns = `id, handle, email, credential_hash, role, created_at, updated_at`

// dialect captures what differs between the SQL engines behind SQLRepository.
type dialect struct {
	name string
	// numbered reports whether placeholders are written as $1, $2 instead of ?.
	numbered bool
	// uniqueField returns the column a unique violation was raised on.
	uniqueField func(err error) (string, bool)
}

// SQLRepository implements Repository on top of database/sql. Queries are
// written with ? placeholders and rebound for the dialect.
type SQLRepository struct {
	db      *sql.DB
	dialect dialect
}

func (r *SQLRepository) rebind(query string) string {
	if !r.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	a := &models.Account{}
	var role string
	if err := row.Scan(&a.ID, &a.Handle, &a.Email, &a.CredentialHash, &role, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	return a, nil
}

func (r *SQLRepository) dbError(err error) error {
	if field, ok := r.dialect.uniqueField(err); ok {
		return common.Conflict(field)
	}
	return fmt.Errorf("db error: %w", err)
}

// checkUnique looks for another account already holding handle or email.
// Handle is reported first when both collide.
func (r *SQLRepository) checkExists(ctx context.Context, tx dbx.DBTX, id string) error {
	var found string
	err := tx.QueryRowContext(ctx, r.rebind(`SELECT id FROM accounts WHERE id = ?`), id).Scan(&found)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return common.ErrorNotFound
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) checkUnique(ctx context.Context, tx dbx.DBTX, excludeID string, handle, email *string) error {
	check := func(column, value string) error {
		query := r.rebind(`SELECT id FROM accounts WHERE ` + column + ` = ? AND id <> ?`)
		var id string
		err := tx.QueryRowContext(ctx, query, value, excludeID).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil
		case err != nil:
			return fmt.Errorf("db error: %w", err)
		}
		return common.Conflict(column)
	}
	if handle != nil {
		if err := check("handle", *handle); err != nil {
			return err
		}
	}
	if email != nil {
		if err := check("email", *email); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := r.rebind(
		`INSERT INTO accounts (` + accountColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.checkUnique(ctx, tx, account.ID, &account.Handle, &account.Email); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, query,
			account.ID, account.Handle, account.Email, account.CredentialHash,
			string(account.Role), account.CreatedAt, account.UpdatedAt)
		if err != nil {
			return r.dbError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *SQLRepository) findBy(ctx context.Context, column, value string) (*models.Account, error) {
	query := r.rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = ?`)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.findBy(ctx, "id", id)
}

func (r *SQLRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findBy(ctx, "email", email)
}

func (r *SQLRepository) FindByHandle(ctx context.Context, handle string) (*models.Account, error) {
	return r.findBy(ctx, "handle", handle)
}

// UpdateFields writes the non-nil fields of patch and bumps updated_at.
// Uniqueness of handle and email is re-checked in the same transaction,
// after the account is known to exist.
func (r *SQLRepository) UpdateFields(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Handle != nil {
		add("handle", *patch.Handle)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.CredentialHash != nil {
		add("credential_hash", *patch.CredentialHash)
	}
	if patch.Role != nil {
		add("role", string(*patch.Role))
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)

	query := r.rebind(
		`UPDATE accounts SET ` + strings.Join(sets, ", ") + `
		 WHERE id = ?
		 RETURNING ` + accountColumns)

	var updated *models.Account
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if patch.Handle != nil || patch.Email != nil {
			if err := r.checkExists(ctx, tx, id); err != nil {
				return err
			}
			if err := r.checkUnique(ctx, tx, id, patch.Handle, patch.Email); err != nil {
				return err
			}
		}
		a, err := scanAccount(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrorNotFound
			}
			return r.dbError(err)
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *SQLRepository) DeleteByID(ctx context.Context, id string) error {
	query := r.rebind(`DELETE FROM accounts WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) CountByRole(ctx context.Context) (models.RoleCounts, error) {
	query := r.rebind(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0)
		 FROM accounts`)

	var c models.RoleCounts
	if err := r.db.QueryRowContext(ctx, query, string(models.RoleAdministrator)).Scan(&c.Total, &c.Administrators); err != nil {
		return models.RoleCounts{}, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// List returns accounts ordered by creation time, oldest first.
func (r *SQLRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	query := r.rebind(
		`SELECT ` + accountColumns + ` FROM accounts
		 ORDER BY created_at, id
		 LIMIT ? OFFSET ?`)

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
