package accounts

import (
	"database/sql"
	"errors"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// NewSQLiteRepository returns a Repository over a modernc.org/sqlite *sql.DB.
func NewSQLiteRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect{
		name:        "sqlite",
		uniqueField: sqliteUniqueField,
	}}
}

// sqliteUniqueField reads the column out of messages like
// "UNIQUE constraint failed: accounts.email".
func sqliteUniqueField(err error) (string, bool) {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return "", false
	}
	if code := sqliteErr.Code(); code != sqlite3lib.SQLITE_CONSTRAINT_UNIQUE && code != sqlite3lib.SQLITE_CONSTRAINT {
		return "", false
	}
	msg := sqliteErr.Error()
	for _, field := range []string{"handle", "email"} {
		if strings.Contains(msg, "accounts."+field) {
			return field, true
		}
	}
	return "", false
}
