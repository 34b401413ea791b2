package accounts

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// constraintFields maps the unique constraints declared by the migrations
// to the field reported to callers.
var constraintFields = map[string]string{
	"accounts_handle_key": "handle",
	"accounts_email_key":  "email",
}

// NewPostgresRepository returns a Repository over a pgx-backed *sql.DB.
func NewPostgresRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect{
		name:        "postgres",
		numbered:    true,
		uniqueField: pgUniqueField,
	}}
}

func pgUniqueField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return "", false
	}
	field, ok := constraintFields[pgErr.ConstraintName]
	return field, ok
}
