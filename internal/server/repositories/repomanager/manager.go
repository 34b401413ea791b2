package repomanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophidentity/internal/server/repositories/accounts"
)

// RepositoryManager owns the database handle and vends the repositories
// built on it.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Accounts() accounts.Repository
	Close() error
}

// Open picks a backend from the DSN scheme:
//
//	postgres://... or postgresql://...  PostgreSQL via pgx
//	sqlite://<path>                     single-file SQLite
//	memory://                           process memory, nothing persisted
func Open(ctx context.Context, dsn string) (RepositoryManager, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresRepositoryManager(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return NewSQLiteRepositoryManager(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "memory://"):
		return NewMemoryRepositoryManager(), nil
	}
	return nil, fmt.Errorf("unsupported database dsn %q", redact(dsn))
}

// redact drops everything after the scheme so credentials never reach logs.
func redact(dsn string) string {
	if scheme, _, ok := strings.Cut(dsn, "://"); ok {
		return scheme + "://..."
	}
	return "..."
}
