package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophidentity/internal/filex"
	"github.com/dmitrijs2005/gophidentity/internal/server/migrations"
	"github.com/dmitrijs2005/gophidentity/internal/server/repositories/accounts"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends repositories over a single SQLite file.
type SQLiteRepositoryManager struct {
	db *sql.DB
}

func NewSQLiteRepositoryManager(ctx context.Context, path string) (*SQLiteRepositoryManager, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if _, err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteRepositoryManager{db: db}, nil
}

func (m *SQLiteRepositoryManager) Accounts() accounts.Repository {
	return accounts.NewSQLiteRepository(m.db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context) error {
	return runMigrations(ctx, goose.DialectSQLite3, m.db, migrations.SQLiteDir)
}

func (m *SQLiteRepositoryManager) Close() error {
	return m.db.Close()
}
