package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophidentity/internal/server/repositories/accounts"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestPostgresManager_Accounts(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &PostgresRepositoryManager{db: db}
	var _ RepositoryManager = m

	repo := m.Accounts()
	if repo == nil {
		t.Fatal("Accounts() nil")
	}
	var _ accounts.Repository = repo
}

func TestRunMigrations_PostgresDialect(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUp
	gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
		if dialect != goose.DialectPostgres {
			return errors.New("unexpected dialect")
		}
		files, err := fs.Glob(fsys, "*.sql")
		if err != nil || len(files) == 0 {
			return errors.New("no migrations in fs")
		}
		return nil
	}
	defer func() { gooseUp = orig }()

	m := &PostgresRepositoryManager{db: db}
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUp
	gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
		return errors.New("boom")
	}
	defer func() { gooseUp = orig }()

	m := &PostgresRepositoryManager{db: db}
	err := m.RunMigrations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestSQLiteManager_MigratesAndServes(t *testing.T) {
	ctx := context.Background()
	m, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "state", "identity.db"))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.RunMigrations(ctx))
	// Re-running is a no-op.
	require.NoError(t, m.RunMigrations(ctx))

	n, err := m.Accounts().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, m.Accounts().Ping(ctx))
}

func TestOpen_Memory(t *testing.T) {
	m, err := Open(context.Background(), "memory://")
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepositoryManager{}, m)
	assert.Same(t, m.Accounts(), m.Accounts())
	require.NoError(t, m.RunMigrations(context.Background()))
	require.NoError(t, m.Close())
}

func TestOpen_UnsupportedSchemeRedactsDSN(t *testing.T) {
	_, err := Open(context.Background(), "mysql://root:secret@db/identity")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
	assert.Contains(t, err.Error(), "mysql://...")
}
