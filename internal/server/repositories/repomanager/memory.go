package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophidentity/internal/server/repositories/accounts"
)

// MemoryRepositoryManager serves one shared in-process account store.
// Migrations are a no-op.
type MemoryRepositoryManager struct {
	accounts *accounts.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{accounts: accounts.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *MemoryRepositoryManager) Accounts() accounts.Repository {
	return m.accounts
}

func (m *MemoryRepositoryManager) Close() error {
	return nil
}
