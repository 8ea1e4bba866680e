package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"lavanderia/internal/cache"
	"lavanderia/internal/core"
	"lavanderia/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestLedger(t *testing.T, repo *storage.Repository) *LedgerService {
	t.Helper()
	summaries := cache.NewLRUCache[core.MonthSummary](16, time.Minute)
	return NewLedgerService(repo, nil, summaries)
}

func createTestUser(t *testing.T, repo *storage.Repository, email string) core.User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), core.User{
		Nome:      "Teste",
		Email:     email,
		SenhaHash: "irrelevant",
		Role:      core.RoleUser,
	})
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}
