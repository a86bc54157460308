package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"financequest/internal/achievements"
	"financequest/internal/core"
	"financequest/internal/store"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func register(t *testing.T, repo *SQLiteRepository, name, username, password string) {
	t.Helper()
	if err := repo.CreateUser(context.Background(), name, username, password); err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func TestUserRegistry(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	register(t, repo, "Budi", "Budi", "rahasia")

	// Usernames are case-insensitive; the duplicate is rejected.
	if err := repo.CreateUser(ctx, "Other", "budi", "different"); !errors.Is(err, core.ErrDuplicateUsername) {
		t.Fatalf("duplicate: got %v", err)
	}

	p, err := repo.Authenticate(ctx, "BUDI", "rahasia")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.Username != "budi" || p.Level != 1 || p.MaxXP != 100 {
		t.Fatalf("profile = %+v", p)
	}

	if _, err := repo.Authenticate(ctx, "budi", "wrong"); !errors.Is(err, core.ErrBadCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := repo.Authenticate(ctx, "nobody", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown user: got %v", err)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	register(t, repo, "Budi", "budi", "rahasia")

	p, err := repo.LoadProfile(ctx, "budi")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p.Level = 3
	p.XP = 42
	p.MaxXP = 225
	p.Streak = 5
	p.LastLogin = time.Date(2025, 8, 10, 9, 30, 0, 0, time.UTC)
	if err := repo.SaveProfile(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	back, err := repo.LoadProfile(ctx, "budi")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if back.Level != 3 || back.XP != 42 || back.MaxXP != 225 || back.Streak != 5 {
		t.Fatalf("profile = %+v", back)
	}
	if !back.LastLogin.Equal(p.LastLogin) {
		t.Fatalf("lastLogin = %v", back.LastLogin)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	register(t, repo, "Budi", "budi", "rahasia")

	older, _ := core.NewTransaction(core.Expense, 12000, "nasi", "Makanan", core.NewDate(2025, 8, 1))
	newer, _ := core.NewTransaction(core.Income, 500000, "gaji", "", core.NewDate(2025, 8, 5))
	for _, tx := range []core.Transaction{older, newer} {
		if err := repo.SaveTransaction(ctx, "budi", tx); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	txs, err := repo.ListTransactions(ctx, "budi")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("len = %d", len(txs))
	}
	if txs[0].ID != newer.ID {
		t.Fatalf("not newest-first: %+v", txs[0])
	}
	if txs[1].Description != "nasi" || txs[1].Amount != 12000 || txs[1].XP != 1 {
		t.Fatalf("round trip mismatch: %+v", txs[1])
	}
	if txs[1].Date.String() != "2025-08-01" {
		t.Fatalf("date = %s", txs[1].Date)
	}

	if err := repo.DeleteTransaction(ctx, "budi", older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Unknown ID deletes are a no-op.
	if err := repo.DeleteTransaction(ctx, "budi", "nope"); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
	txs, _ = repo.ListTransactions(ctx, "budi")
	if len(txs) != 1 {
		t.Fatalf("len after delete = %d", len(txs))
	}
}

func TestGoalRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	register(t, repo, "Budi", "budi", "rahasia")

	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	g, err := core.NewGoal("Liburan", 150000, 80000, core.NewDate(2025, 12, 31), "", now)
	if err != nil {
		t.Fatalf("goal: %v", err)
	}
	if err := repo.SaveGoal(ctx, "budi", g); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Rewrite with an updated saved amount.
	g.SavedAmount = 150000
	if err := repo.SaveGoal(ctx, "budi", g); err != nil {
		t.Fatalf("update: %v", err)
	}

	goals, err := repo.ListGoals(ctx, "budi")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("len = %d", len(goals))
	}
	if goals[0].SavedAmount != 150000 || !goals[0].Completed() {
		t.Fatalf("goal = %+v", goals[0])
	}
	if goals[0].Icon != "🎯" {
		t.Fatalf("icon = %q", goals[0].Icon)
	}
}

func TestAchievementsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	register(t, repo, "Budi", "budi", "rahasia")

	list := achievements.Catalog()
	list[0].Earned = true
	list[0].EarnedDate = time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
	if err := repo.SaveAchievements(ctx, "budi", list); err != nil {
		t.Fatalf("save: %v", err)
	}

	back, err := repo.ListAchievements(ctx, "budi")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(back) != 8 {
		t.Fatalf("len = %d", len(back))
	}
	if !back[0].Earned || !back[0].EarnedDate.Equal(list[0].EarnedDate) {
		t.Fatalf("badge 1 = %+v", back[0])
	}
	if back[1].Earned {
		t.Fatalf("badge 2 should be un-earned")
	}
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	register(t, repo, "Budi", "budi", "rahasia")
	register(t, repo, "Siti", "siti", "rahasia")

	tx, _ := core.NewTransaction(core.Expense, 1000, "", "Makanan", core.NewDate(2025, 8, 1))
	repo.SaveTransaction(ctx, "budi", tx)
	other, _ := core.NewTransaction(core.Expense, 2000, "", "Makanan", core.NewDate(2025, 8, 1))
	repo.SaveTransaction(ctx, "siti", other)

	if err := repo.Purge(ctx, "budi"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	txs, _ := repo.ListTransactions(ctx, "budi")
	if len(txs) != 0 {
		t.Fatalf("budi not purged")
	}
	// Other users are untouched.
	txs, _ = repo.ListTransactions(ctx, "siti")
	if len(txs) != 1 {
		t.Fatalf("siti lost data")
	}
}

func TestSyncFlags(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	register(t, repo, "Budi", "budi", "rahasia")

	tx, _ := core.NewTransaction(core.Expense, 1000, "", "Makanan", core.NewDate(2025, 8, 1))
	repo.SaveTransaction(ctx, "budi", tx)

	pending, err := repo.GetPendingTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Tx.ID != tx.ID || pending[0].Version != 1 {
		t.Fatalf("pending = %+v", pending)
	}

	if err := repo.MarkTransactionSynced(ctx, tx.ID, 1); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, _ = repo.GetPendingTransactions(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("still pending after mark")
	}

	// A rewrite bumps the version and re-queues the row.
	repo.SaveTransaction(ctx, "budi", tx)
	pending, _ = repo.GetPendingTransactions(ctx, 10)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("rewrite not re-queued: %+v", pending)
	}

	// A stale mark (old version) must not clear the newer pending write.
	if err := repo.MarkTransactionSynced(ctx, tx.ID, 1); err != nil {
		t.Fatalf("stale mark: %v", err)
	}
	pending, _ = repo.GetPendingTransactions(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("stale mark cleared a newer write")
	}

	if err := repo.MarkTransactionSyncError(ctx, tx.ID, "sheets unavailable"); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	got, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "budi" || got.Version != 2 {
		t.Fatalf("get = %+v", got)
	}
}
