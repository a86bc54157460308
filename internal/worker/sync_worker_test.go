package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"financequest/internal/amqp"
	"financequest/internal/core"
	"financequest/internal/sheets/memory"
	"financequest/internal/storage"
)

func testWorker(t *testing.T) (*SyncWorker, *storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.CreateUser(ctx, "Budi", "budi", "rahasia"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	cloud := memory.New()
	if err := cloud.CreateUser(ctx, "Budi", "budi", "rahasia"); err != nil {
		t.Fatalf("create cloud user: %v", err)
	}
	return NewSyncWorker(repo, cloud, 10), repo, cloud
}

func TestHandleSyncMessageUpsert(t *testing.T) {
	ctx := context.Background()
	w, repo, cloud := testWorker(t)

	tx, _ := core.NewTransaction(core.Expense, 12000, "nasi", "Makanan", core.NewDate(2025, 8, 10))
	repo.SaveTransaction(ctx, "budi", tx)

	msg := amqp.NewSyncMessage(amqp.OpUpsert, amqp.EntityTransaction, tx.ID, "budi", 1)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	replicated, err := cloud.ListTransactions(ctx, "budi")
	if err != nil {
		t.Fatalf("cloud list: %v", err)
	}
	if len(replicated) != 1 || replicated[0].ID != tx.ID || replicated[0].Amount != 12000 {
		t.Fatalf("replicated = %+v", replicated)
	}

	pending, _ := repo.GetPendingTransactions(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("row still pending after sync")
	}
}

func TestHandleSyncMessageDelete(t *testing.T) {
	ctx := context.Background()
	w, _, cloud := testWorker(t)

	tx, _ := core.NewTransaction(core.Expense, 12000, "", "Makanan", core.NewDate(2025, 8, 10))
	cloud.SaveTransaction(ctx, "budi", tx)

	msg := amqp.NewSyncMessage(amqp.OpDelete, amqp.EntityTransaction, tx.ID, "budi", 0)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	replicated, _ := cloud.ListTransactions(ctx, "budi")
	if len(replicated) != 0 {
		t.Fatalf("delete not replicated")
	}
}

func TestHandleSyncMessageVanishedRowConvergesOnDelete(t *testing.T) {
	ctx := context.Background()
	w, _, cloud := testWorker(t)

	// The upsert message points at a row deleted locally in the meantime;
	// the cloud copy (already replicated) must be removed.
	tx, _ := core.NewTransaction(core.Expense, 5000, "", "Makanan", core.NewDate(2025, 8, 10))
	cloud.SaveTransaction(ctx, "budi", tx)

	msg := amqp.NewSyncMessage(amqp.OpUpsert, amqp.EntityTransaction, tx.ID, "budi", 1)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	replicated, _ := cloud.ListTransactions(ctx, "budi")
	if len(replicated) != 0 {
		t.Fatalf("stale cloud row not removed")
	}
}

func TestHandleSyncMessageGoal(t *testing.T) {
	ctx := context.Background()
	w, repo, cloud := testWorker(t)

	g, _ := core.NewGoal("Liburan", 150000, 0, core.NewDate(2025, 12, 31), "", core.NewDate(2025, 8, 1).Time)
	repo.SaveGoal(ctx, "budi", g)

	msg := amqp.NewSyncMessage(amqp.OpUpsert, amqp.EntityGoal, g.ID, "budi", 1)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	goals, _ := cloud.ListGoals(ctx, "budi")
	if len(goals) != 1 || goals[0].Name != "Liburan" {
		t.Fatalf("goals = %+v", goals)
	}
}

func TestStartupSyncCheckDrainsBacklog(t *testing.T) {
	ctx := context.Background()
	w, repo, cloud := testWorker(t)

	for i := 0; i < 3; i++ {
		tx, _ := core.NewTransaction(core.Expense, int64(1000*(i+1)), "", "Makanan", core.NewDate(2025, 8, 10))
		repo.SaveTransaction(ctx, "budi", tx)
	}
	g, _ := core.NewGoal("Liburan", 150000, 0, core.NewDate(2025, 12, 31), "", core.NewDate(2025, 8, 1).Time)
	repo.SaveGoal(ctx, "budi", g)

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}

	txs, _ := cloud.ListTransactions(ctx, "budi")
	goals, _ := cloud.ListGoals(ctx, "budi")
	if len(txs) != 3 || len(goals) != 1 {
		t.Fatalf("replicated %d txs, %d goals", len(txs), len(goals))
	}
	pending, _ := repo.GetPendingTransactions(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("backlog not drained")
	}
}

type failingReplicator struct {
	*memory.Store
}

func (f *failingReplicator) SaveTransaction(context.Context, string, core.Transaction) error {
	return errors.New("cloud store unavailable")
}

func TestReplicationFailureMarksSyncError(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	defer repo.Close()
	repo.CreateUser(ctx, "Budi", "budi", "rahasia")

	w := NewSyncWorker(repo, &failingReplicator{Store: memory.New()}, 10)

	tx, _ := core.NewTransaction(core.Expense, 12000, "", "Makanan", core.NewDate(2025, 8, 10))
	repo.SaveTransaction(ctx, "budi", tx)

	msg := amqp.NewSyncMessage(amqp.OpUpsert, amqp.EntityTransaction, tx.ID, "budi", 1)
	if err := w.HandleSyncMessage(ctx, msg); err == nil {
		t.Fatalf("expected replication error")
	}

	// Row stays pending, so the scan retries it later.
	pending, _ := repo.GetPendingTransactions(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("row not pending after failure")
	}
}
