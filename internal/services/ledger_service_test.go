package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"financequest/internal/amqp"
	"financequest/internal/core"
	"financequest/internal/storage"
)

type fakePublisher struct {
	fail     bool
	messages []*amqp.SyncMessage
}

func (f *fakePublisher) PublishSync(_ context.Context, msg *amqp.SyncMessage) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.messages = append(f.messages, msg)
	return nil
}

func testService(t *testing.T) (*LedgerService, *fakePublisher, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.CreateUser(context.Background(), "Budi", "budi", "rahasia"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	pub := &fakePublisher{}
	return NewLedgerService(repo, pub), pub, repo
}

func TestSaveTransactionPublishesSync(t *testing.T) {
	ctx := context.Background()
	svc, pub, _ := testService(t)

	tx, _ := core.NewTransaction(core.Expense, 12000, "nasi", "Makanan", core.NewDate(2025, 8, 10))
	if err := svc.SaveTransaction(ctx, "budi", tx); err != nil {
		t.Fatalf("save: %v", err)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Op != amqp.OpUpsert || msg.Entity != amqp.EntityTransaction {
		t.Fatalf("message = %+v", msg)
	}
	if msg.ID != tx.ID || msg.Username != "budi" || msg.Version != 1 {
		t.Fatalf("message = %+v", msg)
	}

	// A rewrite carries the bumped version.
	if err := svc.SaveTransaction(ctx, "budi", tx); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if pub.messages[1].Version != 2 {
		t.Fatalf("rewrite version = %d, want 2", pub.messages[1].Version)
	}
}

func TestDeleteTransactionPublishesDelete(t *testing.T) {
	ctx := context.Background()
	svc, pub, _ := testService(t)

	tx, _ := core.NewTransaction(core.Expense, 12000, "", "Makanan", core.NewDate(2025, 8, 10))
	svc.SaveTransaction(ctx, "budi", tx)
	if err := svc.DeleteTransaction(ctx, "budi", tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	last := pub.messages[len(pub.messages)-1]
	if last.Op != amqp.OpDelete || last.ID != tx.ID {
		t.Fatalf("message = %+v", last)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc, pub, repo := testService(t)
	pub.fail = true

	tx, _ := core.NewTransaction(core.Expense, 12000, "", "Makanan", core.NewDate(2025, 8, 10))
	if err := svc.SaveTransaction(ctx, "budi", tx); err != nil {
		t.Fatalf("save must not fail on publish error: %v", err)
	}

	// The row stays pending for the worker's scan.
	pending, err := repo.GetPendingTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d rows, want 1", len(pending))
	}
}

func TestNilPublisherIsTolerated(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	defer repo.Close()
	repo.CreateUser(ctx, "Budi", "budi", "rahasia")

	svc := NewLedgerService(repo, nil)
	tx, _ := core.NewTransaction(core.Income, 500000, "gaji", "", core.NewDate(2025, 8, 1))
	if err := svc.SaveTransaction(ctx, "budi", tx); err != nil {
		t.Fatalf("save without publisher: %v", err)
	}
}

func TestPurgePublishesDeletes(t *testing.T) {
	ctx := context.Background()
	svc, pub, _ := testService(t)

	tx, _ := core.NewTransaction(core.Expense, 1000, "", "Makanan", core.NewDate(2025, 8, 1))
	svc.SaveTransaction(ctx, "budi", tx)
	g, _ := core.NewGoal("Liburan", 1000, 0, core.NewDate(2025, 12, 31), "", core.NewDate(2025, 8, 1).Time)
	svc.SaveGoal(ctx, "budi", g)
	pub.messages = nil

	if err := svc.Purge(ctx, "budi"); err != nil {
		t.Fatalf("purge: %v", err)
	}

	var txDeletes, goalDeletes int
	for _, msg := range pub.messages {
		if msg.Op != amqp.OpDelete {
			t.Fatalf("purge published non-delete: %+v", msg)
		}
		switch msg.Entity {
		case amqp.EntityTransaction:
			txDeletes++
		case amqp.EntityGoal:
			goalDeletes++
		}
	}
	if txDeletes != 1 || goalDeletes != 1 {
		t.Fatalf("deletes = %d tx, %d goals", txDeletes, goalDeletes)
	}
}
