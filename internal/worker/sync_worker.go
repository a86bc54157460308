// Package worker replicates local SQLite rows to the cloud document store.
// It consumes queue messages for low latency and periodically scans for
// pending rows to recover from lost messages or downtime.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financequest/internal/amqp"
	"financequest/internal/sheets"
	"financequest/internal/storage"
	"financequest/internal/store"
)

// SyncWorker drains local writes into the cloud store.
type SyncWorker struct {
	storage    *storage.SQLiteRepository
	replicator sheets.Replicator
	batchSize  int
}

func NewSyncWorker(storage *storage.SQLiteRepository, replicator sheets.Replicator, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:    storage,
		replicator: replicator,
		batchSize:  batchSize,
	}
}

// HandleSyncMessage processes one replication message. The current row is
// always re-read from SQLite, so a message overtaken by a newer write simply
// replicates the newer state.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"op", msg.Op, "entity", msg.Entity, "id", msg.ID, "version", msg.Version)

	switch msg.Entity {
	case amqp.EntityTransaction:
		return w.syncTransaction(ctx, msg)
	case amqp.EntityGoal:
		return w.syncGoal(ctx, msg)
	default:
		// Validated at consume time; not requeueable either way.
		slog.WarnContext(ctx, "Ignoring message with unknown entity", "entity", msg.Entity)
		return nil
	}
}

func (w *SyncWorker) syncTransaction(ctx context.Context, msg *amqp.SyncMessage) error {
	if msg.Op == amqp.OpDelete {
		if err := w.replicator.DeleteTransaction(ctx, msg.Username, msg.ID); err != nil {
			return fmt.Errorf("delete transaction from cloud store: %w", err)
		}
		return nil
	}

	row, err := w.storage.GetTransaction(ctx, msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted locally after the upsert was queued; converge on delete.
		slog.InfoContext(ctx, "Transaction gone locally, deleting from cloud store", "id", msg.ID)
		return w.replicator.DeleteTransaction(ctx, msg.Username, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.replicator.SaveTransaction(ctx, row.Username, row.Tx); err != nil {
		if merr := w.storage.MarkTransactionSyncError(ctx, msg.ID, err.Error()); merr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", msg.ID, "error", merr)
		}
		return fmt.Errorf("replicate transaction: %w", err)
	}
	return w.storage.MarkTransactionSynced(ctx, msg.ID, row.Version)
}

func (w *SyncWorker) syncGoal(ctx context.Context, msg *amqp.SyncMessage) error {
	if msg.Op == amqp.OpDelete {
		if err := w.replicator.DeleteGoal(ctx, msg.Username, msg.ID); err != nil {
			return fmt.Errorf("delete goal from cloud store: %w", err)
		}
		return nil
	}

	row, err := w.storage.GetGoal(ctx, msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		slog.InfoContext(ctx, "Goal gone locally, deleting from cloud store", "id", msg.ID)
		return w.replicator.DeleteGoal(ctx, msg.Username, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("get goal from storage: %w", err)
	}

	if err := w.replicator.SaveGoal(ctx, row.Username, row.Goal); err != nil {
		if merr := w.storage.MarkGoalSyncError(ctx, msg.ID, err.Error()); merr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", msg.ID, "error", merr)
		}
		return fmt.Errorf("replicate goal: %w", err)
	}
	return w.storage.MarkGoalSynced(ctx, msg.ID, row.Version)
}

// ProcessPending replicates rows the queue missed. This is the backup
// mechanism for lost messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck drains the pending backlog accumulated while the worker
// was down, with a larger batch than the steady-state scan.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup sync check")
	return w.processPending(ctx, w.batchSize*5)
}

func (w *SyncWorker) processPending(ctx context.Context, batch int) error {
	pendingTxs, err := w.storage.GetPendingTransactions(ctx, batch)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	pendingGoals, err := w.storage.GetPendingGoals(ctx, batch)
	if err != nil {
		return fmt.Errorf("get pending goals: %w", err)
	}
	if len(pendingTxs) == 0 && len(pendingGoals) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending rows",
		"transactions", len(pendingTxs), "goals", len(pendingGoals))

	synced := 0
	failed := 0
	for _, p := range pendingTxs {
		if err := w.replicator.SaveTransaction(ctx, p.Username, p.Tx); err != nil {
			slog.ErrorContext(ctx, "Failed to replicate transaction", "id", p.Tx.ID, "error", err)
			if merr := w.storage.MarkTransactionSyncError(ctx, p.Tx.ID, err.Error()); merr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.Tx.ID, "error", merr)
			}
			failed++
			continue
		}
		if err := w.storage.MarkTransactionSynced(ctx, p.Tx.ID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to mark transaction synced", "id", p.Tx.ID, "error", err)
		}
		synced++
	}
	for _, p := range pendingGoals {
		if err := w.replicator.SaveGoal(ctx, p.Username, p.Goal); err != nil {
			slog.ErrorContext(ctx, "Failed to replicate goal", "id", p.Goal.ID, "error", err)
			if merr := w.storage.MarkGoalSyncError(ctx, p.Goal.ID, err.Error()); merr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.Goal.ID, "error", merr)
			}
			failed++
			continue
		}
		if err := w.storage.MarkGoalSynced(ctx, p.Goal.ID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to mark goal synced", "id", p.Goal.ID, "error", err)
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending scan finished", "synced", synced, "failed", failed)
	return nil
}

// RunPendingLoop scans for pending rows on a fixed interval until the
// context is cancelled.
func (w *SyncWorker) RunPendingLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Pending scan loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Pending scan loop stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending scan failed", "error", err)
			}
		}
	}
}
