package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"financequest/internal/core"
	"financequest/internal/store"
)

// PendingTransaction is a transaction row awaiting cloud replication.
type PendingTransaction struct {
	Username string
	Version  int64
	Tx       core.Transaction
}

// PendingGoal is a goal row awaiting cloud replication.
type PendingGoal struct {
	Username string
	Version  int64
	Goal     core.Goal
}

// GetTransaction retrieves a single transaction by ID for sync processing.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (PendingTransaction, error) {
	var (
		p    PendingTransaction
		kind string
		date string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT username, version, id, kind, amount, description, category, tx_date, xp
		 FROM transactions WHERE id = ?`, id).
		Scan(&p.Username, &p.Version, &p.Tx.ID, &kind, &p.Tx.Amount,
			&p.Tx.Description, &p.Tx.Category, &date, &p.Tx.XP)
	if errors.Is(err, sql.ErrNoRows) {
		return PendingTransaction{}, store.ErrNotFound
	}
	if err != nil {
		return PendingTransaction{}, fmt.Errorf("get transaction: %w", err)
	}
	p.Tx.Kind = core.TransactionKind(kind)
	p.Tx.Date, err = core.ParseDate(date)
	if err != nil {
		return PendingTransaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	return p, nil
}

// GetGoal retrieves a single goal by ID for sync processing.
func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (PendingGoal, error) {
	var (
		p    PendingGoal
		date string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT username, version, id, name, target_amount, saved_amount, target_date, icon
		 FROM goals WHERE id = ?`, id).
		Scan(&p.Username, &p.Version, &p.Goal.ID, &p.Goal.Name,
			&p.Goal.TargetAmount, &p.Goal.SavedAmount, &date, &p.Goal.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return PendingGoal{}, store.ErrNotFound
	}
	if err != nil {
		return PendingGoal{}, fmt.Errorf("get goal: %w", err)
	}
	p.Goal.TargetDate, err = core.ParseDate(date)
	if err != nil {
		return PendingGoal{}, fmt.Errorf("parse goal date: %w", err)
	}
	return p, nil
}

// GetPendingTransactions returns transactions that still need replication,
// oldest first.
func (r *SQLiteRepository) GetPendingTransactions(ctx context.Context, limit int) ([]PendingTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username, version, id, kind, amount, description, category, tx_date, xp
		 FROM transactions WHERE synced = 0
		 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingTransaction
	for rows.Next() {
		var (
			p    PendingTransaction
			kind string
			date string
		)
		if err := rows.Scan(&p.Username, &p.Version, &p.Tx.ID, &kind, &p.Tx.Amount,
			&p.Tx.Description, &p.Tx.Category, &date, &p.Tx.XP); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		p.Tx.Kind = core.TransactionKind(kind)
		p.Tx.Date, err = core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse transaction date: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPendingGoals returns goals that still need replication.
func (r *SQLiteRepository) GetPendingGoals(ctx context.Context, limit int) ([]PendingGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username, version, id, name, target_amount, saved_amount, target_date, icon
		 FROM goals WHERE synced = 0
		 ORDER BY rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending goals: %w", err)
	}
	defer rows.Close()

	var out []PendingGoal
	for rows.Next() {
		var (
			p    PendingGoal
			date string
		)
		if err := rows.Scan(&p.Username, &p.Version, &p.Goal.ID, &p.Goal.Name,
			&p.Goal.TargetAmount, &p.Goal.SavedAmount, &date, &p.Goal.Icon); err != nil {
			return nil, fmt.Errorf("scan pending goal: %w", err)
		}
		var err error
		p.Goal.TargetDate, err = core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse goal date: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkTransactionSynced records a successful replication. The check against
// version skips rows rewritten while the sync was in flight.
func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id string, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET synced = 1, sync_error = NULL
		 WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction marked as synced", "id", id, "version", version)
	return nil
}

// MarkTransactionSyncError records a failed replication attempt.
func (r *SQLiteRepository) MarkTransactionSyncError(ctx context.Context, id, message string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_error = ? WHERE id = ?`, message, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}

	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id, "sync_error", message)
	return nil
}

// MarkGoalSynced records a successful goal replication.
func (r *SQLiteRepository) MarkGoalSynced(ctx context.Context, id string, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE goals SET synced = 1, sync_error = NULL
		 WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark goal synced: %w", err)
	}

	slog.InfoContext(ctx, "Goal marked as synced", "id", id, "version", version)
	return nil
}

// MarkGoalSyncError records a failed goal replication attempt.
func (r *SQLiteRepository) MarkGoalSyncError(ctx context.Context, id, message string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE goals SET sync_error = ? WHERE id = ?`, message, id)
	if err != nil {
		return fmt.Errorf("mark goal sync error: %w", err)
	}

	slog.WarnContext(ctx, "Goal marked with sync error", "id", id, "sync_error", message)
	return nil
}
