// Package storage is the local SQLite backend: the authoritative store in
// sqlite mode, with per-row sync flags the replication worker drains.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"financequest/internal/core"
	"financequest/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser registers an account with a bcrypt-hashed password and seeds a
// fresh level-1 profile in the same transaction.
func (r *SQLiteRepository) CreateUser(ctx context.Context, name, username, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (username, name, password_hash) VALUES (?, ?, ?)`,
		username, strings.TrimSpace(name), string(hash))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrDuplicateUsername
	}

	p := core.NewProfile(name, username)
	if _, err := dbTx.ExecContext(ctx,
		`INSERT INTO profiles (username, level, xp, max_xp, streak) VALUES (?, ?, ?, ?, ?)`,
		p.Username, p.Level, p.XP, p.MaxXP, p.Streak); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "username", username)
	return nil
}

// Authenticate verifies a username/password pair and returns the profile.
func (r *SQLiteRepository) Authenticate(ctx context.Context, username, password string) (core.Profile, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, store.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("load credentials: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return core.Profile{}, core.ErrBadCredentials
	}
	return r.LoadProfile(ctx, username)
}

func (r *SQLiteRepository) LoadProfile(ctx context.Context, username string) (core.Profile, error) {
	var (
		p         core.Profile
		lastLogin sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT u.name, u.username, p.level, p.xp, p.max_xp, p.streak, p.last_login
		 FROM profiles p JOIN users u ON u.username = p.username
		 WHERE p.username = ?`, strings.ToLower(username)).
		Scan(&p.Name, &p.Username, &p.Level, &p.XP, &p.MaxXP, &p.Streak, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, store.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	if lastLogin.Valid {
		t, err := time.Parse(time.RFC3339, lastLogin.String)
		if err != nil {
			return core.Profile{}, fmt.Errorf("parse last login: %w", err)
		}
		p.LastLogin = t
	}
	return p, nil
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.Profile) error {
	var lastLogin any
	if !p.LastLogin.IsZero() {
		lastLogin = p.LastLogin.UTC().Format(time.RFC3339)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET level = ?, xp = ?, max_xp = ?, streak = ?, last_login = ?
		 WHERE username = ?`,
		p.Level, p.XP, p.MaxXP, p.Streak, lastLogin, p.Username)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, username string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, amount, description, category, tx_date, xp
		 FROM transactions WHERE username = ?
		 ORDER BY tx_date DESC, created_at DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// SaveTransaction inserts or rewrites a transaction. Any write resets the
// sync flag so the worker picks the row up again.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, username string, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, username, kind, amount, description, category, tx_date, xp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   kind = excluded.kind, amount = excluded.amount,
		   description = excluded.description, category = excluded.category,
		   tx_date = excluded.tx_date, xp = excluded.xp,
		   version = version + 1, synced = 0, sync_error = NULL`,
		tx.ID, username, string(tx.Kind), tx.Amount, tx.Description, tx.Category, tx.Date.String(), tx.XP)
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID, "username", username, "kind", tx.Kind, "amount", tx.Amount)
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, username, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE username = ? AND id = ?`, username, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, username string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, target_amount, saved_amount, target_date, icon
		 FROM goals WHERE username = ? ORDER BY rowid`, username)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g    core.Goal
			date string
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.TargetAmount, &g.SavedAmount, &date, &g.Icon); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.TargetDate, err = core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse goal date: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveGoal(ctx context.Context, username string, g core.Goal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, username, name, target_amount, saved_amount, target_date, icon)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, target_amount = excluded.target_amount,
		   saved_amount = excluded.saved_amount, target_date = excluded.target_date,
		   icon = excluded.icon,
		   version = version + 1, synced = 0, sync_error = NULL`,
		g.ID, username, g.Name, g.TargetAmount, g.SavedAmount, g.TargetDate.String(), g.Icon)
	if err != nil {
		return fmt.Errorf("save goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, username, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE username = ? AND id = ?`, username, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAchievements(ctx context.Context, username string) ([]core.Achievement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT badge_id, name, description, icon, earned, earned_date
		 FROM achievements WHERE username = ? ORDER BY badge_id`, username)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var out []core.Achievement
	for rows.Next() {
		var (
			a      core.Achievement
			earned sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &a.Earned, &earned); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		if earned.Valid {
			t, err := time.Parse(time.RFC3339, earned.String)
			if err != nil {
				return nil, fmt.Errorf("parse earned date: %w", err)
			}
			a.EarnedDate = t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveAchievements(ctx context.Context, username string, list []core.Achievement) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	for _, a := range list {
		var earned any
		if !a.EarnedDate.IsZero() {
			earned = a.EarnedDate.UTC().Format(time.RFC3339)
		}
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO achievements (username, badge_id, name, description, icon, earned, earned_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (username, badge_id) DO UPDATE SET
			   earned = excluded.earned, earned_date = excluded.earned_date`,
			username, a.ID, a.Name, a.Description, a.Icon, a.Earned, earned); err != nil {
			return fmt.Errorf("save achievement %d: %w", a.ID, err)
		}
	}
	return dbTx.Commit()
}

func (r *SQLiteRepository) Purge(ctx context.Context, username string) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE username = ?`, username); err != nil {
		return fmt.Errorf("purge transactions: %w", err)
	}
	if _, err := dbTx.ExecContext(ctx, `DELETE FROM goals WHERE username = ?`, username); err != nil {
		return fmt.Errorf("purge goals: %w", err)
	}
	return dbTx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx   core.Transaction
		kind string
		date string
	)
	if err := row.Scan(&tx.ID, &kind, &tx.Amount, &tx.Description, &tx.Category, &date, &tx.XP); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Kind = core.TransactionKind(kind)
	parsed, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	tx.Date = parsed
	return tx, nil
}
