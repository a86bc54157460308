// Package store defines the persistence ports every backend implements.
// Backends: SQLite (local), Google Sheets (cloud), memory (dev/test).
package store

import (
	"context"
	"errors"

	"financequest/internal/core"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ProfileStore persists the per-user game profile.
type ProfileStore interface {
	LoadProfile(ctx context.Context, username string) (core.Profile, error)
	SaveProfile(ctx context.Context, p core.Profile) error
}

// TransactionStore persists ledger transactions. ListTransactions returns
// them newest-first.
type TransactionStore interface {
	ListTransactions(ctx context.Context, username string) ([]core.Transaction, error)
	SaveTransaction(ctx context.Context, username string, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, username, id string) error
}

// GoalStore persists savings goals.
type GoalStore interface {
	ListGoals(ctx context.Context, username string) ([]core.Goal, error)
	SaveGoal(ctx context.Context, username string, g core.Goal) error
	DeleteGoal(ctx context.Context, username, id string) error
}

// AchievementStore persists the badge list wholesale; the list is small and
// fixed, so there is no per-badge write.
type AchievementStore interface {
	ListAchievements(ctx context.Context, username string) ([]core.Achievement, error)
	SaveAchievements(ctx context.Context, username string, list []core.Achievement) error
}

// UserRegistry handles account creation and login. Passwords are stored as
// bcrypt hashes; Authenticate returns ErrNotFound for unknown users and
// core.ErrBadCredentials for a wrong password.
type UserRegistry interface {
	CreateUser(ctx context.Context, name, username, password string) error
	Authenticate(ctx context.Context, username, password string) (core.Profile, error)
}

// Store is the full persistence surface a backend provides. Purge removes
// every transaction and goal for a user; profile and achievements are
// overwritten by their Save methods instead.
type Store interface {
	ProfileStore
	TransactionStore
	GoalStore
	AchievementStore
	UserRegistry

	Purge(ctx context.Context, username string) error
}

// Cleanup releases backend resources (connections, file handles).
type Cleanup func()
