// Package services wires the SQLite store to the replication queue: every
// local write is followed by a fire-and-forget sync publish, so the request
// path never waits on the broker or the cloud store.
package services

import (
	"context"
	"log/slog"

	"financequest/internal/amqp"
	"financequest/internal/core"
	"financequest/internal/storage"
	"financequest/internal/store"
)

// SyncPublisher is the queue surface the service needs; *amqp.Client
// satisfies it.
type SyncPublisher interface {
	PublishSync(ctx context.Context, msg *amqp.SyncMessage) error
}

// LedgerService decorates the SQLite repository with replication publishes.
// It is the store handed to sessions in sqlite mode.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher SyncPublisher
}

var _ store.Store = (*LedgerService)(nil)

func NewLedgerService(storage *storage.SQLiteRepository, publisher SyncPublisher) *LedgerService {
	return &LedgerService{
		storage:   storage,
		publisher: publisher,
	}
}

// SaveTransaction saves locally, then publishes a sync message. A publish
// failure never fails the save: the row stays flagged un-synced and the
// worker's pending scan picks it up.
func (s *LedgerService) SaveTransaction(ctx context.Context, username string, tx core.Transaction) error {
	if err := s.storage.SaveTransaction(ctx, username, tx); err != nil {
		return err
	}
	version := int64(1)
	if row, err := s.storage.GetTransaction(ctx, tx.ID); err == nil {
		version = row.Version
	}
	s.publish(ctx, amqp.NewSyncMessage(amqp.OpUpsert, amqp.EntityTransaction, tx.ID, username, version))
	return nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, username, id string) error {
	if err := s.storage.DeleteTransaction(ctx, username, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewSyncMessage(amqp.OpDelete, amqp.EntityTransaction, id, username, 0))
	return nil
}

func (s *LedgerService) SaveGoal(ctx context.Context, username string, g core.Goal) error {
	if err := s.storage.SaveGoal(ctx, username, g); err != nil {
		return err
	}
	version := int64(1)
	if row, err := s.storage.GetGoal(ctx, g.ID); err == nil {
		version = row.Version
	}
	s.publish(ctx, amqp.NewSyncMessage(amqp.OpUpsert, amqp.EntityGoal, g.ID, username, version))
	return nil
}

func (s *LedgerService) DeleteGoal(ctx context.Context, username, id string) error {
	if err := s.storage.DeleteGoal(ctx, username, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewSyncMessage(amqp.OpDelete, amqp.EntityGoal, id, username, 0))
	return nil
}

// Purge removes every transaction and goal locally and publishes a delete
// per removed record, so the cloud copy converges even though the rows are
// gone from the pending scan.
func (s *LedgerService) Purge(ctx context.Context, username string) error {
	txs, err := s.storage.ListTransactions(ctx, username)
	if err != nil {
		return err
	}
	goals, err := s.storage.ListGoals(ctx, username)
	if err != nil {
		return err
	}
	if err := s.storage.Purge(ctx, username); err != nil {
		return err
	}
	for _, tx := range txs {
		s.publish(ctx, amqp.NewSyncMessage(amqp.OpDelete, amqp.EntityTransaction, tx.ID, username, 0))
	}
	for _, g := range goals {
		s.publish(ctx, amqp.NewSyncMessage(amqp.OpDelete, amqp.EntityGoal, g.ID, username, 0))
	}
	return nil
}

// Profile, achievement and account operations stay local; the cloud copy of
// the profile converges through the worker's row replication.

func (s *LedgerService) LoadProfile(ctx context.Context, username string) (core.Profile, error) {
	return s.storage.LoadProfile(ctx, username)
}

func (s *LedgerService) SaveProfile(ctx context.Context, p core.Profile) error {
	return s.storage.SaveProfile(ctx, p)
}

func (s *LedgerService) ListTransactions(ctx context.Context, username string) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, username)
}

func (s *LedgerService) ListGoals(ctx context.Context, username string) ([]core.Goal, error) {
	return s.storage.ListGoals(ctx, username)
}

func (s *LedgerService) ListAchievements(ctx context.Context, username string) ([]core.Achievement, error) {
	return s.storage.ListAchievements(ctx, username)
}

func (s *LedgerService) SaveAchievements(ctx context.Context, username string, list []core.Achievement) error {
	return s.storage.SaveAchievements(ctx, username, list)
}

func (s *LedgerService) CreateUser(ctx context.Context, name, username, password string) error {
	return s.storage.CreateUser(ctx, name, username, password)
}

func (s *LedgerService) Authenticate(ctx context.Context, username, password string) (core.Profile, error) {
	return s.storage.Authenticate(ctx, username, password)
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.SyncMessage) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, skipping message",
			"op", msg.Op, "entity", msg.Entity, "id", msg.ID)
		return
	}
	if err := s.publisher.PublishSync(ctx, msg); err != nil {
		// The local write already succeeded; the pending scan recovers.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"op", msg.Op, "entity", msg.Entity, "id", msg.ID, "error", err)
	}
}
