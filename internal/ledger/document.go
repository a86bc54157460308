package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"financequest/internal/achievements"
	"financequest/internal/core"
)

// DocumentVersion is the export format version.
const DocumentVersion = "1.0"

// ErrInvalidDocument is returned when an import payload is missing one of
// the required collections.
var ErrInvalidDocument = errors.New("invalid backup document")

// Document is the full-state backup format. Achievements are optional in
// imports from older exports.
type Document struct {
	User         core.Profile       `json:"user"`
	Transactions []core.Transaction `json:"transactions"`
	Goals        []core.Goal        `json:"goals"`
	Achievements []core.Achievement `json:"achievements,omitempty"`
	ExportDate   time.Time          `json:"exportDate"`
	Version      string             `json:"version"`
}

// Export snapshots the whole session as a backup document.
func (s *Session) Export() Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := Document{
		User:       s.profile,
		ExportDate: s.clock(),
		Version:    DocumentVersion,
	}
	doc.Transactions = make([]core.Transaction, len(s.transactions))
	copy(doc.Transactions, s.transactions)
	doc.Goals = make([]core.Goal, len(s.goals))
	copy(doc.Goals, s.goals)
	doc.Achievements = make([]core.Achievement, len(s.achievements))
	copy(doc.Achievements, s.achievements)
	return doc
}

// Import replaces the whole session state with the document in data. The
// user, transactions and goals keys must all be present; achievements fall
// back to a fresh catalog. The session keeps its own username so an import
// cannot move data between accounts.
func (s *Session) Import(ctx context.Context, data []byte) error {
	var doc struct {
		User         *core.Profile       `json:"user"`
		Transactions *[]core.Transaction `json:"transactions"`
		Goals        *[]core.Goal        `json:"goals"`
		Achievements []core.Achievement  `json:"achievements"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return ErrInvalidDocument
	}
	if doc.User == nil || doc.Transactions == nil || doc.Goals == nil {
		return ErrInvalidDocument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username := s.profile.Username
	s.profile = *doc.User
	s.profile.Username = username
	s.transactions = *doc.Transactions
	s.goals = *doc.Goals
	if len(doc.Achievements) > 0 {
		s.achievements = doc.Achievements
	} else {
		s.achievements = achievements.Catalog()
	}
	s.replaceAll(ctx)
	return nil
}

// Reset wipes the ledger back to a fresh account: no transactions or goals,
// level 1, and every badge un-earned. This is the only way an earned badge
// is ever cleared.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions = nil
	s.goals = nil
	s.profile.Level = 1
	s.profile.XP = 0
	s.profile.MaxXP = 100
	s.profile.Streak = 1
	achievements.Reset(s.achievements)
	s.replaceAll(ctx)
}

// ApplyRemoteSnapshot replaces collections with state replicated from the
// cloud document store, last writer wins, then re-runs the badge pass. A nil
// collection means the snapshot did not carry it and the local copy stays.
// Badge XP can be credited again if the snapshot arrives with badges
// un-earned that the session already earned; there is no idempotency guard.
func (s *Session) ApplyRemoteSnapshot(ctx context.Context, txs []core.Transaction, goals []core.Goal, badges []core.Achievement) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if txs != nil {
		s.transactions = txs
	}
	if goals != nil {
		s.goals = goals
	}
	if badges != nil {
		s.achievements = badges
	}
	s.checkAchievements(ctx)
	s.replaceAll(ctx)
}

// replaceAll persists the full session state: purge then rewrite every
// collection. Caller holds the lock.
func (s *Session) replaceAll(ctx context.Context) {
	if s.store == nil {
		return
	}
	username := s.profile.Username
	if err := s.store.Purge(ctx, username); err != nil {
		s.persistFailed(ctx, "purge", err)
	}
	for _, tx := range s.transactions {
		if err := s.store.SaveTransaction(ctx, username, tx); err != nil {
			s.persistFailed(ctx, "save transaction", err)
		}
	}
	for _, g := range s.goals {
		if err := s.store.SaveGoal(ctx, username, g); err != nil {
			s.persistFailed(ctx, "save goal", err)
		}
	}
	if err := s.store.SaveAchievements(ctx, username, s.achievements); err != nil {
		s.persistFailed(ctx, "save achievements", err)
	}
	s.saveProfile(ctx)
}
