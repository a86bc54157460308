// Package memory is the in-memory backend used in dev mode and tests.
package memory

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"financequest/internal/core"
	"financequest/internal/sheets"
	"financequest/internal/store"
)

type account struct {
	name         string
	passwordHash string
	profile      core.Profile
	transactions map[string]core.Transaction
	goals        []core.Goal
	achievements []core.Achievement
}

type Store struct {
	mu       sync.Mutex
	accounts map[string]*account
}

var (
	_ store.Store       = (*Store)(nil)
	_ sheets.Replicator = (*Store)(nil)
)

func New() *Store {
	return &Store{accounts: map[string]*account{}}
}

// NewFromFiles seeds accounts from seed_users.txt in base, one
// "username:name:password" line each. A missing file yields an empty store.
func NewFromFiles(base string) *Store {
	s := New()
	for _, line := range readLines(filepath.Join(base, "seed_users.txt")) {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		if err := s.CreateUser(context.Background(), parts[1], parts[0], parts[2]); err != nil {
			slog.Warn("Skipping seed user", "username", parts[0], "error", err)
		}
	}
	return s
}

func (s *Store) CreateUser(_ context.Context, name, username, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[username]; ok {
		return core.ErrDuplicateUsername
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	s.accounts[username] = &account{
		name:         strings.TrimSpace(name),
		passwordHash: string(hash),
		profile:      core.NewProfile(name, username),
		transactions: map[string]core.Transaction{},
	}
	return nil
}

func (s *Store) Authenticate(_ context.Context, username, password string) (core.Profile, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return core.Profile{}, store.ErrNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(password)) != nil {
		return core.Profile{}, core.ErrBadCredentials
	}
	return acc.profile, nil
}

func (s *Store) LoadProfile(_ context.Context, username string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(username)]
	if !ok {
		return core.Profile{}, store.ErrNotFound
	}
	return acc.profile, nil
}

func (s *Store) SaveProfile(_ context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.account(p.Username)
	if err != nil {
		return err
	}
	acc.profile = p
	return nil
}

func (s *Store) ListTransactions(_ context.Context, username string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.account(username)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(acc.transactions))
	for _, tx := range acc.transactions {
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) SaveTransaction(_ context.Context, username string, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.account(username)
	if err != nil {
		return err
	}
	acc.transactions[tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, username, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.account(username)
	if err != nil {
		return err
	}
	delete(acc.transactions, id)
	return nil
}

func (s *Store) ListGoals(_ context.Context, username string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.account(username)
	if err != nil {
		return nil, err
	}
	out := make([]core.Goal, len(acc.goals))
	copy(out, acc.goals)
	return out, nil
}

func (s *Store) SaveGoal(_ context.Context, username string, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.account(username)
	if err != nil {
		return err
	}
	for i := range acc.goals {
		if acc.goals[i].ID == g.ID {
			acc.goals[i] = g
			return nil
		}
	}
	acc.goals = append(acc.goals, g)
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, username, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.account(username)
	if err != nil {
		return err
	}
	for i := range acc.goals {
		if acc.goals[i].ID == id {
			acc.goals = append(acc.goals[:i], acc.goals[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) ListAchievements(_ context.Context, username string) ([]core.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.account(username)
	if err != nil {
		return nil, err
	}
	out := make([]core.Achievement, len(acc.achievements))
	copy(out, acc.achievements)
	return out, nil
}

func (s *Store) SaveAchievements(_ context.Context, username string, list []core.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.account(username)
	if err != nil {
		return err
	}
	acc.achievements = make([]core.Achievement, len(list))
	copy(acc.achievements, list)
	return nil
}

func (s *Store) Purge(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.account(username)
	if err != nil {
		return err
	}
	acc.transactions = map[string]core.Transaction{}
	acc.goals = nil
	return nil
}

// account looks up a user; caller holds the lock.
func (s *Store) account(username string) (*account, error) {
	acc, ok := s.accounts[strings.ToLower(username)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return acc, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
