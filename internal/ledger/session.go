// Package ledger holds the per-user session: the authoritative in-memory
// ledger state and every operation that mutates it. Mutations persist
// through the store port optimistically: a failed write is logged and
// flagged, never rolled back.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"financequest/internal/achievements"
	"financequest/internal/advice"
	"financequest/internal/core"
	"financequest/internal/metrics"
	"financequest/internal/progression"
	"financequest/internal/store"
)

// ErrGoalNotFound is returned by goal contributions targeting an unknown ID.
// Deletes are deliberately more lenient and treat an unknown ID as a no-op.
var ErrGoalNotFound = errors.New("goal not found")

// RecentLimit is how many transactions the dashboard summary carries.
const RecentLimit = 5

// Session is one user's live ledger. All methods are safe for concurrent
// use; the HTTP layer shares a session across requests.
type Session struct {
	mu sync.Mutex

	profile      core.Profile
	transactions []core.Transaction // newest first
	goals        []core.Goal
	achievements []core.Achievement

	store   store.Store // nil in pure in-memory tests
	pending bool        // a persistence write failed since the last full sync

	clock func() time.Time
}

// Load hydrates a session for username from the backend. A missing badge
// list falls back to the fresh catalog.
func Load(ctx context.Context, st store.Store, username string) (*Session, error) {
	p, err := st.LoadProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	txs, err := st.ListTransactions(ctx, username)
	if err != nil {
		return nil, err
	}
	goals, err := st.ListGoals(ctx, username)
	if err != nil {
		return nil, err
	}
	badges, err := st.ListAchievements(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if len(badges) == 0 {
		badges = achievements.Catalog()
	}
	return &Session{
		profile:      p,
		transactions: txs,
		goals:        goals,
		achievements: badges,
		store:        st,
		clock:        time.Now,
	}, nil
}

// NewSession builds a session around an existing profile without touching a
// backend. Used for freshly registered users and in tests.
func NewSession(p core.Profile, st store.Store) *Session {
	return &Session{
		profile:      p,
		achievements: achievements.Catalog(),
		store:        st,
		clock:        time.Now,
	}
}

// Start runs the streak evaluation for a new session and persists the
// updated profile.
func (s *Session) Start(ctx context.Context) core.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	progression.StartSession(&s.profile, s.clock())
	s.checkAchievements(ctx)
	s.saveProfile(ctx)
	return s.profile
}

// AddTransaction validates and records a transaction at the head of the
// ledger, credits its XP, and runs a badge pass.
func (s *Session) AddTransaction(ctx context.Context, kind core.TransactionKind, amount int64, description, category string, date core.Date) (core.Transaction, error) {
	tx, err := core.NewTransaction(kind, amount, description, category, date)
	if err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions = append([]core.Transaction{tx}, s.transactions...)
	progression.AddXP(&s.profile, tx.XP)
	s.checkAchievements(ctx)

	if s.store != nil {
		if err := s.store.SaveTransaction(ctx, s.profile.Username, tx); err != nil {
			s.persistFailed(ctx, "save transaction", err)
		}
	}
	s.saveProfile(ctx)
	return tx, nil
}

// DeleteTransaction removes a transaction by ID. Unknown IDs are a no-op;
// XP already earned from the transaction is kept.
func (s *Session) DeleteTransaction(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, tx := range s.transactions {
		if tx.ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			break
		}
	}
	if s.store != nil {
		if err := s.store.DeleteTransaction(ctx, s.profile.Username, id); err != nil {
			s.persistFailed(ctx, "delete transaction", err)
		}
	}
}

// AddGoal records a new savings goal and credits the creation XP.
func (s *Session) AddGoal(ctx context.Context, name string, targetAmount, savedAmount int64, targetDate core.Date, icon string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := core.NewGoal(name, targetAmount, savedAmount, targetDate, icon, s.clock())
	if err != nil {
		return core.Goal{}, err
	}
	s.goals = append(s.goals, g)
	progression.AddXP(&s.profile, progression.GoalCreatedXP)
	s.checkAchievements(ctx)

	if s.store != nil {
		if err := s.store.SaveGoal(ctx, s.profile.Username, g); err != nil {
			s.persistFailed(ctx, "save goal", err)
		}
	}
	s.saveProfile(ctx)
	return g, nil
}

// ContributeToGoal adds amount to a goal's saved total, clamped at the
// target. Every contribution earns XP; the one that reaches the target earns
// the completion bonus on top, exactly once.
func (s *Session) ContributeToGoal(ctx context.Context, id string, amount int64) (core.Goal, error) {
	if amount <= 0 {
		return core.Goal{}, core.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.goalIndex(id)
	if i < 0 {
		return core.Goal{}, ErrGoalNotFound
	}
	g := &s.goals[i]
	wasCompleted := g.Completed()

	g.SavedAmount += amount
	if g.SavedAmount > g.TargetAmount {
		g.SavedAmount = g.TargetAmount
	}
	progression.AddXP(&s.profile, progression.GoalContributionXP)
	if !wasCompleted && g.Completed() {
		progression.AddXP(&s.profile, progression.GoalCompletedXP)
	}
	s.checkAchievements(ctx)

	if s.store != nil {
		if err := s.store.SaveGoal(ctx, s.profile.Username, *g); err != nil {
			s.persistFailed(ctx, "save goal", err)
		}
	}
	s.saveProfile(ctx)
	return *g, nil
}

// DeleteGoal removes a goal by ID. Unknown IDs are a no-op.
func (s *Session) DeleteGoal(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.goalIndex(id); i >= 0 {
		s.goals = append(s.goals[:i], s.goals[i+1:]...)
	}
	if s.store != nil {
		if err := s.store.DeleteGoal(ctx, s.profile.Username, id); err != nil {
			s.persistFailed(ctx, "delete goal", err)
		}
	}
}

// Profile returns a copy of the current profile.
func (s *Session) Profile() core.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Transactions returns a copy of the ledger, newest first.
func (s *Session) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Goals returns a copy of the goal list in creation order.
func (s *Session) Goals() []core.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Goal, len(s.goals))
	copy(out, s.goals)
	return out
}

// Achievements returns a copy of the badge list in catalog order.
func (s *Session) Achievements() []core.Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Achievement, len(s.achievements))
	copy(out, s.achievements)
	return out
}

// Pending reports whether any persistence write has failed since the session
// was loaded. The sync worker clears it out of band.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Summary is the dashboard payload: profile, lifetime and monthly totals,
// and the most recent transactions.
type Summary struct {
	Profile          core.Profile       `json:"profile"`
	TotalIncome      int64              `json:"totalIncome"`
	TotalExpense     int64              `json:"totalExpense"`
	Balance          int64              `json:"balance"`
	MonthlyIncome    int64              `json:"monthlyIncome"`
	MonthlyExpense   int64              `json:"monthlyExpense"`
	SavingsRate      float64            `json:"savingsRate"`
	UniqueCategories int                `json:"uniqueCategories"`
	Recent           []core.Transaction `json:"recent"`
}

// Summarize computes the dashboard summary for the current state.
func (s *Session) Summarize() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	recent := s.transactions
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	out := make([]core.Transaction, len(recent))
	copy(out, recent)

	return Summary{
		Profile:          s.profile,
		TotalIncome:      metrics.TotalIncome(s.transactions),
		TotalExpense:     metrics.TotalExpense(s.transactions),
		Balance:          metrics.Balance(s.transactions),
		MonthlyIncome:    metrics.MonthlyIncome(s.transactions, now),
		MonthlyExpense:   metrics.MonthlyExpense(s.transactions, now),
		SavingsRate:      metrics.SavingsRate(s.transactions),
		UniqueCategories: metrics.UniqueCategories(s.transactions),
		Recent:           out,
	}
}

// Analytics is the chart payload: category aggregates and time-series flows.
type Analytics struct {
	CategoryTotals []core.CategoryAmount `json:"categoryTotals"`
	TopCategories  []core.CategoryAmount `json:"topCategories"`
	NetByMonth     []core.MonthFlow      `json:"netByMonth"`
	DailyFlow      []core.DayFlow        `json:"dailyFlow"`
}

// Analyze computes the chart aggregates: top 5 categories, the last 6
// months of net flow, and the last 7 days of income/expense.
func (s *Session) Analyze() Analytics {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	return Analytics{
		CategoryTotals: metrics.CategoryTotals(s.transactions),
		TopCategories:  metrics.TopCategories(s.transactions, 5),
		NetByMonth:     metrics.NetByMonth(s.transactions, now, 6),
		DailyFlow:      metrics.DailyFlow(s.transactions, now, 7),
	}
}

// Advice returns the coaching messages for the current state.
func (s *Session) Advice() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return advice.Generate(s.transactions, s.goals, s.clock())
}

// checkAchievements runs a badge pass and credits XP for each new badge.
// Caller holds the lock.
func (s *Session) checkAchievements(ctx context.Context) {
	snap := achievements.Snapshot{Transactions: s.transactions, Goals: s.goals}
	earned := achievements.Evaluate(s.achievements, snap, s.profile, s.clock())
	if len(earned) == 0 {
		return
	}
	for range earned {
		progression.AddXP(&s.profile, progression.AchievementXP)
	}
	if s.store != nil {
		if err := s.store.SaveAchievements(ctx, s.profile.Username, s.achievements); err != nil {
			s.persistFailed(ctx, "save achievements", err)
		}
	}
}

// saveProfile persists the profile. Caller holds the lock.
func (s *Session) saveProfile(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveProfile(ctx, s.profile); err != nil {
		s.persistFailed(ctx, "save profile", err)
	}
}

func (s *Session) persistFailed(ctx context.Context, op string, err error) {
	s.pending = true
	slog.ErrorContext(ctx, "Persistence write failed, state kept in memory",
		"op", op, "username", s.profile.Username, "error", err)
}

func (s *Session) goalIndex(id string) int {
	for i := range s.goals {
		if s.goals[i].ID == id {
			return i
		}
	}
	return -1
}
