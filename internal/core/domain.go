package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

// IncomeCategory is the fixed category label assigned to every income
// transaction, regardless of what the caller supplied.
const IncomeCategory = "Pendapatan"

type (
	TransactionKind string

	// Date is a calendar date with no time component.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id"`
		Kind        TransactionKind `json:"type"`
		Amount      int64           `json:"amount"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		XP          int             `json:"xp"`
	}

	Goal struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		TargetAmount int64  `json:"targetAmount"`
		SavedAmount  int64  `json:"savedAmount"`
		TargetDate   Date   `json:"targetDate"`
		Icon         string `json:"icon"`
	}

	Profile struct {
		Name      string    `json:"name"`
		Username  string    `json:"username"`
		Level     int       `json:"level"`
		XP        int       `json:"xp"`
		MaxXP     int       `json:"maxXp"`
		Streak    int       `json:"streak"`
		LastLogin time.Time `json:"lastLogin"`
	}

	Achievement struct {
		ID          int       `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Icon        string    `json:"icon"`
		Earned      bool      `json:"earned"`
		EarnedDate  time.Time `json:"earnedDate,omitempty"`
	}
)

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyUsername     = errors.New("empty username")
	ErrPastTargetDate    = errors.New("target date must be in the future")
	ErrPasswordTooShort  = errors.New("password must be at least 4 characters")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrDuplicateUsername = errors.New("username already registered")
	ErrBadCredentials    = errors.New("invalid username or password")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

const dateLayout = "2006-01-02"

// ParseDate parses a date in "2006-01-02" form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps too; only the date part matters.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SameMonth reports whether d falls in the same calendar month and year as t.
func (d Date) SameMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Month() == t.Month()
}

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

// NewTransaction builds a validated transaction. Income transactions get the
// fixed income category; the XP award is computed once here and never changes.
func NewTransaction(kind TransactionKind, amount int64, description, category string, date Date) (Transaction, error) {
	if !kind.Valid() {
		return Transaction{}, ErrInvalidKind
	}
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	if kind == Income {
		category = IncomeCategory
	}
	return Transaction{
		ID:          NewID(),
		Kind:        kind,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
		Date:        date,
		XP:          XPForAmount(amount),
	}, nil
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NewGoal builds a validated goal. The initial saved amount is clamped into
// [0, target]; the target date must be strictly after now.
func NewGoal(name string, targetAmount, savedAmount int64, targetDate Date, icon string, now time.Time) (Goal, error) {
	if strings.TrimSpace(name) == "" {
		return Goal{}, ErrEmptyName
	}
	if targetAmount <= 0 {
		return Goal{}, ErrInvalidAmount
	}
	if !targetDate.After(now) {
		return Goal{}, ErrPastTargetDate
	}
	if savedAmount < 0 {
		savedAmount = 0
	}
	if savedAmount > targetAmount {
		savedAmount = targetAmount
	}
	if icon == "" {
		icon = "🎯"
	}
	return Goal{
		ID:           NewID(),
		Name:         strings.TrimSpace(name),
		TargetAmount: targetAmount,
		SavedAmount:  savedAmount,
		TargetDate:   targetDate,
		Icon:         icon,
	}, nil
}

// Completed reports whether the goal is fully funded. Completion is always
// derived, never stored.
func (g Goal) Completed() bool {
	return g.SavedAmount >= g.TargetAmount
}

// Remaining returns the amount still needed to reach the target.
func (g Goal) Remaining() int64 {
	if g.Completed() {
		return 0
	}
	return g.TargetAmount - g.SavedAmount
}

// NewProfile returns a fresh profile at level 1. The streak starts at zero;
// the first session start sets it to 1.
func NewProfile(name, username string) Profile {
	return Profile{
		Name:     strings.TrimSpace(name),
		Username: strings.ToLower(strings.TrimSpace(username)),
		Level:    1,
		XP:       0,
		MaxXP:    100,
	}
}

// ValidateRegistration checks the registration form rules: password length
// and confirmation. Username uniqueness is checked by the user registry.
func ValidateRegistration(name, username, password, confirm string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < 4 {
		return ErrPasswordTooShort
	}
	return nil
}
