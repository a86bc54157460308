package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewTransaction(t *testing.T) {
	date := NewDate(2025, 8, 1)

	tx, err := NewTransaction(Expense, 12000, "lunch", "Makanan", date)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if tx.Category != "Makanan" {
		t.Fatalf("category = %q", tx.Category)
	}
	if tx.XP != 1 {
		t.Fatalf("xp = %d, want 1", tx.XP)
	}
	if tx.ID == "" {
		t.Fatalf("expected generated id")
	}

	// Income always gets the fixed category, whatever the caller sent.
	in, err := NewTransaction(Income, 50000, "salary", "whatever", date)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if in.Category != IncomeCategory {
		t.Fatalf("income category = %q, want %q", in.Category, IncomeCategory)
	}

	if _, err := NewTransaction(Expense, 0, "x", "c", date); err != ErrInvalidAmount {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := NewTransaction(Expense, -5, "x", "c", date); err != ErrInvalidAmount {
		t.Fatalf("negative amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := NewTransaction("transfer", 10, "x", "c", date); err != ErrInvalidKind {
		t.Fatalf("bad kind: expected ErrInvalidKind, got %v", err)
	}
}

func TestXPForAmount(t *testing.T) {
	cases := []struct {
		amount int64
		xp     int
	}{
		{10000, 1},
		{25000, 2},
		{5000, 1},
		{1, 1},
		{100000, 10},
		{9999, 1},
	}
	for _, tc := range cases {
		if got := XPForAmount(tc.amount); got != tc.xp {
			t.Fatalf("XPForAmount(%d) = %d, want %d", tc.amount, got, tc.xp)
		}
	}
}

func TestNewGoal(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	future := NewDate(2025, 12, 31)

	g, err := NewGoal("Laptop", 1500000, 0, future, "💻", now)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if g.Completed() {
		t.Fatalf("fresh goal should not be completed")
	}
	if g.Remaining() != 1500000 {
		t.Fatalf("remaining = %d", g.Remaining())
	}

	// Initial saved amount is clamped at the target.
	g2, err := NewGoal("Phone", 100, 250, future, "", now)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if g2.SavedAmount != 100 {
		t.Fatalf("saved = %d, want clamp at 100", g2.SavedAmount)
	}
	if !g2.Completed() {
		t.Fatalf("clamped-at-target goal is completed")
	}

	if _, err := NewGoal("x", 0, 0, future, "", now); err != ErrInvalidAmount {
		t.Fatalf("zero target: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := NewGoal("x", 100, 0, NewDate(2025, 7, 1), "", now); err != ErrPastTargetDate {
		t.Fatalf("past date: expected ErrPastTargetDate, got %v", err)
	}
	if _, err := NewGoal("x", 100, 0, DateOf(now), "", now); err != ErrPastTargetDate {
		t.Fatalf("same-day date: expected ErrPastTargetDate, got %v", err)
	}
	if _, err := NewGoal("  ", 100, 0, future, "", now); err != ErrEmptyName {
		t.Fatalf("blank name: expected ErrEmptyName, got %v", err)
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2025, 3, 9)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-03-09"` {
		t.Fatalf("marshal = %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v != %v", back, d)
	}

	// Timestamps from older exports are truncated to the date part.
	var ts Date
	if err := json.Unmarshal([]byte(`"2025-03-09T15:04:05Z"`), &ts); err != nil {
		t.Fatalf("unmarshal timestamp: %v", err)
	}
	if !ts.Equal(d.Time) {
		t.Fatalf("timestamp truncation mismatch: %v", ts)
	}
}

func TestValidateRegistration(t *testing.T) {
	cases := []struct {
		name, user, pass, confirm string
		want                      error
	}{
		{"Budi", "budi", "rahasia", "rahasia", nil},
		{"", "budi", "rahasia", "rahasia", ErrEmptyName},
		{"Budi", "", "rahasia", "rahasia", ErrEmptyUsername},
		{"Budi", "budi", "rahasia", "beda", ErrPasswordMismatch},
		{"Budi", "budi", "abc", "abc", ErrPasswordTooShort},
	}
	for i, tc := range cases {
		if got := ValidateRegistration(tc.name, tc.user, tc.pass, tc.confirm); got != tc.want {
			t.Fatalf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}

func TestNewIDOrdering(t *testing.T) {
	a := NewID()
	time.Sleep(2 * time.Millisecond)
	b := NewID()
	if a == b {
		t.Fatalf("ids must be unique")
	}
	if !(a < b) {
		t.Fatalf("ids should order by generation time: %q >= %q", a, b)
	}
}
