package achievements

import (
	"testing"
	"time"

	"financequest/internal/core"
)

func mustTx(t *testing.T, kind core.TransactionKind, amount int64, category string) core.Transaction {
	t.Helper()
	tx, err := core.NewTransaction(kind, amount, "", category, core.NewDate(2025, 8, 10))
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	return tx
}

func TestCatalog(t *testing.T) {
	list := Catalog()
	if len(list) != 8 {
		t.Fatalf("catalog size = %d", len(list))
	}
	for i, a := range list {
		if a.ID != i+1 {
			t.Fatalf("catalog order broken at %d: id %d", i, a.ID)
		}
		if a.Earned {
			t.Fatalf("badge %d starts earned", a.ID)
		}
	}
	if list[0].Name != "Pemula Keuangan" || list[7].Name != "Multikategori" {
		t.Fatalf("unexpected names: %q, %q", list[0].Name, list[7].Name)
	}
}

func TestEvaluateFirstTransaction(t *testing.T) {
	list := Catalog()
	p := core.NewProfile("Budi", "budi")
	snap := Snapshot{Transactions: []core.Transaction{mustTx(t, core.Expense, 12000, "Makanan")}}

	now := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
	earned := Evaluate(list, snap, p, now)
	if len(earned) != 1 {
		t.Fatalf("earned = %d badges, want 1", len(earned))
	}
	if earned[0].ID != 1 {
		t.Fatalf("earned badge %d, want 1", earned[0].ID)
	}
	if !list[0].Earned || !list[0].EarnedDate.Equal(now) {
		t.Fatalf("badge not latched in list: %+v", list[0])
	}
}

func TestEvaluateLatchIsIdempotent(t *testing.T) {
	list := Catalog()
	p := core.NewProfile("Budi", "budi")
	snap := Snapshot{Transactions: []core.Transaction{mustTx(t, core.Expense, 12000, "Makanan")}}
	now := time.Now()

	if earned := Evaluate(list, snap, p, now); len(earned) != 1 {
		t.Fatalf("first pass earned %d", len(earned))
	}
	if earned := Evaluate(list, snap, p, now); len(earned) != 0 {
		t.Fatalf("second pass re-earned %d badges", len(earned))
	}

	// Earned stays earned even if the condition stops holding.
	empty := Snapshot{}
	if earned := Evaluate(list, empty, p, now); len(earned) != 0 {
		t.Fatalf("empty snapshot earned %d badges", len(earned))
	}
	if !list[0].Earned {
		t.Fatalf("latch lost on condition regression")
	}
}

func TestEvaluateSeveralInOnePass(t *testing.T) {
	list := Catalog()
	p := core.NewProfile("Budi", "budi")
	p.Streak = 7

	txs := []core.Transaction{mustTx(t, core.Income, 5_000_000, "")}
	for _, c := range []string{"Makanan", "Transportasi", "Hiburan", "Kesehatan", "Belanja"} {
		txs = append(txs, mustTx(t, core.Expense, 100_000, c))
	}
	for len(txs) < 10 {
		txs = append(txs, mustTx(t, core.Expense, 10_000, "Makanan"))
	}
	goal := core.Goal{ID: "g1", Name: "Dana Darurat", TargetAmount: 100, SavedAmount: 100}
	snap := Snapshot{Transactions: txs, Goals: []core.Goal{goal}}

	earned := Evaluate(list, snap, p, time.Now())
	// First tx, 10 txs, balance >= 1jt, 7-day streak, completed goal,
	// savings >= 30%, 5 categories. Only the 50-transaction badge is out.
	if len(earned) != 7 {
		t.Fatalf("earned %d badges, want 7", len(earned))
	}
	for i := 1; i < len(earned); i++ {
		if earned[i].ID <= earned[i-1].ID {
			t.Fatalf("earned out of catalog order: %d after %d", earned[i].ID, earned[i-1].ID)
		}
	}
	if list[2].Earned {
		t.Fatalf("50-transaction badge should not be earned")
	}
}

func TestEvaluateThresholds(t *testing.T) {
	p := core.NewProfile("Budi", "budi")

	// Exactly at the 5-category boundary.
	var txs []core.Transaction
	for _, c := range []string{"Makanan", "Transportasi", "Hiburan", "Kesehatan"} {
		txs = append(txs, mustTx(t, core.Expense, 1000, c))
	}
	list := Catalog()
	Evaluate(list, Snapshot{Transactions: txs}, p, time.Now())
	if list[7].Earned {
		t.Fatalf("4 categories must not earn the multi-category badge")
	}
	txs = append(txs, mustTx(t, core.Expense, 1000, "Belanja"))
	Evaluate(list, Snapshot{Transactions: txs}, p, time.Now())
	if !list[7].Earned {
		t.Fatalf("5 categories must earn the multi-category badge")
	}

	// Streak badge reads the profile, not the ledger.
	list = Catalog()
	p.Streak = 6
	Evaluate(list, Snapshot{}, p, time.Now())
	if list[4].Earned {
		t.Fatalf("streak 6 must not earn the streak badge")
	}
	p.Streak = 7
	Evaluate(list, Snapshot{}, p, time.Now())
	if !list[4].Earned {
		t.Fatalf("streak 7 must earn the streak badge")
	}
}

func TestReset(t *testing.T) {
	list := Catalog()
	p := core.NewProfile("Budi", "budi")
	snap := Snapshot{Transactions: []core.Transaction{mustTx(t, core.Expense, 1000, "Makanan")}}
	Evaluate(list, snap, p, time.Now())

	Reset(list)
	for _, a := range list {
		if a.Earned || !a.EarnedDate.IsZero() {
			t.Fatalf("badge %d not reset: %+v", a.ID, a)
		}
	}
}
