// Package achievements holds the fixed badge catalog and the evaluator that
// latches badges on as the ledger evolves.
package achievements

import (
	"time"

	"financequest/internal/core"
	"financequest/internal/metrics"
)

// Snapshot is the ledger state an evaluation pass reads. Evaluation never
// mutates it.
type Snapshot struct {
	Transactions []core.Transaction
	Goals        []core.Goal
}

// Catalog returns the full badge list in display order, all un-earned.
func Catalog() []core.Achievement {
	return []core.Achievement{
		{ID: 1, Name: "Pemula Keuangan", Description: "Buat transaksi pertamamu", Icon: "🌱"},
		{ID: 2, Name: "Pencatat Rajin", Description: "Catat 10 transaksi", Icon: "📝"},
		{ID: 3, Name: "Master Keuangan", Description: "Catat 50 transaksi", Icon: "👑"},
		{ID: 4, Name: "Penabung Handal", Description: "Capai tabungan 1 juta", Icon: "💰"},
		{ID: 5, Name: "Streak 7 Hari", Description: "Login 7 hari berturut-turut", Icon: "🔥"},
		{ID: 6, Name: "Pencapaian Target", Description: "Selesaikan 1 target keuangan", Icon: "🎯"},
		{ID: 7, Name: "Hemat 30%", Description: "Hemat 30% dari pendapatan", Icon: "📈"},
		{ID: 8, Name: "Multikategori", Description: "Gunakan 5 kategori berbeda", Icon: "📊"},
	}
}

// conditions maps badge ID to its unlock predicate, evaluated against the
// current snapshot and profile.
var conditions = map[int]func(Snapshot, core.Profile) bool{
	1: func(s Snapshot, _ core.Profile) bool { return len(s.Transactions) >= 1 },
	2: func(s Snapshot, _ core.Profile) bool { return len(s.Transactions) >= 10 },
	3: func(s Snapshot, _ core.Profile) bool { return len(s.Transactions) >= 50 },
	4: func(s Snapshot, _ core.Profile) bool { return metrics.Balance(s.Transactions) >= 1_000_000 },
	5: func(_ Snapshot, p core.Profile) bool { return p.Streak >= 7 },
	6: func(s Snapshot, _ core.Profile) bool {
		for _, g := range s.Goals {
			if g.Completed() {
				return true
			}
		}
		return false
	},
	7: func(s Snapshot, _ core.Profile) bool { return metrics.SavingsRate(s.Transactions) >= 30 },
	8: func(s Snapshot, _ core.Profile) bool { return metrics.UniqueCategories(s.Transactions) >= 5 },
}

// Evaluate checks every un-earned badge against the snapshot, in catalog
// order and without short-circuiting, so one pass can earn several badges at
// once. Earned badges stay earned even if their condition later stops
// holding. Newly earned badges are returned in order; the caller credits XP
// for them.
func Evaluate(list []core.Achievement, snap Snapshot, p core.Profile, now time.Time) []core.Achievement {
	var earned []core.Achievement
	for i := range list {
		if list[i].Earned {
			continue
		}
		cond, ok := conditions[list[i].ID]
		if !ok || !cond(snap, p) {
			continue
		}
		list[i].Earned = true
		list[i].EarnedDate = now
		earned = append(earned, list[i])
	}
	return earned
}

// Reset clears the earned flag on every badge in place.
func Reset(list []core.Achievement) {
	for i := range list {
		list[i].Earned = false
		list[i].EarnedDate = time.Time{}
	}
}
