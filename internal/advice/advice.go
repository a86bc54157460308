// Package advice generates the personalized coaching messages shown on the
// dashboard, derived from the current ledger state.
package advice

import (
	"fmt"
	"math"
	"sort"
	"time"

	"financequest/internal/core"
	"financequest/internal/metrics"
)

const (
	emptyGoalsTip  = "Buat target keuangan pertamamu untuk mendapatkan rekomendasi personal. Target membantumu fokus pada prioritas finansial."
	emptyLedgerTip = "Tambahkan transaksi untuk melihat analisis keuanganmu. Semakin banyak data, semakin akurat rekomendasinya!"
	lowSavingsTip  = "⚠️ Tingkat tabunganmu di bawah 10%. Perhatikan pengeluaranmu dan buat anggaran untuk meningkatkan tabungan."
	highSpendTip   = "📊 Pengeluaran bulananmu mendekati 80% dari pendapatan. Pertimbangkan untuk mengurangi pengeluaran atau mencari sumber pendapatan tambahan."
)

// Generate builds the advice list for the given ledger state. Without any
// goal the user gets a single onboarding tip; likewise without transactions.
// Otherwise the list holds a savings-rate assessment, a daily-amount tip for
// the most urgent unfinished goal, and a warning when the current month's
// spending approaches 80% of lifetime income.
func Generate(txs []core.Transaction, goals []core.Goal, now time.Time) []string {
	if len(goals) == 0 {
		return []string{emptyGoalsTip}
	}
	if len(txs) == 0 {
		return []string{emptyLedgerTip}
	}

	rate := metrics.SavingsRate(txs)
	pct := int(math.Round(rate))

	var tips []string
	switch {
	case rate >= 30:
		tips = append(tips, fmt.Sprintf("🌟 Luar biasa! Kamu menghemat %d%% dari pendapatan. Pertahankan kebiasaan baik ini!", pct))
	case rate >= 20:
		tips = append(tips, fmt.Sprintf("👍 Bagus! Tingkat tabunganmu %d%%. Coba tingkatkan ke 30%% untuk hasil maksimal.", pct))
	case rate >= 10:
		tips = append(tips, fmt.Sprintf("💡 Tingkat tabunganmu %d%%. Ada ruang untuk meningkatkan tabungan. Coba kurangi pengeluaran tidak penting.", pct))
	default:
		tips = append(tips, lowSavingsTip)
	}

	if g, ok := nearestGoal(goals); ok {
		daily := dailyTarget(g, now)
		tips = append(tips, fmt.Sprintf("🎯 Untuk target \"%s\", sisihkan %s per hari untuk mencapainya tepat waktu.", g.Name, core.FormatAmount(daily)))
	}

	if float64(metrics.MonthlyExpense(txs, now)) > float64(metrics.TotalIncome(txs))*0.8 {
		tips = append(tips, highSpendTip)
	}
	return tips
}

// nearestGoal picks the unfinished goal with the earliest target date. The
// sort is stable so equal dates keep creation order.
func nearestGoal(goals []core.Goal) (core.Goal, bool) {
	var active []core.Goal
	for _, g := range goals {
		if !g.Completed() {
			active = append(active, g)
		}
	}
	if len(active) == 0 {
		return core.Goal{}, false
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].TargetDate.Before(active[j].TargetDate.Time)
	})
	return active[0], true
}

// dailyTarget is the amount to set aside each day to fund the goal by its
// target date. Past-due goals fall back to the full remaining amount.
func dailyTarget(g core.Goal, now time.Time) int64 {
	remaining := g.Remaining()
	daysLeft := int64(math.Ceil(g.TargetDate.Sub(now).Hours() / 24))
	if daysLeft <= 0 {
		return remaining
	}
	return (remaining + daysLeft - 1) / daysLeft
}
