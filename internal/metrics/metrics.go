// Package metrics computes derived figures from a ledger snapshot: lifetime
// and monthly totals, savings rate, and category aggregates. Every function
// is a pure read over the transaction slice it is given.
package metrics

import (
	"sort"
	"time"

	"financequest/internal/core"
)

// TotalIncome sums all income transactions ever recorded.
func TotalIncome(txs []core.Transaction) int64 {
	return sumByKind(txs, core.Income)
}

// TotalExpense sums all expense transactions ever recorded.
func TotalExpense(txs []core.Transaction) int64 {
	return sumByKind(txs, core.Expense)
}

// Balance is lifetime income minus lifetime expense.
func Balance(txs []core.Transaction) int64 {
	return TotalIncome(txs) - TotalExpense(txs)
}

// MonthlyIncome sums income transactions dated in the calendar month of now.
func MonthlyIncome(txs []core.Transaction, now time.Time) int64 {
	return sumByKindInMonth(txs, core.Income, now)
}

// MonthlyExpense sums expense transactions dated in the calendar month of now.
func MonthlyExpense(txs []core.Transaction, now time.Time) int64 {
	return sumByKindInMonth(txs, core.Expense, now)
}

// SavingsRate is the lifetime balance as a percentage of lifetime income,
// or 0 when there is no income. Deliberately a lifetime rate, not a monthly
// one: the balance in the numerator spans all recorded history.
func SavingsRate(txs []core.Transaction) float64 {
	income := TotalIncome(txs)
	if income <= 0 {
		return 0
	}
	return float64(Balance(txs)) / float64(income) * 100
}

// UniqueCategories counts distinct category values among expense
// transactions only.
func UniqueCategories(txs []core.Transaction) int {
	seen := map[string]struct{}{}
	for _, t := range txs {
		if t.Kind != core.Expense {
			continue
		}
		seen[t.Category] = struct{}{}
	}
	return len(seen)
}

// CategoryTotals sums expense amounts per category, preserving first-seen
// order across the transaction slice.
func CategoryTotals(txs []core.Transaction) []core.CategoryAmount {
	totals := map[string]int64{}
	var order []string
	for _, t := range txs {
		if t.Kind != core.Expense {
			continue
		}
		if _, ok := totals[t.Category]; !ok {
			order = append(order, t.Category)
		}
		totals[t.Category] += t.Amount
	}
	out := make([]core.CategoryAmount, 0, len(order))
	for _, name := range order {
		out = append(out, core.CategoryAmount{Name: name, Amount: totals[name]})
	}
	return out
}

// TopCategories returns the n largest expense categories, descending by
// amount. The sort is stable so equal amounts keep first-seen order.
func TopCategories(txs []core.Transaction, n int) []core.CategoryAmount {
	totals := CategoryTotals(txs)
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Amount > totals[j].Amount
	})
	if n >= 0 && len(totals) > n {
		totals = totals[:n]
	}
	return totals
}

// NetByMonth aggregates net cash flow (income minus expense) per calendar
// month for the n months ending at now, oldest first. Months with no
// transactions appear with a zero net so chart consumers get a full axis.
func NetByMonth(txs []core.Transaction, now time.Time, n int) []core.MonthFlow {
	if n <= 0 {
		return nil
	}
	out := make([]core.MonthFlow, n)
	index := map[[2]int]int{}
	for i := 0; i < n; i++ {
		// Step from the first of the month so a short target month cannot
		// normalize the date into its neighbor.
		m := time.Date(now.Year(), now.Month()+time.Month(i-n+1), 1, 0, 0, 0, 0, now.Location())
		out[i] = core.MonthFlow{Year: m.Year(), Month: int(m.Month())}
		index[[2]int{m.Year(), int(m.Month())}] = i
	}
	for _, t := range txs {
		i, ok := index[[2]int{t.Date.Year(), int(t.Date.Month())}]
		if !ok {
			continue
		}
		if t.Kind == core.Income {
			out[i].Net += t.Amount
		} else {
			out[i].Net -= t.Amount
		}
	}
	return out
}

// DailyFlow aggregates income and expense per calendar day for the n days
// ending at now, oldest first.
func DailyFlow(txs []core.Transaction, now time.Time, n int) []core.DayFlow {
	if n <= 0 {
		return nil
	}
	out := make([]core.DayFlow, n)
	index := map[string]int{}
	for i := 0; i < n; i++ {
		d := core.DateOf(now.AddDate(0, 0, i-n+1))
		out[i] = core.DayFlow{Date: d}
		index[d.String()] = i
	}
	for _, t := range txs {
		i, ok := index[t.Date.String()]
		if !ok {
			continue
		}
		if t.Kind == core.Income {
			out[i].Income += t.Amount
		} else {
			out[i].Expense += t.Amount
		}
	}
	return out
}

func sumByKind(txs []core.Transaction, kind core.TransactionKind) int64 {
	var sum int64
	for _, t := range txs {
		if t.Kind == kind {
			sum += t.Amount
		}
	}
	return sum
}

func sumByKindInMonth(txs []core.Transaction, kind core.TransactionKind, now time.Time) int64 {
	var sum int64
	for _, t := range txs {
		if t.Kind == kind && t.Date.SameMonth(now) {
			sum += t.Amount
		}
	}
	return sum
}
