package core

// CategoryAmount is an expense total aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// MonthFlow is the net cash flow for one calendar month.
type MonthFlow struct {
	Year  int   `json:"year"`
	Month int   `json:"month"` // 1-12
	Net   int64 `json:"net"`
}

// DayFlow is the income/expense split for one calendar day.
type DayFlow struct {
	Date    Date  `json:"date"`
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
}
