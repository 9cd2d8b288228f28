package core

// CategoryAmount is an amount aggregated under a category name.
// Color carries the category color for chart rendering.
type CategoryAmount struct {
	Name   string
	Amount Money
	Color  string
}

// MonthlySummary holds the dashboard totals for one user and month.
// Balance is cash-basis: pending expenses are excluded.
type MonthlySummary struct {
	Year  int
	Month int // 1-12

	TotalIncome         Money
	TotalExpense        Money
	TotalExpensePaid    Money
	TotalExpensePending Money
	Balance             Money

	IncomeByCategory  []CategoryAmount
	ExpenseByCategory []CategoryAmount
}
