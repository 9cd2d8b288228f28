package storage

import (
	"context"
	"fmt"
	"sort"

	"fintrack/internal/core"
)

// MonthlySummary aggregates the user's transactions for one calendar
// month. The month is the half-open interval [first of month, first of
// next month) compared as ISO date strings, so a transaction dated on
// the first of the next month never leaks in.
func (r *SQLiteRepository) MonthlySummary(ctx context.Context, userID int64, year, month int) (*core.MonthlySummary, error) {
	start, end := core.MonthBounds(year, month)

	s := &core.MonthlySummary{Year: year, Month: month}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' AND paid = 1 THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' AND paid = 0 THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, start.String(), end.String()).
		Scan(&s.TotalIncome.Cents, &s.TotalExpense.Cents,
			&s.TotalExpensePaid.Cents, &s.TotalExpensePending.Cents)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}

	// Cash basis: only paid expenses reduce the balance.
	s.Balance.Cents = s.TotalIncome.Cents - s.TotalExpensePaid.Cents

	s.IncomeByCategory, err = r.categoryBreakdown(ctx, userID, core.Income, start, end)
	if err != nil {
		return nil, err
	}
	s.ExpenseByCategory, err = r.categoryBreakdown(ctx, userID, core.Expense, start, end)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (r *SQLiteRepository) categoryBreakdown(ctx context.Context, userID int64, typ core.TransactionType, start, end core.Date) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(c.name, ?), COALESCE(c.color, '#95a5a6'), SUM(t.amount_cents)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.type = ? AND t.date >= ? AND t.date < ?
		GROUP BY c.name, c.color
		ORDER BY SUM(t.amount_cents) DESC`,
		core.Uncategorized, userID, string(typ), start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Color, &ca.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan breakdown row: %w", err)
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}

// Years lists every distinct year the user has transactions in,
// newest first. The current year is always present so the dashboard
// selector never renders empty.
func (r *SQLiteRepository) Years(ctx context.Context, userID int64, current int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT CAST(substr(date, 1, 4) AS INTEGER) AS y
		FROM transactions WHERE user_id = ? ORDER BY y DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	defer rows.Close()

	var years []int
	seen := false
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		if y == current {
			seen = true
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !seen {
		years = append(years, current)
		sort.Sort(sort.Reverse(sort.IntSlice(years)))
	}
	return years, nil
}
