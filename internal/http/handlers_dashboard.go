package http

import (
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/core"
)

type categoryAmountView struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Color       string `json:"color"`
}

type summaryView struct {
	Year  int `json:"year"`
	Month int `json:"month"`

	TotalIncome         string `json:"total_income"`
	TotalExpense        string `json:"total_expense"`
	TotalExpensePaid    string `json:"total_expense_paid"`
	TotalExpensePending string `json:"total_expense_pending"`
	Balance             string `json:"balance"`

	IncomeByCategory  []categoryAmountView `json:"income_by_category"`
	ExpenseByCategory []categoryAmountView `json:"expense_by_category"`
}

func categoryViews(in []core.CategoryAmount) []categoryAmountView {
	out := make([]categoryAmountView, len(in))
	for i, ca := range in {
		out[i] = categoryAmountView{
			Name:        ca.Name,
			Amount:      core.FormatCents(ca.Amount.Cents),
			AmountCents: ca.Amount.Cents,
			Color:       ca.Color,
		}
	}
	return out
}

// yearMonth reads year and month from the query, defaulting to the
// current month.
func yearMonth(r *http.Request) (int, int, bool) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		year = y
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, false
		}
		month = m
	}
	return year, month, true
}

func (s *Server) monthlySummary(r *http.Request, userID int64, year, month int) (*core.MonthlySummary, error) {
	key := summaryCacheKey(userID, year, month)
	if cached, ok := s.summaryCache.Get(key); ok {
		return cached, nil
	}

	summary, err := s.store.MonthlySummary(r.Context(), userID, year, month)
	if err != nil {
		return nil, err
	}
	s.summaryCache.Set(key, summary)
	return summary, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonth(r)
	if !ok {
		badRequest(w, "invalid year or month")
		return
	}

	summary, err := s.monthlySummary(r, UserID(r.Context()), year, month)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, summaryView{
		Year:                summary.Year,
		Month:               summary.Month,
		TotalIncome:         core.FormatCents(summary.TotalIncome.Cents),
		TotalExpense:        core.FormatCents(summary.TotalExpense.Cents),
		TotalExpensePaid:    core.FormatCents(summary.TotalExpensePaid.Cents),
		TotalExpensePending: core.FormatCents(summary.TotalExpensePending.Cents),
		Balance:             core.FormatCents(summary.Balance.Cents),
		IncomeByCategory:    categoryViews(summary.IncomeByCategory),
		ExpenseByCategory:   categoryViews(summary.ExpenseByCategory),
	})
}

// handleChartData serves the per-category series the dashboard charts
// consume: labels, values in cents and colors, one series per type.
func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonth(r)
	if !ok {
		badRequest(w, "invalid year or month")
		return
	}

	summary, err := s.monthlySummary(r, UserID(r.Context()), year, month)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"year":    year,
		"month":   month,
		"income":  chartSeries(summary.IncomeByCategory),
		"expense": chartSeries(summary.ExpenseByCategory),
	})
}

func chartSeries(in []core.CategoryAmount) map[string]any {
	labels := make([]string, len(in))
	values := make([]int64, len(in))
	colors := make([]string, len(in))
	for i, ca := range in {
		labels[i] = ca.Name
		values[i] = ca.Amount.Cents
		colors[i] = ca.Color
	}
	return map[string]any{"labels": labels, "values": values, "colors": colors}
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.store.Years(r.Context(), UserID(r.Context()), time.Now().Year())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"years": years})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context(), UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	type categoryView struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Type  string `json:"type"`
		Color string `json:"color"`
		Icon  string `json:"icon"`
	}
	views := make([]categoryView, len(categories))
	for i, c := range categories {
		views[i] = categoryView{ID: c.ID, Name: c.Name, Type: string(c.Type), Color: c.Color, Icon: c.Icon}
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": views})
}
