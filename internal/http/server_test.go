package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/auth"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := applog.New(applog.DefaultConfig())
	engine := services.NewRecurrenceEngine(repo, 12, logger)
	txService := services.NewTransactionService(repo, engine, nil, logger)
	scanner := services.NewAlertScanner(repo, 2, logger)
	tokens := auth.NewTokenIssuer("test-secret-at-least-16-chars", time.Hour)

	server := NewServer(Options{
		Addr:            ":0",
		Store:           repo,
		Transactions:    txService,
		Alerts:          scanner,
		Tokens:          tokens,
		SummaryCacheTTL: time.Minute,
	})
	t.Cleanup(func() { server.cacheManager.Stop(); server.rateLimiter.stop() })
	return server
}

func doJSON(t *testing.T, server *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	server.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func registerUser(t *testing.T, server *Server, username string) string {
	t.Helper()
	rec := doJSON(t, server, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authResponse](t, rec).Token
}

func TestRegisterAndLogin(t *testing.T) {
	server := newTestServer(t)

	token := registerUser(t, server, "alice")
	require.NotEmpty(t, token)

	// Registration seeds categories.
	rec := doJSON(t, server, http.MethodGet, "/api/categories", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[map[string]json.RawMessage](t, rec)
	assert.Contains(t, string(cats["categories"]), "Groceries")

	// Duplicate username rejected.
	rec = doJSON(t, server, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "alice", Email: "second@example.com", Password: "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/api/auth/login", "", loginRequest{
		Username: "alice", Password: "password123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/api/auth/login", "", loginRequest{
		Username: "alice", Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name string
		req  registerRequest
	}{
		{"short username", registerRequest{Username: "ab", Email: "a@b.co", Password: "password123"}},
		{"short password", registerRequest{Username: "alice", Email: "a@b.co", Password: "short"}},
		{"bad email", registerRequest{Username: "alice", Email: "not-an-email", Password: "password123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, server, http.MethodPost, "/api/auth/register", "", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAuthRequired(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/api/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/api/transactions", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTransactionLifecycle(t *testing.T) {
	server := newTestServer(t)
	token := registerUser(t, server, "alice")

	rec := doJSON(t, server, http.MethodPost, "/api/transactions", token, transactionRequest{
		Type: "expense", Amount: "45.90", Date: "2024-05-03",
		Description: "Groceries", DueDate: "2024-05-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[transactionView](t, rec)
	assert.Equal(t, int64(4590), created.AmountCents)
	assert.Equal(t, "45.90", created.Amount)

	rec = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/transactions/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/transactions/%d/toggle-paid", created.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	toggled := decode[map[string]any](t, rec)
	assert.Equal(t, true, toggled["paid"])

	rec = doJSON(t, server, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/transactions/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionValidationErrors(t *testing.T) {
	server := newTestServer(t)
	token := registerUser(t, server, "alice")

	tests := []struct {
		name string
		req  transactionRequest
	}{
		{"bad amount", transactionRequest{Type: "expense", Amount: "abc", Date: "2024-05-03", Description: "x"}},
		{"negative amount", transactionRequest{Type: "expense", Amount: "-5", Date: "2024-05-03", Description: "x"}},
		{"bad date", transactionRequest{Type: "expense", Amount: "5.00", Date: "03/05/2024", Description: "x"}},
		{"bad type", transactionRequest{Type: "transfer", Amount: "5.00", Date: "2024-05-03", Description: "x"}},
		{"empty description", transactionRequest{Type: "expense", Amount: "5.00", Date: "2024-05-03", Description: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, server, http.MethodPost, "/api/transactions", token, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestUserIsolation(t *testing.T) {
	server := newTestServer(t)
	aliceToken := registerUser(t, server, "alice")
	bobToken := registerUser(t, server, "bob")

	rec := doJSON(t, server, http.MethodPost, "/api/transactions", aliceToken, transactionRequest{
		Type: "expense", Amount: "10.00", Date: "2024-05-01", Description: "Alice's",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[transactionView](t, rec)

	rec = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/transactions/%d", created.ID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, server, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecurringEndpoints(t *testing.T) {
	server := newTestServer(t)
	token := registerUser(t, server, "alice")

	start := time.Now().UTC().Format("2006-01-02")
	rec := doJSON(t, server, http.MethodPost, "/api/transactions", token, transactionRequest{
		Type: "expense", Amount: "8.99", Date: start,
		Description: "Streaming", IsRecurring: true, RecurrenceFrequency: "monthly",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tmpl := decode[transactionView](t, rec)

	rec = doJSON(t, server, http.MethodGet, "/api/recurring", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var templates struct {
		Templates []transactionView `json:"templates"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&templates))
	require.Len(t, templates.Templates, 1)
	assert.Equal(t, tmpl.ID, templates.Templates[0].ID)

	// Create already expanded, so a manual generate adds nothing.
	rec = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/recurring/%d/generate", tmpl.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	generated := decode[map[string]any](t, rec)
	assert.Equal(t, float64(0), generated["created"])

	// Occurrences are listed as recurring rows.
	rec = doJSON(t, server, http.MethodGet, "/api/transactions?recurring=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Transactions []transactionView `json:"transactions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 13, len(list.Transactions)) // template + 12 months
}

func TestDashboardSummary(t *testing.T) {
	server := newTestServer(t)
	token := registerUser(t, server, "alice")

	add := func(typ, amount, date string, paid bool) {
		rec := doJSON(t, server, http.MethodPost, "/api/transactions", token, transactionRequest{
			Type: typ, Amount: amount, Date: date, Description: "row", Paid: paid,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	add("income", "300.00", "2024-05-01", false)
	add("expense", "100.00", "2024-05-05", true)
	add("expense", "50.00", "2024-05-10", false)
	add("expense", "999.00", "2024-06-01", false) // next month

	rec := doJSON(t, server, http.MethodGet, "/api/dashboard/summary?year=2024&month=5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[summaryView](t, rec)

	assert.Equal(t, "300.00", summary.TotalIncome)
	assert.Equal(t, "150.00", summary.TotalExpense)
	assert.Equal(t, "100.00", summary.TotalExpensePaid)
	assert.Equal(t, "50.00", summary.TotalExpensePending)
	assert.Equal(t, "200.00", summary.Balance)

	// Uncategorized rows fold into the sentinel bucket.
	require.NotEmpty(t, summary.ExpenseByCategory)
	assert.Equal(t, "uncategorized", summary.ExpenseByCategory[0].Name)

	rec = doJSON(t, server, http.MethodGet, "/api/dashboard/years", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	years := decode[map[string][]int](t, rec)
	assert.Contains(t, years["years"], 2024)

	rec = doJSON(t, server, http.MethodGet, "/api/dashboard/summary?year=2024&month=13", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryCacheInvalidation(t *testing.T) {
	server := newTestServer(t)
	token := registerUser(t, server, "alice")

	rec := doJSON(t, server, http.MethodPost, "/api/transactions", token, transactionRequest{
		Type: "expense", Amount: "10.00", Date: "2024-05-01", Description: "first",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/api/dashboard/summary?year=2024&month=5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.00", decode[summaryView](t, rec).TotalExpense)

	// A write must not serve the stale cached month.
	rec = doJSON(t, server, http.MethodPost, "/api/transactions", token, transactionRequest{
		Type: "expense", Amount: "5.00", Date: "2024-05-02", Description: "second",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/api/dashboard/summary?year=2024&month=5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "15.00", decode[summaryView](t, rec).TotalExpense)
}

func TestAlertEndpoints(t *testing.T) {
	server := newTestServer(t)
	token := registerUser(t, server, "alice")

	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	rec := doJSON(t, server, http.MethodPost, "/api/transactions", token, transactionRequest{
		Type: "expense", Amount: "42.00", Date: tomorrow,
		DueDate: tomorrow, Description: "Due soon",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	bill := decode[transactionView](t, rec)

	rec = doJSON(t, server, http.MethodGet, "/api/alerts/check", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var checked struct {
		Alerts []transactionView `json:"alerts"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&checked))
	require.Len(t, checked.Alerts, 1)
	assert.Equal(t, bill.ID, checked.Alerts[0].ID)

	// Second check is quiet.
	rec = doJSON(t, server, http.MethodGet, "/api/alerts/check", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	checked.Alerts = nil
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&checked))
	assert.Empty(t, checked.Alerts)

	// Upcoming keeps listing it.
	rec = doJSON(t, server, http.MethodGet, "/api/alerts/upcoming", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var upcoming struct {
		Upcoming []transactionView `json:"upcoming"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&upcoming))
	assert.Len(t, upcoming.Upcoming, 1)
}

func TestPayIncomeRejected(t *testing.T) {
	server := newTestServer(t)
	token := registerUser(t, server, "alice")

	rec := doJSON(t, server, http.MethodPost, "/api/transactions", token, transactionRequest{
		Type: "income", Amount: "100.00", Date: "2024-05-01", Description: "Salary",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	income := decode[transactionView](t, rec)

	rec = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/transactions/%d/pay", income.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
