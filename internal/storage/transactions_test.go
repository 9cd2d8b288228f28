package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func newExpense(userID int64, cents int64, date core.Date) *core.Transaction {
	return &core.Transaction{
		UserID:      userID,
		Type:        core.Expense,
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Description: "test expense",
	}
}

func mustCreate(t *testing.T, repo *SQLiteRepository, tr *core.Transaction) *core.Transaction {
	t.Helper()
	require.NoError(t, repo.CreateTransaction(context.Background(), tr))
	return tr
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "alice")

	cat := &core.Category{UserID: user.ID, Name: "Housing", Type: core.Expense, Color: "#e74c3c", Icon: "home"}
	require.NoError(t, repo.CreateCategory(ctx, cat))

	tr := &core.Transaction{
		UserID:              user.ID,
		Type:                core.Expense,
		Amount:              core.Money{Cents: 120050},
		Date:                core.NewDate(2024, 3, 1),
		Description:         "Rent",
		CategoryID:          &cat.ID,
		DueDate:             core.NewDate(2024, 3, 5),
		Notes:               "march",
		IsRecurring:         true,
		RecurrenceFrequency: core.Monthly,
		RecurrenceStartDate: core.NewDate(2024, 3, 1),
		RecurrenceEndDate:   core.NewDate(2024, 12, 31),
	}
	mustCreate(t, repo, tr)
	require.NotZero(t, tr.ID)

	got, err := repo.GetTransaction(ctx, user.ID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120050), got.Amount.Cents)
	assert.Equal(t, "2024-03-01", got.Date.String())
	assert.Equal(t, "2024-03-05", got.DueDate.String())
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, cat.ID, *got.CategoryID)
	assert.True(t, got.IsRecurring)
	assert.Equal(t, core.Monthly, got.RecurrenceFrequency)
	assert.Equal(t, "2024-12-31", got.RecurrenceEndDate.String())
	assert.Nil(t, got.ParentID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestTransactionOwnership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := createTestUser(t, repo, "alice")
	bob := createTestUser(t, repo, "bob")

	tr := mustCreate(t, repo, newExpense(alice.ID, 1000, core.NewDate(2024, 1, 10)))

	_, err := repo.GetTransaction(ctx, bob.ID, tr.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = repo.DeleteTransaction(ctx, bob.ID, tr.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Still there for the owner.
	_, err = repo.GetTransaction(ctx, alice.ID, tr.ID)
	assert.NoError(t, err)
}

func TestListTransactionsFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "alice")

	groceries := mustCreate(t, repo, &core.Transaction{
		UserID: user.ID, Type: core.Expense, Amount: core.Money{Cents: 4500},
		Date: core.NewDate(2024, 5, 3), Description: "Groceries",
	})
	mustCreate(t, repo, &core.Transaction{
		UserID: user.ID, Type: core.Income, Amount: core.Money{Cents: 300000},
		Date: core.NewDate(2024, 5, 1), Description: "Salary",
	})
	mustCreate(t, repo, &core.Transaction{
		UserID: user.ID, Type: core.Expense, Amount: core.Money{Cents: 9900},
		Date: core.NewDate(2024, 6, 20), Description: "Internet bill",
	})

	byType, err := repo.ListTransactions(ctx, user.ID, TransactionFilter{Type: core.Expense})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	byText, err := repo.ListTransactions(ctx, user.ID, TransactionFilter{Text: "grocer"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, groceries.ID, byText[0].ID)

	byRange, err := repo.ListTransactions(ctx, user.ID, TransactionFilter{
		From: core.NewDate(2024, 5, 1),
		To:   core.NewDate(2024, 5, 31),
	})
	require.NoError(t, err)
	assert.Len(t, byRange, 2)

	min := int64(5000)
	byAmount, err := repo.ListTransactions(ctx, user.ID, TransactionFilter{MinCents: &min})
	require.NoError(t, err)
	assert.Len(t, byAmount, 2)
}

func newTemplate(userID int64, freq core.Frequency, start, end core.Date) *core.Transaction {
	return &core.Transaction{
		UserID:              userID,
		Type:                core.Expense,
		Amount:              core.Money{Cents: 5000},
		Date:                start,
		Description:         "Subscription",
		IsRecurring:         true,
		RecurrenceFrequency: freq,
		RecurrenceStartDate: start,
		RecurrenceEndDate:   end,
	}
}

func TestCreateOccurrencesIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "alice")

	template := mustCreate(t, repo, newTemplate(user.ID, core.Monthly, core.NewDate(2024, 1, 15), core.Date{}))

	dates := []core.Date{
		core.NewDate(2024, 2, 15),
		core.NewDate(2024, 3, 15),
		core.NewDate(2024, 4, 15),
	}

	created, err := repo.CreateOccurrences(ctx, template, dates)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// Re-running with the same dates creates nothing.
	created, err = repo.CreateOccurrences(ctx, template, dates)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	// A longer horizon only fills the gap.
	created, err = repo.CreateOccurrences(ctx, template, append(dates, core.NewDate(2024, 5, 15)))
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	children, err := repo.ListTransactions(ctx, user.ID, TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, children, 5) // template + 4 occurrences

	for _, c := range children {
		if c.ID == template.ID {
			continue
		}
		require.NotNil(t, c.ParentID)
		assert.Equal(t, template.ID, *c.ParentID)
		assert.False(t, c.Paid)
		assert.False(t, c.IsRecurring)
		assert.Equal(t, c.Date.String(), c.DueDate.String())
		assert.Equal(t, template.Amount.Cents, c.Amount.Cents)
	}
}

func TestDeleteFutureOccurrences(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "alice")

	template := mustCreate(t, repo, newTemplate(user.ID, core.Monthly, core.NewDate(2024, 1, 1), core.Date{}))
	_, err := repo.CreateOccurrences(ctx, template, []core.Date{
		core.NewDate(2024, 2, 1),
		core.NewDate(2024, 3, 1),
		core.NewDate(2024, 4, 1),
		core.NewDate(2024, 5, 1),
	})
	require.NoError(t, err)

	today := core.NewDate(2024, 3, 15)

	deleted, err := repo.DeleteFutureOccurrences(ctx, user.ID, template.ID, today, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted) // april and may

	// Template and past occurrences survive.
	remaining, err := repo.ListTransactions(ctx, user.ID, TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 3)

	_, err = repo.GetTransaction(ctx, user.ID, template.ID)
	assert.NoError(t, err)
}

func TestDeleteFutureIncludingTemplate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "alice")

	template := mustCreate(t, repo, newTemplate(user.ID, core.Monthly, core.NewDate(2024, 1, 1), core.Date{}))
	_, err := repo.CreateOccurrences(ctx, template, []core.Date{
		core.NewDate(2024, 2, 1),
		core.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)

	deleted, err := repo.DeleteFutureOccurrences(ctx, user.ID, template.ID, core.NewDate(2024, 1, 1), true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	_, err = repo.GetTransaction(ctx, user.ID, template.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateFutureOccurrences(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "alice")

	template := mustCreate(t, repo, newTemplate(user.ID, core.Monthly, core.NewDate(2024, 1, 1), core.Date{}))
	_, err := repo.CreateOccurrences(ctx, template, []core.Date{
		core.NewDate(2024, 2, 1),
		core.NewDate(2024, 3, 1),
		core.NewDate(2024, 4, 1),
	})
	require.NoError(t, err)

	patch := FuturePatch{
		Description:         "Subscription (new price)",
		AmountCents:         6000,
		Type:                core.Expense,
		Notes:               "price bump",
		IsRecurring:         true,
		RecurrenceFrequency: core.Monthly,
	}
	require.NoError(t, repo.UpdateFutureOccurrences(ctx, user.ID, template.ID, core.NewDate(2024, 3, 1), patch))

	all, err := repo.ListTransactions(ctx, user.ID, TransactionFilter{})
	require.NoError(t, err)

	for _, tr := range all {
		switch tr.Date.String() {
		case "2024-02-01":
			assert.Equal(t, int64(5000), tr.Amount.Cents, "past occurrence must keep its amount")
			assert.Equal(t, "Subscription", tr.Description)
		case "2024-03-01", "2024-04-01":
			assert.Equal(t, int64(6000), tr.Amount.Cents)
			assert.Equal(t, "Subscription (new price)", tr.Description)
		case "2024-01-01":
			// The template row itself.
			assert.Equal(t, int64(6000), tr.Amount.Cents)
		}
	}
}

func TestTogglePaid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "alice")

	tr := mustCreate(t, repo, newExpense(user.ID, 1000, core.NewDate(2024, 1, 10)))

	paid, err := repo.TogglePaid(ctx, user.ID, tr.ID)
	require.NoError(t, err)
	assert.True(t, paid)

	paid, err = repo.TogglePaid(ctx, user.ID, tr.ID)
	require.NoError(t, err)
	assert.False(t, paid)

	_, err = repo.TogglePaid(ctx, user.ID, tr.ID+100)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSetCalendarEventID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "alice")

	tr := newExpense(user.ID, 1000, core.NewDate(2024, 1, 10))
	tr.DueDate = core.NewDate(2024, 1, 15)
	mustCreate(t, repo, tr)

	require.NoError(t, repo.SetCalendarEventID(ctx, user.ID, tr.ID, "evt-123"))

	got, err := repo.GetTransaction(ctx, user.ID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "evt-123", got.CalendarEventID)
}
