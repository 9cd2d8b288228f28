package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// AlertStore is the storage surface the alert scanner needs.
type AlertStore interface {
	UpcomingDue(ctx context.Context, userID int64, from, to core.Date, onlyUnnotified bool) ([]core.Transaction, error)
	MarkNotified(ctx context.Context, userID int64, ids []int64) error
	GetTransaction(ctx context.Context, userID, id int64) (*core.Transaction, error)
}

// AlertScanner finds unpaid expenses due within a window of days and
// tracks which ones have already been surfaced.
type AlertScanner struct {
	store      AlertStore
	windowDays int
	logger     *applog.Logger
	now        func() time.Time
}

func NewAlertScanner(store AlertStore, windowDays int, logger *applog.Logger) *AlertScanner {
	return &AlertScanner{
		store:      store,
		windowDays: windowDays,
		logger:     logger.WithComponent(applog.ComponentAlerts),
		now:        time.Now,
	}
}

// Check returns the unpaid expenses due within the scanner's window
// that have not been surfaced yet, and flags them so the next check
// stays quiet about them.
func (a *AlertScanner) Check(ctx context.Context, userID int64) ([]core.Transaction, error) {
	today := core.Today(a.now())
	due, err := a.store.UpcomingDue(ctx, userID, today, today.AddDays(a.windowDays), true)
	if err != nil {
		return nil, fmt.Errorf("scan upcoming due: %w", err)
	}
	if len(due) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(due))
	for i := range due {
		ids[i] = due[i].ID
	}
	if err := a.store.MarkNotified(ctx, userID, ids); err != nil {
		return nil, fmt.Errorf("mark notified: %w", err)
	}

	a.logger.InfoContext(ctx, "Due date alerts raised",
		applog.FieldUserID, userID, applog.FieldCount, len(due))
	return due, nil
}

// Upcoming lists every unpaid expense due within the window,
// regardless of the notified flag. Read-only.
func (a *AlertScanner) Upcoming(ctx context.Context, userID int64) ([]core.Transaction, error) {
	today := core.Today(a.now())
	return a.store.UpcomingDue(ctx, userID, today, today.AddDays(a.windowDays), false)
}

// Dismiss flags a single transaction as surfaced without waiting for a
// scan.
func (a *AlertScanner) Dismiss(ctx context.Context, userID, id int64) error {
	if _, err := a.store.GetTransaction(ctx, userID, id); err != nil {
		return err
	}
	return a.store.MarkNotified(ctx, userID, []int64{id})
}
