// Package worker runs the background consumer that mirrors expense due
// dates onto the external calendar.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/calendar"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// CalendarWorker consumes sync messages and applies them to the
// calendar, writing the resulting event id back onto the transaction.
type CalendarWorker struct {
	storage *storage.SQLiteRepository
	writer  calendar.EventWriter
}

func NewCalendarWorker(storage *storage.SQLiteRepository, writer calendar.EventWriter) *CalendarWorker {
	return &CalendarWorker{storage: storage, writer: writer}
}

// HandleMessage processes one sync message. Returning an error requeues
// the message, so permanent conditions (row gone, no due date) are
// swallowed after logging.
func (w *CalendarWorker) HandleMessage(ctx context.Context, msg *amqp.CalendarSyncMessage) error {
	switch msg.Op {
	case amqp.OpUpsert:
		return w.handleUpsert(ctx, msg)
	case amqp.OpDelete:
		return w.handleDelete(ctx, msg)
	default:
		slog.WarnContext(ctx, "Dropping message with unknown op", "op", msg.Op)
		return nil
	}
}

func (w *CalendarWorker) handleUpsert(ctx context.Context, msg *amqp.CalendarSyncMessage) error {
	t, err := w.storage.GetTransaction(ctx, msg.UserID, msg.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between publish and consume. Nothing to sync.
		slog.InfoContext(ctx, "Transaction gone, skipping sync",
			"transaction_id", msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", msg.TransactionID, err)
	}

	if t.Type != core.Expense || t.DueDate.IsEmpty() {
		slog.InfoContext(ctx, "Transaction no longer has a due date, skipping sync",
			"transaction_id", t.ID)
		return nil
	}

	eventID, err := w.writer.UpsertDueEvent(ctx, t)
	if err != nil {
		return fmt.Errorf("upsert calendar event: %w", err)
	}

	if eventID != t.CalendarEventID {
		if err := w.storage.SetCalendarEventID(ctx, t.UserID, t.ID, eventID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("store event id: %w", err)
		}
	}

	slog.InfoContext(ctx, "Synced due date to calendar",
		"transaction_id", t.ID, "event_id", eventID)
	return nil
}

func (w *CalendarWorker) handleDelete(ctx context.Context, msg *amqp.CalendarSyncMessage) error {
	if msg.EventID == "" {
		return nil
	}
	if err := w.writer.DeleteEvent(ctx, msg.EventID); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	slog.InfoContext(ctx, "Removed calendar event", "event_id", msg.EventID)
	return nil
}
