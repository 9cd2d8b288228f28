// Package memory is an in-process EventWriter used in tests and local
// development without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/calendar"
	"fintrack/internal/core"
)

// Event is the stored form of a synced due date.
type Event struct {
	ID          string
	Summary     string
	Date        string
	AmountCents int64
}

type Writer struct {
	mu     sync.Mutex
	nextID int
	events map[string]Event
}

var _ calendar.EventWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{events: make(map[string]Event)}
}

func (w *Writer) UpsertDueEvent(_ context.Context, t *core.Transaction) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := t.CalendarEventID
	if _, ok := w.events[id]; !ok || id == "" {
		w.nextID++
		id = fmt.Sprintf("evt-%d", w.nextID)
	}
	w.events[id] = Event{
		ID:          id,
		Summary:     "[Expense] " + t.Description,
		Date:        t.DueDate.String(),
		AmountCents: t.Amount.Cents,
	}
	return id, nil
}

func (w *Writer) DeleteEvent(_ context.Context, eventID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.events, eventID)
	return nil
}

// Events returns a copy of the stored events, for assertions.
func (w *Writer) Events() map[string]Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]Event, len(w.events))
	for k, v := range w.events {
		out[k] = v
	}
	return out
}
