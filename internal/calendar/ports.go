// Package calendar defines the outbound port for mirroring expense due
// dates onto an external calendar.
package calendar

import (
	"context"

	"fintrack/internal/core"
)

// EventWriter is the outbound adapter the sync worker drives.
type EventWriter interface {
	// UpsertDueEvent creates or updates the all-day event for the
	// expense's due date and returns the event id.
	UpsertDueEvent(ctx context.Context, t *core.Transaction) (eventID string, err error)

	// DeleteEvent removes a previously created event. Deleting an
	// event that is already gone is not an error.
	DeleteEvent(ctx context.Context, eventID string) error
}
