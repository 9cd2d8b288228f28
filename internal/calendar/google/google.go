// Package google mirrors expense due dates onto a Google Calendar as
// all-day events.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"fintrack/internal/calendar"
	"fintrack/internal/core"
)

// Reminder offsets in minutes before the event, matching two days by
// email and one day by popup.
const (
	emailReminderMinutes = 2880
	popupReminderMinutes = 1440
)

// Options carries the OAuth material and target calendar. Inline JSON
// takes precedence over file paths.
type Options struct {
	CalendarID string
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

type Client struct {
	svc        *gcal.Service
	calendarID string
}

var _ calendar.EventWriter = (*Client)(nil)

// NewClient builds a calendar client from OAuth client credentials and
// a previously saved user token (see cmd/oauth-init).
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	calendarID := strings.TrimSpace(opts.CalendarID)
	if calendarID == "" {
		calendarID = "primary"
	}

	clientJSON, err := readSecret(opts.ClientJSON, opts.ClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials: %w", err)
	}
	cfg, err := googleauth.ConfigFromJSON(clientJSON, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenJSON, err := readSecret(opts.TokenJSON, opts.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	svc, err := gcal.NewService(ctx,
		goption.WithTokenSource(cfg.TokenSource(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	slog.InfoContext(ctx, "Google Calendar service created", "calendar_id", calendarID)
	return &Client{svc: svc, calendarID: calendarID}, nil
}

func readSecret(inline, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return b, nil
	default:
		return nil, errors.New("no inline JSON or file path set")
	}
}

func dueEvent(t *core.Transaction) *gcal.Event {
	day := t.DueDate.String()
	return &gcal.Event{
		Summary:     "[Expense] " + t.Description,
		Description: fmt.Sprintf("Amount: %s\nNotes: %s", core.FormatCents(t.Amount.Cents), t.Notes),
		Start:       &gcal.EventDateTime{Date: day},
		End:         &gcal.EventDateTime{Date: day},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: emailReminderMinutes},
				{Method: "popup", Minutes: popupReminderMinutes},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

// UpsertDueEvent creates the all-day event for the expense's due date,
// or patches the existing one when the transaction already carries an
// event id.
func (c *Client) UpsertDueEvent(ctx context.Context, t *core.Transaction) (string, error) {
	if t.DueDate.IsEmpty() {
		return "", errors.New("transaction has no due date")
	}

	event := dueEvent(t)

	if t.CalendarEventID != "" {
		updated, err := c.svc.Events.Update(c.calendarID, t.CalendarEventID, event).Context(ctx).Do()
		if err == nil {
			return updated.Id, nil
		}
		// The event may have been removed from the calendar side;
		// fall through and create a fresh one.
		if !isNotFound(err) {
			return "", fmt.Errorf("update event %s: %w", t.CalendarEventID, err)
		}
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}

// DeleteEvent removes the event. An event that is already gone counts
// as deleted.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 404 || apiErr.Code == 410
	}
	return false
}
