package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Monthly    Frequency = "monthly"
	Bimonthly  Frequency = "bimonthly"
	Quarterly  Frequency = "quarterly"
	Semiannual Frequency = "semiannual"
	Annual     Frequency = "annual"
)

// Uncategorized is the label used in summaries for transactions
// without a linked category.
const Uncategorized = "uncategorized"

type (
	TransactionType string

	Frequency string

	Money struct {
		Cents int64
	}

	User struct {
		ID       int64
		Username string
		Email    string
		// PasswordHash is empty for OAuth-only accounts.
		PasswordHash string
		CreatedAt    time.Time
	}

	Category struct {
		ID     int64
		UserID int64
		Name   string
		Type   TransactionType
		Color  string // #RRGGBB
		Icon   string
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Type        TransactionType
		Amount      Money
		Date        Date
		Description string
		CategoryID  *int64
		Paid        bool
		DueDate     Date // zero means no due date
		Notes       string
		Notified    bool

		IsRecurring         bool
		RecurrenceFrequency Frequency
		RecurrenceStartDate Date
		RecurrenceEndDate   Date

		// ParentID links a generated occurrence back to its template.
		ParentID *int64

		CalendarEventID string
		CreatedAt       time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyDescription = errors.New("empty description")

	// ErrNotFound marks a row that does not exist or does not belong
	// to the requesting user. Callers must not distinguish the two.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate marks a uniqueness violation (username, email).
	ErrDuplicate = errors.New("already exists")
)

// FrequencySteps maps each recurrence frequency to its step in months.
var FrequencySteps = map[Frequency]int{
	Monthly:    1,
	Bimonthly:  2,
	Quarterly:  3,
	Semiannual: 6,
	Annual:     12,
}

// StepMonths returns the month step for the frequency. The second value
// is false for unknown or empty frequencies.
func (f Frequency) StepMonths() (int, bool) {
	step, ok := FrequencySteps[f]
	return step, ok
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsTemplate reports whether the transaction is a recurring template,
// the only kind of row occurrences are generated from.
func (t *Transaction) IsTemplate() bool {
	return t.IsRecurring && t.ParentID == nil
}

// IsOccurrence reports whether the transaction was generated from a template.
func (t *Transaction) IsOccurrence() bool {
	return t.ParentID != nil
}

func (t *Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	// Occurrences are plain one-off rows; they never recur themselves.
	if t.ParentID != nil && t.IsRecurring {
		return errors.New("generated occurrence cannot be recurring")
	}
	if t.IsRecurring {
		if !t.RecurrenceEndDate.IsZero() && !t.RecurrenceStartDate.IsZero() &&
			t.RecurrenceEndDate.Before(t.RecurrenceStartDate.Time) {
			return errors.New("recurrence end date before start date")
		}
	}
	return nil
}

func (c *Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return errors.New("empty category name")
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}
