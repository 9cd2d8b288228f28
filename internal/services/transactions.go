package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// ErrPayIncome is returned when a pay action targets an income row.
var ErrPayIncome = errors.New("only expenses can be marked as paid")

// TransactionStore is the storage surface the transaction service
// depends on. *storage.SQLiteRepository satisfies it.
type TransactionStore interface {
	RecurrenceStore

	CreateTransaction(ctx context.Context, t *core.Transaction) error
	GetTransaction(ctx context.Context, userID, id int64) (*core.Transaction, error)
	UpdateTransaction(ctx context.Context, t *core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id int64) error
	ListTransactions(ctx context.Context, userID int64, f storage.TransactionFilter) ([]core.Transaction, error)
	ListTemplates(ctx context.Context, userID int64) ([]core.Transaction, error)
	UpdateFutureOccurrences(ctx context.Context, userID, templateID int64, today core.Date, p storage.FuturePatch) error
	DeleteFutureOccurrences(ctx context.Context, userID, templateID int64, today core.Date, includeTemplate bool) (int64, error)
	TogglePaid(ctx context.Context, userID, id int64) (bool, error)
	SetPaid(ctx context.Context, userID, id int64, paid bool) error
}

// CalendarPublisher queues calendar sync work for the background
// worker. Publish failures are logged, never surfaced to the caller.
type CalendarPublisher interface {
	PublishUpsert(ctx context.Context, userID, transactionID int64) error
	PublishDelete(ctx context.Context, userID int64, eventID string) error
}

type TransactionService struct {
	store     TransactionStore
	engine    *RecurrenceEngine
	publisher CalendarPublisher // nil when calendar sync is disabled
	logger    *applog.Logger
	now       func() time.Time
}

func NewTransactionService(store TransactionStore, engine *RecurrenceEngine, publisher CalendarPublisher, logger *applog.Logger) *TransactionService {
	return &TransactionService{
		store:     store,
		engine:    engine,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentApp),
		now:       time.Now,
	}
}

// Create validates and stores a transaction. Recurring expense
// templates are expanded into their future occurrences right away so
// the user sees them without waiting for the background pass.
func (s *TransactionService) Create(ctx context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	// Income is settled money; the paid flag only tracks expenses.
	if t.Type == core.Income {
		t.Paid = true
	}

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return err
	}

	s.expandTemplate(ctx, t)
	s.publishUpsert(ctx, t)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) List(ctx context.Context, userID int64, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID, f)
}

func (s *TransactionService) ListTemplates(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return s.store.ListTemplates(ctx, userID)
}

// Update edits a single transaction row. Edits that should propagate
// to future occurrences go through UpdateFuture instead.
func (s *TransactionService) Update(ctx context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if t.Type == core.Income {
		t.Paid = true
	}

	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return err
	}

	s.expandTemplate(ctx, t)
	s.publishUpsert(ctx, t)
	return nil
}

// expandTemplate generates occurrences for recurring expense templates
// right after a write so the user sees them without waiting for the
// background pass. Expansion failure never fails the write.
func (s *TransactionService) expandTemplate(ctx context.Context, t *core.Transaction) {
	if !t.IsTemplate() || t.Type != core.Expense {
		return
	}
	if _, err := s.engine.Expand(ctx, t); err != nil {
		s.logger.ErrorContext(ctx, "Expansion failed",
			applog.FieldTransactionID, t.ID, applog.FieldError, err)
	}
}

// UpdateFuture edits the template and all its occurrences dated today
// or later. The id may reference either the template or one of its
// occurrences; both resolve to the template.
func (s *TransactionService) UpdateFuture(ctx context.Context, userID, id int64, p storage.FuturePatch) error {
	templateID, err := s.resolveTemplateID(ctx, userID, id)
	if err != nil {
		return err
	}
	today := core.Today(s.now())
	return s.store.UpdateFutureOccurrences(ctx, userID, templateID, today, p)
}

// Delete removes a single transaction row.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.publishDelete(ctx, t)
	return nil
}

// DeleteFuture removes the occurrences of a series dated today or
// later. The template row itself goes away only when the id the user
// acted on is the template.
func (s *TransactionService) DeleteFuture(ctx context.Context, userID, id int64) (int64, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return 0, err
	}

	templateID := t.ID
	if t.ParentID != nil {
		templateID = *t.ParentID
	}
	includeTemplate := t.ID == templateID

	today := core.Today(s.now())
	return s.store.DeleteFutureOccurrences(ctx, userID, templateID, today, includeTemplate)
}

// TogglePaid flips the paid flag on an expense and returns the new
// state.
func (s *TransactionService) TogglePaid(ctx context.Context, userID, id int64) (bool, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return false, err
	}
	if t.Type != core.Expense {
		return false, ErrPayIncome
	}
	return s.store.TogglePaid(ctx, userID, id)
}

// Pay marks an expense as paid.
func (s *TransactionService) Pay(ctx context.Context, userID, id int64) error {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if t.Type != core.Expense {
		return ErrPayIncome
	}
	return s.store.SetPaid(ctx, userID, id, true)
}

// GenerateOccurrences runs the expansion engine for one of the user's
// templates on demand.
func (s *TransactionService) GenerateOccurrences(ctx context.Context, userID, id int64) (int, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	if !t.IsTemplate() {
		return 0, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return s.engine.Expand(ctx, t)
}

// GenerateAll expands every template the user owns and returns the
// total number of occurrences created. Failures on one template do
// not stop the others.
func (s *TransactionService) GenerateAll(ctx context.Context, userID int64) (int, error) {
	templates, err := s.store.ListTemplates(ctx, userID)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range templates {
		created, err := s.engine.Expand(ctx, &templates[i])
		if err != nil {
			s.logger.ErrorContext(ctx, "Template expansion failed",
				applog.FieldTemplateID, templates[i].ID, applog.FieldError, err)
			continue
		}
		total += created
	}
	return total, nil
}

func (s *TransactionService) resolveTemplateID(ctx context.Context, userID, id int64) (int64, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	if t.ParentID != nil {
		return *t.ParentID, nil
	}
	return t.ID, nil
}

func (s *TransactionService) publishUpsert(ctx context.Context, t *core.Transaction) {
	if s.publisher == nil || t.Type != core.Expense || t.DueDate.IsEmpty() {
		return
	}
	if err := s.publisher.PublishUpsert(ctx, t.UserID, t.ID); err != nil {
		s.logger.WarnContext(ctx, "Calendar sync publish failed",
			applog.FieldTransactionID, t.ID, applog.FieldError, err)
	}
}

func (s *TransactionService) publishDelete(ctx context.Context, t *core.Transaction) {
	if s.publisher == nil || t.CalendarEventID == "" {
		return
	}
	if err := s.publisher.PublishDelete(ctx, t.UserID, t.CalendarEventID); err != nil {
		s.logger.WarnContext(ctx, "Calendar delete publish failed",
			applog.FieldTransactionID, t.ID, applog.FieldError, err)
	}
}
