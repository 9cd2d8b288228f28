// Package services holds the application logic between the HTTP layer
// and storage: transaction lifecycle, recurring expansion, monthly
// summaries and due-date alerts.
package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// OccurrenceDates walks forward from start in increments of step
// months and returns every date up to and including ceiling. The start
// date itself is never a candidate; the first occurrence is one step
// after it.
func OccurrenceDates(start core.Date, step int, ceiling core.Date) []core.Date {
	var dates []core.Date
	current := start
	for {
		current = current.AddMonths(step)
		if current.After(ceiling.Time) {
			return dates
		}
		dates = append(dates, current)
	}
}

// RecurrenceStore is the slice of storage the expansion engine needs.
type RecurrenceStore interface {
	ListAllTemplates(ctx context.Context) ([]core.Transaction, error)
	CreateOccurrences(ctx context.Context, template *core.Transaction, dates []core.Date) (int, error)
}

// RecurrenceEngine materializes recurring expense templates into
// concrete future transactions.
type RecurrenceEngine struct {
	store         RecurrenceStore
	horizonMonths int
	logger        *applog.Logger
	now           func() time.Time
}

func NewRecurrenceEngine(store RecurrenceStore, horizonMonths int, logger *applog.Logger) *RecurrenceEngine {
	return &RecurrenceEngine{
		store:         store,
		horizonMonths: horizonMonths,
		logger:        logger.WithComponent(applog.ComponentRecurrence),
		now:           time.Now,
	}
}

// Expand generates the missing occurrences for one template and
// returns how many were created. Non-templates and income rows are
// skipped without error.
func (e *RecurrenceEngine) Expand(ctx context.Context, template *core.Transaction) (int, error) {
	if !template.IsTemplate() || template.Type != core.Expense {
		return 0, nil
	}

	start := template.RecurrenceStartDate
	if start.IsEmpty() {
		start = template.Date
	}

	step, ok := template.RecurrenceFrequency.StepMonths()
	if !ok {
		e.logger.WarnContext(ctx, "Unknown recurrence frequency, assuming monthly",
			applog.FieldTemplateID, template.ID,
			applog.FieldFrequency, string(template.RecurrenceFrequency))
		step = 1
	}

	ceiling := core.Today(e.now()).AddMonths(e.horizonMonths)
	if !template.RecurrenceEndDate.IsEmpty() && template.RecurrenceEndDate.Before(ceiling.Time) {
		ceiling = template.RecurrenceEndDate
	}

	dates := OccurrenceDates(start, step, ceiling)
	if len(dates) == 0 {
		return 0, nil
	}

	created, err := e.store.CreateOccurrences(ctx, template, dates)
	if err != nil {
		return 0, fmt.Errorf("expand template %d: %w", template.ID, err)
	}
	if created > 0 {
		e.logger.InfoContext(ctx, "Generated recurring occurrences",
			applog.FieldTemplateID, template.ID,
			applog.FieldUserID, template.UserID,
			applog.FieldCount, created)
	}
	return created, nil
}

// ExpandAll runs Expand over every template in the system. A failing
// template is logged and skipped so one bad row cannot stall the rest.
func (e *RecurrenceEngine) ExpandAll(ctx context.Context) (int, error) {
	templates, err := e.store.ListAllTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}

	total := 0
	for i := range templates {
		created, err := e.Expand(ctx, &templates[i])
		if err != nil {
			e.logger.ErrorContext(ctx, "Template expansion failed",
				applog.FieldTemplateID, templates[i].ID,
				applog.FieldError, err)
			continue
		}
		total += created
	}
	return total, nil
}
