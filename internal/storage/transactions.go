package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

const txColumns = `id, user_id, type, amount_cents, date, description, category_id, paid,
	due_date, notes, notified, is_recurring, recurrence_frequency, recurrence_start_date,
	recurrence_end_date, parent_transaction_id, external_calendar_event_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var (
		t          core.Transaction
		typ        string
		date       string
		categoryID sql.NullInt64
		dueDate    sql.NullString
		freq       sql.NullString
		startDate  sql.NullString
		endDate    sql.NullString
		parentID   sql.NullInt64
		createdAt  string
	)

	err := row.Scan(&t.ID, &t.UserID, &typ, &t.Amount.Cents, &date, &t.Description,
		&categoryID, &t.Paid, &dueDate, &t.Notes, &t.Notified, &t.IsRecurring,
		&freq, &startDate, &endDate, &parentID, &t.CalendarEventID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.Type = core.TransactionType(typ)
	if t.Date, err = core.ParseDate(date); err != nil {
		return nil, fmt.Errorf("transaction %d: bad date %q", t.ID, date)
	}
	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	if dueDate.Valid && dueDate.String != "" {
		if t.DueDate, err = core.ParseDate(dueDate.String); err != nil {
			return nil, fmt.Errorf("transaction %d: bad due date %q", t.ID, dueDate.String)
		}
	}
	t.RecurrenceFrequency = core.Frequency(freq.String)
	if startDate.Valid && startDate.String != "" {
		if t.RecurrenceStartDate, err = core.ParseDate(startDate.String); err != nil {
			return nil, fmt.Errorf("transaction %d: bad recurrence start %q", t.ID, startDate.String)
		}
	}
	if endDate.Valid && endDate.String != "" {
		if t.RecurrenceEndDate, err = core.ParseDate(endDate.String); err != nil {
			return nil, fmt.Errorf("transaction %d: bad recurrence end %q", t.ID, endDate.String)
		}
	}
	if parentID.Valid {
		t.ParentID = &parentID.Int64
	}
	t.CreatedAt, _ = time.Parse(timestampLayout, createdAt)

	return &t, nil
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTransaction(ctx context.Context, ex execer, t *core.Transaction) error {
	t.CreatedAt = time.Now().UTC()

	res, err := ex.ExecContext(ctx, `
		INSERT INTO transactions (user_id, type, amount_cents, date, description, category_id,
			paid, due_date, notes, notified, is_recurring, recurrence_frequency,
			recurrence_start_date, recurrence_end_date, parent_transaction_id,
			external_calendar_event_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, string(t.Type), t.Amount.Cents, t.Date.String(), t.Description,
		nullID(t.CategoryID), t.Paid, nullDate(t.DueDate), t.Notes, t.Notified,
		t.IsRecurring, nullStr(string(t.RecurrenceFrequency)),
		nullDate(t.RecurrenceStartDate), nullDate(t.RecurrenceEndDate),
		nullID(t.ParentID), t.CalendarEventID, t.CreatedAt.Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction insert id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	return insertTransaction(ctx, r.db, t)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	return scanTransaction(row)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET type = ?, amount_cents = ?, date = ?, description = ?,
			category_id = ?, paid = ?, due_date = ?, notes = ?, is_recurring = ?,
			recurrence_frequency = ?, recurrence_start_date = ?, recurrence_end_date = ?
		WHERE id = ? AND user_id = ?`,
		string(t.Type), t.Amount.Cents, t.Date.String(), t.Description,
		nullID(t.CategoryID), t.Paid, nullDate(t.DueDate), t.Notes, t.IsRecurring,
		nullStr(string(t.RecurrenceFrequency)), nullDate(t.RecurrenceStartDate),
		nullDate(t.RecurrenceEndDate), t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// TransactionFilter narrows ListTransactions. Nil pointer fields and
// zero dates mean "no constraint".
type TransactionFilter struct {
	Text       string
	CategoryID *int64
	Type       core.TransactionType
	From       core.Date
	To         core.Date // inclusive
	MinCents   *int64
	MaxCents   *int64
	Paid       *bool
	Recurring  *bool
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if f.Text != "" {
		where = append(where, "(description LIKE ? OR notes LIKE ?)")
		pattern := "%" + f.Text + "%"
		args = append(args, pattern, pattern)
	}
	if f.CategoryID != nil {
		where = append(where, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.To.String())
	}
	if f.MinCents != nil {
		where = append(where, "amount_cents >= ?")
		args = append(args, *f.MinCents)
	}
	if f.MaxCents != nil {
		where = append(where, "amount_cents <= ?")
		args = append(args, *f.MaxCents)
	}
	if f.Paid != nil {
		where = append(where, "paid = ?")
		args = append(args, *f.Paid)
	}
	if f.Recurring != nil {
		if *f.Recurring {
			where = append(where, "(is_recurring = 1 OR parent_transaction_id IS NOT NULL)")
		} else {
			where = append(where, "is_recurring = 0 AND parent_transaction_id IS NULL")
		}
	}

	query := `SELECT ` + txColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date, id`

	return r.queryTransactions(ctx, query, args...)
}

// ListTemplates returns the user's recurring templates, newest first.
func (r *SQLiteRepository) ListTemplates(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE user_id = ? AND is_recurring = 1 AND parent_transaction_id IS NULL
		 ORDER BY date DESC, id DESC`, userID)
}

// ListAllTemplates returns every recurring template across all users,
// for the background expansion worker.
func (r *SQLiteRepository) ListAllTemplates(ctx context.Context) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE is_recurring = 1 AND parent_transaction_id IS NULL
		 ORDER BY user_id, id`)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CreateOccurrences inserts one child per candidate date that is not
// already covered by an existing child of the template. The read of
// existing dates and all inserts share one transaction, so re-running
// with the same inputs is a no-op and concurrent expansions cannot
// both insert the same date.
func (r *SQLiteRepository) CreateOccurrences(ctx context.Context, template *core.Transaction, dates []core.Date) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin occurrences tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT date FROM transactions WHERE parent_transaction_id = ?`, template.ID)
	if err != nil {
		return 0, fmt.Errorf("load existing occurrence dates: %w", err)
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan occurrence date: %w", err)
		}
		existing[d] = true
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("close occurrence dates: %w", err)
	}

	created := 0
	for _, d := range dates {
		if existing[d.String()] {
			continue
		}
		child := core.Transaction{
			UserID:      template.UserID,
			Type:        template.Type,
			Amount:      template.Amount,
			Date:        d,
			Description: template.Description,
			CategoryID:  template.CategoryID,
			Paid:        false,
			DueDate:     d,
			Notes:       template.Notes,
			ParentID:    &template.ID,
		}
		if err := insertTransaction(ctx, tx, &child); err != nil {
			return 0, err
		}
		created++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit occurrences: %w", err)
	}
	return created, nil
}

// FuturePatch carries the fields propagated by an "update all future
// occurrences" edit.
type FuturePatch struct {
	Description string
	AmountCents int64
	Type        core.TransactionType
	CategoryID  *int64
	Notes       string

	// Template-only recurrence settings.
	IsRecurring         bool
	RecurrenceFrequency core.Frequency
	RecurrenceEndDate   core.Date
}

// UpdateFutureOccurrences applies the patch to the template and to
// every child with date >= today. Past children keep their values.
func (r *SQLiteRepository) UpdateFutureOccurrences(ctx context.Context, userID, templateID int64, today core.Date, p FuturePatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin future update tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE transactions SET description = ?, amount_cents = ?, type = ?, category_id = ?,
			notes = ?, is_recurring = ?, recurrence_frequency = ?, recurrence_end_date = ?
		WHERE id = ? AND user_id = ?`,
		p.Description, p.AmountCents, string(p.Type), nullID(p.CategoryID), p.Notes,
		p.IsRecurring, nullStr(string(p.RecurrenceFrequency)), nullDate(p.RecurrenceEndDate),
		templateID, userID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE transactions SET description = ?, amount_cents = ?, type = ?, category_id = ?, notes = ?
		WHERE parent_transaction_id = ? AND user_id = ? AND date >= ?`,
		p.Description, p.AmountCents, string(p.Type), nullID(p.CategoryID), p.Notes,
		templateID, userID, today.String()); err != nil {
		return fmt.Errorf("update future occurrences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit future update: %w", err)
	}
	return nil
}

// DeleteFutureOccurrences removes every child of the template with
// date >= today, and the template row itself when includeTemplate is
// set. Returns the number of rows deleted.
func (r *SQLiteRepository) DeleteFutureOccurrences(ctx context.Context, userID, templateID int64, today core.Date, includeTemplate bool) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin future delete tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE parent_transaction_id = ? AND user_id = ? AND date >= ?`,
		templateID, userID, today.String())
	if err != nil {
		return 0, fmt.Errorf("delete future occurrences: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if includeTemplate {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE id = ? AND user_id = ?`, templateID, userID)
		if err != nil {
			return 0, fmt.Errorf("delete template: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit future delete: %w", err)
	}
	return deleted, nil
}

// TogglePaid flips the paid flag and returns the new value.
func (r *SQLiteRepository) TogglePaid(ctx context.Context, userID, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle tx: %w", err)
	}
	defer tx.Rollback()

	var paid bool
	err = tx.QueryRowContext(ctx,
		`SELECT paid FROM transactions WHERE id = ? AND user_id = ?`, id, userID).Scan(&paid)
	if err == sql.ErrNoRows {
		return false, core.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("read paid flag: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET paid = ? WHERE id = ? AND user_id = ?`, !paid, id, userID); err != nil {
		return false, fmt.Errorf("toggle paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit toggle: %w", err)
	}
	return !paid, nil
}

func (r *SQLiteRepository) SetPaid(ctx context.Context, userID, id int64, paid bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET paid = ? WHERE id = ? AND user_id = ?`, paid, id, userID)
	if err != nil {
		return fmt.Errorf("set paid: %w", err)
	}
	return requireRow(res)
}

// SetCalendarEventID records the external event id written by the
// calendar sync worker.
func (r *SQLiteRepository) SetCalendarEventID(ctx context.Context, userID, id int64, eventID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET external_calendar_event_id = ? WHERE id = ? AND user_id = ?`,
		eventID, id, userID)
	if err != nil {
		return fmt.Errorf("set calendar event id: %w", err)
	}
	return requireRow(res)
}
