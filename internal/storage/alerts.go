package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// UpcomingDue returns unpaid expenses whose due date falls in
// [from, to]. With onlyUnnotified set, rows already flagged by a
// previous scan are skipped.
func (r *SQLiteRepository) UpcomingDue(ctx context.Context, userID int64, from, to core.Date, onlyUnnotified bool) ([]core.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions
		WHERE user_id = ? AND type = 'expense' AND paid = 0
		  AND due_date IS NOT NULL AND due_date >= ? AND due_date <= ?`
	if onlyUnnotified {
		query += ` AND notified = 0`
	}
	query += ` ORDER BY due_date, id`

	return r.queryTransactions(ctx, query, userID, from.String(), to.String())
}

// MarkNotified flags the given transactions as already surfaced to the
// user. Only the alert scanner and dismissal write this flag.
func (r *SQLiteRepository) MarkNotified(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notify tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET notified = 1 WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("mark notified %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notify: %w", err)
	}
	return nil
}
