// Package storage implements the SQLite persistence layer.
//
// Dates cross this boundary as core.Date and are stored as ISO-8601
// text (YYYY-MM-DD), which sorts and range-compares correctly. Money
// is stored as integer cents. Every user-facing query filters by the
// owning user id.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable, for readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ----- users -----

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	u.CreatedAt = time.Now().UTC()

	var hash any
	if u.PasswordHash != "" {
		hash = u.PasswordHash
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, hash, u.CreatedAt.Format(timestampLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user insert id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (*core.User, error) {
	var u core.User
	var hash sql.NullString
	var createdAt string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &hash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.PasswordHash = hash.String
	u.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	return &u, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`, username)
	return r.scanUser(row)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

// ----- categories -----

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, type, color, icon) VALUES (?, ?, ?, ?, ?)`,
		c.UserID, c.Name, string(c.Type), c.Color, c.Icon)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category insert id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id int64) (*core.Category, error) {
	var c core.Category
	var typ string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, color, icon FROM categories WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color, &c.Icon)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	c.Type = core.TransactionType(typ)
	return &c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, color, icon FROM categories WHERE user_id = ? ORDER BY type, name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(typ)
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// defaultCategories is the seed set every new account starts with.
var defaultCategories = []core.Category{
	{Name: "Housing", Type: core.Expense, Color: "#e74c3c", Icon: "home"},
	{Name: "Groceries", Type: core.Expense, Color: "#e67e22", Icon: "cart"},
	{Name: "Transport", Type: core.Expense, Color: "#f1c40f", Icon: "bus"},
	{Name: "Health", Type: core.Expense, Color: "#1abc9c", Icon: "heart"},
	{Name: "Leisure", Type: core.Expense, Color: "#9b59b6", Icon: "film"},
	{Name: "Other expenses", Type: core.Expense, Color: "#95a5a6", Icon: "tag"},
	{Name: "Salary", Type: core.Income, Color: "#2ecc71", Icon: "wallet"},
	{Name: "Investments", Type: core.Income, Color: "#3498db", Icon: "chart"},
	{Name: "Other income", Type: core.Income, Color: "#95a5a6", Icon: "tag"},
}

// SeedDefaultCategories inserts the default category set for a freshly
// registered user, atomically.
func (r *SQLiteRepository) SeedDefaultCategories(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range defaultCategories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (user_id, name, type, color, icon) VALUES (?, ?, ?, ?, ?)`,
			userID, c.Name, string(c.Type), c.Color, c.Icon); err != nil {
			return fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
