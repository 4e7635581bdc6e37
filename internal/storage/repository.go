// Package storage persists categories, expenses, income and the
// classification cache in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"takziv/internal/core"
	applog "takziv/internal/log"

	_ "modernc.org/sqlite"
)

const dateFormat = "2006-01-02"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a uniqueness rule.
	ErrConflict = errors.New("already exists")
)

// Expense is a persisted, categorized transaction.
type Expense struct {
	ID           int64
	CategoryID   int64
	CategoryName string
	Date         time.Time
	Description  string
	Amount       core.Money
}

type SQLiteRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
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

	return &SQLiteRepository{
		db:  db,
		log: applog.ForComponent(applog.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateCategory inserts a category and returns it with its ID set.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (owner, name, year_projection) VALUES (?, ?, ?)`,
		string(cat.Owner), cat.Name, cat.YearProjection)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.Category{}, ErrConflict
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}
	cat.ID = id

	r.log.InfoContext(ctx, "Category created",
		"id", cat.ID, applog.FieldOwner, cat.Owner, "name", cat.Name,
		"year_projection", cat.YearProjection)
	return cat, nil
}

// UpdateCategoryProjection replaces a category's yearly projection.
func (r *SQLiteRepository) UpdateCategoryProjection(ctx context.Context, owner core.Owner, id, projection int64) error {
	if projection < 0 {
		return errors.New("yearly projection cannot be negative")
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET year_projection = ? WHERE id = ? AND owner = ?`,
		projection, id, string(owner))
	if err != nil {
		return fmt.Errorf("update category projection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category together with every expense that
// references it. The two deletes run in one transaction.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, owner core.Owner, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM expenses WHERE category_id = ? AND owner = ?`, id, string(owner)); err != nil {
		return fmt.Errorf("delete category expenses: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND owner = ?`, id, string(owner))
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.log.InfoContext(ctx, "Category deleted with its expenses", "id", id, applog.FieldOwner, owner)
	return nil
}

// Categories lists an owner's categories sorted by name.
func (r *SQLiteRepository) Categories(ctx context.Context, owner core.Owner) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, year_projection FROM categories WHERE owner = ? ORDER BY name`,
		string(owner))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		cat := core.Category{Owner: owner}
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.YearProjection); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// CategoryByName fetches one category by its per-owner unique name.
func (r *SQLiteRepository) CategoryByName(ctx context.Context, owner core.Owner, name string) (core.Category, error) {
	cat := core.Category{Owner: owner}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, year_projection FROM categories WHERE owner = ? AND name = ?`,
		string(owner), name).Scan(&cat.ID, &cat.Name, &cat.YearProjection)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("category by name: %w", err)
	}
	return cat, nil
}

// AddExpense persists one categorized transaction. The category must
// exist and belong to the owner; SQLite does not enforce the reference
// on its own, and an orphaned row would be invisible to every listing
// and total.
func (r *SQLiteRepository) AddExpense(ctx context.Context, owner core.Owner, categoryID int64, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM categories WHERE id = ? AND owner = ?`,
		categoryID, string(owner)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("check category: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (owner, category_id, date, description, amount_cents) VALUES (?, ?, ?, ?, ?)`,
		string(owner), categoryID, t.Date.Format(dateFormat), t.Description, t.Amount.Cents)
	if err != nil {
		return 0, fmt.Errorf("add expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}

	r.log.InfoContext(ctx, "Expense saved",
		"id", id, applog.FieldOwner, owner, "description", t.Description,
		applog.FieldAmount, t.Amount.Cents, "date", t.Date.Format(dateFormat))
	return id, nil
}

// ListExpenses returns an owner's expenses for one month, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, owner core.Owner, year, month int) ([]Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.category_id, c.name, e.date, e.description, e.amount_cents
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.owner = ? AND strftime('%Y', e.date) = ? AND strftime('%m', e.date) = ?
		 ORDER BY e.date DESC, e.id DESC`,
		string(owner), fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var (
			e       Expense
			dateStr string
		)
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.CategoryName, &dateStr, &e.Description, &e.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date, err = time.Parse(dateFormat, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse expense date %q: %w", dateStr, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// YearlyTotals sums expense amounts per category for one year.
func (r *SQLiteRepository) YearlyTotals(ctx context.Context, owner core.Owner, year int) ([]core.CategoryAmount, error) {
	return r.totals(ctx,
		`SELECT c.name, SUM(e.amount_cents)
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.owner = ? AND strftime('%Y', e.date) = ?
		 GROUP BY c.name ORDER BY c.name`,
		string(owner), fmt.Sprintf("%04d", year))
}

// MonthlyTotals sums expense amounts per category for one month.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, owner core.Owner, year, month int) ([]core.CategoryAmount, error) {
	return r.totals(ctx,
		`SELECT c.name, SUM(e.amount_cents)
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.owner = ? AND strftime('%Y', e.date) = ? AND strftime('%m', e.date) = ?
		 GROUP BY c.name ORDER BY c.name`,
		string(owner), fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month))
}

func (r *SQLiteRepository) totals(ctx context.Context, query string, args ...any) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryAmount
	for rows.Next() {
		var t core.CategoryAmount
		if err := rows.Scan(&t.Name, &t.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// AddIncome persists one income record and returns its ID.
func (r *SQLiteRepository) AddIncome(ctx context.Context, inc core.Income) (int64, error) {
	if err := inc.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO income (owner, amount_cents, date, description, source) VALUES (?, ?, ?, ?, ?)`,
		string(inc.Owner), inc.Amount.Cents, inc.Date.Format(dateFormat), inc.Description, inc.Source)
	if err != nil {
		return 0, fmt.Errorf("add income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("income id: %w", err)
	}
	return id, nil
}

// ListIncome returns an owner's income records for one year, newest first.
func (r *SQLiteRepository) ListIncome(ctx context.Context, owner core.Owner, year int) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, date, description, source
		 FROM income WHERE owner = ? AND strftime('%Y', date) = ?
		 ORDER BY date DESC, id DESC`,
		string(owner), fmt.Sprintf("%04d", year))
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}
	defer rows.Close()

	var incomes []core.Income
	for rows.Next() {
		var (
			inc     core.Income
			dateStr string
		)
		inc.Owner = owner
		if err := rows.Scan(&inc.ID, &inc.Amount.Cents, &dateStr, &inc.Description, &inc.Source); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		inc.Date, err = time.Parse(dateFormat, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse income date %q: %w", dateStr, err)
		}
		incomes = append(incomes, inc)
	}
	return incomes, rows.Err()
}

// DeleteIncome removes one income record.
func (r *SQLiteRepository) DeleteIncome(ctx context.Context, owner core.Owner, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM income WHERE id = ? AND owner = ?`, id, string(owner))
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MonthlyIncomeTotal sums an owner's income for one month.
func (r *SQLiteRepository) MonthlyIncomeTotal(ctx context.Context, owner core.Owner, year, month int) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM income
		 WHERE owner = ? AND strftime('%Y', date) = ? AND strftime('%m', date) = ?`,
		string(owner), fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month)).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("monthly income total: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// CachedCategory looks up the remembered category for a description.
func (r *SQLiteRepository) CachedCategory(ctx context.Context, owner, description string) (string, bool, error) {
	var category string
	err := r.db.QueryRowContext(ctx,
		`SELECT category FROM classification_cache WHERE owner = ? AND description = ?`,
		owner, description).Scan(&category)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cached category: %w", err)
	}
	return category, true, nil
}

// CacheCategory upserts one (owner, description) → category entry.
// Entries never expire; a later write for the same key overwrites.
func (r *SQLiteRepository) CacheCategory(ctx context.Context, owner, description, category string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO classification_cache (owner, description, category, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		owner, description, category)
	if err != nil {
		return fmt.Errorf("cache category: %w", err)
	}
	return nil
}
