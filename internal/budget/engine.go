// Package budget derives budget-vs-actual summaries from category
// projections and aggregated spend. Rows are computed on every query and
// never persisted or cached.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"takziv/internal/core"
	applog "takziv/internal/log"
)

// Store is the read surface the engine needs. Totals are aggregated by
// category name and exclude nothing; categories with no spend simply do
// not appear in the totals.
type Store interface {
	Categories(ctx context.Context, owner core.Owner) ([]core.Category, error)
	YearlyTotals(ctx context.Context, owner core.Owner, year int) ([]core.CategoryAmount, error)
	MonthlyTotals(ctx context.Context, owner core.Owner, year, month int) ([]core.CategoryAmount, error)
}

// Engine computes budget summaries for one owner at a time.
type Engine struct {
	store Store
	now   func() time.Time
	log   *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithNow replaces the clock; used by tests.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		log:   applog.ForComponent(applog.ComponentBudget),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// monthsRemaining counts the months left in the queried year, current
// month included. Past years get the full 12 so historical summaries
// show a sensible run rate; future years get 0.
func (e *Engine) monthsRemaining(year int) int {
	now := e.now()
	switch {
	case year < now.Year():
		return 12
	case year > now.Year():
		return 0
	default:
		return 13 - int(now.Month())
	}
}

// YearlyStatus returns one row per category for the given year, sorted
// by category name. Every category appears even with zero spend.
func (e *Engine) YearlyStatus(ctx context.Context, owner core.Owner, year int) ([]core.BudgetRow, error) {
	categories, err := e.store.Categories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	yearly, err := e.store.YearlyTotals(ctx, owner, year)
	if err != nil {
		return nil, fmt.Errorf("yearly totals: %w", err)
	}
	spent := totalsByName(yearly)

	months := e.monthsRemaining(year)
	rows := make([]core.BudgetRow, 0, len(categories))
	for _, cat := range categories {
		rows = append(rows, e.row(cat, spent[cat.Name], months))
	}
	sortRows(rows)

	e.log.DebugContext(ctx, "Yearly summary computed",
		applog.FieldOwner, owner, applog.FieldYear, year,
		"categories", len(rows), "months_remaining", months)
	return rows, nil
}

// MonthlyStatus is YearlyStatus plus the month-level fields for the
// given month.
func (e *Engine) MonthlyStatus(ctx context.Context, owner core.Owner, year, month int) ([]core.BudgetRow, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month %d out of range", month)
	}

	rows, err := e.YearlyStatus(ctx, owner, year)
	if err != nil {
		return nil, err
	}

	monthly, err := e.store.MonthlyTotals(ctx, owner, year, month)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	spent := totalsByName(monthly)

	for i := range rows {
		rows[i].MonthlySpent = spent[rows[i].Name]
		rows[i].MonthlyVariance = rows[i].MonthlyTarget - rows[i].MonthlySpent.Amount()
	}

	e.log.DebugContext(ctx, "Monthly summary computed",
		applog.FieldOwner, owner, applog.FieldYear, year,
		applog.FieldMonth, month, "categories", len(rows))
	return rows, nil
}

func (e *Engine) row(cat core.Category, spent core.Money, monthsRemaining int) core.BudgetRow {
	remaining := core.Money{Cents: cat.YearProjection*100 - spent.Cents}

	var allowance float64
	if monthsRemaining > 0 {
		allowance = remaining.Amount() / float64(monthsRemaining)
	}

	return core.BudgetRow{
		CategoryID:       cat.ID,
		Name:             cat.Name,
		YearProjection:   cat.YearProjection,
		YearlySpent:      spent,
		Remaining:        remaining,
		MonthlyAllowance: allowance,
		MonthlyTarget:    float64(cat.YearProjection) / 12,
	}
}

func totalsByName(totals []core.CategoryAmount) map[string]core.Money {
	m := make(map[string]core.Money, len(totals))
	for _, t := range totals {
		m[t.Name] = t.Amount
	}
	return m
}

func sortRows(rows []core.BudgetRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
}
