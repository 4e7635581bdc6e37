package services

import (
	"context"

	"takziv/internal/core"
	"takziv/internal/storage"
)

// Store is the persistence surface the services need. The SQLite
// repository implements it for real deployments; the memory store
// implements it for tests.
type Store interface {
	CreateCategory(ctx context.Context, cat core.Category) (core.Category, error)
	UpdateCategoryProjection(ctx context.Context, owner core.Owner, id, projection int64) error
	DeleteCategory(ctx context.Context, owner core.Owner, id int64) error
	Categories(ctx context.Context, owner core.Owner) ([]core.Category, error)
	CategoryByName(ctx context.Context, owner core.Owner, name string) (core.Category, error)

	AddExpense(ctx context.Context, owner core.Owner, categoryID int64, t core.Transaction) (int64, error)
	ListExpenses(ctx context.Context, owner core.Owner, year, month int) ([]storage.Expense, error)
	YearlyTotals(ctx context.Context, owner core.Owner, year int) ([]core.CategoryAmount, error)
	MonthlyTotals(ctx context.Context, owner core.Owner, year, month int) ([]core.CategoryAmount, error)

	AddIncome(ctx context.Context, inc core.Income) (int64, error)
	ListIncome(ctx context.Context, owner core.Owner, year int) ([]core.Income, error)
	DeleteIncome(ctx context.Context, owner core.Owner, id int64) error
	MonthlyIncomeTotal(ctx context.Context, owner core.Owner, year, month int) (core.Money, error)

	CachedCategory(ctx context.Context, owner, description string) (string, bool, error)
	CacheCategory(ctx context.Context, owner, description, category string) error
}
