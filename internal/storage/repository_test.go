package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"takziv/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "takziv.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTx(description string, cents int64, date time.Time) core.Transaction {
	return core.Transaction{
		Date:        date,
		Description: description,
		Amount:      core.Money{Cents: cents},
		Category:    "Food",
	}
}

func TestCategoryLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, core.Category{Owner: "dana", Name: "Food", YearProjection: 12000})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if cat.ID == 0 {
		t.Fatal("expected non-zero category ID")
	}

	if _, err := repo.CreateCategory(ctx, core.Category{Owner: "dana", Name: "Food", YearProjection: 1}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate name: got %v, want ErrConflict", err)
	}
	// Same name under another owner is fine.
	if _, err := repo.CreateCategory(ctx, core.Category{Owner: "yossi", Name: "Food", YearProjection: 1}); err != nil {
		t.Fatalf("same name, other owner: %v", err)
	}

	if err := repo.UpdateCategoryProjection(ctx, "dana", cat.ID, 18000); err != nil {
		t.Fatalf("update projection: %v", err)
	}
	if err := repo.UpdateCategoryProjection(ctx, "yossi", cat.ID, 18000); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner update: got %v, want ErrNotFound", err)
	}

	got, err := repo.CategoryByName(ctx, "dana", "Food")
	if err != nil {
		t.Fatalf("category by name: %v", err)
	}
	if got.YearProjection != 18000 {
		t.Fatalf("projection = %d, want 18000", got.YearProjection)
	}
}

func TestDeleteCategoryCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, core.Category{Owner: "dana", Name: "Food", YearProjection: 12000})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if _, err := repo.AddExpense(ctx, "dana", cat.ID, testTx("שופרסל", 12050, date)); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	if err := repo.DeleteCategory(ctx, "dana", cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	cats, err := repo.Categories(ctx, "dana")
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != 0 {
		t.Fatalf("expected no categories, got %v", cats)
	}
	expenses, err := repo.ListExpenses(ctx, "dana", 2026, 3)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 0 {
		t.Fatalf("cascade left %d expenses", len(expenses))
	}
}

func TestAddExpenseRequiresOwnedCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if _, err := repo.AddExpense(ctx, "dana", 999, testTx("שופרסל", 12050, date)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("nonexistent category: got %v, want ErrNotFound", err)
	}

	cat, err := repo.CreateCategory(ctx, core.Category{Owner: "yossi", Name: "Food", YearProjection: 12000})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := repo.AddExpense(ctx, "dana", cat.ID, testTx("שופרסל", 12050, date)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other owner's category: got %v, want ErrNotFound", err)
	}

	// Nothing may have slipped into the table.
	for month := 1; month <= 12; month++ {
		expenses, err := repo.ListExpenses(ctx, "dana", 2026, month)
		if err != nil {
			t.Fatalf("list expenses: %v", err)
		}
		if len(expenses) != 0 {
			t.Fatalf("rejected expense persisted: %+v", expenses)
		}
	}
}

func TestTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food, err := repo.CreateCategory(ctx, core.Category{Owner: "dana", Name: "Food", YearProjection: 12000})
	if err != nil {
		t.Fatalf("create Food: %v", err)
	}
	fun, err := repo.CreateCategory(ctx, core.Category{Owner: "dana", Name: "Fun", YearProjection: 3000})
	if err != nil {
		t.Fatalf("create Fun: %v", err)
	}

	add := func(catID int64, cents int64, month int) {
		t.Helper()
		date := time.Date(2026, time.Month(month), 5, 0, 0, 0, 0, time.UTC)
		if _, err := repo.AddExpense(ctx, "dana", catID, testTx("x", cents, date)); err != nil {
			t.Fatalf("add expense: %v", err)
		}
	}
	add(food.ID, 10000, 1)
	add(food.ID, 20000, 2)
	add(fun.ID, 5000, 2)

	yearly, err := repo.YearlyTotals(ctx, "dana", 2026)
	if err != nil {
		t.Fatalf("yearly totals: %v", err)
	}
	if len(yearly) != 2 || yearly[0].Name != "Food" || yearly[0].Amount.Cents != 30000 {
		t.Fatalf("yearly totals = %+v", yearly)
	}

	monthly, err := repo.MonthlyTotals(ctx, "dana", 2026, 2)
	if err != nil {
		t.Fatalf("monthly totals: %v", err)
	}
	if len(monthly) != 2 || monthly[0].Amount.Cents != 20000 || monthly[1].Amount.Cents != 5000 {
		t.Fatalf("monthly totals = %+v", monthly)
	}

	empty, err := repo.MonthlyTotals(ctx, "dana", 2026, 7)
	if err != nil {
		t.Fatalf("empty month totals: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no totals, got %+v", empty)
	}
}

func TestClassificationCacheUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, ok, err := repo.CachedCategory(ctx, "dana", "שופרסל"); err != nil || ok {
		t.Fatalf("empty cache lookup: ok=%v err=%v", ok, err)
	}

	if err := repo.CacheCategory(ctx, "dana", "שופרסל", "Food"); err != nil {
		t.Fatalf("cache write: %v", err)
	}
	// Second write for the same key overwrites, no duplicate rows.
	if err := repo.CacheCategory(ctx, "dana", "שופרסל", "Groceries"); err != nil {
		t.Fatalf("cache overwrite: %v", err)
	}

	category, ok, err := repo.CachedCategory(ctx, "dana", "שופרסל")
	if err != nil || !ok {
		t.Fatalf("cache lookup: ok=%v err=%v", ok, err)
	}
	if category != "Groceries" {
		t.Fatalf("cached category = %q, want Groceries", category)
	}

	// Entries are per owner.
	if _, ok, _ := repo.CachedCategory(ctx, "yossi", "שופרסל"); ok {
		t.Fatal("cache must not leak across owners")
	}
}

func TestIncome(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.AddIncome(ctx, core.Income{
		Owner:  "dana",
		Amount: core.Money{Cents: 1500000},
		Date:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Source: "salary",
	})
	if err != nil {
		t.Fatalf("add income: %v", err)
	}

	total, err := repo.MonthlyIncomeTotal(ctx, "dana", 2026, 5)
	if err != nil {
		t.Fatalf("monthly income total: %v", err)
	}
	if total.Cents != 1500000 {
		t.Fatalf("total = %d, want 1500000", total.Cents)
	}

	if err := repo.DeleteIncome(ctx, "dana", id); err != nil {
		t.Fatalf("delete income: %v", err)
	}
	incomes, err := repo.ListIncome(ctx, "dana", 2026)
	if err != nil {
		t.Fatalf("list income: %v", err)
	}
	if len(incomes) != 0 {
		t.Fatalf("expected no income rows, got %d", len(incomes))
	}
}
