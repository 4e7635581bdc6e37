// Package memory is an in-memory store with the same surface as the
// SQLite repository. It backs tests and the no-database dev mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"takziv/internal/core"
	"takziv/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	nextID   int64
	cats     []core.Category
	expenses []storage.Expense
	owners   map[int64]core.Owner // expense ID → owner
	incomes  []core.Income
	cache    map[string]string
}

func New() *Store {
	return &Store{
		nextID: 1,
		owners: map[int64]core.Owner{},
		cache:  map[string]string{},
	}
}

func (s *Store) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func cacheKey(owner, description string) string {
	return owner + "|" + description
}

func (s *Store) CreateCategory(_ context.Context, cat core.Category) (core.Category, error) {
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cats {
		if existing.Owner == cat.Owner && existing.Name == cat.Name {
			return core.Category{}, storage.ErrConflict
		}
	}
	cat.ID = s.id()
	s.cats = append(s.cats, cat)
	return cat, nil
}

func (s *Store) UpdateCategoryProjection(_ context.Context, owner core.Owner, id, projection int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cats {
		if s.cats[i].ID == id && s.cats[i].Owner == owner {
			s.cats[i].YearProjection = projection
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) DeleteCategory(_ context.Context, owner core.Owner, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.cats {
		if s.cats[i].ID == id && s.cats[i].Owner == owner {
			idx = i
			break
		}
	}
	if idx < 0 {
		return storage.ErrNotFound
	}
	s.cats = append(s.cats[:idx], s.cats[idx+1:]...)

	kept := s.expenses[:0]
	for _, e := range s.expenses {
		if e.CategoryID == id && s.owners[e.ID] == owner {
			delete(s.owners, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	s.expenses = kept
	return nil
}

func (s *Store) Categories(_ context.Context, owner core.Owner) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, cat := range s.cats {
		if cat.Owner == owner {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CategoryByName(_ context.Context, owner core.Owner, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cat := range s.cats {
		if cat.Owner == owner && cat.Name == name {
			return cat, nil
		}
	}
	return core.Category{}, storage.ErrNotFound
}

func (s *Store) AddExpense(_ context.Context, owner core.Owner, categoryID int64, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var categoryName string
	for _, cat := range s.cats {
		if cat.ID == categoryID && cat.Owner == owner {
			categoryName = cat.Name
			break
		}
	}
	if categoryName == "" {
		return 0, storage.ErrNotFound
	}
	e := storage.Expense{
		ID:           s.id(),
		CategoryID:   categoryID,
		CategoryName: categoryName,
		Date:         t.Date,
		Description:  t.Description,
		Amount:       t.Amount,
	}
	s.expenses = append(s.expenses, e)
	s.owners[e.ID] = owner
	return e.ID, nil
}

func (s *Store) ListExpenses(_ context.Context, owner core.Owner, year, month int) ([]storage.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Expense
	for _, e := range s.expenses {
		if s.owners[e.ID] != owner {
			continue
		}
		if e.Date.Year() != year || int(e.Date.Month()) != month {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) YearlyTotals(_ context.Context, owner core.Owner, year int) ([]core.CategoryAmount, error) {
	return s.sumTotals(owner, func(e storage.Expense) bool {
		return e.Date.Year() == year
	}), nil
}

func (s *Store) MonthlyTotals(_ context.Context, owner core.Owner, year, month int) ([]core.CategoryAmount, error) {
	return s.sumTotals(owner, func(e storage.Expense) bool {
		return e.Date.Year() == year && int(e.Date.Month()) == month
	}), nil
}

func (s *Store) sumTotals(owner core.Owner, match func(storage.Expense) bool) []core.CategoryAmount {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := map[string]int64{}
	for _, e := range s.expenses {
		if s.owners[e.ID] != owner || !match(e) {
			continue
		}
		sums[e.CategoryName] += e.Amount.Cents
	}
	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]core.CategoryAmount, 0, len(names))
	for _, name := range names {
		out = append(out, core.CategoryAmount{Name: name, Amount: core.Money{Cents: sums[name]}})
	}
	return out
}

func (s *Store) AddIncome(_ context.Context, inc core.Income) (int64, error) {
	if err := inc.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inc.ID = s.id()
	s.incomes = append(s.incomes, inc)
	return inc.ID, nil
}

func (s *Store) ListIncome(_ context.Context, owner core.Owner, year int) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Income
	for _, inc := range s.incomes {
		if inc.Owner == owner && inc.Date.Year() == year {
			out = append(out, inc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteIncome(_ context.Context, owner core.Owner, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.incomes {
		if s.incomes[i].ID == id && s.incomes[i].Owner == owner {
			s.incomes = append(s.incomes[:i], s.incomes[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) MonthlyIncomeTotal(_ context.Context, owner core.Owner, year, month int) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cents int64
	for _, inc := range s.incomes {
		if inc.Owner == owner && inc.Date.Year() == year && int(inc.Date.Month()) == month {
			cents += inc.Amount.Cents
		}
	}
	return core.Money{Cents: cents}, nil
}

func (s *Store) CachedCategory(_ context.Context, owner, description string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	category, ok := s.cache[cacheKey(owner, description)]
	return category, ok, nil
}

func (s *Store) CacheCategory(_ context.Context, owner, description, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[cacheKey(owner, description)] = category
	return nil
}
