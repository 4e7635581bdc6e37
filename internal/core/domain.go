package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Owner identifies the account whose categories, transactions, income
	// and classification cache entries are isolated from everyone else's.
	Owner string

	// Transaction is one normalized row produced by the import pipeline.
	// Category stays empty until the categorizer has run.
	Transaction struct {
		Date        time.Time
		Description string
		Amount      Money
		Category    string
	}

	// Category is a budgeting bucket with a user-declared yearly target.
	Category struct {
		ID             int64
		Owner          Owner
		Name           string
		YearProjection int64
	}

	// Income is a manually entered income record.
	Income struct {
		ID          int64
		Owner       Owner
		Amount      Money
		Date        time.Time
		Description string
		Source      string
	}
)

// Uncategorized is the sentinel label assigned when classification is
// unavailable, fails, or the classifier cannot pick a fitting category.
const Uncategorized = "Uncategorized"

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty category name")
	ErrEmptyOwner       = errors.New("empty owner")
)

func (o Owner) Validate() error {
	if strings.TrimSpace(string(o)) == "" {
		return ErrEmptyOwner
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 200 {
		return errors.New("category name too long (max 200 characters)")
	}
	if c.YearProjection < 0 {
		return errors.New("yearly projection cannot be negative")
	}
	return nil
}

func (i Income) Validate() error {
	if i.Date.IsZero() {
		return ErrInvalidDate
	}
	if i.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MonthStart returns the first day of the given month, the date manual
// entries are recorded under.
func MonthStart(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}
