package http

import (
	"fmt"
	"math"
	"time"

	"takziv/internal/core"
)

const dateFormat = "2006-01-02"

// transactionJSON is the wire shape for transactions in the import
// review and save flows. Amounts travel as decimal currency units.
type transactionJSON struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category,omitempty"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		Date:        t.Date.Format(dateFormat),
		Description: t.Description,
		Amount:      t.Amount.Amount(),
		Category:    t.Category,
	}
}

func (p transactionJSON) toCore() (core.Transaction, error) {
	date, err := time.Parse(dateFormat, p.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("invalid date %q: %w", p.Date, err)
	}
	return core.Transaction{
		Date:        date,
		Description: p.Description,
		Amount:      core.Money{Cents: int64(math.Round(p.Amount * 100))},
		Category:    p.Category,
	}, nil
}

type categoryJSON struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	YearProjection int64  `json:"year_projection"`
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, YearProjection: c.YearProjection}
}

type budgetRowJSON struct {
	CategoryID       int64   `json:"category_id"`
	Name             string  `json:"name"`
	YearProjection   int64   `json:"year_projection"`
	YearlySpent      float64 `json:"yearly_spent"`
	Remaining        float64 `json:"remaining"`
	MonthlyAllowance float64 `json:"monthly_allowance"`
	MonthlyTarget    float64 `json:"monthly_target"`
	MonthlySpent     float64 `json:"monthly_spent,omitempty"`
	MonthlyVariance  float64 `json:"monthly_variance,omitempty"`
}

func toBudgetRowJSON(r core.BudgetRow) budgetRowJSON {
	return budgetRowJSON{
		CategoryID:       r.CategoryID,
		Name:             r.Name,
		YearProjection:   r.YearProjection,
		YearlySpent:      r.YearlySpent.Amount(),
		Remaining:        r.Remaining.Amount(),
		MonthlyAllowance: r.MonthlyAllowance,
		MonthlyTarget:    r.MonthlyTarget,
		MonthlySpent:     r.MonthlySpent.Amount(),
		MonthlyVariance:  r.MonthlyVariance,
	}
}
