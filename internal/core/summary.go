package core

// BudgetRow is the derived budget-vs-actual view for one category.
// It is recomputed on every query and never persisted.
type BudgetRow struct {
	CategoryID     int64
	Name           string
	YearProjection int64
	YearlySpent    Money
	Remaining      Money
	// MonthlyAllowance is the run rate that keeps the category on budget
	// for the rest of the year, including the current month.
	MonthlyAllowance float64
	// Monthly fields, populated only by the monthly summary.
	MonthlyTarget   float64
	MonthlySpent    Money
	MonthlyVariance float64
}

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}
