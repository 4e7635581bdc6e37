package http

import (
	"net/http"
)

func (s *Server) handleYearlyBudget(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}
	year, _ := parseYearMonth(r)

	rows, err := s.budget.YearlyStatus(r.Context(), owner, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "budget summary failed")
		return
	}

	out := make([]budgetRowJSON, len(rows))
	for i, row := range rows {
		out[i] = toBudgetRowJSON(row)
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "categories": out})
}

// handleMonthlyBudget adds month fields and the month's net savings
// (income minus spend) to the summary.
func (s *Server) handleMonthlyBudget(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}
	year, month := parseYearMonth(r)

	rows, err := s.budget.MonthlyStatus(r.Context(), owner, year, month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	income, err := s.store.MonthlyIncomeTotal(r.Context(), owner, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "income total failed")
		return
	}

	out := make([]budgetRowJSON, len(rows))
	var spent float64
	for i, row := range rows {
		out[i] = toBudgetRowJSON(row)
		spent += row.MonthlySpent.Amount()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":        year,
		"month":       month,
		"categories":  out,
		"income":      income.Amount(),
		"spent":       spent,
		"net_savings": income.Amount() - spent,
	})
}
