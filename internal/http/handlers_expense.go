package http

import (
	"errors"
	"net/http"

	"takziv/internal/core"
	"takziv/internal/storage"
)

type expenseRequest struct {
	CategoryID  int64  `json:"category_id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
}

type expenseJSON struct {
	ID          int64   `json:"id"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}
	year, month := parseYearMonth(r)

	expenses, err := s.store.ListExpenses(r.Context(), owner, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list expenses failed")
		return
	}

	out := make([]expenseJSON, len(expenses))
	for i, e := range expenses {
		out[i] = expenseJSON{
			ID:          e.ID,
			Category:    e.CategoryName,
			Date:        e.Date.Format(dateFormat),
			Description: e.Description,
			Amount:      e.Amount.Amount(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateExpense records a manual expense. Manual entries carry no
// day of their own and are booked on the first of the given month.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "month out of range")
		return
	}

	cents, err := core.ParseAmountToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	tx := core.Transaction{
		Date:        core.MonthStart(req.Year, req.Month),
		Description: req.Description,
		Amount:      core.Money{Cents: cents},
	}
	id, err := s.store.AddExpense(r.Context(), owner, req.CategoryID, tx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "category not found")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}
