package http

import (
	"errors"
	"net/http"
	"time"

	"takziv/internal/core"
	"takziv/internal/storage"
)

type incomeRequest struct {
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

type incomeJSON struct {
	ID          int64   `json:"id"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description,omitempty"`
	Source      string  `json:"source,omitempty"`
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}
	year, _ := parseYearMonth(r)

	incomes, err := s.store.ListIncome(r.Context(), owner, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list income failed")
		return
	}

	out := make([]incomeJSON, len(incomes))
	for i, inc := range incomes {
		out[i] = incomeJSON{
			ID:          inc.ID,
			Amount:      inc.Amount.Amount(),
			Date:        inc.Date.Format(dateFormat),
			Description: inc.Description,
			Source:      inc.Source,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}

	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseAmountToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	date, err := time.Parse(dateFormat, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	id, err := s.store.AddIncome(r.Context(), core.Income{
		Owner:       owner,
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Description: req.Description,
		Source:      req.Source,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid income id")
		return
	}

	err = s.store.DeleteIncome(r.Context(), owner, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "income not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "delete income failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
