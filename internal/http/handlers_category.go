package http

import (
	"errors"
	"net/http"

	"takziv/internal/core"
	"takziv/internal/storage"
)

type categoryRequest struct {
	Name       string `json:"name"`
	Projection int64  `json:"projection"`
	// Monthly marks Projection as a per-month figure to be annualized.
	Monthly bool `json:"monthly,omitempty"`
}

func (req categoryRequest) yearProjection() int64 {
	if req.Monthly {
		return req.Projection * 12
	}
	return req.Projection
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}

	categories, err := s.store.Categories(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list categories failed")
		return
	}

	out := make([]categoryJSON, len(categories))
	for i, cat := range categories {
		out[i] = toCategoryJSON(cat)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := s.store.CreateCategory(r.Context(), core.Category{
		Owner:          owner,
		Name:           req.Name,
		YearProjection: req.yearProjection(),
	})
	switch {
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, "category already exists")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryJSON(cat))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = s.store.UpdateCategoryProjection(r.Context(), owner, id, req.yearProjection())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "category not found")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	err = s.store.DeleteCategory(r.Context(), owner, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "category not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "delete category failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
