package http

import (
	"errors"
	"io"
	"net/http"

	"takziv/internal/core"
	"takziv/internal/importer"
)

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field required")
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload failed")
		return "", nil, false
	}
	return header.Filename, data, true
}

// handleImportFile parses and categorizes an upload synchronously and
// returns the rows for review. Nothing is persisted here.
func (s *Server) handleImportFile(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}

	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	result, err := s.imports.ImportFile(r.Context(), owner, filename, data)
	switch {
	case errors.Is(err, importer.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file format")
		return
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	out := struct {
		Transactions []transactionJSON `json:"transactions"`
		Warnings     []string          `json:"warnings,omitempty"`
	}{
		Transactions: make([]transactionJSON, len(result.Transactions)),
		Warnings:     result.Warnings,
	}
	for i, t := range result.Transactions {
		out.Transactions[i] = toTransactionJSON(t)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleImportSave persists reviewed transactions.
func (s *Server) handleImportSave(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}

	var req struct {
		Transactions []transactionJSON `json:"transactions"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txs := make([]core.Transaction, len(req.Transactions))
	for i, p := range req.Transactions {
		t, err := p.toCore()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		txs[i] = t
	}

	result, err := s.imports.SaveTransactions(r.Context(), owner, txs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleImportEnqueue stores the upload and queues it for the worker.
func (s *Server) handleImportEnqueue(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if err := owner.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}

	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	msg, err := s.imports.EnqueueImport(r.Context(), owner, filename, data)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": msg.JobID.String()})
}
