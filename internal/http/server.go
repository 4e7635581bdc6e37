// Package http exposes the JSON API for categories, expenses, income,
// imports and budget summaries.
package http

import (
	"context"
	"net/http"
	"time"

	"takziv/internal/budget"
	"takziv/internal/log"
	"takziv/internal/services"
)

// maxUploadBytes bounds import uploads; bank exports are small files.
const maxUploadBytes = 10 << 20

type Server struct {
	httpServer *http.Server
	store      services.Store
	imports    *services.ImportService
	budget     *budget.Engine
	logger     *log.Logger
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, store services.Store, imports *services.ImportService, engine *budget.Engine, logger *log.Logger) *Server {
	s := &Server{
		store:   store,
		imports: imports,
		budget:  engine,
		logger:  logger.WithComponent(log.ComponentHTTP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)

	mux.HandleFunc("GET /income", s.handleListIncome)
	mux.HandleFunc("POST /income", s.handleCreateIncome)
	mux.HandleFunc("DELETE /income/{id}", s.handleDeleteIncome)

	mux.HandleFunc("POST /import", s.handleImportFile)
	mux.HandleFunc("POST /import/save", s.handleImportSave)
	mux.HandleFunc("POST /import/enqueue", s.handleImportEnqueue)

	mux.HandleFunc("GET /budget/yearly", s.handleYearlyBudget)
	mux.HandleFunc("GET /budget/monthly", s.handleMonthlyBudget)

	handler := log.RequestLogger(s.logger)(mux)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return s
}

// Start blocks serving until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routing tree; used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
