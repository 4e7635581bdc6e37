package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"takziv/internal/budget"
	"takziv/internal/classify"
	"takziv/internal/core"
	"takziv/internal/log"
	"takziv/internal/services"
	"takziv/internal/storage/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	categorizer := classify.NewCategorizer(store, nil)
	imports := services.NewImportService(store, categorizer, nil, t.TempDir())
	engine := budget.NewEngine(store, budget.WithNow(func() time.Time {
		return time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	}))
	logger := log.New(log.DefaultConfig())
	return NewServer(":0", store, imports, engine, logger), store
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Owner", "dana")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s returned %d", path, rec.Code)
		}
	}
}

func TestCategoryEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	// Monthly projections are annualized on create.
	rec := doJSON(t, s, http.MethodPost, "/categories", map[string]any{
		"name": "Groceries", "projection": 1000, "monthly": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body)
	}
	var created categoryJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.YearProjection != 12000 {
		t.Fatalf("projection = %d, want 12000", created.YearProjection)
	}

	if rec := doJSON(t, s, http.MethodPost, "/categories", map[string]any{
		"name": "Groceries", "projection": 1,
	}); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate returned %d", rec.Code)
	}

	if rec := doJSON(t, s, http.MethodDelete, fmt.Sprintf("/categories/%d", created.ID), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete returned %d: %s", rec.Code, rec.Body)
	}
	if rec := doJSON(t, s, http.MethodDelete, fmt.Sprintf("/categories/%d", created.ID), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete returned %d", rec.Code)
	}
}

func TestOwnerRequired(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing owner returned %d", rec.Code)
	}
}

func TestImportReviewAndSave(t *testing.T) {
	s, store := newTestServer(t)

	if rec := doJSON(t, s, http.MethodPost, "/categories", map[string]any{
		"name": "Groceries", "projection": 12000,
	}); rec.Code != http.StatusCreated {
		t.Fatalf("create category returned %d", rec.Code)
	}
	if err := store.CacheCategory(t.Context(), "dana", "שופרסל", "Groceries"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	csv := "date,description,amount\n05.03.26,שופרסל,\"₪1,234.50\"\n"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "march.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write([]byte(csv)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("X-Owner", "dana")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import returned %d: %s", rec.Code, rec.Body)
	}

	var review struct {
		Transactions []transactionJSON `json:"transactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &review); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if len(review.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(review.Transactions))
	}
	if review.Transactions[0].Category != "Groceries" {
		t.Fatalf("category = %q", review.Transactions[0].Category)
	}

	saveRec := doJSON(t, s, http.MethodPost, "/import/save", map[string]any{
		"transactions": review.Transactions,
	})
	if saveRec.Code != http.StatusOK {
		t.Fatalf("save returned %d: %s", saveRec.Code, saveRec.Body)
	}
	var saved services.SaveResult
	if err := json.Unmarshal(saveRec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode save: %v", err)
	}
	if saved.Saved != 1 || saved.Skipped != 0 {
		t.Fatalf("save result = %+v", saved)
	}

	listRec := doJSON(t, s, http.MethodGet, "/expenses?year=2026&month=3", nil)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list returned %d", listRec.Code)
	}
	if !strings.Contains(listRec.Body.String(), "שופרסל") {
		t.Fatalf("expense missing from list: %s", listRec.Body)
	}
}

func TestMonthlyBudgetWithNetSavings(t *testing.T) {
	s, store := newTestServer(t)
	ctx := t.Context()

	cat, err := store.CreateCategory(ctx, core.Category{Owner: "dana", Name: "Food", YearProjection: 12000})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := store.AddExpense(ctx, "dana", cat.ID, core.Transaction{
		Date:        time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC),
		Description: "שופרסל",
		Amount:      core.Money{Cents: 90000},
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if _, err := store.AddIncome(ctx, core.Income{
		Owner:  "dana",
		Amount: core.Money{Cents: 1500000},
		Date:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("add income: %v", err)
	}

	rec := doJSON(t, s, http.MethodGet, "/budget/monthly?year=2026&month=7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("budget returned %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Categories []budgetRowJSON `json:"categories"`
		Income     float64         `json:"income"`
		NetSavings float64         `json:"net_savings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Categories) != 1 {
		t.Fatalf("expected 1 category, got %d", len(resp.Categories))
	}
	row := resp.Categories[0]
	if row.MonthlyTarget != 1000 {
		t.Fatalf("target = %v", row.MonthlyTarget)
	}
	if row.MonthlyVariance != 100 {
		t.Fatalf("variance = %v", row.MonthlyVariance)
	}
	if resp.NetSavings != 15000-900 {
		t.Fatalf("net savings = %v", resp.NetSavings)
	}
}
