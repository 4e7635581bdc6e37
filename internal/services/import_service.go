// Package services orchestrates the import pipeline across parsing,
// classification, storage and the job queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"takziv/internal/amqp"
	"takziv/internal/classify"
	"takziv/internal/core"
	"takziv/internal/importer"
	applog "takziv/internal/log"
	"takziv/internal/storage"

	"github.com/google/uuid"
)

// ImportPublisher hands import jobs to the worker queue.
type ImportPublisher interface {
	PublishImportJob(ctx context.Context, msg *amqp.ImportJobMessage) error
}

// ImportResult is what an import run produced, before the caller decides
// what to save.
type ImportResult struct {
	Transactions []core.Transaction `json:"transactions"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// SaveResult reports how a save went, row by row.
type SaveResult struct {
	Saved   int      `json:"saved"`
	Skipped int      `json:"skipped"`
	Reasons []string `json:"reasons,omitempty"`
}

// ImportService runs bank-export files through parse → categorize and
// persists the rows the caller confirms.
type ImportService struct {
	store       Store
	categorizer *classify.Categorizer
	publisher   ImportPublisher
	importDir   string
	log         *slog.Logger
}

func NewImportService(store Store, categorizer *classify.Categorizer, publisher ImportPublisher, importDir string) *ImportService {
	return &ImportService{
		store:       store,
		categorizer: categorizer,
		publisher:   publisher,
		importDir:   importDir,
		log:         applog.ForComponent(applog.ComponentImport),
	}
}

// ImportFile parses an uploaded export and categorizes its rows. The
// result is for review; nothing is persisted here.
func (s *ImportService) ImportFile(ctx context.Context, owner core.Owner, filename string, data []byte) (ImportResult, error) {
	if err := owner.Validate(); err != nil {
		return ImportResult{}, err
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	txs, err := importer.ParseFile(data, ext)
	if err != nil {
		return ImportResult{}, fmt.Errorf("parse %s: %w", filename, err)
	}

	categories, err := s.store.Categories(ctx, owner)
	if err != nil {
		return ImportResult{}, fmt.Errorf("list categories: %w", err)
	}
	vocabulary := make([]string, len(categories))
	for i, cat := range categories {
		vocabulary[i] = cat.Name
	}

	categorized, warnings := s.categorizer.Categorize(ctx, owner, txs, vocabulary)

	s.log.InfoContext(ctx, "Import file processed",
		applog.FieldOwner, owner,
		applog.FieldFile, filename,
		"transactions", len(categorized),
		"warnings", len(warnings))

	return ImportResult{Transactions: categorized, Warnings: warnings}, nil
}

// SaveTransactions persists reviewed transactions. Rows labeled with the
// sentinel or with a category the owner does not have are skipped, not
// failed; each saved row refreshes the classification cache so the next
// import of the same description skips the classifier.
func (s *ImportService) SaveTransactions(ctx context.Context, owner core.Owner, txs []core.Transaction) (SaveResult, error) {
	if err := owner.Validate(); err != nil {
		return SaveResult{}, err
	}

	var result SaveResult
	for _, t := range txs {
		if t.Category == "" || t.Category == core.Uncategorized {
			result.Skipped++
			result.Reasons = append(result.Reasons, fmt.Sprintf("%s: no category", t.Description))
			continue
		}

		cat, err := s.store.CategoryByName(ctx, owner, t.Category)
		if errors.Is(err, storage.ErrNotFound) {
			result.Skipped++
			result.Reasons = append(result.Reasons, fmt.Sprintf("%s: unknown category %q", t.Description, t.Category))
			continue
		}
		if err != nil {
			return result, fmt.Errorf("resolve category %q: %w", t.Category, err)
		}

		if _, err := s.store.AddExpense(ctx, owner, cat.ID, t); err != nil {
			return result, fmt.Errorf("save %q: %w", t.Description, err)
		}
		result.Saved++

		if err := s.store.CacheCategory(ctx, string(owner), t.Description, t.Category); err != nil {
			s.log.WarnContext(ctx, "Classification cache write failed",
				"description", t.Description, applog.FieldCategory, t.Category,
				applog.FieldError, err)
		}
	}

	s.log.InfoContext(ctx, "Import saved",
		applog.FieldOwner, owner, "saved", result.Saved, "skipped", result.Skipped)
	return result, nil
}

// EnqueueImport stores the upload on disk and queues a job for the
// worker. Used for large files the HTTP request should not wait on.
func (s *ImportService) EnqueueImport(ctx context.Context, owner core.Owner, filename string, data []byte) (*amqp.ImportJobMessage, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if s.publisher == nil {
		return nil, errors.New("import queue not configured")
	}

	if err := os.MkdirAll(s.importDir, 0755); err != nil {
		return nil, fmt.Errorf("create import directory: %w", err)
	}
	ext := filepath.Ext(filename)
	path := filepath.Join(s.importDir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	msg := amqp.NewImportJobMessage(string(owner), path)
	if err := s.publisher.PublishImportJob(ctx, msg); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("publish import job: %w", err)
	}
	return msg, nil
}

// RunImportJob executes one queued job end to end: read the stored
// file, parse, categorize and save everything that resolved to a real
// category. The stored file is removed once processed.
func (s *ImportService) RunImportJob(ctx context.Context, msg *amqp.ImportJobMessage) error {
	data, err := os.ReadFile(msg.Path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	result, err := s.ImportFile(ctx, core.Owner(msg.Owner), msg.Path, data)
	if err != nil {
		return fmt.Errorf("job %s: %w", msg.JobID, err)
	}

	saved, err := s.SaveTransactions(ctx, core.Owner(msg.Owner), result.Transactions)
	if err != nil {
		return fmt.Errorf("job %s: %w", msg.JobID, err)
	}

	if err := os.Remove(msg.Path); err != nil {
		s.log.WarnContext(ctx, "Failed to remove processed import file",
			applog.FieldFile, msg.Path, applog.FieldError, err)
	}

	s.log.InfoContext(ctx, "Import job completed",
		applog.FieldJobID, msg.JobID,
		applog.FieldOwner, msg.Owner,
		"saved", saved.Saved,
		"skipped", saved.Skipped,
		"warnings", len(result.Warnings))
	return nil
}
