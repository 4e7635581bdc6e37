package importer

import (
	"errors"
	"fmt"
	"strings"
)

// Canonical fields every parsed table must resolve to.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
)

// columnCandidates maps each canonical field to the header labels it may
// appear under, in either language. Exact (normalized) match is tried
// first across all candidates, then substring containment.
var columnCandidates = map[string][]string{
	FieldDate:        {"תאריך", "date", "taarich"},
	FieldDescription: {"שם בית עסק", "תיאור", "פרטים", "description", "details", "business"},
	FieldAmount:      {"סכום", "סכום חיוב", "amount", "price", "debit"},
}

// canonicalFields in deterministic resolution order.
var canonicalFields = []string{FieldDate, FieldDescription, FieldAmount}

// ColumnMapping resolves canonical fields to source column indexes within
// one segment. A field that could not be resolved maps to -1.
type ColumnMapping struct {
	Date        int
	Description int
	Amount      int
}

var ErrColumnMapping = errors.New("incomplete column mapping")

// Column returns the source column for a canonical field.
func (m ColumnMapping) Column(field string) int {
	switch field {
	case FieldDate:
		return m.Date
	case FieldDescription:
		return m.Description
	case FieldAmount:
		return m.Amount
	}
	return -1
}

// Missing lists the canonical fields that did not resolve.
func (m ColumnMapping) Missing() []string {
	var missing []string
	for _, f := range canonicalFields {
		if m.Column(f) < 0 {
			missing = append(missing, f)
		}
	}
	return missing
}

// Usable reports whether all three canonical fields resolved to distinct
// source columns. Two fields landing on the same column means the header
// was ambiguous, and extraction for the segment must be skipped rather
// than guessed at.
func (m ColumnMapping) Usable() bool {
	if m.Date < 0 || m.Description < 0 || m.Amount < 0 {
		return false
	}
	return m.Date != m.Description && m.Date != m.Amount && m.Description != m.Amount
}

// MapColumns matches a header row against the candidate keyword sets.
// For each field the first matching column in column order wins: exact
// match against a normalized candidate first, substring containment as
// the fallback. Pure function over the header text.
func MapColumns(headerRow []string) ColumnMapping {
	headers := make([]string, len(headerRow))
	for i, h := range headerRow {
		headers[i] = normalizeHeader(h)
	}

	mapping := ColumnMapping{Date: -1, Description: -1, Amount: -1}
	for _, field := range canonicalFields {
		idx := matchColumn(headers, columnCandidates[field])
		switch field {
		case FieldDate:
			mapping.Date = idx
		case FieldDescription:
			mapping.Description = idx
		case FieldAmount:
			mapping.Amount = idx
		}
	}
	return mapping
}

func matchColumn(headers, candidates []string) int {
	for i, h := range headers {
		if h == "" {
			continue
		}
		for _, c := range candidates {
			if h == normalizeHeader(c) {
				return i
			}
		}
	}
	for i, h := range headers {
		if h == "" {
			continue
		}
		for _, c := range candidates {
			if strings.Contains(h, normalizeHeader(c)) {
				return i
			}
		}
	}
	return -1
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// mappingError builds the caller-facing error naming what failed to
// resolve, including the columns that were available.
func mappingError(m ColumnMapping, headerRow []string) error {
	available := make([]string, 0, len(headerRow))
	for _, h := range headerRow {
		if v := strings.TrimSpace(h); v != "" {
			available = append(available, v)
		}
	}
	missing := m.Missing()
	if len(missing) == 0 {
		return fmt.Errorf("%w: two fields resolved to the same column (available: %s)",
			ErrColumnMapping, strings.Join(available, ", "))
	}
	return fmt.Errorf("%w: could not identify columns: %s (available: %s)",
		ErrColumnMapping,
		strings.Join(missing, ", "),
		strings.Join(available, ", "))
}
