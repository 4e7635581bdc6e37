package importer

import (
	"errors"
	"fmt"
	"strings"

	"takziv/internal/core"
)

// Parser attempts to turn a raw grid into normalized transactions.
// Parsers are tried in order, first success wins.
type Parser interface {
	Name() string
	Parse(grid RawGrid) ([]core.Transaction, error)
}

// AdvancedParser handles exports containing several disconnected tables,
// each with its own header row (credit-card statements split into
// "pending" and "billed" sections). Segments whose columns cannot be
// resolved are skipped; the import fails only when nothing at all could
// be extracted.
type AdvancedParser struct{}

func (AdvancedParser) Name() string { return "advanced" }

func (AdvancedParser) Parse(grid RawGrid) ([]core.Transaction, error) {
	segments, err := Segment(grid)
	if err != nil {
		return nil, err
	}

	var (
		out        []core.Transaction
		mappingErr error
	)
	for _, seg := range segments {
		mapping := MapColumns(grid[seg.HeaderRow])
		if !mapping.Usable() {
			if mappingErr == nil {
				mappingErr = mappingError(mapping, grid[seg.HeaderRow])
			}
			continue
		}
		out = append(out, Extract(grid, seg, mapping)...)
	}

	if len(out) == 0 {
		if mappingErr != nil {
			return nil, mappingErr
		}
		return nil, fmt.Errorf("%w: headers found but no parseable rows", ErrNoTables)
	}
	return out, nil
}

// GenericParser handles single-table exports. It looks for a header in
// the first rows only, matching a wider keyword set case-insensitively,
// and requires all three canonical columns to resolve.
type GenericParser struct{}

func (GenericParser) Name() string { return "generic" }

// genericHeaderScanRows bounds the header search; single-table exports
// keep their header near the top.
const genericHeaderScanRows = 10

var genericCandidates = map[string][]string{
	FieldDate:        {"date", "taarich", "time", "תאריך"},
	FieldDescription: {"description", "desc", "details", "shem", "name", "תיאור", "פרטים", "בית עסק"},
	FieldAmount:      {"amount", "schum", "price", "cost", "סכום", "חיוב"},
}

func (GenericParser) Parse(grid RawGrid) ([]core.Transaction, error) {
	if len(grid) == 0 {
		return nil, ErrNoTables
	}

	headerIdx := findGenericHeader(grid)
	mapping := genericMapColumns(grid[headerIdx])
	if !mapping.Usable() {
		return nil, mappingError(mapping, grid[headerIdx])
	}

	seg := TableSegment{HeaderRow: headerIdx, Start: headerIdx, End: len(grid)}
	return Extract(grid, seg, mapping), nil
}

// findGenericHeader returns the first row among the leading rows with at
// least two cells matching a generic keyword, falling back to row 0.
func findGenericHeader(grid RawGrid) int {
	limit := len(grid)
	if limit > genericHeaderScanRows {
		limit = genericHeaderScanRows
	}
	for i := 0; i < limit; i++ {
		matches := 0
		for _, raw := range grid[i] {
			val := strings.ToLower(strings.TrimSpace(raw))
			if val == "" {
				continue
			}
			for _, kws := range genericCandidates {
				found := false
				for _, k := range kws {
					if strings.Contains(val, k) {
						matches++
						found = true
						break
					}
				}
				if found {
					break
				}
			}
			if matches >= headerMinMatches {
				return i
			}
		}
	}
	return 0
}

// genericMapColumns resolves fields candidate-first: the earliest
// candidate keyword with any matching column wins, taking the first
// matching column.
func genericMapColumns(headerRow []string) ColumnMapping {
	headers := make([]string, len(headerRow))
	for i, h := range headerRow {
		headers[i] = normalizeHeader(h)
	}

	mapping := ColumnMapping{Date: -1, Description: -1, Amount: -1}
	resolve := func(field string) int {
		for _, candidate := range genericCandidates[field] {
			for i, h := range headers {
				if h != "" && strings.Contains(h, candidate) {
					return i
				}
			}
		}
		return -1
	}
	mapping.Date = resolve(FieldDate)
	mapping.Description = resolve(FieldDescription)
	mapping.Amount = resolve(FieldAmount)
	return mapping
}

// ParseGrid runs the parser chain appropriate for the file extension:
// spreadsheets try the multi-table parser before the generic one, csv
// goes straight to generic. The first parser to succeed wins; if all
// fail, their errors are joined.
func ParseGrid(grid RawGrid, ext string) ([]core.Transaction, error) {
	var attempts []Parser
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "xls", "xlsx":
		attempts = []Parser{AdvancedParser{}, GenericParser{}}
	default:
		attempts = []Parser{GenericParser{}}
	}

	var errs []error
	for _, p := range attempts {
		txs, err := p.Parse(grid)
		if err == nil {
			return txs, nil
		}
		errs = append(errs, fmt.Errorf("%s parser: %w", p.Name(), err))
	}
	return nil, errors.Join(errs...)
}

// ParseFile decodes file bytes and runs the parser chain.
func ParseFile(data []byte, ext string) ([]core.Transaction, error) {
	grid, err := DecodeGrid(data, ext)
	if err != nil {
		return nil, err
	}
	return ParseGrid(grid, ext)
}
