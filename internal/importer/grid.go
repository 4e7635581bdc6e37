// Package importer turns raw bank and credit-card exports into normalized
// transactions. Decoding yields an untyped cell grid; the segmenter finds
// the transaction tables inside it, the mapper resolves their columns and
// the extractor coerces rows into typed transactions.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RawGrid is an ordered 2D array of untyped cell values. No header row is
// assumed; rows may have different lengths.
type RawGrid [][]string

var ErrUnsupportedFormat = errors.New("unsupported file format, expected csv, xls or xlsx")

// DecodeGrid decodes file bytes into a RawGrid based on the declared
// extension. Spreadsheets are read from the first sheet only; the exports
// this pipeline handles keep everything on one sheet.
func DecodeGrid(data []byte, ext string) (RawGrid, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "csv":
		return decodeCSV(data)
	case "xls", "xlsx":
		return decodeExcel(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func decodeCSV(data []byte) (RawGrid, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // exports are ragged, tolerate varying widths
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return RawGrid(records), nil
}

func decodeExcel(data []byte) (RawGrid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return RawGrid(rows), nil
}

// cell returns the trimmed value at (row, col), or "" when the row is
// shorter than col.
func (g RawGrid) cell(row, col int) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	r := g[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}
