package importer

import (
	"testing"
	"time"
)

func testSegmentGrid(rows ...[]string) (RawGrid, TableSegment, ColumnMapping) {
	grid := append(RawGrid{{"תאריך", "שם בית עסק", "סכום"}}, rows...)
	seg := TableSegment{HeaderRow: 0, Start: 0, End: len(grid)}
	return grid, seg, MapColumns(grid[0])
}

func TestExtractCleansCurrencyAndSeparators(t *testing.T) {
	grid, seg, mapping := testSegmentGrid(
		[]string{"01.01.26", "סופר מרקט", "₪1,234.50"},
	)
	txs := Extract(grid, seg, mapping)
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	tx := txs[0]
	if tx.Amount.Cents != 123450 {
		t.Fatalf("expected 123450 cents, got %d", tx.Amount.Cents)
	}
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !tx.Date.Equal(want) {
		t.Fatalf("expected %v, got %v", want, tx.Date)
	}
	if tx.Description != "סופר מרקט" {
		t.Fatalf("unexpected description %q", tx.Description)
	}
}

func TestExtractDropsUnparseableRows(t *testing.T) {
	grid, seg, mapping := testSegmentGrid(
		[]string{"01.01.26", "ok", "10.00"},
		[]string{"01.01.26", "bad amount", "abc"},
		[]string{"2026-01-01", "iso date rejected", "10.00"},
		[]string{"", "no date", "10.00"},
		[]string{"02.01.26", "ok too", "20.00"},
	)
	txs := Extract(grid, seg, mapping)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Description != "ok" || txs[1].Description != "ok too" {
		t.Fatalf("row order not preserved: %+v", txs)
	}
}

func TestExtractSkipsUnusableMapping(t *testing.T) {
	grid := RawGrid{
		{"תאריך", "x", "y"},
		{"01.01.26", "a", "10.00"},
	}
	seg := TableSegment{HeaderRow: 0, Start: 0, End: len(grid)}
	if txs := Extract(grid, seg, MapColumns(grid[0])); txs != nil {
		t.Fatalf("expected no transactions for unusable mapping, got %+v", txs)
	}
}

func TestExtractRestartable(t *testing.T) {
	grid, seg, mapping := testSegmentGrid(
		[]string{"01.01.26", "a", "10.00"},
	)
	first := Extract(grid, seg, mapping)
	second := Extract(grid, seg, mapping)
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("extraction not restartable: %+v vs %+v", first, second)
	}
}
