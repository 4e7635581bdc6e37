package importer

import (
	"errors"
	"testing"
)

func TestSegmentMultipleTables(t *testing.T) {
	grid := RawGrid{
		{"עסקאות שטרם נקלטו"},
		{"תאריך", "שם בית עסק", "סכום חיוב"},
		{"01.01.26", "סופר מרקט", "120.50"},
		{"02.01.26", "דלק", "200.00"},
		{""},
		{"עסקאות למועד חיוב"},
		{"תאריך", "שם בית עסק", "סכום חיוב"},
		{"03.01.26", "בית קפה", "45.00"},
	}

	segments, err := Segment(grid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segments), segments)
	}

	first, second := segments[0], segments[1]
	if first.HeaderRow != 1 || first.Start != 1 || first.End != 6 {
		t.Fatalf("unexpected first segment: %+v", first)
	}
	if second.HeaderRow != 6 || second.Start != 6 || second.End != len(grid) {
		t.Fatalf("unexpected second segment: %+v", second)
	}
	if first.End > second.Start {
		t.Fatalf("segments overlap: %+v %+v", first, second)
	}
}

func TestSegmentSingleTableCoversToEnd(t *testing.T) {
	grid := RawGrid{
		{"some", "preamble"},
		{"date", "description", "amount"},
		{"01.01.26", "store", "10.00"},
		{"02.01.26", "store", "20.00"},
	}
	segments, err := Segment(grid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].HeaderRow != 1 || segments[0].End != len(grid) {
		t.Fatalf("unexpected segment: %+v", segments[0])
	}
}

func TestSegmentNoHeaders(t *testing.T) {
	grid := RawGrid{
		{"just", "numbers"},
		{"1", "2", "3"},
	}
	if _, err := Segment(grid); !errors.Is(err, ErrNoTables) {
		t.Fatalf("expected ErrNoTables, got %v", err)
	}
}

func TestSegmentSingleMatchingCellNotEnough(t *testing.T) {
	// One cell matches two keywords, but a cell counts at most once.
	grid := RawGrid{
		{"תאריך וגם סכום", "x", "y"},
	}
	if _, err := Segment(grid); !errors.Is(err, ErrNoTables) {
		t.Fatalf("expected ErrNoTables, got %v", err)
	}
}

func TestSegmentKeywordMatchIsCaseSensitive(t *testing.T) {
	grid := RawGrid{
		{"DATE", "AMOUNT", "DESCRIPTION"},
	}
	if _, err := Segment(grid); !errors.Is(err, ErrNoTables) {
		t.Fatalf("expected ErrNoTables for upper-cased headers, got %v", err)
	}
}
