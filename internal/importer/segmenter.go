package importer

import (
	"errors"
	"strings"
)

// headerKeywords is the fixed bilingual keyword set used to recognize
// header rows. Matching is case-sensitive substring containment; the
// Hebrew terms cover the date, merchant and amount columns of the bank
// and credit-card exports this pipeline supports.
var headerKeywords = []string{
	"תאריך", "שם בית עסק", "סכום", "חיוב", "פרטים", "תיאור",
	"date", "amount", "description",
}

// headerMinMatches is how many distinct cells in a row must contain a
// keyword before the row qualifies as a table header.
const headerMinMatches = 2

// TableSegment is a contiguous region of a RawGrid believed to be one
// table. HeaderRow is the first row of the segment; End is exclusive.
type TableSegment struct {
	HeaderRow int
	Start     int
	End       int
}

// ErrNoTables signals that no row in the grid looked like a table header.
// This is fatal to the import; there is no partial result.
var ErrNoTables = errors.New("no transaction tables detected")

// Segment scans every row of the grid and splits it into per-table
// segments. Each row whose cells contain at least two keyword matches
// opens a new segment, closing the previous one at that row. Segments
// are non-overlapping, ordered, and cover from the first header row to
// the end of the grid.
func Segment(grid RawGrid) ([]TableSegment, error) {
	var segments []TableSegment
	headerIdx := -1

	for i := range grid {
		if !isHeaderRow(grid[i]) {
			continue
		}
		if headerIdx >= 0 {
			segments = append(segments, TableSegment{HeaderRow: headerIdx, Start: headerIdx, End: i})
		}
		headerIdx = i
	}
	if headerIdx >= 0 {
		segments = append(segments, TableSegment{HeaderRow: headerIdx, Start: headerIdx, End: len(grid)})
	}

	if len(segments) == 0 {
		return nil, ErrNoTables
	}
	return segments, nil
}

// isHeaderRow counts cells containing any header keyword. A cell counts
// at most once no matter how many keywords it contains.
func isHeaderRow(row []string) bool {
	matches := 0
	for _, raw := range row {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		for _, k := range headerKeywords {
			if strings.Contains(val, k) {
				matches++
				break
			}
		}
		if matches >= headerMinMatches {
			return true
		}
	}
	return false
}
