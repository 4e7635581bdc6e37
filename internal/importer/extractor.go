package importer

import (
	"time"

	"takziv/internal/core"
)

// dateLayout is the strict day.month.2-digit-year format the source
// exports use (e.g. "01.01.26"). Other layouts are not auto-detected;
// rows carrying them are rejected.
const dateLayout = "02.01.06"

// Extract walks the data rows of a segment and coerces each into a typed
// transaction using the segment's column mapping. Rows whose date or
// amount fail to parse are dropped silently; the result preserves the
// original row order. The grid is never mutated, so extraction can be
// rerun from the same segment.
func Extract(grid RawGrid, seg TableSegment, mapping ColumnMapping) []core.Transaction {
	if !mapping.Usable() {
		return nil
	}

	var out []core.Transaction
	for row := seg.HeaderRow + 1; row < seg.End; row++ {
		rawDate := grid.cell(row, mapping.Date)
		rawDesc := grid.cell(row, mapping.Description)
		rawAmount := grid.cell(row, mapping.Amount)

		if rawDate == "" || rawAmount == "" {
			continue
		}

		date, err := time.ParseInLocation(dateLayout, rawDate, time.UTC)
		if err != nil {
			continue
		}
		cents, err := core.ParseAmountToCents(rawAmount)
		if err != nil {
			continue
		}

		out = append(out, core.Transaction{
			Date:        date,
			Description: rawDesc,
			Amount:      core.Money{Cents: cents},
		})
	}
	return out
}
