/*
Package export writes the record history as a tabular CSV dump.

PURPOSE:
  One row per record, ascending by date, consumable by spreadsheet
  tools. The writer takes the record sequence a Store's All() or
  Query() returns, so it needs no store knowledge of its own.

COLUMNS:
  date, morning_included, morning_in, morning_out, afternoon_included,
  afternoon_in, afternoon_out, lateness_minutes, undertime_minutes,
  work_minutes, deduction_points

SEE ALSO:
  - dtr/store.go: All() / Query() sequences
*/
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/warp/attendance-engine/dtr"
)

var header = []string{
	"date",
	"morning_included", "morning_in", "morning_out",
	"afternoon_included", "afternoon_in", "afternoon_out",
	"lateness_minutes", "undertime_minutes", "work_minutes",
	"deduction_points",
}

// WriteCSV writes records to w as CSV with a header row. The sequence
// is expected to be ordered ascending by date, which is what Store
// sequences provide.
func WriteCSV(w io.Writer, records iter.Seq[dtr.DeductionRecord]) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	for rec := range records {
		if err := cw.Write(row(rec)); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func row(rec dtr.DeductionRecord) []string {
	return []string{
		rec.Date.String(),
		strconv.FormatBool(rec.Morning.Included),
		clock(rec.Morning.In),
		clock(rec.Morning.Out),
		strconv.FormatBool(rec.Afternoon.Included),
		clock(rec.Afternoon.In),
		clock(rec.Afternoon.Out),
		strconv.Itoa(int(rec.Computed.Lateness)),
		strconv.Itoa(int(rec.Computed.Undertime)),
		strconv.Itoa(int(rec.Computed.Work)),
		rec.Computed.Points.String(),
	}
}

func clock(c *dtr.ClockTime) string {
	if c == nil {
		return ""
	}
	return c.String()
}
