/*
Package dtr provides the core daily-time-record deduction engine.

PURPOSE:
  This package contains the types and algorithms for scoring a day's
  attendance against a fixed work schedule: lateness, undertime,
  flexi-adjusted time-out, work duration, and banded deduction points.
  It also defines the Store contract for the persisted record history.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeEntry: A half-day's actual in/out pair with an inclusion flag
  - HalfResult / ComputedResult: Calculator output, per half and per day
  - DeductionRecord: The unit of persistence, keyed by Date

DESIGN PRINCIPLES:
  1. Purity: Compute() is a pure function of (rule, entries); records
     never carry hand-edited computed fields
  2. Precision: Deduction points use decimal.Decimal, never float64
  3. Minute granularity: All clock arithmetic is whole minutes

USAGE:
  in := dtr.NewClock(8, 20)
  out := dtr.NewClock(12, 1)
  morning := dtr.TimeEntry{In: &in, Out: &out, Included: true}
  result, err := dtr.Compute(date, morning, afternoon, rule)

SEE ALSO:
  - calc.go: The deduction calculator
  - schedule.go: ScheduleRule and point tables
  - store.go: Record store contract
*/
package dtr

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIME ENTRY - A half-day's actual clock times
// =============================================================================

// TimeEntry holds the actual in/out pair for one half of the day.
// Included=false marks a half-day absence: the half contributes zero
// time figures and a fixed absence penalty instead.
type TimeEntry struct {
	In       *ClockTime `json:"in,omitempty"`
	Out      *ClockTime `json:"out,omitempty"`
	Included bool       `json:"included"`
}

// Excluded returns a half-day-absence entry.
func Excluded() TimeEntry { return TimeEntry{Included: false} }

// Entry returns an included entry with the given actual times.
func Entry(in, out ClockTime) TimeEntry {
	return TimeEntry{In: &in, Out: &out, Included: true}
}

// =============================================================================
// COMPUTED RESULT - Calculator output
// =============================================================================

// HalfResult is the computed outcome for one half of the day.
type HalfResult struct {
	Lateness  Minutes         `json:"lateness_minutes"`
	Undertime Minutes         `json:"undertime_minutes"`
	Work      Minutes         `json:"work_minutes"`
	FlexiOut  *ClockTime      `json:"flexi_out,omitempty"`
	Points    decimal.Decimal `json:"points"`
}

// ComputedResult carries everything the calculator derives for a day.
// It is a pure function of (ScheduleRule, morning, afternoon) and is
// replaced wholesale whenever the actual times change.
type ComputedResult struct {
	Workday   bool            `json:"workday"`
	Morning   HalfResult      `json:"morning"`
	Afternoon HalfResult      `json:"afternoon"`
	Lateness  Minutes         `json:"lateness_minutes"`
	Undertime Minutes         `json:"undertime_minutes"`
	Work      Minutes         `json:"work_minutes"`
	Points    decimal.Decimal `json:"points"`
}

// WorkDuration returns the total time worked as a time.Duration.
func (r ComputedResult) WorkDuration() time.Duration { return r.Work.Duration() }

// =============================================================================
// DEDUCTION RECORD - Unit of persistence
// =============================================================================

// DeductionRecord is one day's attendance record: the raw entries, the
// computed deduction figures, and audit timestamps. Exactly one record
// exists per date in a Store.
type DeductionRecord struct {
	Date       Date           `json:"date"`
	Morning    TimeEntry      `json:"morning"`
	Afternoon  TimeEntry      `json:"afternoon"`
	Computed   ComputedResult `json:"computed"`
	CreatedAt  time.Time      `json:"created_at"`
	ModifiedAt time.Time      `json:"modified_at"`
}
