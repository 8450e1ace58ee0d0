/*
schedule.go - Work schedule policy and deduction point tables

PURPOSE:
  ScheduleRule is the immutable, process-wide policy the calculator
  scores against: expected in/out times per half-day, the grace period,
  the flexi time-out cap, and the deduction point table. It is built
  once at startup (from a preset or a JSON config via the factory
  package) and never mutated.

POINT TABLES:
  The mapping from minutes late/undertime to deduction points is policy
  data, not engine logic. Two shapes are supported:
  - BandTable:       monotonic step function (1-10 min -> 1 point, ...)
  - DayFractionTable: linear day-fraction scoring (each minute costs a
    fixed fraction of a day, each full hour a larger one)

SEE ALSO:
  - policies.go: Ready-to-use schedule presets
  - factory/schedule.go: JSON-based schedule construction
  - calc.go: Consumer of the rule
*/
package dtr

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY SCHEDULE - Expected clock times for one working day
// =============================================================================

// DaySchedule holds the expected in/out times for both halves of a
// working day.
type DaySchedule struct {
	MorningIn    ClockTime `json:"morning_in"`
	MorningOut   ClockTime `json:"morning_out"`
	AfternoonIn  ClockTime `json:"afternoon_in"`
	AfternoonOut ClockTime `json:"afternoon_out"`
}

// =============================================================================
// SCHEDULE RULE - The policy the calculator scores against
// =============================================================================

// ScheduleRule is the fixed attendance policy. Construct with
// NewScheduleRule (or a preset from policies.go) and treat as
// read-only afterwards; the calculator and stores share one instance.
type ScheduleRule struct {
	days           map[time.Weekday]DaySchedule
	grace          Minutes
	flexiCap       Minutes
	points         PointTable
	halfDayAbsence decimal.Decimal
	fullDayAbsence decimal.Decimal
}

// ScheduleConfig carries the pieces of a ScheduleRule. Days maps each
// working weekday to its expected times; weekdays absent from the map
// are non-working days and compute to a zero result.
type ScheduleConfig struct {
	Days           map[time.Weekday]DaySchedule
	Grace          Minutes
	FlexiCap       Minutes
	Points         PointTable
	HalfDayAbsence decimal.Decimal
	FullDayAbsence decimal.Decimal
}

func NewScheduleRule(cfg ScheduleConfig) *ScheduleRule {
	days := make(map[time.Weekday]DaySchedule, len(cfg.Days))
	for wd, ds := range cfg.Days {
		days[wd] = ds
	}
	return &ScheduleRule{
		days:           days,
		grace:          cfg.Grace,
		flexiCap:       cfg.FlexiCap,
		points:         cfg.Points,
		halfDayAbsence: cfg.HalfDayAbsence,
		fullDayAbsence: cfg.FullDayAbsence,
	}
}

// ScheduleFor returns the expected times for the date's weekday.
// ok=false means the date is not a working day.
func (r *ScheduleRule) ScheduleFor(date Date) (DaySchedule, bool) {
	ds, ok := r.days[date.Weekday()]
	return ds, ok
}

// WorkingDays returns a copy of the weekday-to-times map.
func (r *ScheduleRule) WorkingDays() map[time.Weekday]DaySchedule {
	days := make(map[time.Weekday]DaySchedule, len(r.days))
	for wd, ds := range r.days {
		days[wd] = ds
	}
	return days
}

func (r *ScheduleRule) Grace() Minutes                  { return r.grace }
func (r *ScheduleRule) FlexiCap() Minutes               { return r.flexiCap }
func (r *ScheduleRule) HalfDayAbsence() decimal.Decimal { return r.halfDayAbsence }
func (r *ScheduleRule) FullDayAbsence() decimal.Decimal { return r.fullDayAbsence }

// LookupPoints maps an elapsed-minutes figure to deduction points via
// the rule's table. Zero minutes always scores zero.
func (r *ScheduleRule) LookupPoints(m Minutes) decimal.Decimal {
	if m <= 0 {
		return decimal.Zero
	}
	return r.points.Points(m)
}

// =============================================================================
// POINT TABLES - Minutes to deduction points (policy data)
// =============================================================================

// PointTable maps minutes of lateness or undertime to deduction points.
// Implementations must be monotonic non-decreasing in minutes.
type PointTable interface {
	Points(m Minutes) decimal.Decimal
}

// PointBand is one step of a BandTable: any minute count up to and
// including UpTo scores Points.
type PointBand struct {
	UpTo   Minutes
	Points decimal.Decimal
}

// BandTable is a monotonic step function over minute bands, ordered by
// ascending UpTo. Minutes beyond the last band score the last band's
// points.
type BandTable []PointBand

func (t BandTable) Points(m Minutes) decimal.Decimal {
	if m <= 0 || len(t) == 0 {
		return decimal.Zero
	}
	for _, band := range t {
		if m <= band.UpTo {
			return band.Points
		}
	}
	return t[len(t)-1].Points
}

// DayFractionTable scores time linearly as fractions of a working day:
// each full hour costs HourFraction, each remaining minute costs
// MinuteFraction. Hours are capped at MaxHours (a full day).
type DayFractionTable struct {
	MinuteFraction decimal.Decimal
	HourFraction   decimal.Decimal
	MaxHours       int
}

func (t DayFractionTable) Points(m Minutes) decimal.Decimal {
	if m <= 0 {
		return decimal.Zero
	}
	// Clamp before splitting into hours and minutes, so anything past
	// the cap scores exactly MaxHours and the lookup stays monotonic.
	if t.MaxHours > 0 && m > Minutes(t.MaxHours*60) {
		m = Minutes(t.MaxHours * 60)
	}
	hours := int(m) / 60
	mins := int(m) % 60
	return t.HourFraction.Mul(decimal.NewFromInt(int64(hours))).
		Add(t.MinuteFraction.Mul(decimal.NewFromInt(int64(mins))))
}
