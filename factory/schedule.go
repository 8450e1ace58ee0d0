/*
Package factory provides JSON to Go schedule conversion.

PURPOSE:
  Converts JSON schedule definitions into a dtr.ScheduleRule. This
  enables policy changes without code changes - the schedule, grace
  period, flexi cap, and deduction point table all live in a config
  file that ships next to the binary.

JSON SCHEMA:
  {
    "days": {
      "monday":    {"morning_in": "08:15", "morning_out": "12:01",
                    "afternoon_in": "13:00", "afternoon_out": "17:30"},
      "tuesday":   {...}
    },
    "grace_minutes": 5,
    "flexi_cap_minutes": 30,
    "points": {
      "type": "banded",
      "bands": [
        {"up_to_minutes": 10, "points": "1"},
        {"up_to_minutes": 30, "points": "2"}
      ]
    },
    "half_day_absence_points": "0.5",
    "full_day_absence_points": "1"
  }

  A "day_fraction" points table takes "minute_fraction", "hour_fraction"
  and "max_hours" instead of "bands".

VALIDATION:
  - At least one working day; each day's out times after its in times
  - Band minutes strictly increasing; band points non-decreasing
    (the lookup must be a monotonic step function)
  - Non-negative grace, cap, fractions, and absence points

SEE ALSO:
  - dtr/schedule.go: ScheduleRule and point table types
  - dtr/policies.go: Code-based schedule presets
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/dtr"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ScheduleJSON is the JSON representation of a schedule rule.
type ScheduleJSON struct {
	Days            map[string]DayJSON `json:"days"`
	GraceMinutes    int                `json:"grace_minutes"`
	FlexiCapMinutes int                `json:"flexi_cap_minutes"`
	Points          PointTableJSON     `json:"points"`
	HalfDayAbsence  string             `json:"half_day_absence_points,omitempty"`
	FullDayAbsence  string             `json:"full_day_absence_points,omitempty"`
}

// DayJSON represents one working day's expected times.
type DayJSON struct {
	MorningIn    string `json:"morning_in"`
	MorningOut   string `json:"morning_out"`
	AfternoonIn  string `json:"afternoon_in"`
	AfternoonOut string `json:"afternoon_out"`
}

// PointTableJSON represents the deduction point table.
type PointTableJSON struct {
	Type           string     `json:"type"` // banded, day_fraction
	Bands          []BandJSON `json:"bands,omitempty"`
	MinuteFraction string     `json:"minute_fraction,omitempty"`
	HourFraction   string     `json:"hour_fraction,omitempty"`
	MaxHours       int        `json:"max_hours,omitempty"`
}

// BandJSON is one step of a banded point table.
type BandJSON struct {
	UpToMinutes int    `json:"up_to_minutes"`
	Points      string `json:"points"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// =============================================================================
// SCHEDULE FACTORY
// =============================================================================

// ParseSchedule parses a JSON document into a ScheduleRule.
func ParseSchedule(data []byte) (*dtr.ScheduleRule, error) {
	var sj ScheduleJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return nil, fmt.Errorf("failed to parse schedule JSON: %w", err)
	}
	return FromJSON(sj)
}

// FromJSON converts ScheduleJSON to a dtr.ScheduleRule.
func FromJSON(sj ScheduleJSON) (*dtr.ScheduleRule, error) {
	if len(sj.Days) == 0 {
		return nil, fmt.Errorf("schedule has no working days")
	}
	if sj.GraceMinutes < 0 {
		return nil, fmt.Errorf("grace_minutes must not be negative")
	}
	if sj.FlexiCapMinutes < 0 {
		return nil, fmt.Errorf("flexi_cap_minutes must not be negative")
	}

	days := make(map[time.Weekday]dtr.DaySchedule, len(sj.Days))
	for name, dj := range sj.Days {
		wd, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		ds, err := parseDay(name, dj)
		if err != nil {
			return nil, err
		}
		days[wd] = ds
	}

	points, err := parsePointTable(sj.Points)
	if err != nil {
		return nil, err
	}

	halfDay, err := parsePoints(sj.HalfDayAbsence, "half_day_absence_points")
	if err != nil {
		return nil, err
	}
	fullDay, err := parsePoints(sj.FullDayAbsence, "full_day_absence_points")
	if err != nil {
		return nil, err
	}

	return dtr.NewScheduleRule(dtr.ScheduleConfig{
		Days:           days,
		Grace:          dtr.Minutes(sj.GraceMinutes),
		FlexiCap:       dtr.Minutes(sj.FlexiCapMinutes),
		Points:         points,
		HalfDayAbsence: halfDay,
		FullDayAbsence: fullDay,
	}), nil
}

func parseDay(name string, dj DayJSON) (dtr.DaySchedule, error) {
	var ds dtr.DaySchedule
	var err error
	if ds.MorningIn, err = parseClock(name, "morning_in", dj.MorningIn); err != nil {
		return ds, err
	}
	if ds.MorningOut, err = parseClock(name, "morning_out", dj.MorningOut); err != nil {
		return ds, err
	}
	if ds.AfternoonIn, err = parseClock(name, "afternoon_in", dj.AfternoonIn); err != nil {
		return ds, err
	}
	if ds.AfternoonOut, err = parseClock(name, "afternoon_out", dj.AfternoonOut); err != nil {
		return ds, err
	}

	if !ds.MorningOut.After(ds.MorningIn) {
		return ds, fmt.Errorf("%s: morning_out must be after morning_in", name)
	}
	if !ds.AfternoonOut.After(ds.AfternoonIn) {
		return ds, fmt.Errorf("%s: afternoon_out must be after afternoon_in", name)
	}
	if !ds.AfternoonIn.After(ds.MorningOut) {
		return ds, fmt.Errorf("%s: afternoon_in must be after morning_out", name)
	}
	return ds, nil
}

func parseClock(day, field, value string) (dtr.ClockTime, error) {
	c, err := dtr.ParseClock(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", day, field, err)
	}
	return c, nil
}

func parsePointTable(pj PointTableJSON) (dtr.PointTable, error) {
	switch pj.Type {
	case "banded":
		return parseBands(pj.Bands)
	case "day_fraction":
		minute, err := parsePoints(pj.MinuteFraction, "minute_fraction")
		if err != nil {
			return nil, err
		}
		hour, err := parsePoints(pj.HourFraction, "hour_fraction")
		if err != nil {
			return nil, err
		}
		if pj.MaxHours < 0 {
			return nil, fmt.Errorf("max_hours must not be negative")
		}
		return dtr.DayFractionTable{
			MinuteFraction: minute,
			HourFraction:   hour,
			MaxHours:       pj.MaxHours,
		}, nil
	default:
		return nil, fmt.Errorf("unknown point table type %q", pj.Type)
	}
}

func parseBands(bands []BandJSON) (dtr.BandTable, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("banded point table has no bands")
	}

	table := make(dtr.BandTable, 0, len(bands))
	prevUpTo := 0
	prevPoints := decimal.Zero
	for i, bj := range bands {
		if bj.UpToMinutes <= prevUpTo {
			return nil, fmt.Errorf("band %d: up_to_minutes must be strictly increasing", i)
		}
		points, err := parsePoints(bj.Points, fmt.Sprintf("band %d points", i))
		if err != nil {
			return nil, err
		}
		if points.LessThan(prevPoints) {
			return nil, fmt.Errorf("band %d: points must be non-decreasing", i)
		}
		table = append(table, dtr.PointBand{UpTo: dtr.Minutes(bj.UpToMinutes), Points: points})
		prevUpTo = bj.UpToMinutes
		prevPoints = points
	}
	return table, nil
}

func parsePoints(value, field string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q", field, value)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: must not be negative", field)
	}
	return d, nil
}
