/*
policies.go - Pre-built schedule configurations

PURPOSE:
  Ready-to-use ScheduleRule presets for common setups. These are
  starting points; site-specific policies usually come from a JSON
  config via the factory package instead.

AVAILABLE PRESETS:
  StandardSchedule: Mon-Fri office schedule with day-fraction scoring
                    (each minute 0.002 of a day, each hour 0.125, a
                    half-day absence 0.5). Monday starts at 08:15,
                    the other weekdays at 08:30.
  BandedSchedule:   Same working hours with stepped integer points
                    (1-10 min -> 1, 11-30 -> 2, 31-60 -> 3, beyond -> 5)
                    and no absence penalty.

SEE ALSO:
  - factory/schedule.go: JSON-based schedule construction
  - schedule.go: ScheduleRule and point table types
*/
package dtr

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COMMON SCHEDULES
// =============================================================================

func weekdaySchedules(mondayIn ClockTime) map[time.Weekday]DaySchedule {
	base := DaySchedule{
		MorningIn:    NewClock(8, 30),
		MorningOut:   NewClock(12, 1),
		AfternoonIn:  NewClock(13, 0),
		AfternoonOut: NewClock(17, 30),
	}
	monday := base
	monday.MorningIn = mondayIn
	return map[time.Weekday]DaySchedule{
		time.Monday:    monday,
		time.Tuesday:   base,
		time.Wednesday: base,
		time.Thursday:  base,
		time.Friday:    base,
	}
}

// StandardSchedule returns the default Mon-Fri schedule with
// day-fraction scoring. A half-day absence costs half a day, a full
// absence a whole day.
func StandardSchedule() *ScheduleRule {
	return NewScheduleRule(ScheduleConfig{
		Days:     weekdaySchedules(NewClock(8, 15)),
		Grace:    0,
		FlexiCap: 0,
		Points: DayFractionTable{
			MinuteFraction: decimal.NewFromFloat(0.002),
			HourFraction:   decimal.NewFromFloat(0.125),
			MaxHours:       8,
		},
		HalfDayAbsence: decimal.NewFromFloat(0.5),
		FullDayAbsence: decimal.NewFromInt(1),
	})
}

// BandedSchedule returns the same working hours scored with a stepped
// point table, a 5-minute grace period, and a 30-minute flexi cap.
// Absences score zero points (recorded, not penalized).
func BandedSchedule() *ScheduleRule {
	return NewScheduleRule(ScheduleConfig{
		Days:     weekdaySchedules(NewClock(8, 15)),
		Grace:    5,
		FlexiCap: 30,
		Points: BandTable{
			{UpTo: 10, Points: decimal.NewFromInt(1)},
			{UpTo: 30, Points: decimal.NewFromInt(2)},
			{UpTo: 60, Points: decimal.NewFromInt(3)},
			{UpTo: 480, Points: decimal.NewFromInt(5)},
		},
		HalfDayAbsence: decimal.Zero,
		FullDayAbsence: decimal.Zero,
	})
}
