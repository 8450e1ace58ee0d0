/*
calc.go - The deduction calculator

PURPOSE:
  Pure computation of a day's attendance deductions from actual clock
  times and a ScheduleRule. No I/O, no clocks, no mutation of inputs:
  the same (date, entries, rule) always yields the same result, which
  is what lets the store recompute on every edit.

ALGORITHM (per included half):
  1. Lateness: delta = actual-in - expected-in. Within the grace period
     the half counts as on-time (lateness 0); beyond it the full delta
     counts, the grace is not subtracted.
  2. Flexi time-out: arriving late (beyond grace) shifts the expected
     out forward by the same delta, capped at the rule's flexi cap, so
     staying correspondingly later is not double-penalized.
  3. Undertime: minutes actual-out falls short of the (possibly
     shifted) expected out, floored at zero.
  4. Work duration: actual-out - actual-in. An out before the in is a
     data-entry error and is surfaced, never a silent negative.
  5. Points: band lookup of lateness plus band lookup of undertime.

  An excluded half contributes zero time figures and the half-day
  absence penalty. Both halves excluded scores the full-day absence
  penalty (policy data; zero is a valid configuration).

SEE ALSO:
  - schedule.go: ScheduleRule, point tables
  - store.go: Recomputes via this on save and edit
*/
package dtr

// Compute scores one day's attendance against the rule. It is pure:
// inputs are never mutated and no state is read beyond the arguments.
//
// A date whose weekday is not in the rule's working-day set yields a
// zero result with Workday=false. An included half missing an actual
// time, or clocking out before clocking in, yields a *ValidationError.
func Compute(date Date, morning, afternoon TimeEntry, rule *ScheduleRule) (ComputedResult, error) {
	sched, workday := rule.ScheduleFor(date)
	if !workday {
		return ComputedResult{}, nil
	}

	result := ComputedResult{Workday: true}

	if !morning.Included && !afternoon.Included {
		// Full-day absence: both halves excluded.
		result.Points = rule.FullDayAbsence()
		return result, nil
	}

	var err error
	result.Morning, err = computeHalf("morning", morning, sched.MorningIn, sched.MorningOut, rule)
	if err != nil {
		return ComputedResult{}, err
	}
	result.Afternoon, err = computeHalf("afternoon", afternoon, sched.AfternoonIn, sched.AfternoonOut, rule)
	if err != nil {
		return ComputedResult{}, err
	}

	result.Lateness = result.Morning.Lateness + result.Afternoon.Lateness
	result.Undertime = result.Morning.Undertime + result.Afternoon.Undertime
	result.Work = result.Morning.Work + result.Afternoon.Work
	result.Points = result.Morning.Points.Add(result.Afternoon.Points)
	return result, nil
}

func computeHalf(half string, entry TimeEntry, expIn, expOut ClockTime, rule *ScheduleRule) (HalfResult, error) {
	if !entry.Included {
		return HalfResult{Points: rule.HalfDayAbsence()}, nil
	}
	if entry.In == nil {
		return HalfResult{}, &ValidationError{Half: half, Reason: "missing time in"}
	}
	if entry.Out == nil {
		return HalfResult{}, &ValidationError{Half: half, Reason: "missing time out"}
	}

	in, out := *entry.In, *entry.Out
	if out.Before(in) {
		return HalfResult{}, &ValidationError{Half: half, Reason: "time out precedes time in"}
	}

	var r HalfResult

	// Lateness and flexi shift. Within grace both stay zero.
	if delta := in.Sub(expIn); delta > rule.Grace() {
		r.Lateness = delta
		shift := delta
		if shift > rule.FlexiCap() {
			shift = rule.FlexiCap()
		}
		expOut = expOut.Add(shift)
	}
	flexiOut := expOut
	r.FlexiOut = &flexiOut

	if short := flexiOut.Sub(out); short > 0 {
		r.Undertime = short
	}

	r.Work = out.Sub(in)
	r.Points = rule.LookupPoints(r.Lateness).Add(rule.LookupPoints(r.Undertime))
	return r, nil
}
