// Package deadline computes the appeal window for an assessment that
// was returned for appeal.
package deadline

import (
	"math"
	"time"
)

// BusinessDays is the length of the appeal window.
const BusinessDays = 5

// ComputeAppealDeadline returns the instant the appeal window closes for
// a window opened at start.
//
// The window begins at 00:00:01 on the next calendar day, pushed past a
// weekend if it lands on one, and closes at 23:59:59 on the fifth
// business day counted from there (the first business day counts as day
// one). Saturdays and Sundays are skipped; holidays are not considered.
func ComputeAppealDeadline(start time.Time) time.Time {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 1, 0, start.Location())
	day = day.AddDate(0, 0, 1)

	switch day.Weekday() {
	case time.Sunday:
		day = day.AddDate(0, 0, 1)
	case time.Saturday:
		day = day.AddDate(0, 0, 2)
	}

	counted := 1
	for counted < BusinessDays {
		day = day.AddDate(0, 0, 1)
		if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
			counted++
		}
	}

	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, day.Location())
}

// SecondsRemaining returns the whole seconds left until the deadline,
// rounded up, or zero when the deadline has passed.
func SecondsRemaining(now, deadline time.Time) int64 {
	diff := deadline.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int64(math.Ceil(diff.Seconds()))
}
