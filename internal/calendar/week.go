package calendar

import (
	"time"
)

// WeekRange returns the calendar week containing ref: Monday 00:00:00
// through Sunday 23:59:59, in ref's location. This is the operative window
// for queries that arrive without explicit time bounds.
func WeekRange(ref time.Time) (start, end time.Time) {
	weekday := int(ref.Weekday())
	if weekday == 0 {
		weekday = 7 // time.Sunday is 0, but the week ends on Sunday
	}

	year, month, day := ref.AddDate(0, 0, -(weekday - 1)).Date()
	start = time.Date(year, month, day, 0, 0, 0, 0, ref.Location())

	// Calendar arithmetic, not a duration add: on a clock-change week the
	// Sunday is not 24 hours long and an absolute offset would land the end
	// on Monday or drop the last hour of the week.
	y, m, d := start.AddDate(0, 0, 6).Date()
	end = time.Date(y, m, d, 23, 59, 59, 0, ref.Location())
	return start, end
}
