// Package cadence answers calendar questions about billing schedules: how
// many times a weekly cycle charges inside a window, and whether a monthly or
// yearly item is active in a given month or year.
//
// All functions operate on calendar dates (core.Date at UTC midnight). A zero
// core.Date passed as a stop date means the item has no planned stop.
package cadence

import "tally/internal/core"

const daysPerWeek = 7

// dayNumber returns the number of whole days since the Unix epoch for the
// calendar date of d, ignoring any time-of-day component.
func dayNumber(d core.Date) int64 {
	return core.NewDate(d.Year(), d.Month(), d.Day()).Unix() / 86400
}

// CountWeeklyOccurrences counts the charges of a weekly cycle anchored at
// start that fall inside [windowStart, windowEnd], both ends inclusive.
// Callers clamp windowEnd to the stop date before calling.
func CountWeeklyOccurrences(start, windowStart, windowEnd core.Date) int {
	anchor := dayNumber(start)
	from := dayNumber(windowStart)
	if from < anchor {
		from = anchor
	}
	to := dayNumber(windowEnd)
	if to < from {
		return 0
	}

	// Round the offset up so a charge landing exactly on from is counted once.
	offset := from - anchor
	first := anchor + ((offset+daysPerWeek-1)/daysPerWeek)*daysPerWeek
	if first > to {
		return 0
	}
	return int(1 + (to-first)/daysPerWeek)
}

// MonthsActiveInYear returns how many calendar months of year a monthly
// subscription is billed in. Both the start month and the stop month count.
func MonthsActiveInYear(start, stop core.Date, year int) int {
	if start.Year() > year {
		return 0
	}
	if !stop.IsEmpty() && stop.Year() < year {
		return 0
	}

	startMonth := 1
	if start.Year() == year {
		startMonth = start.Month()
	}
	endMonth := 12
	if !stop.IsEmpty() && stop.Year() == year {
		endMonth = stop.Month()
	}

	n := endMonth - startMonth + 1
	if n < 0 {
		return 0
	}
	if n > 12 {
		return 12
	}
	return n
}

// IsActiveInMonth reports whether an item is live during (year, month): it
// must have started by the end of that month and must not have stopped
// before the month began.
func IsActiveInMonth(start, stop core.Date, year, month int) bool {
	if start.Year() > year || (start.Year() == year && start.Month() > month) {
		return false
	}
	if !stop.IsEmpty() && stop.Before(FirstOfMonth(year, month).Time) {
		return false
	}
	return true
}

// IsActiveInYear is the year-granularity check used for yearly billing.
func IsActiveInYear(start, stop core.Date, year int) bool {
	if start.Year() > year {
		return false
	}
	if !stop.IsEmpty() && stop.Year() < year {
		return false
	}
	return true
}

// FirstOfMonth returns the first calendar day of (year, month).
func FirstOfMonth(year, month int) core.Date {
	return core.NewDate(year, month, 1)
}

// LastOfMonth returns the last calendar day of (year, month).
func LastOfMonth(year, month int) core.Date {
	return core.NewDate(year, month+1, 0)
}

// ClampToStop returns end, or stop when stop is set and earlier.
func ClampToStop(end, stop core.Date) core.Date {
	if !stop.IsEmpty() && stop.Before(end.Time) {
		return stop
	}
	return end
}
