package cadence

import (
	"time"

	"tally/internal/core"
)

// NextCharge returns the first billing date on or after from for an item with
// the given cadence. It returns false when the item has no charge left, either
// because it stops first or because a lifetime purchase already happened.
//
// Monthly items bill on the start day, moved to the last day of shorter months.
// Yearly items bill on the anniversary, with Feb 29 falling back to Feb 28.
func NextCharge(billing core.BillingType, start, stop, from core.Date) (core.Date, bool) {
	if from.Before(start.Time) {
		from = start
	}

	var next core.Date
	switch billing {
	case core.Weekly:
		anchor := dayNumber(start)
		offset := dayNumber(from) - anchor
		weeks := (offset + daysPerWeek - 1) / daysPerWeek
		next = start.AddDays(int(weeks * daysPerWeek))
	case core.Monthly:
		next = monthlyOn(start.Day(), from.Year(), time.Month(from.Month()))
		if next.Before(from.Time) {
			next = monthlyOn(start.Day(), from.Year(), time.Month(from.Month())+1)
		}
	case core.Yearly:
		next = monthlyOn(start.Day(), from.Year(), time.Month(start.Month()))
		if next.Before(from.Time) {
			next = monthlyOn(start.Day(), from.Year()+1, time.Month(start.Month()))
		}
	case core.Lifetime:
		if start.Before(from.Time) {
			return core.Date{}, false
		}
		next = start
	default:
		return core.Date{}, false
	}

	if !stop.IsEmpty() && next.After(stop.Time) {
		return core.Date{}, false
	}
	return next, true
}

// monthlyOn returns day of (year, month), clamped to the month length.
// month may overflow into the next year.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func monthlyOn(day, year int, month time.Month) core.Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := daysIn(first.Year(), first.Month())
	if day > last {
		day = last
	}
	return core.NewDate(first.Year(), int(first.Month()), day)
}
