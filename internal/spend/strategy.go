package spend

import (
	"fmt"

	"tally/internal/cadence"
	"tally/internal/core"
)

// CadenceStrategy computes how much one subscription adds to a reporting
// window. There is one implementation per billing type.
type CadenceStrategy interface {
	Contribution(sub core.Subscription, opts Options) core.Money
}

// WeeklyStrategy bills amount once per weekly charge inside the window,
// clamped to the stop date.
type WeeklyStrategy struct{}

func (WeeklyStrategy) Contribution(sub core.Subscription, opts Options) core.Money {
	var from, to core.Date
	switch opts.View {
	case ViewOverall:
		from = core.NewDate(opts.Window.Year, 1, 1)
		to = core.NewDate(opts.Window.Year, 12, 31)
	case ViewMonthly:
		from = cadence.FirstOfMonth(opts.Window.Year, opts.Window.Month)
		to = cadence.LastOfMonth(opts.Window.Year, opts.Window.Month)
	default:
		return core.Money{}
	}
	to = cadence.ClampToStop(to, sub.Stop())
	return sub.Amount.Times(cadence.CountWeeklyOccurrences(sub.StartDate, from, to))
}

// MonthlyStrategy bills amount once per active calendar month.
type MonthlyStrategy struct{}

func (MonthlyStrategy) Contribution(sub core.Subscription, opts Options) core.Money {
	switch opts.View {
	case ViewOverall:
		return sub.Amount.Times(cadence.MonthsActiveInYear(sub.StartDate, sub.Stop(), opts.Window.Year))
	case ViewMonthly:
		if cadence.IsActiveInMonth(sub.StartDate, sub.Stop(), opts.Window.Year, opts.Window.Month) {
			return sub.Amount
		}
	}
	return core.Money{}
}

// YearlyStrategy bills amount once in every year the item is active. The
// final year is never prorated to the stop day.
type YearlyStrategy struct{}

func (YearlyStrategy) Contribution(sub core.Subscription, opts Options) core.Money {
	switch opts.View {
	case ViewOverall, ViewYearly:
		if cadence.IsActiveInYear(sub.StartDate, sub.Stop(), opts.Window.Year) {
			return sub.Amount
		}
	}
	return core.Money{}
}

// LifetimeStrategy never contributes to recurring totals.
type LifetimeStrategy struct{}

func (LifetimeStrategy) Contribution(core.Subscription, Options) core.Money {
	return core.Money{}
}

var cadenceStrategies = map[core.BillingType]CadenceStrategy{
	core.Weekly:   WeeklyStrategy{},
	core.Monthly:  MonthlyStrategy{},
	core.Yearly:   YearlyStrategy{},
	core.Lifetime: LifetimeStrategy{},
}

// GetCadenceStrategy returns the strategy for a billing type.
func GetCadenceStrategy(billing core.BillingType) (CadenceStrategy, error) {
	s, ok := cadenceStrategies[billing]
	if !ok {
		return nil, fmt.Errorf("unknown billing type: %s", billing)
	}
	return s, nil
}
