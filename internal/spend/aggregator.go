// Package spend turns a snapshot of subscriptions and one-time purchases into
// category totals for a reporting window.
//
// Aggregate and DrillDown are pure: they read the snapshot, never mutate it,
// keep no state between calls and perform no I/O. Both are built on the same
// per-item evaluation so a drill-down always adds up to its bucket.
package spend

import (
	"sort"

	"tally/internal/core"
)

// Snapshot is a point-in-time copy of the records to aggregate.
type Snapshot struct {
	Subscriptions []core.Subscription
	OneTimeItems  []core.OneTimeItem
}

// ItemKind tells which record type a contribution came from.
type ItemKind string

const (
	KindSubscription ItemKind = "subscription"
	KindOneTime      ItemKind = "one_time"
)

// Contribution is the amount one record adds to its category bucket.
// Exactly one of Subscription and OneTime is set.
type Contribution struct {
	Kind         ItemKind
	Subscription *core.Subscription
	OneTime      *core.OneTimeItem
	Category     core.Category
	Amount       core.Money
}

// CategoryTotal is one emitted bucket.
type CategoryTotal struct {
	Category core.Category
	Value    core.Money
}

// Breakdown is the result of Aggregate. Categories only holds buckets with a
// strictly positive value, largest first.
type Breakdown struct {
	Total      core.Money
	Categories []CategoryTotal
}

func (c Contribution) ID() string {
	if c.Subscription != nil {
		return c.Subscription.ID
	}
	if c.OneTime != nil {
		return c.OneTime.ID
	}
	return ""
}

func (c Contribution) Name() string {
	if c.Subscription != nil {
		return c.Subscription.Name
	}
	if c.OneTime != nil {
		return c.OneTime.Name
	}
	return ""
}

// Aggregate buckets every positive contribution by category.
func Aggregate(s Snapshot, opts Options) Breakdown {
	buckets := make(map[core.Category]core.Money)
	for _, c := range contributions(s, opts) {
		buckets[c.Category] = buckets[c.Category].Add(c.Amount)
	}

	out := Breakdown{Categories: make([]CategoryTotal, 0, len(buckets))}
	for cat, v := range buckets {
		if v.Cents <= 0 {
			continue
		}
		out.Categories = append(out.Categories, CategoryTotal{Category: cat, Value: v})
		out.Total = out.Total.Add(v)
	}

	sort.Slice(out.Categories, func(i, j int) bool {
		a, b := out.Categories[i], out.Categories[j]
		if a.Value.Cents != b.Value.Cents {
			return a.Value.Cents > b.Value.Cents
		}
		return a.Category < b.Category
	})
	return out
}

// DrillDown lists the contributions feeding one category's total, largest
// first. Their amounts sum to that category's value in Aggregate.
func DrillDown(s Snapshot, category core.Category, opts Options) []Contribution {
	category = category.Normalize()

	out := make([]Contribution, 0)
	for _, c := range contributions(s, opts) {
		if c.Category == category {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		if a.Name() != b.Name() {
			return a.Name() < b.Name()
		}
		return a.ID() < b.ID()
	})
	return out
}

// contributions evaluates every record once against opts and keeps the
// positive ones. It is the single evaluation path behind Aggregate and
// DrillDown.
func contributions(s Snapshot, opts Options) []Contribution {
	var out []Contribution

	for i := range s.Subscriptions {
		sub := s.Subscriptions[i]
		if !sub.CountsTowardSpend(opts.IncludeWishlist) {
			continue
		}
		strategy, err := GetCadenceStrategy(sub.BillingType)
		if err != nil {
			continue
		}
		amount := strategy.Contribution(sub, opts)
		if amount.Cents <= 0 {
			continue
		}
		out = append(out, Contribution{
			Kind:         KindSubscription,
			Subscription: &sub,
			Category:     sub.Category.Normalize(),
			Amount:       amount,
		})
	}

	if opts.View != ViewOverall {
		return out
	}

	for i := range s.OneTimeItems {
		item := s.OneTimeItems[i]
		if item.Date.IsEmpty() || item.Date.Year() != opts.Window.Year {
			continue
		}
		if item.Amount.Cents <= 0 {
			continue
		}
		out = append(out, Contribution{
			Kind:     KindOneTime,
			OneTime:  &item,
			Category: item.Category.Normalize(),
			Amount:   item.Amount,
		})
	}
	return out
}
