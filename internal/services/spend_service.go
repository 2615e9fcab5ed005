package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/cadence"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/records"
	"tally/internal/spend"
)

// MaxUpcomingDays bounds the look-ahead of Upcoming.
const MaxUpcomingDays = 366

// SpendService loads a record snapshot and runs the spend engine over it.
type SpendService struct {
	subs  records.SubscriptionLister
	items records.OneTimeItemLister
}

func NewSpendService(subs records.SubscriptionLister, items records.OneTimeItemLister) *SpendService {
	return &SpendService{subs: subs, items: items}
}

// Snapshot reads both record lists concurrently.
func (s *SpendService) Snapshot(ctx context.Context) (spend.Snapshot, error) {
	var snap spend.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		subs, err := s.subs.ListSubscriptions(gctx)
		if err != nil {
			return fmt.Errorf("list subscriptions: %w", err)
		}
		snap.Subscriptions = subs
		return nil
	})
	g.Go(func() error {
		items, err := s.items.ListOneTimeItems(gctx)
		if err != nil {
			return fmt.Errorf("list one-time items: %w", err)
		}
		snap.OneTimeItems = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return spend.Snapshot{}, err
	}
	return snap, nil
}

func (s *SpendService) Aggregate(ctx context.Context, opts spend.Options) (spend.Breakdown, error) {
	if err := opts.Validate(); err != nil {
		return spend.Breakdown{}, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return spend.Breakdown{}, fmt.Errorf("load snapshot: %w", err)
	}

	start := time.Now()
	b := spend.Aggregate(snap, opts)

	fields := log.NewFields().
		WithComponent(log.ComponentSpend).
		WithOperation(log.OpAggregate).
		WithSpendWindow(string(opts.View), opts.Window.Year, opts.Window.Month, opts.IncludeWishlist)
	slog.DebugContext(ctx, "Spend breakdown computed", append(fields.ToSlice(),
		"categories", len(b.Categories),
		"total_cents", b.Total.Cents,
		"records", len(snap.Subscriptions)+len(snap.OneTimeItems),
		"duration", time.Since(start))...)
	return b, nil
}

// DrillDown returns the contributions behind one category. The category must
// be a known one; blank means Other.
func (s *SpendService) DrillDown(ctx context.Context, category string, opts spend.Options) ([]spend.Contribution, error) {
	cat, err := core.ParseCategory(category)
	if err != nil {
		return nil, fmt.Errorf("drill down %q: %w", category, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	out := spend.DrillDown(snap, cat, opts)

	fields := log.NewFields().
		WithComponent(log.ComponentSpend).
		WithOperation(log.OpDrillDown).
		WithSpendWindow(string(opts.View), opts.Window.Year, opts.Window.Month, opts.IncludeWishlist)
	slog.DebugContext(ctx, "Spend drill-down computed", append(fields.ToSlice(),
		log.FieldCategory, string(cat),
		"items", len(out))...)
	return out, nil
}

// UpcomingCharge is one expected billing event.
type UpcomingCharge struct {
	Subscription core.Subscription
	Date         core.Date
	Amount       core.Money
}

// Upcoming lists every charge due in [from, from+days). Subscriptions paid by
// someone else are skipped, and wishlist items only appear when requested.
// Lifetime purchases appear once on their start date.
func (s *SpendService) Upcoming(ctx context.Context, from core.Date, days int, includeWishlist bool) ([]UpcomingCharge, error) {
	if days < 1 || days > MaxUpcomingDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", spend.ErrInvalidWindow, MaxUpcomingDays)
	}
	subs, err := s.subs.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	last := from.AddDays(days - 1)
	out := make([]UpcomingCharge, 0)
	for _, sub := range subs {
		if !sub.UserPaying {
			continue
		}
		if sub.Status != core.StatusActive && !includeWishlist {
			continue
		}

		cursor := from
		for {
			next, ok := cadence.NextCharge(sub.BillingType, sub.StartDate, sub.Stop(), cursor)
			if !ok || next.After(last.Time) {
				break
			}
			out = append(out, UpcomingCharge{Subscription: sub, Date: next, Amount: sub.Amount})
			if sub.BillingType == core.Lifetime {
				break
			}
			cursor = next.AddDays(1)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].Subscription.Name < out[j].Subscription.Name
	})
	return out, nil
}
