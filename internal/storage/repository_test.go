package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tally/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "tally.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSubscriptionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	in := core.Subscription{
		Name:        "Video",
		Category:    "entertainment",
		BillingType: core.Monthly,
		Amount:      core.Money{Cents: 1299},
		StartDate:   core.NewDate(2024, 1, 31),
		HasStopDate: true,
		StopDate:    core.NewDate(2024, 9, 30),
		Status:      core.StatusWishlist,
		AccessType:  core.AccessShared,
		UserPaying:  false,
		Notes:       "family plan",
	}
	created, err := repo.CreateSubscription(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated ID")
	}

	got, err := repo.GetSubscription(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	in.ID = created.ID
	in.Category = core.CategoryEntertainment
	if got != in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, in)
	}

	got.HasStopDate = false
	got.StopDate = core.Date{}
	got.UserPaying = true
	if _, err := repo.UpdateSubscription(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := repo.GetSubscription(ctx, got.ID)
	if again.HasStopDate || !again.StopDate.IsEmpty() || !again.UserPaying {
		t.Fatalf("update not persisted: %+v", again)
	}

	if err := repo.DeleteSubscription(ctx, got.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetSubscription(ctx, got.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrderedByName(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, name := range []string{"Charlie", "Alpha", "Bravo"} {
		_, err := repo.CreateOneTimeItem(ctx, core.OneTimeItem{
			Name:     name,
			Category: core.CategoryShopping,
			Amount:   core.Money{Cents: 100},
			Date:     core.NewDate(2024, 2, 29),
		})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	items, err := repo.ListOneTimeItems(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 || items[0].Name != "Alpha" || items[2].Name != "Charlie" {
		t.Fatalf("unexpected order: %+v", items)
	}
	if items[0].Date != core.NewDate(2024, 2, 29) {
		t.Fatalf("unexpected date %s", items[0].Date)
	}

	subs, err := repo.ListSubscriptions(ctx)
	if err != nil || subs == nil || len(subs) != 0 {
		t.Fatalf("expected empty non-nil list, got %v, %v", subs, err)
	}
}

func TestWritesRejectInvalidAndMissing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateOneTimeItem(ctx, core.OneTimeItem{Name: "x", Category: "bogus", Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)})
	if !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}

	_, err = repo.UpdateOneTimeItem(ctx, core.OneTimeItem{ID: "nope", Name: "x", Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteOneTimeItem(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestImportRecordsIsAtomic(t *testing.T) {
	sub := func(id, name string) core.Subscription {
		return core.Subscription{
			ID:          id,
			Name:        name,
			Category:    core.CategoryMusic,
			BillingType: core.Monthly,
			Amount:      core.Money{Cents: 999},
			StartDate:   core.NewDate(2024, 1, 15),
			Status:      core.StatusActive,
			AccessType:  core.AccessOwned,
			UserPaying:  true,
		}
	}
	desk := core.OneTimeItem{ID: "item-desk", Name: "Desk", Category: core.CategoryShopping, Amount: core.Money{Cents: 25000}, Date: core.NewDate(2024, 6, 1)}

	tests := []struct {
		name      string
		subs      []core.Subscription
		items     []core.OneTimeItem
		wantErr   error
		wantSubs  int
		wantItems int
	}{
		{
			name:      "all stored",
			subs:      []core.Subscription{sub("sub-video", "Video"), sub("", "Cloud")},
			items:     []core.OneTimeItem{desk},
			wantSubs:  3,
			wantItems: 1,
		},
		{
			name:     "id already stored",
			subs:     []core.Subscription{sub("sub-video", "Video"), sub("sub-radio", "Radio again")},
			items:    []core.OneTimeItem{desk},
			wantErr:  ErrDuplicateID,
			wantSubs: 1,
		},
		{
			name:     "id repeated in file",
			subs:     []core.Subscription{sub("sub-video", "Video"), sub("sub-video", "Video copy")},
			wantErr:  ErrDuplicateID,
			wantSubs: 1,
		},
		{
			name:     "invalid item after valid subscriptions",
			subs:     []core.Subscription{sub("sub-video", "Video")},
			items:    []core.OneTimeItem{{Name: "Lamp", Category: "bogus", Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)}},
			wantErr:  core.ErrUnknownCategory,
			wantSubs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := newTestRepo(t)
			if _, err := repo.CreateSubscription(ctx, sub("sub-radio", "Radio")); err != nil {
				t.Fatalf("seed: %v", err)
			}

			err := repo.ImportRecords(ctx, tt.subs, tt.items)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("import: %v", err)
			}

			subs, err := repo.ListSubscriptions(ctx)
			if err != nil {
				t.Fatalf("list subscriptions: %v", err)
			}
			items, err := repo.ListOneTimeItems(ctx)
			if err != nil {
				t.Fatalf("list items: %v", err)
			}
			if len(subs) != tt.wantSubs || len(items) != tt.wantItems {
				t.Fatalf("stored %d subscriptions and %d items, want %d and %d",
					len(subs), len(items), tt.wantSubs, tt.wantItems)
			}
		})
	}
}

func TestCreateRejectsTakenID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	item := core.OneTimeItem{ID: "item-desk", Name: "Desk", Category: core.CategoryShopping, Amount: core.Money{Cents: 25000}, Date: core.NewDate(2024, 6, 1)}
	if _, err := repo.CreateOneTimeItem(ctx, item); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateOneTimeItem(ctx, item); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}
