package memory

import (
	"context"
	"errors"
	"testing"

	"tally/internal/core"
	"tally/internal/records"
)

func testSub(name string) core.Subscription {
	return core.Subscription{
		Name:        name,
		Category:    "music",
		BillingType: core.Monthly,
		Amount:      core.Money{Cents: 999},
		StartDate:   core.NewDate(2024, 1, 1),
		Status:      core.StatusActive,
		AccessType:  core.AccessOwned,
		UserPaying:  true,
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.CreateSubscription(ctx, testSub("Radio"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated ID")
	}
	if created.Category != core.CategoryMusic {
		t.Fatalf("category not normalized: %q", created.Category)
	}

	created.Amount = core.Money{Cents: 1299}
	if _, err := s.UpdateSubscription(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetSubscription(ctx, created.ID)
	if err != nil || got.Amount.Cents != 1299 {
		t.Fatalf("get after update: %+v, %v", got, err)
	}

	if err := s.DeleteSubscription(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetSubscription(ctx, created.ID); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteSubscription(ctx, created.ID); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	s := New()
	bad := testSub("")
	if _, err := s.CreateSubscription(context.Background(), bad); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	item := core.OneTimeItem{Name: "x", Category: "nope", Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)}
	if _, err := s.CreateOneTimeItem(context.Background(), item); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestListOrderedAndCopied(t *testing.T) {
	ctx := context.Background()
	s := NewWithRecords([]core.Subscription{testSub("Zeta"), testSub("Alpha")}, []core.OneTimeItem{
		{Name: "Mouse", Category: core.CategoryShopping, Amount: core.Money{Cents: 2500}, Date: core.NewDate(2024, 3, 3)},
	})

	subs, err := s.ListSubscriptions(ctx)
	if err != nil || len(subs) != 2 {
		t.Fatalf("unexpected list: %v, %v", subs, err)
	}
	if subs[0].Name != "Alpha" || subs[1].Name != "Zeta" {
		t.Fatalf("unexpected order: %s, %s", subs[0].Name, subs[1].Name)
	}

	subs[0].Name = "changed"
	again, _ := s.ListSubscriptions(ctx)
	if again[0].Name != "Alpha" {
		t.Fatalf("list should return a copy")
	}

	items, _ := s.ListOneTimeItems(ctx)
	if len(items) != 1 || items[0].ID == "" {
		t.Fatalf("seeded item should have an ID: %+v", items)
	}
	if _, err := s.UpdateOneTimeItem(ctx, core.OneTimeItem{ID: "missing", Name: "x", Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)}); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRejectsTakenID(t *testing.T) {
	ctx := context.Background()
	s := New()

	sub := testSub("Radio")
	sub.ID = "sub-radio"
	if _, err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateSubscription(ctx, sub); !errors.Is(err, records.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	item := core.OneTimeItem{ID: "item-desk", Name: "Desk", Category: core.CategoryShopping, Amount: core.Money{Cents: 25000}, Date: core.NewDate(2024, 6, 1)}
	if _, err := s.CreateOneTimeItem(ctx, item); err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := s.CreateOneTimeItem(ctx, item); !errors.Is(err, records.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID for item, got %v", err)
	}

	subs, _ := s.ListSubscriptions(ctx)
	items, _ := s.ListOneTimeItems(ctx)
	if len(subs) != 1 || len(items) != 1 {
		t.Fatalf("duplicates must not be stored: %d subscriptions, %d items", len(subs), len(items))
	}
	if err := s.DeleteSubscription(ctx, "sub-radio"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetSubscription(ctx, "sub-radio"); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("delete should remove the only copy, got %v", err)
	}
}

func TestImportRecords(t *testing.T) {
	taken := testSub("Radio")
	taken.ID = "sub-radio"

	withID := func(id, name string) core.Subscription {
		s := testSub(name)
		s.ID = id
		return s
	}

	tests := []struct {
		name    string
		subs    []core.Subscription
		wantErr error
		want    int
	}{
		{
			name: "new ids and generated ids",
			subs: []core.Subscription{withID("sub-video", "Video"), testSub("Cloud")},
			want: 3,
		},
		{
			name:    "id already stored",
			subs:    []core.Subscription{withID("sub-video", "Video"), withID("sub-radio", "Radio again")},
			wantErr: records.ErrDuplicateID,
			want:    1,
		},
		{
			name:    "id repeated in batch",
			subs:    []core.Subscription{withID("sub-video", "Video"), withID("sub-video", "Video copy")},
			wantErr: records.ErrDuplicateID,
			want:    1,
		},
		{
			name:    "invalid record",
			subs:    []core.Subscription{withID("sub-video", "Video"), testSub("")},
			wantErr: core.ErrEmptyName,
			want:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := NewWithRecords([]core.Subscription{taken}, nil)

			err := s.ImportRecords(ctx, tt.subs, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("import: %v", err)
			}

			subs, _ := s.ListSubscriptions(ctx)
			if len(subs) != tt.want {
				t.Fatalf("stored %d subscriptions, want %d", len(subs), tt.want)
			}
		})
	}
}
