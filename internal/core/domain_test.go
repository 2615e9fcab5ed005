package core

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d != NewDate(2024, 2, 29) {
		t.Fatalf("unexpected date %v", d)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("unexpected string %q", d.String())
	}
	if _, err := ParseDate("2023-02-29"); err == nil {
		t.Fatalf("expected error for non-leap Feb 29")
	}
	if (Date{}).String() != "" {
		t.Fatalf("zero date should format as empty string")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("expected zero to be allowed, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func goodSubscription() Subscription {
	return Subscription{
		Name:        "Streaming",
		Category:    CategoryEntertainment,
		BillingType: Monthly,
		Amount:      Money{Cents: 999},
		StartDate:   NewDate(2024, 3, 10),
		Status:      StatusActive,
		AccessType:  AccessOwned,
		UserPaying:  true,
	}
}

func TestSubscriptionValidate(t *testing.T) {
	if err := goodSubscription().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Subscription)
		want   error
	}{
		{"empty name", func(s *Subscription) { s.Name = "  " }, ErrEmptyName},
		{"unknown category", func(s *Subscription) { s.Category = "Entertainmnet" }, ErrUnknownCategory},
		{"bad billing type", func(s *Subscription) { s.BillingType = "daily" }, ErrInvalidBillingType},
		{"negative amount", func(s *Subscription) { s.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{"stop before start", func(s *Subscription) {
			s.HasStopDate = true
			s.StopDate = NewDate(2024, 3, 1)
		}, ErrStopBeforeStart},
		{"stop equal to start", func(s *Subscription) {
			s.HasStopDate = true
			s.StopDate = s.StartDate
		}, ErrStopBeforeStart},
		{"bad status", func(s *Subscription) { s.Status = "paused" }, ErrInvalidStatus},
		{"bad access", func(s *Subscription) { s.AccessType = "family" }, ErrInvalidAccessType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := goodSubscription()
			tt.mutate(&s)
			if err := s.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscriptionStopIgnoredWithoutFlag(t *testing.T) {
	s := goodSubscription()
	s.StopDate = NewDate(2024, 6, 1)
	if !s.Stop().IsEmpty() {
		t.Fatalf("stop date without HasStopDate should be ignored")
	}
	s.HasStopDate = true
	if s.Stop() != NewDate(2024, 6, 1) {
		t.Fatalf("unexpected stop %v", s.Stop())
	}
}

func TestCountsTowardSpend(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Subscription)
		wishlist bool
		want     bool
	}{
		{"active owned", func(*Subscription) {}, false, true},
		{"wishlist excluded", func(s *Subscription) { s.Status = StatusWishlist }, false, false},
		{"wishlist included", func(s *Subscription) { s.Status = StatusWishlist }, true, true},
		{"shared not paying", func(s *Subscription) {
			s.AccessType = AccessShared
			s.UserPaying = false
		}, true, false},
		{"shared paying", func(s *Subscription) { s.AccessType = AccessShared }, false, true},
		{"lifetime", func(s *Subscription) { s.BillingType = Lifetime }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := goodSubscription()
			tt.mutate(&s)
			if got := s.CountsTowardSpend(tt.wishlist); got != tt.want {
				t.Errorf("CountsTowardSpend(%v) = %v, want %v", tt.wishlist, got, tt.want)
			}
		})
	}
}

func TestOneTimeItemValidate(t *testing.T) {
	good := OneTimeItem{
		Name:     "Headphones",
		Category: CategoryShopping,
		Amount:   Money{Cents: 12900},
		Date:     NewDate(2024, 5, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []OneTimeItem{
		{Name: "", Category: CategoryShopping, Amount: Money{Cents: 1}, Date: NewDate(2024, 1, 1)},
		{Name: "a", Category: "nope", Amount: Money{Cents: 1}, Date: NewDate(2024, 1, 1)},
		{Name: "a", Category: CategoryShopping, Amount: Money{Cents: -5}, Date: NewDate(2024, 1, 1)},
		{Name: "a", Category: CategoryShopping, Amount: Money{Cents: 1}},
	}
	for i, o := range bads {
		if err := o.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"Music", CategoryMusic, false},
		{"  music ", CategoryMusic, false},
		{"", CategoryOther, false},
		{"other", CategoryOther, false},
		{"Musci", CategoryOther, true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseCategory(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
	if Category("").Normalize() != CategoryOther {
		t.Errorf("blank category should normalize to Other")
	}
	if cats := Categories(); cats[len(cats)-1] != CategoryOther {
		t.Errorf("Other should be last, got %v", cats)
	}
}

func TestIsValidationError(t *testing.T) {
	sub := Subscription{Name: "x", BillingType: Monthly, Status: StatusActive, AccessType: AccessOwned}
	if err := sub.Validate(); !errors.Is(err, ErrMissingDate) || !IsValidationError(err) {
		t.Errorf("missing start date: got %v", err)
	}
	if IsValidationError(errors.New("disk full")) {
		t.Error("unrelated errors are not validation errors")
	}
	if !IsValidationError(fmt.Errorf("subscription 2: %w", ErrUnknownCategory)) {
		t.Error("wrapped sentinel should be recognised")
	}
}
