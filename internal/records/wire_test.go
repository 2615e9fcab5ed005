package records

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"tally/internal/core"
)

func TestAmountJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{`"9.99"`, 999, false},
		{`9.99`, 999, false},
		{`12`, 1200, false},
		{`"12,5"`, 1250, false},
		{`"-1"`, 0, true},
		{`"abc"`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(tt.in), &a)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidAmount) {
					t.Fatalf("expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if a.Cents != tt.want {
				t.Errorf("cents = %d, want %d", a.Cents, tt.want)
			}
		})
	}

	out, err := json.Marshal(Amount{core.Money{Cents: 1250}})
	if err != nil || string(out) != `"12.50"` {
		t.Errorf("marshal = %s, %v", out, err)
	}
}

func TestSubscriptionRecordJSON(t *testing.T) {
	body := `{"name":" Music ","category":"music","billing_type":"Monthly","amount":"9.99","start_date":"2024-01-15"}`
	var rec SubscriptionRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	sub, err := rec.ToCore()
	if err != nil {
		t.Fatalf("ToCore: %v", err)
	}
	if sub.Name != "Music" || sub.Category != core.CategoryMusic || sub.BillingType != core.Monthly {
		t.Errorf("unexpected subscription %+v", sub)
	}
	if sub.Status != core.StatusActive || sub.AccessType != core.AccessOwned || !sub.UserPaying {
		t.Errorf("defaults not applied: %+v", sub)
	}
	if sub.HasStopDate {
		t.Error("no stop date was given")
	}

	out, err := json.Marshal(SubscriptionRecordFrom(sub))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "stop_date") {
		t.Errorf("empty stop date should be omitted: %s", out)
	}
	if !strings.Contains(string(out), `"amount":"9.99"`) || !strings.Contains(string(out), `"start_date":"2024-01-15"`) {
		t.Errorf("unexpected JSON %s", out)
	}
}

func TestSubscriptionRecordToCoreErrors(t *testing.T) {
	base := func() SubscriptionRecord {
		return SubscriptionRecord{
			Name:        "Cloud",
			Category:    "cloud",
			BillingType: "yearly",
			Amount:      Amount{core.Money{Cents: 100}},
			StartDate:   Day{core.NewDate(2024, 1, 1)},
		}
	}
	tests := []struct {
		name   string
		mutate func(*SubscriptionRecord)
		want   error
	}{
		{"unknown category", func(r *SubscriptionRecord) { r.Category = "clouds" }, core.ErrUnknownCategory},
		{"bad billing", func(r *SubscriptionRecord) { r.BillingType = "daily" }, core.ErrInvalidBillingType},
		{"missing start", func(r *SubscriptionRecord) { r.StartDate = Day{} }, core.ErrMissingDate},
		{"stop before start", func(r *SubscriptionRecord) { r.StopDate = Day{core.NewDate(2023, 1, 1)} }, core.ErrStopBeforeStart},
		{"bad status", func(r *SubscriptionRecord) { r.Status = "paused" }, core.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base()
			tt.mutate(&rec)
			if _, err := rec.ToCore(); !errors.Is(err, tt.want) {
				t.Errorf("ToCore() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOneTimeItemRecordJSON(t *testing.T) {
	var rec OneTimeItemRecord
	if err := json.Unmarshal([]byte(`{"name":"Desk","amount":250,"date":"2024-02-30"}`), &rec); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	if err := json.Unmarshal([]byte(`{"name":"Desk","amount":250,"date":"2024-02-29"}`), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	item, err := rec.ToCore()
	if err != nil {
		t.Fatalf("ToCore: %v", err)
	}
	if item.Category != core.CategoryOther || item.Amount.Cents != 25000 {
		t.Errorf("unexpected item %+v", item)
	}
}
