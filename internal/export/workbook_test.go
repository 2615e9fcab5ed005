package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"tally/internal/core"
	"tally/internal/spend"
)

func testSnapshot() spend.Snapshot {
	sub := func(id, name string, cat core.Category, cents int64) core.Subscription {
		return core.Subscription{
			ID:          id,
			Name:        name,
			Category:    cat,
			BillingType: core.Monthly,
			Amount:      core.Money{Cents: cents},
			StartDate:   core.NewDate(2023, 1, 1),
			Status:      core.StatusActive,
			AccessType:  core.AccessOwned,
			UserPaying:  true,
		}
	}
	return spend.Snapshot{
		Subscriptions: []core.Subscription{
			sub("a", "Music", core.CategoryMusic, 1000),
			sub("b", "Video", core.CategoryEntertainment, 1500),
			sub("c", "Radio", core.CategoryMusic, 500),
		},
		OneTimeItems: []core.OneTimeItem{
			{ID: "d", Name: "Desk", Category: core.CategoryShopping, Amount: core.Money{Cents: 25000}, Date: core.NewDate(2024, 4, 1)},
		},
	}
}

func TestBuild(t *testing.T) {
	r := Build(testSnapshot(), spend.Options{View: spend.ViewMonthly, Window: spend.Window{Year: 2024, Month: 5}})

	if r.Breakdown.Total.Cents != 3000 {
		t.Errorf("Total = %d, want 3000", r.Breakdown.Total.Cents)
	}
	if got := len(r.Details[core.CategoryMusic]); got != 2 {
		t.Errorf("music details = %d, want 2", got)
	}
	if _, ok := r.Details[core.CategoryShopping]; ok {
		t.Error("one-time items are not part of a monthly view")
	}
}

func TestWriteWorkbook(t *testing.T) {
	r := Build(testSnapshot(), spend.Options{View: spend.ViewOverall, Window: spend.Window{Year: 2024}})

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, r); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	summary, err := f.GetRows(SummarySheet, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("summary rows: %v", err)
	}
	// Header, Shopping 250, Music 180, Entertainment 180, Total.
	if len(summary) != 5 {
		t.Fatalf("summary has %d rows: %v", len(summary), summary)
	}
	wantCats := []string{"Category", "Shopping", "Entertainment", "Music", "Total"}
	for i, want := range wantCats {
		if summary[i][0] != want {
			t.Errorf("summary row %d = %q, want %q", i, summary[i][0], want)
		}
	}
	if summary[1][1] != "250" || summary[4][1] != "610" {
		t.Errorf("amounts = %q / %q", summary[1][1], summary[4][1])
	}

	details, err := f.GetRows(DetailsSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("details rows: %v", err)
	}
	if len(details) != 5 {
		t.Fatalf("details has %d rows: %v", len(details), details)
	}
	if details[1][2] != "Desk" || details[1][1] != string(spend.KindOneTime) {
		t.Errorf("first detail row = %v", details[1])
	}

	props, err := f.GetDocProps()
	if err != nil {
		t.Fatalf("doc props: %v", err)
	}
	if props.Subject != "overall" {
		t.Errorf("subject = %q", props.Subject)
	}
}
