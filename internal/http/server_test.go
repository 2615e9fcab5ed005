package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/records/memory"
	"tally/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewWithRecords(
		[]core.Subscription{{
			ID:          "sub-music",
			Name:        "Radio",
			Category:    core.CategoryMusic,
			BillingType: core.Monthly,
			Amount:      core.Money{Cents: 999},
			StartDate:   core.NewDate(2024, 1, 15),
			Status:      core.StatusActive,
			AccessType:  core.AccessOwned,
			UserPaying:  true,
		}},
		[]core.OneTimeItem{{
			ID:       "item-desk",
			Name:     "Desk",
			Category: core.CategoryShopping,
			Amount:   core.Money{Cents: 25000},
			Date:     core.NewDate(2024, 6, 1),
		}},
	)
	srv := NewServer(Config{Addr: ":0"}, store, services.NewRecordService(store, nil), services.NewSpendService(store, store))
	srv.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBreakdown(t *testing.T, rr *httptest.ResponseRecorder) breakdownResponse {
	t.Helper()
	var resp breakdownResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode breakdown: %v (%s)", err, rr.Body.String())
	}
	return resp
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request ID", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s: missing security headers", path)
		}
	}
}

func TestSpendEndpoint(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantTotal  int64
		wantCats   []core.Category
	}{
		{"overall", "/api/spend?year=2024", http.StatusOK, 12*999 + 25000, []core.Category{core.CategoryShopping, core.CategoryMusic}},
		{"monthly", "/api/spend?view=monthly&year=2024&month=2", http.StatusOK, 999, []core.Category{core.CategoryMusic}},
		{"monthly default month", "/api/spend?view=monthly", http.StatusOK, 999, []core.Category{core.CategoryMusic}},
		{"yearly has no yearly items", "/api/spend?view=yearly&year=2024", http.StatusOK, 0, nil},
		{"one-time items only in their year", "/api/spend?year=2023", http.StatusOK, 0, nil},
		{"unknown view", "/api/spend?view=daily", http.StatusUnprocessableEntity, 0, nil},
		{"bad year", "/api/spend?year=abc", http.StatusBadRequest, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target, "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				if !strings.Contains(rr.Body.String(), `"error"`) {
					t.Errorf("expected JSON error body, got %s", rr.Body.String())
				}
				return
			}
			resp := decodeBreakdown(t, rr)
			if resp.TotalCents != tt.wantTotal {
				t.Errorf("total=%d want %d", resp.TotalCents, tt.wantTotal)
			}
			if len(resp.Categories) != len(tt.wantCats) {
				t.Fatalf("categories=%+v want %v", resp.Categories, tt.wantCats)
			}
			for i, c := range tt.wantCats {
				if resp.Categories[i].Category != c {
					t.Errorf("category %d = %s, want %s", i, resp.Categories[i].Category, c)
				}
			}
		})
	}
}

func TestDrillDownEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/spend/categories/music?year=2024", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp drillDownResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Category != core.CategoryMusic || len(resp.Items) != 1 {
		t.Fatalf("unexpected drill-down %+v", resp)
	}
	if item := resp.Items[0]; item.ID != "sub-music" || item.AmountCents != 12*999 || item.Amount != "119.88" {
		t.Errorf("unexpected item %+v", item)
	}

	rr = do(t, srv, http.MethodGet, "/api/spend/categories/musci?year=2024", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown category status=%d", rr.Code)
	}
}

func TestUpcomingEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/upcoming?from=2024-03-01&days=31", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp upcomingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Charges) != 1 || resp.Charges[0].Date != "2024-03-15" || resp.TotalCents != 999 {
		t.Errorf("unexpected upcoming %+v", resp)
	}

	if rr := do(t, srv, http.MethodGet, "/api/upcoming?days=0", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero days status=%d", rr.Code)
	}
}

func TestSubscriptionCRUD(t *testing.T) {
	srv := newTestServer(t)

	// Prime the breakdown cache so the write has to invalidate it.
	before := decodeBreakdown(t, do(t, srv, http.MethodGet, "/api/spend?year=2024", ""))

	body := `{"name":"Cloud Box","category":"cloud","billing_type":"yearly","amount":"120","start_date":"2024-05-01"}`
	rr := do(t, srv, http.MethodPost, "/api/subscriptions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	loc := rr.Header().Get("Location")
	if !strings.HasPrefix(loc, "/api/subscriptions/") {
		t.Fatalf("Location = %q", loc)
	}

	after := decodeBreakdown(t, do(t, srv, http.MethodGet, "/api/spend?year=2024", ""))
	if after.TotalCents != before.TotalCents+12000 {
		t.Errorf("total after create = %d, want %d", after.TotalCents, before.TotalCents+12000)
	}

	rr = do(t, srv, http.MethodGet, loc, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"active"`) {
		t.Errorf("get status=%d body=%s", rr.Code, rr.Body.String())
	}

	update := `{"name":"Cloud Box","category":"cloud","billing_type":"yearly","amount":"150","start_date":"2024-05-01","status":"wishlist"}`
	if rr := do(t, srv, http.MethodPut, loc, update); rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	wishlisted := decodeBreakdown(t, do(t, srv, http.MethodGet, "/api/spend?year=2024", ""))
	if wishlisted.TotalCents != before.TotalCents {
		t.Errorf("wishlist item counted: total=%d want %d", wishlisted.TotalCents, before.TotalCents)
	}

	if rr := do(t, srv, http.MethodDelete, loc, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, loc, ""); rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status=%d", rr.Code)
	}
}

func TestRecordErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"unknown category", http.MethodPost, "/api/subscriptions", `{"name":"X","category":"Musci","billing_type":"monthly","amount":"1","start_date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"bad billing type", http.MethodPost, "/api/subscriptions", `{"name":"X","category":"music","billing_type":"daily","amount":"1","start_date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"missing start date", http.MethodPost, "/api/subscriptions", `{"name":"X","category":"music","billing_type":"monthly","amount":"1"}`, http.StatusUnprocessableEntity},
		{"unknown field", http.MethodPost, "/api/one-time-items", `{"name":"X","price":"1"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/one-time-items", `{"name":`, http.StatusBadRequest},
		{"update missing", http.MethodPut, "/api/one-time-items/nope", `{"name":"X","category":"food","amount":"1","date":"2024-01-01"}`, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/subscriptions/nope", "", http.StatusNotFound},
		{"get missing", http.MethodGet, "/api/one-time-items/nope", "", http.StatusNotFound},
		{"method not routed", http.MethodPatch, "/api/subscriptions", "", http.StatusMethodNotAllowed},
		{"blocked method", "TRACE", "/api/spend", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.target, tt.body)
			if rr.Code != tt.wantStatus {
				t.Errorf("status=%d want %d body=%s", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}
}

func TestOneTimeItemListing(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/one-time-items", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp struct {
		Items []struct {
			ID     string `json:"id"`
			Amount string `json:"amount"`
			Date   string `json:"date"`
		} `json:"one_time_items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Amount != "250.00" || resp.Items[0].Date != "2024-06-01" {
		t.Errorf("unexpected listing %+v", resp.Items)
	}
}

func TestCachesPurgedExternally(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodGet, "/api/spend?year=2024", "")
	do(t, srv, http.MethodGet, "/api/spend/categories/music?year=2024", "")

	if n := srv.Caches().PurgeAll(); n != 2 {
		t.Errorf("PurgeAll dropped %d entries, want 2", n)
	}
}

// pausingLister holds its first ListSubscriptions call, after the records
// have been read, until release is closed.
type pausingLister struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *pausingLister) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	subs, err := p.Store.ListSubscriptions(ctx)
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	return subs, err
}

func TestWriteDuringLoadIsNotCached(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"breakdown", "/api/spend?year=2024"},
		{"drill-down", "/api/spend/categories/music?year=2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewWithRecords([]core.Subscription{{
				ID:          "sub-music",
				Name:        "Radio",
				Category:    core.CategoryMusic,
				BillingType: core.Monthly,
				Amount:      core.Money{Cents: 999},
				StartDate:   core.NewDate(2024, 1, 15),
				Status:      core.StatusActive,
				AccessType:  core.AccessOwned,
				UserPaying:  true,
			}}, nil)
			lister := &pausingLister{Store: store, entered: make(chan struct{}), release: make(chan struct{})}
			srv := NewServer(Config{Addr: ":0"}, store, services.NewRecordService(store, nil), services.NewSpendService(lister, store))
			srv.now = func() time.Time { return fixedNow }
			t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

			done := make(chan *httptest.ResponseRecorder, 1)
			go func() { done <- do(t, srv, http.MethodGet, tt.target, "") }()
			<-lister.entered

			body := `{"name":"Vinyl Club","category":"music","billing_type":"yearly","amount":"120","start_date":"2024-05-01"}`
			if rr := do(t, srv, http.MethodPost, "/api/subscriptions", body); rr.Code != http.StatusCreated {
				t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
			}
			close(lister.release)
			if rr := <-done; rr.Code != http.StatusOK {
				t.Fatalf("in-flight request status=%d body=%s", rr.Code, rr.Body.String())
			}

			rr := do(t, srv, http.MethodGet, tt.target, "")
			var got struct {
				TotalCents int64 `json:"total_cents"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v (%s)", err, rr.Body.String())
			}
			if want := int64(12*999 + 12000); got.TotalCents != want {
				t.Errorf("total after write = %d, want %d", got.TotalCents, want)
			}
		})
	}
}
