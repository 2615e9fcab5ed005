package http

import (
	"context"
	"net/http"
	"time"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/records"
	"tally/internal/services"
	"tally/internal/spend"
)

// readyTimeout bounds the store ping behind /readyz.
const readyTimeout = 5 * time.Second

type categoryTotalResponse struct {
	Category    core.Category `json:"category"`
	Amount      string        `json:"amount"`
	AmountCents int64         `json:"amount_cents"`
}

type breakdownResponse struct {
	View            spend.View              `json:"view"`
	Window          string                  `json:"window"`
	IncludeWishlist bool                    `json:"include_wishlist"`
	Total           string                  `json:"total"`
	TotalCents      int64                   `json:"total_cents"`
	Categories      []categoryTotalResponse `json:"categories"`
}

type contributionResponse struct {
	Kind        spend.ItemKind `json:"kind"`
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Amount      string         `json:"amount"`
	AmountCents int64          `json:"amount_cents"`
}

type drillDownResponse struct {
	View       spend.View             `json:"view"`
	Window     string                 `json:"window"`
	Category   core.Category          `json:"category"`
	Total      string                 `json:"total"`
	TotalCents int64                  `json:"total_cents"`
	Items      []contributionResponse `json:"items"`
}

type upcomingChargeResponse struct {
	Date           string        `json:"date"`
	SubscriptionID string        `json:"subscription_id"`
	Name           string        `json:"name"`
	Category       core.Category `json:"category"`
	BillingType    string        `json:"billing_type"`
	Amount         string        `json:"amount"`
	AmountCents    int64         `json:"amount_cents"`
}

type upcomingResponse struct {
	From       string                   `json:"from"`
	Days       int                      `json:"days"`
	Total      string                   `json:"total"`
	TotalCents int64                    `json:"total_cents"`
	Charges    []upcomingChargeResponse `json:"charges"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the store and reports cache and limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if p, ok := s.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "ok (in-memory)"
	}

	checks["cache"] = map[string]any{
		"breakdown":  s.breakdownCache.Stats(),
		"drill_down": s.drillCache.Stats(),
	}
	checks["rate_limiter"] = s.rateLimiter.GetMetrics()
	checks["security"] = s.detector.GetMetrics()
	checks["requests"] = s.tracer.GetMetrics()

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": core.Categories()})
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseSpendOptions(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}

	b, err := s.breakdown(r.Context(), opts)
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}

	resp := breakdownResponse{
		View:            opts.View,
		Window:          windowLabel(opts),
		IncludeWishlist: opts.IncludeWishlist,
		Total:           b.Total.String(),
		TotalCents:      b.Total.Cents,
		Categories:      make([]categoryTotalResponse, 0, len(b.Categories)),
	}
	for _, c := range b.Categories {
		resp.Categories = append(resp.Categories, categoryTotalResponse{
			Category:    c.Category,
			Amount:      c.Value.String(),
			AmountCents: c.Value.Cents,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDrillDown(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseSpendOptions(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpDrillDown, err)
		return
	}
	category, err := core.ParseCategory(r.PathValue("category"))
	if err != nil {
		writeError(w, r, log.OpDrillDown, err)
		return
	}

	items, err := s.drillDown(r.Context(), category, opts)
	if err != nil {
		writeError(w, r, log.OpDrillDown, err)
		return
	}

	resp := drillDownResponse{
		View:     opts.View,
		Window:   windowLabel(opts),
		Category: category,
		Items:    make([]contributionResponse, 0, len(items)),
	}
	var total core.Money
	for _, c := range items {
		total = total.Add(c.Amount)
		resp.Items = append(resp.Items, contributionResponse{
			Kind:        c.Kind,
			ID:          c.ID(),
			Name:        c.Name(),
			Amount:      c.Amount.String(),
			AmountCents: c.Amount.Cents,
		})
	}
	resp.Total = total.String()
	resp.TotalCents = total.Cents
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	p, err := ParseUpcomingParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, "upcoming", err)
		return
	}

	charges, err := s.spend.Upcoming(r.Context(), p.From, p.Days, p.IncludeWishlist)
	if err != nil {
		writeError(w, r, "upcoming", err)
		return
	}

	resp := upcomingResponse{
		From:    p.From.String(),
		Days:    p.Days,
		Charges: make([]upcomingChargeResponse, 0, len(charges)),
	}
	var total core.Money
	for _, c := range charges {
		total = total.Add(c.Amount)
		resp.Charges = append(resp.Charges, upcomingChargeFrom(c))
	}
	resp.Total = total.String()
	resp.TotalCents = total.Cents
	writeJSON(w, http.StatusOK, resp)
}

func upcomingChargeFrom(c services.UpcomingCharge) upcomingChargeResponse {
	return upcomingChargeResponse{
		Date:           c.Date.String(),
		SubscriptionID: c.Subscription.ID,
		Name:           c.Subscription.Name,
		Category:       c.Subscription.Category.Normalize(),
		BillingType:    string(c.Subscription.BillingType),
		Amount:         c.Amount.String(),
		AmountCents:    c.Amount.Cents,
	}
}

// breakdown serves Aggregate results from cache when possible.
func (s *Server) breakdown(ctx context.Context, opts spend.Options) (spend.Breakdown, error) {
	key := opts.Key()
	if b, ok := s.breakdownCache.Get(key); ok {
		log.FromContext(ctx).DebugContext(ctx, "Breakdown cache hit", "key", key)
		return b, nil
	}

	gen := s.caches.Generation()
	b, err := s.spend.Aggregate(ctx, opts)
	if err != nil {
		return spend.Breakdown{}, err
	}
	if !s.caches.StoreIfCurrent(gen, func() { s.breakdownCache.Set(key, b) }) {
		log.FromContext(ctx).DebugContext(ctx, "Records changed during aggregation, result not cached", "key", key)
	}
	return b, nil
}

func (s *Server) drillDown(ctx context.Context, category core.Category, opts spend.Options) ([]spend.Contribution, error) {
	key := string(category) + "|" + opts.Key()
	if items, ok := s.drillCache.Get(key); ok {
		log.FromContext(ctx).DebugContext(ctx, "Drill-down cache hit", "key", key)
		out := make([]spend.Contribution, len(items))
		copy(out, items)
		return out, nil
	}

	gen := s.caches.Generation()
	items, err := s.spend.DrillDown(ctx, string(category), opts)
	if err != nil {
		return nil, err
	}
	if !s.caches.StoreIfCurrent(gen, func() {
		s.drillCache.Set(key, append([]spend.Contribution(nil), items...))
	}) {
		log.FromContext(ctx).DebugContext(ctx, "Records changed during drill-down, result not cached", "key", key)
	}
	return items, nil
}

func windowLabel(opts spend.Options) string {
	if opts.View != spend.ViewMonthly {
		return spend.Window{Year: opts.Window.Year}.String()
	}
	return opts.Window.String()
}

// Subscriptions

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.store.ListSubscriptions(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]records.SubscriptionRecord, 0, len(subs))
	for _, sub := range subs {
		out = append(out, records.SubscriptionRecordFrom(sub))
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": out})
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.store.GetSubscription(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, records.SubscriptionRecordFrom(sub))
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var rec records.SubscriptionRecord
	if err := decodeJSONBody(w, r, &rec); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	rec.ID = ""
	sub, err := rec.ToCore()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.writer.CreateSubscription(r.Context(), sub)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	s.invalidate()
	s.logRecord(r, "Subscription created", log.OpCreate, "subscription", created.ID, created.Name, created.Amount.Cents)

	w.Header().Set("Location", "/api/subscriptions/"+created.ID)
	writeJSON(w, http.StatusCreated, records.SubscriptionRecordFrom(created))
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var rec records.SubscriptionRecord
	if err := decodeJSONBody(w, r, &rec); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	rec.ID = r.PathValue("id")
	sub, err := rec.ToCore()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	updated, err := s.writer.UpdateSubscription(r.Context(), sub)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	s.invalidate()
	s.logRecord(r, "Subscription updated", log.OpUpdate, "subscription", updated.ID, updated.Name, updated.Amount.Cents)
	writeJSON(w, http.StatusOK, records.SubscriptionRecordFrom(updated))
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.writer.DeleteSubscription(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	s.invalidate()
	s.logRecord(r, "Subscription deleted", log.OpDelete, "subscription", id, "", 0)
	w.WriteHeader(http.StatusNoContent)
}

// One-time items

func (s *Server) handleListOneTimeItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListOneTimeItems(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]records.OneTimeItemRecord, 0, len(items))
	for _, item := range items {
		out = append(out, records.OneTimeItemRecordFrom(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"one_time_items": out})
}

func (s *Server) handleGetOneTimeItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.GetOneTimeItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, records.OneTimeItemRecordFrom(item))
}

func (s *Server) handleCreateOneTimeItem(w http.ResponseWriter, r *http.Request) {
	var rec records.OneTimeItemRecord
	if err := decodeJSONBody(w, r, &rec); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	rec.ID = ""
	item, err := rec.ToCore()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.writer.CreateOneTimeItem(r.Context(), item)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	s.invalidate()
	s.logRecord(r, "One-time item created", log.OpCreate, "one_time_item", created.ID, created.Name, created.Amount.Cents)

	w.Header().Set("Location", "/api/one-time-items/"+created.ID)
	writeJSON(w, http.StatusCreated, records.OneTimeItemRecordFrom(created))
}

func (s *Server) handleUpdateOneTimeItem(w http.ResponseWriter, r *http.Request) {
	var rec records.OneTimeItemRecord
	if err := decodeJSONBody(w, r, &rec); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	rec.ID = r.PathValue("id")
	item, err := rec.ToCore()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	updated, err := s.writer.UpdateOneTimeItem(r.Context(), item)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	s.invalidate()
	s.logRecord(r, "One-time item updated", log.OpUpdate, "one_time_item", updated.ID, updated.Name, updated.Amount.Cents)
	writeJSON(w, http.StatusOK, records.OneTimeItemRecordFrom(updated))
}

func (s *Server) handleDeleteOneTimeItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.writer.DeleteOneTimeItem(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	s.invalidate()
	s.logRecord(r, "One-time item deleted", log.OpDelete, "one_time_item", id, "", 0)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logRecord(r *http.Request, msg, op, kind, id, name string, amountCents int64) {
	fields := log.NewFields().
		WithOperation(op).
		WithRecord(kind, id, name, amountCents)
	log.FromContext(r.Context()).WithComponent(log.ComponentRecords).InfoContext(r.Context(), msg, fields.ToSlice()...)
}
