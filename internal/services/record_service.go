package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/records"
)

// ChangePublisher announces record changes to other processes.
type ChangePublisher interface {
	PublishRecordChanged(ctx context.Context, kind, id, op string) error
}

// RecordService validates and persists records, then announces each change.
// Publishing is best effort: a stored record is never rolled back because the
// announcement failed.
type RecordService struct {
	store     records.Store
	publisher ChangePublisher
}

// NewRecordService builds a service over store. publisher may be nil.
func NewRecordService(store records.Store, publisher ChangePublisher) *RecordService {
	return &RecordService{store: store, publisher: publisher}
}

func (s *RecordService) CreateSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}
	created, err := s.store.CreateSubscription(ctx, sub)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("save subscription: %w", err)
	}
	s.changed(ctx, amqp.KindSubscription, created.ID, amqp.OpCreated)
	return created, nil
}

func (s *RecordService) UpdateSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	if sub.ID == "" {
		return core.Subscription{}, records.ErrNotFound
	}
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}
	updated, err := s.store.UpdateSubscription(ctx, sub)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}
	s.changed(ctx, amqp.KindSubscription, updated.ID, amqp.OpUpdated)
	return updated, nil
}

func (s *RecordService) DeleteSubscription(ctx context.Context, id string) error {
	if err := s.store.DeleteSubscription(ctx, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	s.changed(ctx, amqp.KindSubscription, id, amqp.OpDeleted)
	return nil
}

func (s *RecordService) CreateOneTimeItem(ctx context.Context, item core.OneTimeItem) (core.OneTimeItem, error) {
	if err := item.Validate(); err != nil {
		return core.OneTimeItem{}, err
	}
	created, err := s.store.CreateOneTimeItem(ctx, item)
	if err != nil {
		return core.OneTimeItem{}, fmt.Errorf("save one-time item: %w", err)
	}
	s.changed(ctx, amqp.KindOneTimeItem, created.ID, amqp.OpCreated)
	return created, nil
}

func (s *RecordService) UpdateOneTimeItem(ctx context.Context, item core.OneTimeItem) (core.OneTimeItem, error) {
	if item.ID == "" {
		return core.OneTimeItem{}, records.ErrNotFound
	}
	if err := item.Validate(); err != nil {
		return core.OneTimeItem{}, err
	}
	updated, err := s.store.UpdateOneTimeItem(ctx, item)
	if err != nil {
		return core.OneTimeItem{}, fmt.Errorf("update one-time item: %w", err)
	}
	s.changed(ctx, amqp.KindOneTimeItem, updated.ID, amqp.OpUpdated)
	return updated, nil
}

func (s *RecordService) DeleteOneTimeItem(ctx context.Context, id string) error {
	if err := s.store.DeleteOneTimeItem(ctx, id); err != nil {
		return fmt.Errorf("delete one-time item: %w", err)
	}
	s.changed(ctx, amqp.KindOneTimeItem, id, amqp.OpDeleted)
	return nil
}

// ImportResult counts what an import stored.
type ImportResult struct {
	Subscriptions int
	OneTimeItems  int
}

// Import validates every record before storing any, so a bad file stores
// nothing. IDs must be unique within the batch and must not already be
// stored. A single change message is published for the whole batch.
func (s *RecordService) Import(ctx context.Context, subs []core.Subscription, items []core.OneTimeItem) (ImportResult, error) {
	var errs []error
	subIDs := make(map[string]int, len(subs))
	for i, sub := range subs {
		if err := sub.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("subscription %d (%q): %w", i+1, sub.Name, err))
		}
		if err := checkBatchID(subIDs, sub.ID, i+1); err != nil {
			errs = append(errs, fmt.Errorf("subscription %d (%q): %w", i+1, sub.Name, err))
		}
	}
	itemIDs := make(map[string]int, len(items))
	for i, item := range items {
		if err := item.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("one-time item %d (%q): %w", i+1, item.Name, err))
		}
		if err := checkBatchID(itemIDs, item.ID, i+1); err != nil {
			errs = append(errs, fmt.Errorf("one-time item %d (%q): %w", i+1, item.Name, err))
		}
	}
	if len(errs) > 0 {
		return ImportResult{}, errors.Join(errs...)
	}

	if err := s.store.ImportRecords(ctx, subs, items); err != nil {
		return ImportResult{}, fmt.Errorf("import records: %w", err)
	}
	res := ImportResult{Subscriptions: len(subs), OneTimeItems: len(items)}

	if res.Subscriptions+res.OneTimeItems > 0 {
		s.changed(ctx, amqp.KindBatch, "", amqp.OpImported)
	}
	slog.InfoContext(ctx, "Records imported",
		"subscriptions", res.Subscriptions,
		"one_time_items", res.OneTimeItems)
	return res, nil
}

// checkBatchID records id at position pos in seen and fails when an earlier
// record already used it. Empty IDs are assigned by the store.
func checkBatchID(seen map[string]int, id string, pos int) error {
	if id == "" {
		return nil
	}
	if first, ok := seen[id]; ok {
		return fmt.Errorf("id %s also used by record %d: %w", id, first, records.ErrDuplicateID)
	}
	seen[id] = pos
	return nil
}

func (s *RecordService) changed(ctx context.Context, kind, id, op string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping change message", "kind", kind, "id", id)
		return
	}
	if err := s.publisher.PublishRecordChanged(ctx, kind, id, op); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record changed message",
			"kind", kind,
			"id", id,
			"op", op,
			"error", err)
	}
}
