package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/records"
)

// Store keeps records in process memory. It is used by the memory backend and
// as a fake in tests.
type Store struct {
	mu    sync.Mutex
	subs  []core.Subscription
	items []core.OneTimeItem
}

func New() *Store {
	return &Store{}
}

// NewWithRecords seeds a store. Records without an ID get one.
func NewWithRecords(subs []core.Subscription, items []core.OneTimeItem) *Store {
	s := &Store{}
	for _, sub := range subs {
		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
		s.subs = append(s.subs, sub)
	}
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		s.items = append(s.items, it)
	}
	return s
}

// ListSubscriptions returns a copy ordered by name then ID.
func (s *Store) ListSubscriptions(_ context.Context) ([]core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Subscription(nil), s.subs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListOneTimeItems(_ context.Context) ([]core.OneTimeItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.OneTimeItem(nil), s.items...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateSubscription(_ context.Context, sub core.Subscription) (core.Subscription, error) {
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.Category = sub.Category.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasSubscription(sub.ID) {
		return core.Subscription{}, fmt.Errorf("subscription %s: %w", sub.ID, records.ErrDuplicateID)
	}
	s.subs = append(s.subs, sub)
	return sub, nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub core.Subscription) (core.Subscription, error) {
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}
	sub.Category = sub.Category.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subs {
		if s.subs[i].ID == sub.ID {
			s.subs[i] = sub
			return sub, nil
		}
	}
	return core.Subscription{}, records.ErrNotFound
}

func (s *Store) DeleteSubscription(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subs {
		if s.subs[i].ID == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return nil
		}
	}
	return records.ErrNotFound
}

func (s *Store) GetSubscription(_ context.Context, id string) (core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.ID == id {
			return sub, nil
		}
	}
	return core.Subscription{}, records.ErrNotFound
}

func (s *Store) CreateOneTimeItem(_ context.Context, it core.OneTimeItem) (core.OneTimeItem, error) {
	if err := it.Validate(); err != nil {
		return core.OneTimeItem{}, err
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	it.Category = it.Category.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasItem(it.ID) {
		return core.OneTimeItem{}, fmt.Errorf("one-time item %s: %w", it.ID, records.ErrDuplicateID)
	}
	s.items = append(s.items, it)
	return it, nil
}

func (s *Store) UpdateOneTimeItem(_ context.Context, it core.OneTimeItem) (core.OneTimeItem, error) {
	if err := it.Validate(); err != nil {
		return core.OneTimeItem{}, err
	}
	it.Category = it.Category.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == it.ID {
			s.items[i] = it
			return it, nil
		}
	}
	return core.OneTimeItem{}, records.ErrNotFound
}

func (s *Store) DeleteOneTimeItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return records.ErrNotFound
}

func (s *Store) GetOneTimeItem(_ context.Context, id string) (core.OneTimeItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, nil
		}
	}
	return core.OneTimeItem{}, records.ErrNotFound
}

// ImportRecords stores every record or, when any is invalid or reuses a
// taken ID, none of them.
func (s *Store) ImportRecords(_ context.Context, subs []core.Subscription, items []core.OneTimeItem) error {
	newSubs := make([]core.Subscription, 0, len(subs))
	for _, sub := range subs {
		if err := sub.Validate(); err != nil {
			return fmt.Errorf("subscription %q: %w", sub.Name, err)
		}
		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
		sub.Category = sub.Category.Normalize()
		newSubs = append(newSubs, sub)
	}
	newItems := make([]core.OneTimeItem, 0, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("one-time item %q: %w", it.Name, err)
		}
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.Category = it.Category.Normalize()
		newItems = append(newItems, it)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(newSubs))
	for _, sub := range newSubs {
		if seen[sub.ID] || s.hasSubscription(sub.ID) {
			return fmt.Errorf("subscription %s: %w", sub.ID, records.ErrDuplicateID)
		}
		seen[sub.ID] = true
	}
	seen = make(map[string]bool, len(newItems))
	for _, it := range newItems {
		if seen[it.ID] || s.hasItem(it.ID) {
			return fmt.Errorf("one-time item %s: %w", it.ID, records.ErrDuplicateID)
		}
		seen[it.ID] = true
	}
	s.subs = append(s.subs, newSubs...)
	s.items = append(s.items, newItems...)
	return nil
}

// hasSubscription and hasItem expect s.mu to be held.
func (s *Store) hasSubscription(id string) bool {
	for _, sub := range s.subs {
		if sub.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) hasItem(id string) bool {
	for _, it := range s.items {
		if it.ID == id {
			return true
		}
	}
	return false
}

var _ records.Store = (*Store)(nil)
