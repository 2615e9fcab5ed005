package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge() int
	Size() int
}

// Entry is what the Manager needs from a registered cache.
type Entry interface {
	CleanExpired() int
	Purge() int
}

// Manager runs periodic expiry for registered caches and purges them all
// when the underlying records change.
//
// Results computed from records read before a purge must not be stored after
// it. Callers read Generation before loading and store through
// StoreIfCurrent.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Entry
	wg     sync.WaitGroup
	cancel context.CancelFunc

	purgeMu sync.RWMutex
	gen     uint64
}

func NewManager() *Manager {
	return &Manager{caches: make(map[string]Entry)}
}

// Register adds a cache under name.
func (m *Manager) Register(name string, c Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

func (m *Manager) entries() map[string]Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Entry, len(m.caches))
	for k, v := range m.caches {
		out[k] = v
	}
	return out
}

// Generation changes on every PurgeAll.
func (m *Manager) Generation() uint64 {
	m.purgeMu.RLock()
	defer m.purgeMu.RUnlock()
	return m.gen
}

// StoreIfCurrent calls store unless a purge has happened since gen was read,
// and reports whether it did. No purge runs while store is executing.
func (m *Manager) StoreIfCurrent(gen uint64, store func()) bool {
	m.purgeMu.RLock()
	defer m.purgeMu.RUnlock()
	if m.gen != gen {
		return false
	}
	store()
	return true
}

// PurgeAll empties every registered cache and returns the number of entries dropped.
func (m *Manager) PurgeAll() int {
	m.purgeMu.Lock()
	defer m.purgeMu.Unlock()
	m.gen++

	total := 0
	for name, c := range m.entries() {
		n := c.Purge()
		if n > 0 {
			slog.Debug("Cache purged", "cache", name, "entries", n)
		}
		total += n
	}
	return total
}

// StartCleanup removes expired entries every interval until ctx is done or
// Stop is called.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cleaned := 0
				for _, c := range m.entries() {
					cleaned += c.CleanExpired()
				}
				if cleaned > 0 {
					slog.Debug("Expired cache entries removed", "count", cleaned)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the cleanup loop and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}
