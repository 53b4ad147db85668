// Package cache holds an in-process LRU and a read-through cache for expense
// backends.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"budgetdash/internal/core"
	applog "budgetdash/internal/log"
	"budgetdash/internal/store"
)

const listKey = "expenses"

// Backend caches List results of the wrapped backend. Any successful write
// invalidates the cached collection.
type Backend struct {
	next   store.Backend
	lru    *LRU[[]core.Expense]
	group  singleflight.Group
	logger *applog.Logger
}

var _ store.Backend = (*Backend)(nil)

func NewBackend(next store.Backend, ttl time.Duration, logger *applog.Logger) *Backend {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Backend{
		next:   next,
		lru:    NewLRU[[]core.Expense](1, ttl),
		logger: logger.WithComponent(applog.ComponentCache),
	}
}

func (b *Backend) List(ctx context.Context) ([]core.Expense, error) {
	if v, ok := b.lru.Get(listKey); ok {
		return clone(v), nil
	}
	v, err, _ := b.group.Do(listKey, func() (any, error) {
		list, err := b.next.List(ctx)
		if err != nil {
			return nil, err
		}
		b.lru.Set(listKey, list)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]core.Expense)), nil
}

func (b *Backend) Append(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	rec, err := b.next.Append(ctx, e)
	if err == nil {
		b.invalidate(ctx)
	}
	return rec, err
}

func (b *Backend) Delete(ctx context.Context, id string) error {
	err := b.next.Delete(ctx, id)
	if err == nil {
		b.invalidate(ctx)
	}
	return err
}

func (b *Backend) invalidate(ctx context.Context) {
	b.lru.Delete(listKey)
	b.group.Forget(listKey)
	b.logger.DebugContext(ctx, "Expense list cache invalidated")
}

// CleanExpired lets a Manager sweep the backend's entries.
func (b *Backend) CleanExpired() int {
	return b.lru.CleanExpired()
}

func (b *Backend) Stats() (hits, misses int64) {
	return b.lru.Stats()
}

func clone(in []core.Expense) []core.Expense {
	return append([]core.Expense(nil), in...)
}

// Cleaner is implemented by caches with expiring entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries from registered caches.
type Manager struct {
	mu     sync.Mutex
	caches []Cleaner
	logger *applog.Logger
	stop   chan struct{}
	done   chan struct{}
}

func NewManager(logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Manager{logger: logger.WithComponent(applog.ComponentCache)}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// Sweep runs one cleanup pass and returns the number of evicted entries.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// StartCleanup sweeps every interval until Stop is called.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.logger.Debug("Expired cache entries removed", applog.FieldCount, n)
				}
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *Manager) Stop() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop = nil
}
