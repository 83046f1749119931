package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NicolasHaas/mutetool/pkg/model"
)

// MemoryStore is an in-memory Store for tests. It mirrors the SQLite
// store's validation.
type MemoryStore struct {
	mu     sync.RWMutex
	now    func() time.Time
	nextID int64
	events []model.Event
}

// NewMemory creates a MemoryStore using time.Now().
func NewMemory() *MemoryStore {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock creates a MemoryStore with a custom clock.
func NewMemoryWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, nextID: 1}
}

func (m *MemoryStore) Append(_ context.Context, e *model.Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now()
	}
	e.ID = m.nextID
	m.nextID++
	m.events = append(m.events, *e)
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, limit int) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Event
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *MemoryStore) Prune(_ context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	if len(m.events) <= keep {
		return 0, nil
	}
	n := len(m.events) - keep
	m.events = append([]model.Event(nil), m.events[n:]...)
	return int64(n), nil
}

func (m *MemoryStore) Close() error { return nil }
