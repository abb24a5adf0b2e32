package employee

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store for development and the CLI. It
// follows the repository's upsert rules.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]Record
	order []string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Record)}
}

func (m *MemoryStore) Upsert(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, exists := m.byID[rec.EmployeeID]
	if !exists {
		m.order = append(m.order, rec.EmployeeID)
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
	} else {
		rec.ID = prev.ID
		if rec.Photo == nil {
			rec.Photo = prev.Photo
		}
	}
	rec.UpdatedAt = time.Now().UTC()
	m.byID[rec.EmployeeID] = rec.Clone()
	return rec, nil
}

func (m *MemoryStore) SetPhoto(_ context.Context, employeeID string, asset PhotoAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[employeeID]
	if !ok {
		return ErrNotFound
	}
	rec.Photo = &asset
	rec.UpdatedAt = time.Now().UTC()
	m.byID[employeeID] = rec.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, employeeID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[employeeID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

// List returns employees in insertion order.
func (m *MemoryStore) List(_ context.Context, limit, offset int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	if offset > len(m.order) {
		offset = len(m.order)
	}
	ids := m.order[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.byID[id].Clone())
	}
	return out, nil
}

// Records implements Source.
func (m *MemoryStore) Records(_ context.Context, employeeIDs []string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(employeeIDs) == 0 {
		employeeIDs = m.order
	}
	return orderByIDs(m.byID, employeeIDs)
}
