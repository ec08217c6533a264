package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
)

// Memory — in-memory реализация Store.
//
// Используется в тестах и для dry-run команд CLI. Семантика полностью
// совпадает с Postgres-реализацией, включая детерминированный порядок
// List (по id).
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record

	// FailCreate / FailUpdate — инъекция отказа записи для тестов
	// CREATE_FAILED/UPDATE_FAILED путей. Возвращаемая ошибка — err.
	FailCreate func(rec Record) error
	FailUpdate func(rec Record) error
}

// NewMemory создаёт пустой Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Get возвращает запись по id.
func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := rec
	return &cp, nil
}

// Create создаёт запись.
func (m *Memory) Create(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreate != nil {
		if err := m.FailCreate(rec); err != nil {
			return err
		}
	}
	if _, ok := m.records[rec.ID]; ok {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records[rec.ID] = rec
	return nil
}

// Update перезаписывает payload существующей записи.
func (m *Memory) Update(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpdate != nil {
		if err := m.FailUpdate(rec); err != nil {
			return err
		}
	}
	existing, ok := m.records[rec.ID]
	if !ok || existing.Kind != rec.Kind {
		return ErrNotFound
	}
	existing.Payload = rec.Payload
	existing.UpdatedAt = time.Now().UTC()
	m.records[rec.ID] = existing
	return nil
}

// List возвращает записи kind в порядке id.
func (m *Memory) List(_ context.Context, kind domain.Kind, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recs []Record
	for _, rec := range m.records {
		if rec.Kind == kind {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}
