package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"sjsage522/pricewatcher/internal/model"
)

// Memory is an in-process Store for development and tests
type Memory struct {
	mu      sync.RWMutex
	targets map[string]model.Target
	order   []string
	history map[string][]model.HistoryRecord
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{
		targets: make(map[string]model.Target),
		history: make(map[string][]model.HistoryRecord),
	}
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func (m *Memory) Create(_ context.Context, t model.Target) (model.Target, error) {
	if err := validateTarget(t); err != nil {
		return model.Target{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, exists := m.targets[t.ID]; !exists {
		m.order = append(m.order, t.ID)
	}
	m.targets[t.ID] = t
	return t, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.targets[id]; !ok {
		return ErrNotFound
	}
	delete(m.targets, id)
	delete(m.history, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) FindAll(_ context.Context, filter model.Filter) ([]model.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	targets := make([]model.Target, 0, len(m.order))
	for _, id := range m.order {
		t := m.targets[id]
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func (m *Memory) UpdateSnapshot(_ context.Context, id string, s model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.targets[id]
	if !ok {
		return ErrNotFound
	}
	checkedAt := s.CheckedAt
	t.Title = s.Title
	t.Price = s.Price
	t.Currency = s.Currency
	t.ImageURL = s.ImageURL
	t.URL = s.URL
	t.LastCheckedAt = &checkedAt
	m.targets[id] = t
	return nil
}

func (m *Memory) AppendHistory(_ context.Context, t model.Target, s model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[t.ID] = append(m.history[t.ID], model.NewHistoryRecord(uuid.NewString(), t, s))
	return nil
}

// History returns the newest records first
func (m *Memory) History(_ context.Context, targetID string, limit int) ([]model.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := append([]model.HistoryRecord(nil), m.history[targetID]...)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CheckedAt.After(records[j].CheckedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
