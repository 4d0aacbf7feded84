package storage

import (
	"context"
	"sync"

	"newsdigest/internal/types"
)

// Memory keeps history in process. It backs the "memory" storage type and tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]types.ProcessedRecord
	order   []string
}

func NewMemory(records ...types.ProcessedRecord) *Memory {
	m := &Memory{records: make(map[string]types.ProcessedRecord)}
	for _, r := range records {
		if _, ok := m.records[r.ID]; !ok {
			m.records[r.ID] = r
			m.order = append(m.order, r.ID)
		}
	}
	return m
}

func (m *Memory) ExistsBatch(_ context.Context, ids []string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := m.records[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

func (m *Memory) InsertBatch(_ context.Context, records []types.ProcessedRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, r := range records {
		if _, ok := m.records[r.ID]; ok {
			continue
		}
		m.records[r.ID] = r
		m.order = append(m.order, r.ID)
		inserted++
	}
	return inserted, nil
}

// Records returns stored records in insertion order.
func (m *Memory) Records() []types.ProcessedRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.ProcessedRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out
}

func (m *Memory) Close(context.Context) error {
	return nil
}
