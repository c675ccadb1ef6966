// internal/store/memory.go
//
// In-memory implementation of Store.
//
// Characteristics:
//   - Stores Records keyed by ID in a map; values are copied in and out.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-memory map-based Store implementation.
type Memory struct {
	mu      sync.RWMutex      // guards records
	records map[string]Record // keyed by Record.ID
	now     func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() *Memory {
	return &Memory{records: make(map[string]Record), now: time.Now}
}

// SetClock replaces the time source used to stamp UpdatedAt.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Upsert adds or replaces the record.
func (m *Memory) Upsert(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.UpdatedAt = m.now().UTC()
	rec.Words = copyWords(rec.Words)
	m.records[rec.ID] = rec
	return nil
}

// Get looks up a record by ID.
func (m *Memory) Get(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Words = copyWords(rec.Words)
	return &rec, nil
}

// CodeExists scans for any record with the code.
func (m *Memory) CodeExists(ctx context.Context, code int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.GameCode == code {
			return true, nil
		}
	}
	return false, nil
}

// DeleteOlderThan drops records stamped before cutoff.
func (m *Memory) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, rec := range m.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// Len reports how many records are held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func copyWords(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
