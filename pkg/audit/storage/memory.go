package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/underwriter/pkg/audit"
)

// MemoryStorage keeps decision records in memory. It is used in tests and
// when audit.backend is "memory".
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*audit.DecisionRecord
	closed  bool
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store implements audit.Storage.
func (m *MemoryStorage) Store(ctx context.Context, record *audit.DecisionRecord) error {
	if err := ctx.Err(); err != nil {
		return audit.NewStorageError("memory", "store", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return audit.NewStorageError("memory", "store", errClosed)
	}
	cp := *record
	m.records = append(m.records, &cp)
	return nil
}

// Get implements audit.Storage.
func (m *MemoryStorage) Get(_ context.Context, id string) (*audit.DecisionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, audit.ErrNotFound
}

// Query implements audit.Storage.
func (m *MemoryStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.DecisionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, audit.NewStorageError("memory", "query", err)
	}
	matched := m.filter(q)

	asc := q != nil && q.SortOrder == audit.SortAsc
	sort.SliceStable(matched, func(i, j int) bool {
		if asc {
			return matched[i].RecordedAt.Before(matched[j].RecordedAt)
		}
		return matched[i].RecordedAt.After(matched[j].RecordedAt)
	})

	if q != nil && q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []*audit.DecisionRecord{}, nil
		}
		matched = matched[q.Offset:]
	}
	limit := defaultLimit
	if q != nil && q.Limit > 0 {
		limit = q.Limit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Count implements audit.Storage.
func (m *MemoryStorage) Count(_ context.Context, q *audit.Query) (int64, error) {
	return int64(len(m.filter(q))), nil
}

// Delete implements audit.Storage.
func (m *MemoryStorage) Delete(_ context.Context, q *audit.Query) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	var deleted int64
	for _, r := range m.records {
		if q.Matches(r) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return deleted, nil
}

// Ping implements audit.Storage.
func (m *MemoryStorage) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}
	return nil
}

// Close implements audit.Storage.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStorage) filter(q *audit.Query) []*audit.DecisionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*audit.DecisionRecord, 0, len(m.records))
	for _, r := range m.records {
		if q.Matches(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}
