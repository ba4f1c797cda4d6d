package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps reports in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	reports []*Report
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveReport(ctx context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

// RecentReports walks the archive from the newest insert backwards.
func (s *MemoryStore) RecentReports(ctx context.Context, pkg string, limit int) ([]*Report, error) {
	limit = normalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*Report{}
	for i := len(s.reports) - 1; i >= 0 && len(out) < limit; i-- {
		if pkg == "" || s.reports[i].Package == pkg {
			out = append(out, s.reports[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
