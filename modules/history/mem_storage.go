package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStorage is an in-process Storage for tests.
type MemStorage struct {
	mu    sync.Mutex
	scans []Scan
}

// NewMemStorage creates an empty in-memory storage.
func NewMemStorage() *MemStorage {
	return &MemStorage{}
}

func (m *MemStorage) Insert(_ context.Context, scan *Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans = append(m.scans, *scan)
	return nil
}

func (m *MemStorage) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Scan
	for _, sc := range m.scans {
		if sc.UserID == userID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStorage) CountSince(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, sc := range m.scans {
		if sc.UserID == userID && !sc.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
