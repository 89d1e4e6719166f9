package storage

import (
	"context"
	"sync"

	"github.com/alihassan4198-tech/repricer/internal/domain"
	"github.com/alihassan4198-tech/repricer/internal/ports"
)

// MemoryStore keeps records in process memory; used by tests and the memory driver.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.Record
}

var _ ports.ObservationStore = (*MemoryStore)(nil)

// NewMemoryStore returns a store seeded with the given records.
func NewMemoryStore(seed ...domain.Record) *MemoryStore {
	return &MemoryStore{records: append([]domain.Record(nil), seed...)}
}

// Append adds a record at the end of the log.
func (s *MemoryStore) Append(_ context.Context, record domain.Record) error {
	if record.Observation == nil && record.Audit == nil {
		return errEmptyRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Read returns the records matching q in insertion order.
func (s *MemoryStore) Read(_ context.Context, q ports.Query) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Record, 0, len(s.records))
	for _, rec := range s.records {
		if q.ProductID != "" && rec.ProductID() != q.ProductID {
			continue
		}
		if !q.Since.IsZero() && rec.Time().Before(q.Since) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Len reports how many records were appended.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
