package store

import (
	"context"
	"sync"
	"time"

	"github.com/wrenlabs/popsign/ports"
)

// MemoryStore is an in-memory implementation of the Store interface,
// primarily intended for single-process hosts and tests.
type MemoryStore struct {
	prefix string

	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store scoped by the given namespace
// prefix.
func NewMemoryStore(prefix string) ports.Store {
	return &MemoryStore{
		prefix:  prefix,
		records: make(map[string]memoryRecord),
	}
}

func (s *MemoryStore) key() string {
	return s.prefix + "session"
}

// Load retrieves the session record.
func (s *MemoryStore) Load(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[s.key()]
	if !ok {
		return "", ports.ErrNotFound
	}
	if !rec.expiresAt.IsZero() && time.Now().After(rec.expiresAt) {
		return "", ports.ErrNotFound
	}
	return rec.value, nil
}

// Save stores the session record, overwriting any previous one.
func (s *MemoryStore) Save(ctx context.Context, record string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := memoryRecord{value: record}
	if ttl > 0 {
		rec.expiresAt = time.Now().Add(ttl)
	}
	s.records[s.key()] = rec
	return nil
}

// Clear removes the session record.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, s.key())
	return nil
}
