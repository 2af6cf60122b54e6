package cache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory. It only lives as long as the
// process, so it suits local runs and warm Lambda containers.
type MemoryStore struct {
	entries *gocache.Cache
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	// Expiry is decided by Cache from the entry timestamp, not by go-cache.
	return &MemoryStore{entries: gocache.New(gocache.NoExpiration, 0)}
}

func (s *MemoryStore) Get(ctx context.Context, value string) (Entry, bool, error) {
	v, ok := s.entries.Get(value)
	if !ok {
		return Entry{}, false, nil
	}
	return v.(Entry), true, nil
}

func (s *MemoryStore) Put(ctx context.Context, entry Entry) error {
	s.entries.Set(entry.Record.Value, entry, gocache.NoExpiration)
	return nil
}

func (s *MemoryStore) Health(ctx context.Context) error {
	return nil
}

// Len returns the number of stored entries
func (s *MemoryStore) Len() int {
	return s.entries.ItemCount()
}
