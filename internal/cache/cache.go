// Package cache holds resolved API key records in a durable store so that
// repeat invocations skip the full key listing scan.
//
// Entries expire passively: an entry older than the configured max age is
// ignored on read and overwritten by the next successful resolution. Nothing
// is ever deleted.
package cache

import (
	"context"
	"time"

	"github.com/rajasatyajit/apikey-authorizer/internal/keys"
	"github.com/rajasatyajit/apikey-authorizer/internal/metrics"
)

// Entry is one cached key record and the epoch second it was written
type Entry struct {
	Record    keys.Record
	Timestamp int64
}

// Store is a point get/put store keyed by the key value. Get reports
// found=false for a missing entry; errors are reserved for I/O failures.
type Store interface {
	Get(ctx context.Context, value string) (Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	Health(ctx context.Context) error
}

// Cache applies the max-age policy on top of a Store
type Cache struct {
	store  Store
	maxAge int64
}

// New creates a cache. maxAge is in seconds; maxAge <= 0 disables caching
// and the store is never touched (store may then be nil).
func New(store Store, maxAge int) *Cache {
	return &Cache{store: store, maxAge: int64(maxAge)}
}

// Enabled reports whether lookups consult the store
func (c *Cache) Enabled() bool {
	return c != nil && c.maxAge > 0 && c.store != nil
}

// Get returns the cached record for value if it was written no more than
// maxAge seconds before now.
func (c *Cache) Get(ctx context.Context, value string, now time.Time) (keys.Record, bool, error) {
	if !c.Enabled() {
		metrics.RecordCacheLookup(metrics.CacheDisabled)
		return keys.Record{}, false, nil
	}

	entry, found, err := c.store.Get(ctx, value)
	if err != nil {
		metrics.RecordCacheLookup(metrics.CacheError)
		return keys.Record{}, false, err
	}
	if !found {
		metrics.RecordCacheLookup(metrics.CacheMiss)
		return keys.Record{}, false, nil
	}
	if now.Unix()-entry.Timestamp > c.maxAge {
		metrics.RecordCacheLookup(metrics.CacheExpired)
		return keys.Record{}, false, nil
	}

	metrics.RecordCacheLookup(metrics.CacheHit)
	return entry.Record, true, nil
}

// Put writes rec stamped with now, replacing any previous entry for its value
func (c *Cache) Put(ctx context.Context, rec keys.Record, now time.Time) error {
	if !c.Enabled() {
		return nil
	}
	return c.store.Put(ctx, Entry{Record: rec, Timestamp: now.Unix()})
}

// Health checks the backing store; a disabled cache is always healthy
func (c *Cache) Health(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.store.Health(ctx)
}
