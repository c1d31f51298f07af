package validation

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// cacheEntry is either a materialized identifier set or a too-large marker.
// Entries are immutable once stored.
type cacheEntry struct {
	ids      []string // sorted; nil when tooLarge
	tooLarge bool
	count    int
}

// ReferenceCache maps entity types to materialized identifier sets below the
// size limit and to too-large markers above it. The cache is owned by one
// batch run's coordinator but may be shared across concurrent runs, so all
// access is mutex-guarded. Population is idempotent: racing populations of
// the same entity type store the same entry. Entries are never refreshed, so
// records created after population are not visible within the run.
type ReferenceCache struct {
	store EntityStore
	limit int

	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

// NewReferenceCache builds an empty cache over the backing store. limit is
// the largest record count that still gets materialized.
func NewReferenceCache(store EntityStore, limit int) *ReferenceCache {
	if limit <= 0 {
		limit = DefaultCacheLimit
	}
	return &ReferenceCache{
		store:   store,
		limit:   limit,
		entries: make(map[string]*cacheEntry),
	}
}

// Prefetch ensures an entry exists for the entity type. It counts the backing
// records and materializes the full identifier set when the count is within
// the limit, otherwise it records a too-large marker so later lookups query
// the store directly. Prefetching an already-known entity type is a no-op.
func (c *ReferenceCache) Prefetch(ctx context.Context, entityType string) (materialized bool, count int, err error) {
	c.mu.RLock()
	e, ok := c.entries[entityType]
	c.mu.RUnlock()
	if ok {
		return !e.tooLarge, e.count, nil
	}

	count, err = c.store.Count(ctx, entityType)
	if err != nil {
		return false, 0, fmt.Errorf("count %s records: %w", entityType, err)
	}
	if count > c.limit {
		c.put(entityType, &cacheEntry{tooLarge: true, count: count})
		return false, count, nil
	}

	ids, err := c.store.ListIDs(ctx, entityType)
	if err != nil {
		return false, 0, fmt.Errorf("list %s identifiers: %w", entityType, err)
	}
	// Sorted so scans and suggestions are deterministic across runs.
	sort.Strings(ids)
	c.put(entityType, &cacheEntry{ids: ids, count: len(ids)})
	return true, len(ids), nil
}

// Materialized reports whether the entity type has a materialized entry.
// Unknown entity types report false.
func (c *ReferenceCache) Materialized(entityType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[entityType]
	return ok && !e.tooLarge
}

// entry returns the entity type's cache entry, populating it first when the
// type has not been seen yet.
func (c *ReferenceCache) entry(ctx context.Context, entityType string) (*cacheEntry, error) {
	c.mu.RLock()
	e, ok := c.entries[entityType]
	c.mu.RUnlock()
	if ok {
		return e, nil
	}
	if _, _, err := c.Prefetch(ctx, entityType); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[entityType], nil
}

func (c *ReferenceCache) put(entityType string, e *cacheEntry) {
	c.mu.Lock()
	c.entries[entityType] = e
	c.mu.Unlock()
}
