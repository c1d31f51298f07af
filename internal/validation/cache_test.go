package validation

import (
	"context"
	"errors"
	"testing"
)

func TestPrefetchMaterializesSmallEntityTypes(t *testing.T) {
	store := newFakeStore()
	store.ids["Department"] = []string{"Finance", "Engineering", "Operations"}
	cache := NewReferenceCache(store, 5)

	materialized, count, err := cache.Prefetch(context.Background(), "Department")
	if err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if !materialized || count != 3 {
		t.Fatalf("Prefetch = (%v, %d), want (true, 3)", materialized, count)
	}
	if !cache.Materialized("Department") {
		t.Error("Materialized(Department) = false after prefetch")
	}
	if store.countCalls != 1 || store.listCalls != 1 {
		t.Errorf("store calls = %d count, %d list; want 1 each", store.countCalls, store.listCalls)
	}
}

func TestPrefetchMarksLargeEntityTypes(t *testing.T) {
	store := newFakeStore()
	store.counts["Country"] = 6000
	cache := NewReferenceCache(store, 5000)

	materialized, count, err := cache.Prefetch(context.Background(), "Country")
	if err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if materialized || count != 6000 {
		t.Fatalf("Prefetch = (%v, %d), want (false, 6000)", materialized, count)
	}
	if cache.Materialized("Country") {
		t.Error("Materialized(Country) = true for a too-large entity type")
	}
	if store.listCalls != 0 {
		t.Errorf("listCalls = %d, identifiers should not be fetched above the limit", store.listCalls)
	}
}

func TestPrefetchLimitBoundary(t *testing.T) {
	store := newFakeStore()
	store.ids["Grade"] = []string{"A", "B", "C"}
	cache := NewReferenceCache(store, 3)

	// A count equal to the limit still materializes; only counts above it
	// get the too-large marker.
	materialized, _, err := cache.Prefetch(context.Background(), "Grade")
	if err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if !materialized {
		t.Error("count == limit should materialize")
	}
}

func TestPrefetchIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.ids["Department"] = []string{"Finance"}
	cache := NewReferenceCache(store, 100)

	ctx := context.Background()
	if _, _, err := cache.Prefetch(ctx, "Department"); err != nil {
		t.Fatalf("first Prefetch: %v", err)
	}
	materialized, count, err := cache.Prefetch(ctx, "Department")
	if err != nil {
		t.Fatalf("second Prefetch: %v", err)
	}
	if !materialized || count != 1 {
		t.Errorf("second Prefetch = (%v, %d), want (true, 1)", materialized, count)
	}
	if store.countCalls != 1 || store.listCalls != 1 {
		t.Errorf("store calls = %d count, %d list after repeat prefetch; want 1 each",
			store.countCalls, store.listCalls)
	}
}

func TestPrefetchWrapsStoreErrors(t *testing.T) {
	sentinel := errors.New("connection refused")

	store := newFakeStore()
	store.ids["Department"] = []string{"Finance"}
	store.countErr = sentinel
	cache := NewReferenceCache(store, 100)
	if _, _, err := cache.Prefetch(context.Background(), "Department"); !errors.Is(err, sentinel) {
		t.Errorf("count error not wrapped: %v", err)
	}

	store = newFakeStore()
	store.ids["Department"] = []string{"Finance"}
	store.listErr = sentinel
	cache = NewReferenceCache(store, 100)
	if _, _, err := cache.Prefetch(context.Background(), "Department"); !errors.Is(err, sentinel) {
		t.Errorf("list error not wrapped: %v", err)
	}
}

func TestNewReferenceCacheDefaultLimit(t *testing.T) {
	cache := NewReferenceCache(newFakeStore(), 0)
	if cache.limit != DefaultCacheLimit {
		t.Errorf("limit = %d, want %d", cache.limit, DefaultCacheLimit)
	}
}
