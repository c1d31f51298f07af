package validation

import (
	"context"
	"reflect"
	"testing"
)

func newTestResolver(store *fakeStore, limit int) *Resolver {
	return NewResolver(NewReferenceCache(store, limit), store)
}

func TestResolvesAgainstMaterializedCache(t *testing.T) {
	store := newFakeStore()
	store.ids["Department"] = []string{"Engineering", "Operations"}
	r := newTestResolver(store, 100)

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"exact", "Engineering", true},
		{"lowercase", "engineering", true},
		{"uppercase padded", "  ENGINEERING  ", true},
		{"missing", "Marketing", false},
		{"blank", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolves(context.Background(), "Department", tt.id)
			if err != nil {
				t.Fatalf("Resolves: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolves(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
	if store.recordCalls != 0 {
		t.Errorf("recordCalls = %d, materialized lookups must not hit the store", store.recordCalls)
	}
}

func TestResolvesQueriesStoreForLargeEntityTypes(t *testing.T) {
	store := newFakeStore()
	store.counts["Country"] = 6000
	store.ids["Country"] = []string{"Brazil", "Chile"}
	r := newTestResolver(store, 5000)

	ctx := context.Background()
	ok, err := r.Resolves(ctx, "Country", "brazil")
	if err != nil {
		t.Fatalf("Resolves: %v", err)
	}
	if !ok {
		t.Error("Resolves(brazil) = false, want direct store hit")
	}
	if store.recordCalls != 1 {
		t.Errorf("recordCalls = %d, want 1", store.recordCalls)
	}

	ok, err = r.Resolves(ctx, "Country", "Narnia")
	if err != nil {
		t.Fatalf("Resolves: %v", err)
	}
	if ok {
		t.Error("Resolves(Narnia) = true, want false")
	}
	if store.recordCalls != 2 {
		t.Errorf("recordCalls = %d, negative results must not be cached", store.recordCalls)
	}
	if suggestions := r.Suggest(ctx, "Country", "Narnia", 3); suggestions != nil {
		t.Errorf("Suggest on a too-large entity type = %v, want nil", suggestions)
	}
}

func TestSuggest(t *testing.T) {
	store := newFakeStore()
	store.ids["Department"] = []string{
		"Alpha Works", "Alpha Office", "Alpha Site", "Alpha Plant", "Finance",
	}
	r := newTestResolver(store, 100)
	ctx := context.Background()

	t.Run("capped and sorted", func(t *testing.T) {
		got := r.Suggest(ctx, "Department", "alpha", 3)
		want := []string{"Alpha Office", "Alpha Plant", "Alpha Site"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Suggest = %v, want %v", got, want)
		}
	})

	t.Run("candidate contains identifier", func(t *testing.T) {
		got := r.Suggest(ctx, "Department", "Finance Department", 3)
		want := []string{"Finance"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Suggest = %v, want %v", got, want)
		}
	})

	t.Run("no relation", func(t *testing.T) {
		if got := r.Suggest(ctx, "Department", "zzz", 3); got != nil {
			t.Errorf("Suggest = %v, want nil", got)
		}
	})

	t.Run("blank candidate", func(t *testing.T) {
		if got := r.Suggest(ctx, "Department", "   ", 3); got != nil {
			t.Errorf("Suggest = %v, want nil", got)
		}
	})
}

func TestSuggestFoldsDiacritics(t *testing.T) {
	store := newFakeStore()
	store.ids["City"] = []string{"São Paulo", "Córdoba"}
	r := newTestResolver(store, 100)

	got := r.Suggest(context.Background(), "City", "sao paulo", 3)
	want := []string{"São Paulo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest = %v, want %v", got, want)
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"São Paulo", "sao paulo"},
		{"CÓRDOBA", "cordoba"},
		{"plain", "plain"},
		{"MiXeD", "mixed"},
	}
	for _, tt := range tests {
		if got := fold(tt.in); got != tt.want {
			t.Errorf("fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
