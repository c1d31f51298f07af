package validation

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Resolver answers reference-field lookups through the tiered cache.
// Materialized entity types are scanned case-insensitively in memory;
// too-large entity types go straight to the backing store per candidate, and
// negative results are not cached.
type Resolver struct {
	cache *ReferenceCache
	store EntityStore
}

// NewResolver builds a resolver over an already-constructed cache and its
// backing store.
func NewResolver(cache *ReferenceCache, store EntityStore) *Resolver {
	return &Resolver{cache: cache, store: store}
}

// Resolves reports whether the candidate identifier exists in the target
// entity type. The candidate is trimmed before lookup. Store failures bubble
// up so the caller can degrade the sheet instead of mislabeling data.
func (r *Resolver) Resolves(ctx context.Context, entityType, rawID string) (bool, error) {
	id := strings.TrimSpace(rawID)
	e, err := r.cache.entry(ctx, entityType)
	if err != nil {
		return false, err
	}
	if e.tooLarge {
		return r.store.ExistsRecord(ctx, entityType, id)
	}
	want := strings.ToLower(id)
	for _, cached := range e.ids {
		if strings.ToLower(strings.TrimSpace(cached)) == want {
			return true, nil
		}
	}
	return false, nil
}

// Suggest returns up to max cached identifiers related to the candidate by
// substring containment in either direction, with case and diacritics folded.
// Only materialized entity types produce suggestions; too-large types return
// nil rather than scanning the backing store.
func (r *Resolver) Suggest(ctx context.Context, entityType, rawID string, max int) []string {
	if max <= 0 {
		max = DefaultMaxSuggestions
	}
	e, err := r.cache.entry(ctx, entityType)
	if err != nil || e.tooLarge {
		return nil
	}
	want := fold(strings.TrimSpace(rawID))
	if want == "" {
		return nil
	}
	var suggestions []string
	for _, cached := range e.ids {
		have := fold(cached)
		if strings.Contains(have, want) || strings.Contains(want, have) {
			suggestions = append(suggestions, cached)
			if len(suggestions) >= max {
				break
			}
		}
	}
	return suggestions
}

// fold lowercases a string and strips diacritical marks, so "São Paulo"
// matches a "sao" candidate. NFD decomposition splits accented characters
// into the base rune plus combining marks, which are then dropped.
func fold(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
