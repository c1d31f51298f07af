package validation

import (
	"context"
	"strings"
	"time"
)

// fakeStore is an in-memory EntityStore. Identifier order is fixed by the
// backing slices so runs stay deterministic.
type fakeStore struct {
	ids    map[string][]string
	counts map[string]int // overrides len(ids), for too-large entity types

	existsErr error
	countErr  error
	listErr   error
	recordErr error

	countCalls  int
	listCalls   int
	recordCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{ids: make(map[string][]string), counts: make(map[string]int)}
}

func (s *fakeStore) Exists(_ context.Context, entityType string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	if _, ok := s.counts[entityType]; ok {
		return true, nil
	}
	_, ok := s.ids[entityType]
	return ok, nil
}

func (s *fakeStore) Count(_ context.Context, entityType string) (int, error) {
	s.countCalls++
	if s.countErr != nil {
		return 0, s.countErr
	}
	if c, ok := s.counts[entityType]; ok {
		return c, nil
	}
	return len(s.ids[entityType]), nil
}

func (s *fakeStore) ListIDs(_ context.Context, entityType string) ([]string, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]string, len(s.ids[entityType]))
	copy(out, s.ids[entityType])
	return out, nil
}

func (s *fakeStore) ExistsRecord(_ context.Context, entityType, id string) (bool, error) {
	s.recordCalls++
	if s.recordErr != nil {
		return false, s.recordErr
	}
	for _, candidate := range s.ids[entityType] {
		if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(id)) {
			return true, nil
		}
	}
	return false, nil
}

// fakeSchemas is an in-memory SchemaProvider.
type fakeSchemas struct {
	fields map[string][]FieldSchema
	err    error
}

func (s *fakeSchemas) GetFields(_ context.Context, entityType string) ([]FieldSchema, error) {
	if s.err != nil {
		return nil, s.err
	}
	fields, ok := s.fields[entityType]
	if !ok {
		return nil, ErrEntityTypeNotFound
	}
	return fields, nil
}

// stepClock returns base time until trip calls have happened, then base plus
// jump for every later call. Used to trip time budgets deterministically.
type stepClock struct {
	base  time.Time
	jump  time.Duration
	trip  int
	calls int
}

func (c *stepClock) Now() time.Time {
	c.calls++
	if c.trip > 0 && c.calls >= c.trip {
		return c.base.Add(c.jump)
	}
	return c.base
}

// fixedClock always returns the same instant.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testTime = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{Now: fixedClock(testTime)}
}

// codesOf extracts the error codes in order.
func codesOf(errs []FieldError) []Code {
	out := make([]Code, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

// checkOutcomeInvariant verifies hasError == (errorCount > 0) == (len > 0)
// for one annotated row.
func checkOutcomeInvariant(t interface {
	Helper()
	Errorf(format string, args ...any)
}, row AnnotatedRow, errs []FieldError) {
	t.Helper()
	if row.HasError != (row.ErrorCount > 0) || row.HasError != (len(errs) > 0) {
		t.Errorf("outcome invariant broken: hasError=%v errorCount=%d errs=%d",
			row.HasError, row.ErrorCount, len(errs))
	}
	if row.ErrorCount != len(errs) {
		t.Errorf("errorCount = %d, want %d", row.ErrorCount, len(errs))
	}
}
