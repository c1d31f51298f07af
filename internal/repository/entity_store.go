package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"sheetcheck/internal/validation"
)

// EntityStore answers existence, cardinality and identifier queries against
// the reference tables backing each entity type. It implements
// validation.EntityStore. Each registered type has a physical table
// `ref_<name>` with an `id` column holding the record identifiers.
type EntityStore struct {
	db *sqlx.DB
}

func NewEntityStore(db *sqlx.DB) *EntityStore {
	return &EntityStore{db: db}
}

// Exists reports whether the entity type itself is registered and active.
func (s *EntityStore) Exists(ctx context.Context, entityType string) (bool, error) {
	key := validation.NormalizeEntityKey(entityType)
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM entity_types WHERE name = ? AND is_active = 1)"
	if err := s.db.GetContext(ctx, &exists, query, key); err != nil {
		return false, fmt.Errorf("failed to check entity type %q: %w", entityType, err)
	}
	return exists, nil
}

// Count returns the number of records in the type's reference table.
func (s *EntityStore) Count(ctx context.Context, entityType string) (int, error) {
	table, err := refTableName(entityType)
	if err != nil {
		return 0, err
	}
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM `%s`", table)
	if err := s.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count %q records: %w", entityType, err)
	}
	return count, nil
}

// ListIDs returns every record identifier of the type, sorted. Only called
// for types whose count fits the cache limit.
func (s *EntityStore) ListIDs(ctx context.Context, entityType string) ([]string, error) {
	table, err := refTableName(entityType)
	if err != nil {
		return nil, err
	}
	var ids []string
	query := fmt.Sprintf("SELECT id FROM `%s` ORDER BY id ASC", table)
	if err := s.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list %q identifiers: %w", entityType, err)
	}
	return ids, nil
}

// ExistsRecord checks one identifier directly. Matching is case-insensitive
// to mirror the resolver's cached-set behavior.
func (s *EntityStore) ExistsRecord(ctx context.Context, entityType, id string) (bool, error) {
	table, err := refTableName(entityType)
	if err != nil {
		return false, err
	}
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM `%s` WHERE LOWER(id) = LOWER(?))", table)
	if err := s.db.GetContext(ctx, &exists, query, strings.TrimSpace(id)); err != nil {
		return false, fmt.Errorf("failed to check %q record: %w", entityType, err)
	}
	return exists, nil
}

// refTableName derives the reference table for an entity type. Table names
// cannot be bound as query parameters, so the name is restricted to
// [a-z0-9_] after normalization and everything else is rejected.
func refTableName(entityType string) (string, error) {
	key := validation.NormalizeEntityKey(entityType)
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			return "", fmt.Errorf("invalid entity type name %q", entityType)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty entity type name")
	}
	return "ref_" + b.String(), nil
}
