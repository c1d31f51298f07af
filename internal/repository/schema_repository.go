package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"sheetcheck/internal/models"
	"sheetcheck/internal/validation"
)

// SchemaRepository reads entity types and their field definitions from the
// registry tables. It implements validation.SchemaProvider.
type SchemaRepository struct {
	db *sqlx.DB
}

func NewSchemaRepository(db *sqlx.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

// GetFields loads the declared fields of an entity type ordered by position.
// Returns validation.ErrEntityTypeNotFound (wrapped) when the type is not
// registered or inactive.
func (r *SchemaRepository) GetFields(ctx context.Context, entityType string) ([]validation.FieldSchema, error) {
	key := validation.NormalizeEntityKey(entityType)

	var registered models.EntityType
	query := "SELECT * FROM entity_types WHERE name = ? AND is_active = 1 LIMIT 1"
	err := r.db.GetContext(ctx, &registered, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", entityType, validation.ErrEntityTypeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up entity type %q: %w", entityType, err)
	}

	var defs []models.FieldDef
	query = "SELECT * FROM field_defs WHERE entity_type = ? ORDER BY position ASC, id ASC"
	if err := r.db.SelectContext(ctx, &defs, query, key); err != nil {
		return nil, fmt.Errorf("failed to load field definitions for %q: %w", entityType, err)
	}

	fields := make([]validation.FieldSchema, 0, len(defs))
	for _, def := range defs {
		fields = append(fields, fieldSchema(def))
	}
	return fields, nil
}

// ListEntityTypes returns all active entity types ordered by label, for the
// template endpoint and pages.
func (r *SchemaRepository) ListEntityTypes(ctx context.Context) ([]models.EntityType, error) {
	var types []models.EntityType
	query := "SELECT * FROM entity_types WHERE is_active = 1 ORDER BY label ASC"
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("failed to list entity types: %w", err)
	}
	return types, nil
}

func fieldSchema(def models.FieldDef) validation.FieldSchema {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		name = validation.CanonicalName(def.Label)
	}
	return validation.FieldSchema{
		Name:       name,
		Label:      def.Label,
		Type:       fieldType(def.FieldType),
		Required:   def.Required,
		Unique:     def.UniqueVal,
		PrimaryKey: def.PrimaryKey,
		RefTarget:  strings.TrimSpace(def.RefTarget),
	}
}

// fieldType maps the stored type string onto the closed FieldType set. Types
// written by other tools may differ in case; unknown types fall back to Text
// so a registry typo never breaks a whole sheet.
func fieldType(s string) validation.FieldType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer":
		return validation.TypeInteger
	case "float", "decimal", "number", "currency", "percent":
		return validation.TypeDecimal
	case "date":
		return validation.TypeDate
	case "datetime":
		return validation.TypeDateTime
	case "bool", "boolean", "check":
		return validation.TypeBoolean
	case "link", "reference":
		return validation.TypeReference
	default:
		return validation.TypeText
	}
}
