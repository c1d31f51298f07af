package models

import "time"

// EntityType is one registered schema target. Name holds the normalized key
// (lowercase, no spaces) that sheet names are matched against; Label keeps the
// display form.
type EntityType struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Label     string    `db:"label" json:"label"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FieldDef is one declared field of an entity type. Position fixes the column
// order used for templates and field loading.
type FieldDef struct {
	ID         int       `db:"id" json:"id"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	Name       string    `db:"name" json:"name"`
	Label      string    `db:"label" json:"label"`
	FieldType  string    `db:"field_type" json:"field_type"`
	Required   bool      `db:"required" json:"required"`
	UniqueVal  bool      `db:"uniq" json:"unique"`
	PrimaryKey bool      `db:"primary_key" json:"primary_key"`
	RefTarget  string    `db:"ref_target" json:"ref_target,omitempty"`
	Position   int       `db:"position" json:"position"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
