package validation

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

// Default budgets and limits for one batch run. All of them can be overridden
// through Options.
const (
	DefaultBatchTimeout   = 120 * time.Second
	DefaultSheetTimeout   = 60 * time.Second
	DefaultCacheLimit     = 5000
	DefaultMaxSuggestions = 3

	// timeoutCheckInterval is the row cadence of the cooperative timeout
	// check inside a sheet.
	timeoutCheckInterval = 100

	minYear = 1900
)

// Column sentinels for errors that are not tied to a single cell.
const (
	EntireRow   = "Entire Row"
	SheetColumn = "Sheet"
)

// FieldType enumerates the declared field types a schema can carry.
type FieldType string

const (
	TypeInteger   FieldType = "Integer"
	TypeDecimal   FieldType = "Decimal"
	TypeDate      FieldType = "Date"
	TypeDateTime  FieldType = "DateTime"
	TypeText      FieldType = "Text"
	TypeReference FieldType = "Reference"
	TypeBoolean   FieldType = "Boolean"
)

// FieldSchema describes one declared field of an entity type.
type FieldSchema struct {
	Name       string    `json:"name"` // canonical key, see CanonicalName
	Label      string    `json:"label"`
	Type       FieldType `json:"type"`
	Required   bool      `json:"required"`
	Unique     bool      `json:"unique"`
	PrimaryKey bool      `json:"primary_key"`
	RefTarget  string    `json:"ref_target,omitempty"` // entity type name for Reference fields
}

// SheetData is one input sheet: the raw header row and the raw typed cells of
// every data row, in workbook order.
type SheetData struct {
	Name   string
	Header []string
	Rows   [][]any
}

// FieldError is one structured validation finding. Sheet-level findings use
// Row 0 and the SheetColumn sentinel; row-scoped findings use EntireRow.
type FieldError struct {
	Sheet       string   `json:"sheet,omitempty"`
	Row         int      `json:"row"`
	Column      string   `json:"column"`
	Code        Code     `json:"code"`
	Label       string   `json:"error_type"`
	Message     string   `json:"message"`
	Value       string   `json:"value_entered"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// AnnotatedRow is one output row: the annotation values plus the original
// cells. Flagged holds the header indexes of cells that carry an error.
type AnnotatedRow struct {
	HasError   bool   `json:"has_error"`
	ErrorCount int    `json:"error_count"`
	Detail     string `json:"detail"`
	Cells      []any  `json:"-"`
	Flagged    []int  `json:"-"`
}

// SheetState is the terminal state of one processed sheet.
type SheetState string

const (
	SheetCompleted SheetState = "completed"
	SheetTimedOut  SheetState = "timed_out"
	SheetFailed    SheetState = "failed"
)

// SheetResult aggregates one sheet's validation outcome. Errors and Rows are
// flattened into the batch report and the output workbook; the JSON shape
// carries the counters only.
type SheetResult struct {
	SheetName  string         `json:"sheet_name"`
	EntityType string         `json:"entity_type"`
	State      SheetState     `json:"state"`
	Success    bool           `json:"success"`
	ErrorCount int            `json:"error_count"`
	TotalRows  int            `json:"total_rows"`
	Errors     []FieldError   `json:"-"`
	Rows       []AnnotatedRow `json:"-"`
}

// BatchReport is the final aggregate over all sheets of one run.
type BatchReport struct {
	StructureValid  bool          `json:"structure_valid"`
	FileURL         string        `json:"file_url,omitempty"`
	TotalSheets     int           `json:"total_sheets"`
	ValidatedSheets int           `json:"validated_sheets"`
	TotalErrors     int           `json:"total_errors"`
	TotalRows       int           `json:"total_rows"`
	Errors          []FieldError  `json:"errors"`
	SheetResults    []SheetResult `json:"sheet_results"`
	ProcessingTime  float64       `json:"processing_time"`
}

// ErrEntityTypeNotFound reports an entity type absent from the schema
// registry. SchemaProvider implementations return it (wrapped or bare) so the
// coordinator can distinguish missing registration from lookup failure.
var ErrEntityTypeNotFound = errors.New("entity type not found")

// SchemaProvider supplies field definitions for an entity type.
type SchemaProvider interface {
	GetFields(ctx context.Context, entityType string) ([]FieldSchema, error)
}

// EntityStore answers existence, cardinality and identifier queries for
// entity types and their records.
type EntityStore interface {
	Exists(ctx context.Context, entityType string) (bool, error)
	Count(ctx context.Context, entityType string) (int, error)
	ListIDs(ctx context.Context, entityType string) ([]string, error)
	ExistsRecord(ctx context.Context, entityType, id string) (bool, error)
}

// Observer receives processing milestones, used for metrics. Implementations
// must be safe for concurrent use. A nil Observer disables observation.
type Observer interface {
	SheetDone(result *SheetResult, took time.Duration)
	PrefetchDone(entityType string, materialized bool, count int)
}

// Options tunes one batch run. Zero values fall back to the package defaults.
type Options struct {
	BatchTimeout   time.Duration
	SheetTimeout   time.Duration
	CacheLimit     int
	MaxSuggestions int
	SkipReferences bool // bypass reference resolution for the whole run
	InferSchema    bool // derive fields from headers for unregistered entity types
	Now            func() time.Time
	Observer       Observer
}

func (o Options) withDefaults() Options {
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = DefaultBatchTimeout
	}
	if o.SheetTimeout <= 0 {
		o.SheetTimeout = DefaultSheetTimeout
	}
	if o.CacheLimit <= 0 {
		o.CacheLimit = DefaultCacheLimit
	}
	if o.MaxSuggestions <= 0 {
		o.MaxSuggestions = DefaultMaxSuggestions
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

var trailingParen = regexp.MustCompile(`\s*\(.*\)$`)

// CanonicalName normalizes a header label or field name to its canonical
// schema key: trimmed, trailing parenthetical stripped, lowercased, spaces
// removed.
func CanonicalName(label string) string {
	base := trailingParen.ReplaceAllString(strings.TrimSpace(label), "")
	return strings.ReplaceAll(strings.ToLower(base), " ", "")
}

// NormalizeEntityKey matches sheet names to entity type names ignoring case
// and spaces. The schema registry stores keys in this form.
func NormalizeEntityKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "")
}
