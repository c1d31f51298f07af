package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DuplicateTracker carries the three per-sheet duplicate detection scopes.
// Row signatures are blank-normalized; primary keys and unique column values
// are trimmed only and stay case-sensitive. All methods record the value
// after testing it, so the first occurrence is never flagged as its own
// duplicate. Not safe for concurrent use; one tracker serves one sheet.
type DuplicateTracker struct {
	seenRows    map[string]struct{}
	seenPrimary map[string]struct{}
	seenUnique  map[string]map[string]struct{}
}

// NewDuplicateTracker builds a tracker with one value set per unique column.
func NewDuplicateTracker(uniqueColumns []string) *DuplicateTracker {
	t := &DuplicateTracker{
		seenRows:    make(map[string]struct{}),
		seenPrimary: make(map[string]struct{}),
		seenUnique:  make(map[string]map[string]struct{}, len(uniqueColumns)),
	}
	for _, c := range uniqueColumns {
		t.seenUnique[c] = make(map[string]struct{})
	}
	return t
}

// SeenRow tests and records a whole-row signature.
func (t *DuplicateTracker) SeenRow(signature string) bool {
	_, dup := t.seenRows[signature]
	t.seenRows[signature] = struct{}{}
	return dup
}

// SeenPrimaryKey tests and records a primary key value.
func (t *DuplicateTracker) SeenPrimaryKey(value string) bool {
	_, dup := t.seenPrimary[value]
	t.seenPrimary[value] = struct{}{}
	return dup
}

// SeenUnique tests and records a value for one unique column.
func (t *DuplicateTracker) SeenUnique(column, value string) bool {
	set, ok := t.seenUnique[column]
	if !ok {
		set = make(map[string]struct{})
		t.seenUnique[column] = set
	}
	_, dup := set[value]
	set[value] = struct{}{}
	return dup
}

// RowSignature builds the normalized whole-row duplicate signature: every
// cell stringified, with blanks and placeholders collapsed to the empty
// string. Cell order is preserved.
func RowSignature(cells []any) string {
	parts := make([]string, len(cells))
	for i, v := range cells {
		if IsBlank(v) {
			continue
		}
		parts[i] = Stringify(v)
	}
	return strings.Join(parts, "\x1f")
}

// rowErrors accumulates one row's findings together with their detail lines
// and the header indexes to highlight.
type rowErrors struct {
	sheet   string
	row     int
	errs    []FieldError
	details []string
	flagged map[int]struct{}
}

func (re *rowErrors) add(err FieldError, detail string, headerIdx int) {
	err.Sheet = re.sheet
	err.Row = re.row
	err.Label = err.Code.Label()
	re.errs = append(re.errs, err)
	re.details = append(re.details, detail)
	if headerIdx >= 0 {
		re.flagged[headerIdx] = struct{}{}
	}
}

// addOutcome records a failed type evaluation against one column.
func (re *rowErrors) addOutcome(column string, outcome TypeOutcome, value any, headerIdx int) {
	re.add(FieldError{
		Column:  column,
		Code:    outcome.Code,
		Message: outcome.Message,
		Value:   Stringify(value),
	}, fmt.Sprintf("%s: %s", column, outcome.Message), headerIdx)
}

// rowValidator validates rows one at a time against a prepared sheet context:
// canonical field lookup, required/unique/primary-key column bindings and the
// sheet's duplicate tracker.
type rowValidator struct {
	sheet          string
	headers        []string
	fields         map[string]FieldSchema
	required       []string
	uniqueCols     []string
	primaryKey     string
	headerIdx      map[string]int
	tracker        *DuplicateTracker
	resolver       *Resolver
	skipRefs       bool
	maxSuggestions int
	now            func() time.Time
}

func newRowValidator(sheet string, headers []string, fields []FieldSchema, resolver *Resolver, opts Options) *rowValidator {
	// Label keys take precedence over field names when both collide.
	fieldMap := make(map[string]FieldSchema, len(fields)*2)
	for _, f := range fields {
		if f.Label != "" {
			fieldMap[CanonicalName(f.Label)] = f
		}
		if f.Name != "" {
			if _, ok := fieldMap[f.Name]; !ok {
				fieldMap[f.Name] = f
			}
		}
	}

	headersNorm := make(map[string]string, len(headers))
	headerIdx := make(map[string]int, len(headers))
	for i, h := range headers {
		headersNorm[CanonicalName(h)] = h
		headerIdx[h] = i
	}

	matchColumn := func(f FieldSchema) (string, bool) {
		if f.Label != "" {
			if h, ok := headersNorm[CanonicalName(f.Label)]; ok {
				return h, true
			}
		}
		h, ok := headersNorm[f.Name]
		return h, ok
	}

	var required, uniqueCols []string
	primaryKey := ""
	for _, f := range fields {
		h, ok := matchColumn(f)
		if !ok {
			continue
		}
		if f.Required {
			required = append(required, h)
		}
		if f.Unique {
			uniqueCols = append(uniqueCols, h)
		}
		if f.PrimaryKey && primaryKey == "" {
			primaryKey = h
		}
	}

	return &rowValidator{
		sheet:          sheet,
		headers:        headers,
		fields:         fieldMap,
		required:       required,
		uniqueCols:     uniqueCols,
		primaryKey:     primaryKey,
		headerIdx:      headerIdx,
		tracker:        NewDuplicateTracker(uniqueCols),
		resolver:       resolver,
		skipRefs:       opts.SkipReferences,
		maxSuggestions: opts.MaxSuggestions,
		now:            opts.Now,
	}
}

// Validate runs every row-level check in order: whole-row blank test,
// required fields, per-column type and reference rules, then the three
// duplicate scopes. The duplicate tracker is mutated in row order. cells must
// already be padded to the header width. The error return is reserved for
// infrastructure failures; data findings land in the returned slice.
func (rv *rowValidator) Validate(ctx context.Context, rowNum int, cells []any) (AnnotatedRow, []FieldError, error) {
	re := &rowErrors{sheet: rv.sheet, row: rowNum, flagged: make(map[int]struct{})}

	if allBlank(cells) {
		re.add(FieldError{
			Column:  EntireRow,
			Code:    CodeEmptyRow,
			Message: "Row is completely empty",
		}, "Row is completely empty", -1)
		return rv.annotate(cells, re), re.errs, nil
	}

	flaggedBlank := rv.checkRequired(cells, re)
	if err := rv.checkColumns(ctx, cells, flaggedBlank, re); err != nil {
		return AnnotatedRow{}, nil, err
	}
	rv.checkDuplicates(cells, re)

	return rv.annotate(cells, re), re.errs, nil
}

// checkRequired flags blank cells in schema-required columns. It returns the
// flagged column labels so the per-column pass does not report the same blank
// twice.
func (rv *rowValidator) checkRequired(cells []any, re *rowErrors) map[string]struct{} {
	flagged := make(map[string]struct{})
	for _, col := range rv.required {
		idx := rv.headerIdx[col]
		if !IsBlank(cells[idx]) {
			continue
		}
		flagged[col] = struct{}{}
		msg := fmt.Sprintf("Required field '%s' is empty", col)
		re.add(FieldError{Column: col, Code: CodeRequiredFieldEmpty, Message: msg}, msg, idx)
	}
	return flagged
}

// checkColumns runs the blank, year, reference and type rules over every
// column, accumulating all findings without short-circuiting across columns.
func (rv *rowValidator) checkColumns(ctx context.Context, cells []any, flaggedBlank map[string]struct{}, re *rowErrors) error {
	for idx, label := range rv.headers {
		value := cells[idx]
		key := CanonicalName(label)

		if IsBlank(value) {
			if IsOptionalColumn(label) {
				continue
			}
			if _, done := flaggedBlank[label]; done {
				continue
			}
			msg := fmt.Sprintf("Field '%s' is empty", label)
			re.add(FieldError{Column: label, Code: CodeRequiredFieldEmpty, Message: msg},
				fmt.Sprintf("%s: %s", label, msg), idx)
			continue
		}

		field, known := rv.fields[key]
		if !known && !yearByName(label) {
			continue // nothing declared for this column
		}

		if IsYearColumn(key, label) || (known && field.Name == "year") {
			outcome := EvaluateYear(value, rv.now())
			if !outcome.Valid {
				re.addOutcome(label, outcome, value, idx)
				if outcome.Code == CodeInvalidYear {
					continue
				}
			}
			// Year columns skip the numeric rules. Reference-typed year
			// columns still resolve below.
			if !known || field.Type != TypeReference {
				continue
			}
		}

		if field.Type == TypeReference {
			if err := rv.checkReference(ctx, label, field, value, idx, re); err != nil {
				return err
			}
			continue
		}

		if outcome := EvaluateType(field.Type, value); !outcome.Valid {
			re.addOutcome(label, outcome, value, idx)
		}
	}
	return nil
}

// checkReference resolves a Reference cell against its target entity type.
// Store failures are returned rather than recorded so the sheet degrades
// instead of reporting false negatives.
func (rv *rowValidator) checkReference(ctx context.Context, label string, field FieldSchema, value any, idx int, re *rowErrors) error {
	if rv.skipRefs {
		return nil
	}
	if field.RefTarget == "" {
		msg := "No reference target configured"
		re.add(FieldError{Column: label, Code: CodeRefConfigError, Message: msg, Value: Stringify(value)},
			fmt.Sprintf("%s: %s", label, msg), idx)
		return nil
	}

	id := Stringify(value)
	ok, err := rv.resolver.Resolves(ctx, field.RefTarget, id)
	if err != nil {
		return fmt.Errorf("resolve %s against %s: %w", label, field.RefTarget, err)
	}
	if ok {
		return nil
	}

	suggestions := rv.resolver.Suggest(ctx, field.RefTarget, id, rv.maxSuggestions)
	msg := fmt.Sprintf("'%s' not found in %s", strings.TrimSpace(id), field.RefTarget)
	detail := fmt.Sprintf("%s: %s", label, msg)
	if len(suggestions) > 0 {
		detail += " Suggest: " + strings.Join(suggestions, ", ")
	}
	re.add(FieldError{
		Column:      label,
		Code:        CodeRefNotFound,
		Message:     msg,
		Value:       id,
		Suggestions: suggestions,
	}, detail, idx)
	return nil
}

// checkDuplicates runs the three duplicate scopes. Values are recorded even
// when other checks already flagged the row.
func (rv *rowValidator) checkDuplicates(cells []any, re *rowErrors) {
	if rv.tracker.SeenRow(RowSignature(cells)) {
		re.add(FieldError{
			Column:  EntireRow,
			Code:    CodeDuplicateRow,
			Message: "This row is a duplicate of a previous row",
			Value:   "Row Data",
		}, "Duplicate row", -1)
	}

	if rv.primaryKey != "" {
		idx := rv.headerIdx[rv.primaryKey]
		if v := cells[idx]; !IsBlank(v) {
			if rv.tracker.SeenPrimaryKey(strings.TrimSpace(Stringify(v))) {
				msg := fmt.Sprintf("%s: Duplicate ID (%s)", rv.primaryKey, Stringify(v))
				re.add(FieldError{Column: rv.primaryKey, Code: CodeDuplicatePrimaryKey, Message: msg, Value: Stringify(v)}, msg, idx)
			}
		}
	}

	for _, col := range rv.uniqueCols {
		idx := rv.headerIdx[col]
		v := cells[idx]
		if IsBlank(v) {
			continue
		}
		if rv.tracker.SeenUnique(col, strings.TrimSpace(Stringify(v))) {
			msg := fmt.Sprintf("%s: Duplicate value (%s)", col, Stringify(v))
			re.add(FieldError{Column: col, Code: CodeDuplicateUnique, Message: msg, Value: Stringify(v)}, msg, idx)
		}
	}
}

func (rv *rowValidator) annotate(cells []any, re *rowErrors) AnnotatedRow {
	flagged := make([]int, 0, len(re.flagged))
	for idx := range re.flagged {
		flagged = append(flagged, idx)
	}
	sort.Ints(flagged)
	return AnnotatedRow{
		HasError:   len(re.errs) > 0,
		ErrorCount: len(re.errs),
		Detail:     strings.Join(re.details, "; "),
		Cells:      cells,
		Flagged:    flagged,
	}
}

func allBlank(cells []any) bool {
	for _, v := range cells {
		if !IsBlank(v) {
			return false
		}
	}
	return true
}
