package validation

import (
	"context"
	"fmt"
	"strings"
)

// SheetProcessor drives one sheet at a time through header validation and the
// row loop under the per-sheet time budget. One processor serves one batch
// run; sheets are processed strictly sequentially.
type SheetProcessor struct {
	resolver *Resolver
	opts     Options
}

// NewSheetProcessor builds a processor over the run's resolver.
func NewSheetProcessor(resolver *Resolver, opts Options) *SheetProcessor {
	return &SheetProcessor{resolver: resolver, opts: opts.withDefaults()}
}

// Process validates one sheet against its entity type's fields and returns a
// terminal result: Completed, TimedOut with the already-processed rows
// preserved, or Failed with a single structural error. Unexpected panics
// during row processing become a PROCESSING_ERROR result; partial output is
// kept, never discarded.
func (p *SheetProcessor) Process(ctx context.Context, sheet SheetData, entityType string, fields []FieldSchema) (res SheetResult) {
	start := p.opts.Now()
	res = SheetResult{SheetName: sheet.Name, EntityType: entityType, State: SheetFailed}

	defer func() {
		if rec := recover(); rec != nil {
			res.State = SheetFailed
			res.Success = false
			res.Errors = append(res.Errors, sheetLevelError(sheet.Name, CodeProcessingError,
				fmt.Sprintf("Unexpected error: %v", rec)))
			res.ErrorCount = len(res.Errors)
		}
	}()

	if code, msg := headerDefect(sheet.Header); code != "" {
		return failedSheet(sheet.Name, entityType, code, msg)
	}
	headers := trimmedHeaders(sheet.Header)

	if !hasDataRows(sheet.Rows) {
		return failedSheet(sheet.Name, entityType, CodeNoDataRows, "The file contains no data rows.")
	}

	rv := newRowValidator(sheet.Name, headers, fields, p.resolver, p.opts)

	res.State = SheetCompleted
	res.Success = true
	for i, raw := range sheet.Rows {
		rowNum := i + 2 // the header occupies the first sheet row

		if rowNum%timeoutCheckInterval == 0 && p.opts.Now().Sub(start) > p.opts.SheetTimeout {
			res.State = SheetTimedOut
			res.Success = false
			res.Errors = append(res.Errors, sheetLevelError(sheet.Name, CodeTimeout,
				fmt.Sprintf("Sheet processing exceeded %.0fs timeout", p.opts.SheetTimeout.Seconds())))
			break
		}

		annotated, errs, err := rv.Validate(ctx, rowNum, padRow(raw, len(headers)))
		if err != nil {
			res.State = SheetFailed
			res.Success = false
			res.Errors = append(res.Errors, sheetLevelError(sheet.Name, CodeProcessingError,
				fmt.Sprintf("Row %d: %v", rowNum, err)))
			break
		}

		res.Rows = append(res.Rows, annotated)
		res.Errors = append(res.Errors, errs...)
		res.TotalRows++
	}

	res.ErrorCount = len(res.Errors)
	return res
}

// headerDefect checks the raw header row: present, no blank cells, no
// duplicate names. An empty Code means the header is usable.
func headerDefect(header []string) (Code, string) {
	if len(header) == 0 {
		return CodeNoHeader, "Header row missing"
	}
	trimmed := trimmedHeaders(header)
	if len(trimmed) == 0 {
		return CodeEmptyHeaders, "The header row is empty or the sheet is blank."
	}
	for _, h := range header {
		if strings.TrimSpace(h) == "" {
			return CodeEmptyHeaders, "The header row contains blank cells between columns."
		}
	}
	seen := make(map[string]struct{}, len(trimmed))
	for _, h := range trimmed {
		if _, dup := seen[h]; dup {
			return CodeDuplicateHeaders, "The header row contains duplicate column names."
		}
		seen[h] = struct{}{}
	}
	return "", ""
}

// trimmedHeaders returns the non-blank header names, whitespace-trimmed.
func trimmedHeaders(header []string) []string {
	out := make([]string, 0, len(header))
	for _, h := range header {
		if t := strings.TrimSpace(h); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// hasDataRows reports whether any row carries a non-whitespace cell. "NA"
// placeholders count as data here; they surface per row as EMPTY_ROW
// findings instead of failing the whole sheet.
func hasDataRows(rows [][]any) bool {
	for _, row := range rows {
		for _, c := range row {
			if strings.TrimSpace(Stringify(c)) != "" {
				return true
			}
		}
	}
	return false
}

// padRow normalizes a ragged row to the header width. Overlong rows are
// truncated, short rows padded with nil cells.
func padRow(row []any, width int) []any {
	if len(row) == width {
		return row
	}
	out := make([]any, width)
	copy(out, row)
	return out
}
