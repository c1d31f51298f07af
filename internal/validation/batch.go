// Package validation implements the row validation engine: per-field type
// rules, reference resolution through a tiered cache, duplicate detection
// across three scopes, and time-budgeted sheet and batch processing.
package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"sheetcheck/internal/utils"

	"github.com/sirupsen/logrus"
)

// Coordinator runs one validation batch: it binds each sheet to its entity
// type's field definitions, prefetches reference caches, delegates to the
// sheet processor and aggregates every sheet result into the final report
// under the overall time budget.
type Coordinator struct {
	schemas   SchemaProvider
	store     EntityStore
	cache     *ReferenceCache
	resolver  *Resolver
	processor *SheetProcessor
	opts      Options
}

// NewCoordinator wires a coordinator for one batch run. Passing a nil cache
// builds a fresh one scoped to this run; passing a shared cache accepts
// cross-run staleness.
func NewCoordinator(schemas SchemaProvider, store EntityStore, cache *ReferenceCache, opts Options) *Coordinator {
	opts = opts.withDefaults()
	if cache == nil {
		cache = NewReferenceCache(store, opts.CacheLimit)
	}
	resolver := NewResolver(cache, store)
	return &Coordinator{
		schemas:   schemas,
		store:     store,
		cache:     cache,
		resolver:  resolver,
		processor: NewSheetProcessor(resolver, opts),
		opts:      opts,
	}
}

// Run processes the sheets in input order and aggregates the final report.
// Sheets that would start after the batch budget is exhausted, or after the
// context is cancelled, are recorded as timed out without being processed;
// completed work is always retained.
func (c *Coordinator) Run(ctx context.Context, sheets []SheetData) *BatchReport {
	start := c.opts.Now()
	log := utils.GetLogger()

	report := &BatchReport{
		TotalSheets:  len(sheets),
		Errors:       []FieldError{},
		SheetResults: []SheetResult{},
	}

	for _, sheet := range sheets {
		var res SheetResult
		switch {
		case ctx.Err() != nil:
			res = skippedSheet(sheet.Name, "Validation cancelled before sheet started")
		case c.opts.Now().Sub(start) > c.opts.BatchTimeout:
			res = skippedSheet(sheet.Name,
				fmt.Sprintf("Validation exceeded %.0fs overall timeout; sheet skipped", c.opts.BatchTimeout.Seconds()))
		default:
			sheetStart := c.opts.Now()
			res = c.runSheet(ctx, sheet)
			if c.opts.Observer != nil {
				c.opts.Observer.SheetDone(&res, c.opts.Now().Sub(sheetStart))
			}
		}

		report.SheetResults = append(report.SheetResults, res)
		report.Errors = append(report.Errors, res.Errors...)
		report.TotalErrors += res.ErrorCount
		report.TotalRows += res.TotalRows
		if res.Success {
			report.ValidatedSheets++
		}
	}

	report.StructureValid = report.TotalErrors == 0
	report.ProcessingTime = roundSeconds(c.opts.Now().Sub(start))

	log.WithFields(logrus.Fields{
		"total_sheets":     report.TotalSheets,
		"validated_sheets": report.ValidatedSheets,
		"total_rows":       report.TotalRows,
		"total_errors":     report.TotalErrors,
		"processing_time":  report.ProcessingTime,
	}).Info("Validation batch finished")

	return report
}

func (c *Coordinator) runSheet(ctx context.Context, sheet SheetData) SheetResult {
	entityType := strings.TrimSpace(sheet.Name)

	fields, failed := c.loadFields(ctx, sheet, entityType)
	if failed != nil {
		return *failed
	}
	if !c.opts.SkipReferences {
		c.prefetch(ctx, fields)
	}
	return c.processor.Process(ctx, sheet, entityType, fields)
}

// loadFields binds the sheet to its entity type's field definitions, falling
// back to header inference when enabled. A non-nil SheetResult is terminal.
func (c *Coordinator) loadFields(ctx context.Context, sheet SheetData, entityType string) ([]FieldSchema, *SheetResult) {
	exists, err := c.store.Exists(ctx, entityType)
	if err != nil {
		res := failedSheet(sheet.Name, entityType, CodeEntityTypeError, "Failed to check entity type")
		return nil, &res
	}

	if exists {
		fields, err := c.schemas.GetFields(ctx, entityType)
		switch {
		case err == nil:
			return fields, nil
		case !errors.Is(err, ErrEntityTypeNotFound):
			res := failedSheet(sheet.Name, entityType, CodeEntityTypeError, "Failed to load field definitions")
			return nil, &res
		}
	}

	if c.opts.InferSchema {
		return InferFields(trimmedHeaders(sheet.Header)), nil
	}
	res := failedSheet(sheet.Name, entityType, CodeEntityTypeNotFound,
		fmt.Sprintf("Entity type '%s' is not registered", entityType))
	return nil, &res
}

// prefetch populates the cache for every distinct reference target in the
// sheet's fields. Failures are logged and skipped; lookups for that target
// fall back to lazy population at row time.
func (c *Coordinator) prefetch(ctx context.Context, fields []FieldSchema) {
	log := utils.GetLogger()
	seen := make(map[string]struct{})
	for _, f := range fields {
		if f.Type != TypeReference || f.RefTarget == "" {
			continue
		}
		if _, done := seen[f.RefTarget]; done {
			continue
		}
		seen[f.RefTarget] = struct{}{}

		materialized, count, err := c.cache.Prefetch(ctx, f.RefTarget)
		if err != nil {
			log.WithFields(logrus.Fields{
				"entity_type": f.RefTarget,
				"error":       err.Error(),
			}).Warn("Reference prefetch failed")
			continue
		}
		if c.opts.Observer != nil {
			c.opts.Observer.PrefetchDone(f.RefTarget, materialized, count)
		}
	}
}

// skippedSheet records a sheet the batch never started.
func skippedSheet(sheetName, message string) SheetResult {
	res := failedSheet(sheetName, strings.TrimSpace(sheetName), CodeTimeout, message)
	res.State = SheetTimedOut
	return res
}

// roundSeconds reports a duration as seconds with two decimals.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
