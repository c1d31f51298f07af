package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"

	"sheetcheck/internal/config"
	"sheetcheck/internal/models"
	"sheetcheck/internal/utils"
	"sheetcheck/internal/validation"
)

// ProgressFunc receives sheet-level progress while a run executes.
type ProgressFunc func(done, total int, sheetName string)

// RunResult is the outcome of executing one validation run.
type RunResult struct {
	Report       *validation.BatchReport
	ReportJSON   []byte
	ArtifactPath string
}

// ValidationService executes validation runs end to end: workbook ingest,
// the batch validation itself, the annotated artifact and the report
// document. The reference cache is shared across runs, so concurrent worker
// tasks reuse identifier sets already materialized.
type ValidationService struct {
	cfg      *config.Config
	schemas  validation.SchemaProvider
	store    validation.EntityStore
	workbook *WorkbookService
	cache    *validation.ReferenceCache
	observer validation.Observer
}

func NewValidationService(
	cfg *config.Config,
	schemas validation.SchemaProvider,
	store validation.EntityStore,
	workbook *WorkbookService,
	observer validation.Observer,
) *ValidationService {
	return &ValidationService{
		cfg:      cfg,
		schemas:  schemas,
		store:    store,
		workbook: workbook,
		cache:    validation.NewReferenceCache(store, cfg.ReferenceCacheLimit),
		observer: observer,
	}
}

// Execute runs one validation from its stored upload to a finished report.
// File-level failures produce a failed report rather than an error; a
// non-nil error means infrastructure trouble worth retrying.
func (s *ValidationService) Execute(ctx context.Context, run *models.ValidationRun, progress ProgressFunc) (*RunResult, error) {
	log := utils.GetLogger()

	f, ferr := s.workbook.Open(run.FilePath)
	if ferr != nil {
		return s.finishWithReport(run, FileFailureReport(ferr), nil)
	}
	defer f.Close()

	sheets, err := s.workbook.Read(f)
	if err != nil {
		ferr := fileError(validation.CodeUnreadableFile,
			fmt.Sprintf("Failed to extract sheet data: %v", err), run.Filename)
		return s.finishWithReport(run, FileFailureReport(ferr), nil)
	}

	opts := validation.Options{
		BatchTimeout:   s.cfg.BatchTimeout,
		SheetTimeout:   s.cfg.SheetTimeout,
		CacheLimit:     s.cfg.ReferenceCacheLimit,
		MaxSuggestions: s.cfg.MaxSuggestions,
		SkipReferences: run.SkipReferences,
		InferSchema:    s.cfg.InferSchema,
		Observer:       s.composeObserver(len(sheets), progress),
	}

	coordinator := validation.NewCoordinator(s.schemas, s.store, s.cache, opts)
	report := coordinator.Run(ctx, sheets)
	report.FileURL = fmt.Sprintf("/api/v1/validations/%s/download", run.RunCode)

	artifactPath := filepath.Join(s.cfg.ArtifactPath, run.RunCode+"_validated.xlsx")
	if err := s.workbook.WriteAnnotated(report, sheets, artifactPath); err != nil {
		// The report is still useful without the artifact.
		log.WithFields(logrus.Fields{
			"run_code": run.RunCode,
			"error":    err.Error(),
		}).Warn("Failed to write annotated workbook")
		artifactPath = ""
	}

	return s.finishWithReport(run, report, &artifactPath)
}

func (s *ValidationService) finishWithReport(run *models.ValidationRun, report *validation.BatchReport, artifactPath *string) (*RunResult, error) {
	reportJSON, err := sonic.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report for run %s: %w", run.RunCode, err)
	}

	result := &RunResult{
		Report:     report,
		ReportJSON: reportJSON,
	}
	if artifactPath != nil {
		result.ArtifactPath = *artifactPath
	}
	return result, nil
}

// composeObserver merges the metrics observer with a per-run progress
// callback. Either side may be absent.
func (s *ValidationService) composeObserver(totalSheets int, progress ProgressFunc) validation.Observer {
	observers := multiObserver{}
	if s.observer != nil {
		observers = append(observers, s.observer)
	}
	if progress != nil {
		observers = append(observers, &progressObserver{total: totalSheets, fn: progress})
	}
	if len(observers) == 0 {
		return nil
	}
	return observers
}

// StatusForReport maps a finished report onto the run's terminal state.
func StatusForReport(report *validation.BatchReport) string {
	if report.TotalSheets == 0 {
		// Nothing was validated: the file itself was rejected.
		return models.RunStatusFailed
	}
	if report.TotalErrors > 0 {
		return models.RunStatusCompletedWithErrors
	}
	return models.RunStatusCompleted
}

// FileFailureReport wraps a single file-level error in a report so rejected
// uploads carry the same document shape as validated ones.
func FileFailureReport(ferr *validation.FieldError) *validation.BatchReport {
	return &validation.BatchReport{
		StructureValid: false,
		Errors:         []validation.FieldError{*ferr},
		SheetResults:   []validation.SheetResult{},
	}
}

type multiObserver []validation.Observer

func (m multiObserver) SheetDone(result *validation.SheetResult, took time.Duration) {
	for _, o := range m {
		o.SheetDone(result, took)
	}
}

func (m multiObserver) PrefetchDone(entityType string, materialized bool, count int) {
	for _, o := range m {
		o.PrefetchDone(entityType, materialized, count)
	}
}

type progressObserver struct {
	total int
	done  int
	fn    ProgressFunc
}

func (p *progressObserver) SheetDone(result *validation.SheetResult, _ time.Duration) {
	p.done++
	p.fn(p.done, p.total, result.SheetName)
}

func (p *progressObserver) PrefetchDone(string, bool, int) {}
