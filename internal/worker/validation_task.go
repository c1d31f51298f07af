package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"sheetcheck/internal/config"
	"sheetcheck/internal/metrics"
	"sheetcheck/internal/models"
	"sheetcheck/internal/repository"
	"sheetcheck/internal/service"
)

// TypeValidationRun is the asynq task type for executing one validation run.
const TypeValidationRun = "validation:run"

// ValidationRunPayload is the task payload. Only the run ID travels through
// the queue; everything else is loaded from the database by the handler.
type ValidationRunPayload struct {
	RunID int `json:"run_id"`
}

// NewValidationRunTask builds the queue task for a stored run.
func NewValidationRunTask(runID int) (*asynq.Task, error) {
	payload, err := json.Marshal(ValidationRunPayload{RunID: runID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode validation task payload: %w", err)
	}
	return asynq.NewTask(TypeValidationRun, payload), nil
}

// ValidationTaskHandler executes queued validation runs: it loads the run,
// validates the uploaded workbook and persists the report and artifact.
type ValidationTaskHandler struct {
	runRepo   *repository.RunRepository
	validator *service.ValidationService
	progress  *ProgressPublisher
	cfg       *config.Config
}

func NewValidationTaskHandler(db *sqlx.DB, redisClient *redis.Client, cfg *config.Config) *ValidationTaskHandler {
	schemaRepo := repository.NewSchemaRepository(db)
	store := repository.NewEntityStore(db)
	workbook := service.NewWorkbookService(cfg)
	validator := service.NewValidationService(cfg, schemaRepo, store, workbook, metrics.NewRunObserver())

	return &ValidationTaskHandler{
		runRepo:   repository.NewRunRepository(db),
		validator: validator,
		progress:  NewProgressPublisher(redisClient),
		cfg:       cfg,
	}
}

// Handle processes one queued run. A payload that cannot be decoded is not
// retried; a run that cannot be loaded is, since the row may just not be
// visible to this worker yet.
func (h *ValidationTaskHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ValidationRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to decode validation task payload: %v: %w", err, asynq.SkipRetry)
	}

	run, err := h.runRepo.FindByID(payload.RunID)
	if err != nil {
		return fmt.Errorf("failed to load validation run %d: %w", payload.RunID, err)
	}
	if run.Finished() {
		log.Printf("Run %s is already %s, skipping", run.RunCode, run.Status)
		return nil
	}

	log.Printf("Starting validation run %s (file: %s)", run.RunCode, run.Filename)
	metrics.RunsStarted.Inc()
	started := time.Now()

	if err := h.runRepo.UpdateStatus(run.ID, models.RunStatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to mark run %s as processing: %w", run.RunCode, err)
	}
	h.progress.Publish(ctx, models.RunProgress{
		RunID:  run.ID,
		Status: models.RunStatusProcessing,
	})

	result, err := h.validator.Execute(ctx, run, func(done, total int, sheetName string) {
		percent := 100.0
		if total > 0 {
			percent = float64(done) / float64(total) * 100
		}
		h.progress.Publish(ctx, models.RunProgress{
			RunID:        run.ID,
			Percent:      percent,
			CurrentSheet: sheetName,
			Status:       models.RunStatusProcessing,
		})
	})
	if err != nil {
		h.failRun(ctx, run, err)
		return err
	}

	report := result.Report
	run.Status = service.StatusForReport(report)
	run.TotalSheets = report.TotalSheets
	run.TotalRows = report.TotalRows
	run.TotalErrors = report.TotalErrors
	run.StructureValid = report.StructureValid
	run.ArtifactPath = result.ArtifactPath
	run.ReportJSON = result.ReportJSON
	if run.Status == models.RunStatusFailed && len(report.Errors) > 0 {
		run.ErrorMessage = report.Errors[0].Message
	}

	if err := h.runRepo.SaveResults(run); err != nil {
		h.failRun(ctx, run, err)
		return fmt.Errorf("failed to persist results for run %s: %w", run.RunCode, err)
	}

	h.progress.Publish(ctx, models.RunProgress{
		RunID:   run.ID,
		Percent: 100,
		Status:  run.Status,
	})
	metrics.RunsFinished.WithLabelValues(run.Status).Inc()
	metrics.RunDuration.Observe(time.Since(started).Seconds())

	log.Printf("Run %s finished with status %s: %d sheets, %d rows, %d errors in %.2fs",
		run.RunCode, run.Status, run.TotalSheets, run.TotalRows, run.TotalErrors, time.Since(started).Seconds())
	return nil
}

func (h *ValidationTaskHandler) failRun(ctx context.Context, run *models.ValidationRun, cause error) {
	if err := h.runRepo.UpdateStatus(run.ID, models.RunStatusFailed, cause.Error()); err != nil {
		log.Printf("Failed to mark run %s as failed: %v", run.RunCode, err)
	}
	h.progress.Publish(ctx, models.RunProgress{
		RunID:   run.ID,
		Percent: 100,
		Status:  models.RunStatusFailed,
	})
	metrics.RunsFinished.WithLabelValues(models.RunStatusFailed).Inc()
}
