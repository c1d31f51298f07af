package handler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"sheetcheck/internal/config"
	"sheetcheck/internal/models"
	"sheetcheck/internal/repository"
	"sheetcheck/internal/service"
	"sheetcheck/internal/utils"
	"sheetcheck/internal/validation"
	"sheetcheck/internal/worker"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type ValidationHandler struct {
	runRepo     *repository.RunRepository
	schemaRepo  *repository.SchemaRepository
	workbook    *service.WorkbookService
	asynqClient *asynq.Client
	progress    *worker.ProgressPublisher
	cfg         *config.Config
}

func NewValidationHandler(
	runRepo *repository.RunRepository,
	schemaRepo *repository.SchemaRepository,
	workbook *service.WorkbookService,
	asynqClient *asynq.Client,
	progress *worker.ProgressPublisher,
	cfg *config.Config,
) *ValidationHandler {
	return &ValidationHandler{
		runRepo:     runRepo,
		schemaRepo:  schemaRepo,
		workbook:    workbook,
		asynqClient: asynqClient,
		progress:    progress,
		cfg:         cfg,
	}
}

// Upload accepts a spreadsheet, stores it and queues a validation run.
// Uploads that fail the cheap checks (extension, size) are stored as failed
// runs so the client can still fetch a report for them.
func (h *ValidationHandler) Upload(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "A spreadsheet file is required", err)
	}

	skipReferences, _ := strconv.ParseBool(c.FormValue("skip_references", "false"))

	// Generate run code
	runCode := fmt.Sprintf("VAL-%s", uuid.New().String()[:8])

	if ferr := h.workbook.InspectUpload(file.Filename, file.Size); ferr != nil {
		run, err := h.storeRejectedRun(userID, runCode, file.Filename, skipReferences, ferr)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record rejected upload", err)
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"message": ferr.Message,
			"data":    fiber.Map{"run": run},
		})
	}

	// Save file
	ext := filepath.Ext(file.Filename)
	filePath := filepath.Join(h.cfg.UploadPath, fmt.Sprintf("%s%s", runCode, ext))
	if err := c.SaveFile(file, filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save file", err)
	}

	run := &models.ValidationRun{
		RunCode:        runCode,
		UserID:         userID,
		Filename:       file.Filename,
		FilePath:       filePath,
		SkipReferences: skipReferences,
		Status:         models.RunStatusPending,
	}
	if err := h.runRepo.Create(run); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create validation run", err)
	}

	if h.asynqClient == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Background job processing is not available (Redis not connected)", nil)
	}

	task, err := worker.NewValidationRunTask(run.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build validation task", err)
	}
	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to queue validation run", err)
	}

	return utils.AcceptedResponse(c, "Validation queued", fiber.Map{
		"job_id": info.ID,
		"run":    run,
	})
}

// storeRejectedRun records an upload that never reached the queue. The run is
// created already failed, carrying the file-level report.
func (h *ValidationHandler) storeRejectedRun(userID int, runCode, filename string, skipReferences bool, ferr *validation.FieldError) (*models.ValidationRun, error) {
	reportJSON, err := sonic.Marshal(service.FileFailureReport(ferr))
	if err != nil {
		return nil, fmt.Errorf("failed to encode rejection report: %w", err)
	}

	run := &models.ValidationRun{
		RunCode:        runCode,
		UserID:         userID,
		Filename:       filename,
		SkipReferences: skipReferences,
		Status:         models.RunStatusFailed,
	}
	if err := h.runRepo.Create(run); err != nil {
		return nil, err
	}

	run.ErrorMessage = ferr.Message
	run.ReportJSON = reportJSON
	if err := h.runRepo.SaveResults(run); err != nil {
		return nil, err
	}
	return run, nil
}

func (h *ValidationHandler) GetRun(c *fiber.Ctx) error {
	run, err := h.runRepo.FindByCode(c.Params("code"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Validation run not found", err)
	}

	data := fiber.Map{"run": run}
	if run.Status == models.RunStatusProcessing {
		if progress, err := h.progress.Get(c.Context(), run.ID); err == nil && progress != nil {
			data["progress"] = progress
		}
	}

	return utils.SuccessResponse(c, "Run retrieved successfully", data)
}

// GetReport streams the stored machine-readable report as raw JSON.
func (h *ValidationHandler) GetReport(c *fiber.Ctx) error {
	run, err := h.runRepo.FindByCode(c.Params("code"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Validation run not found", err)
	}
	if len(run.ReportJSON) == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Report is not available yet", nil)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(run.ReportJSON)
}

func (h *ValidationHandler) GetProgress(c *fiber.Ctx) error {
	run, err := h.runRepo.FindByCode(c.Params("code"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Validation run not found", err)
	}

	progress, err := h.progress.Get(c.Context(), run.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read run progress", err)
	}
	if progress == nil {
		// Nothing published: derive a terminal or idle progress from the run.
		progress = &models.RunProgress{RunID: run.ID, Status: run.Status}
		if run.Finished() {
			progress.Percent = 100
		}
	}

	return utils.SuccessResponse(c, "Progress retrieved successfully", progress)
}

// DownloadArtifact sends the annotated copy of the uploaded workbook.
func (h *ValidationHandler) DownloadArtifact(c *fiber.Ctx) error {
	run, err := h.runRepo.FindByCode(c.Params("code"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Validation run not found", err)
	}
	if !run.HasArtifact() {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Annotated workbook is not available for this run", nil)
	}

	return c.Download(run.ArtifactPath, fmt.Sprintf("%s_validated.xlsx", run.RunCode))
}

func (h *ValidationHandler) ListRuns(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)
	role := c.Locals("role").(string)

	// Get pagination parameters
	params := utils.GetPaginationParams(c)
	status := c.Query("status")

	// Admin can see all runs, user can only see their own
	filterUserID := userID
	if role == "admin" {
		filterUserID = 0
	}

	runs, total, err := h.runRepo.List(filterUserID, params, status)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve runs", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, total)

	responseData := fiber.Map{
		"runs":       runs,
		"pagination": pagination,
	}

	return utils.PaginatedResponseBuilder(c, "Runs retrieved successfully", responseData, pagination)
}

// ExportRuns downloads the run history as an Excel file.
func (h *ValidationHandler) ExportRuns(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)
	role := c.Locals("role").(string)

	filterUserID := userID
	if role == "admin" {
		filterUserID = 0
	}

	// Export everything that matches, not just one page
	params := utils.PaginationParams{Page: 1, Limit: 100000}
	runs, _, err := h.runRepo.List(filterUserID, params, c.Query("status"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve runs", err)
	}

	filename := fmt.Sprintf("runs_export_%s.xlsx", time.Now().Format("20060102_150405"))
	outputPath := filepath.Join(h.cfg.ArtifactPath, filename)
	if err := h.workbook.ExportRunsList(runs, outputPath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export runs", err)
	}

	return c.Download(outputPath, filename)
}

// DeleteRun removes the run row together with its stored files. File removal
// is best effort; a missing file must not keep the row around.
func (h *ValidationHandler) DeleteRun(c *fiber.Ctx) error {
	run, err := h.runRepo.FindByCode(c.Params("code"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Validation run not found", err)
	}

	if run.FilePath != "" {
		os.Remove(run.FilePath)
	}
	if run.ArtifactPath != "" {
		os.Remove(run.ArtifactPath)
	}

	if err := h.runRepo.Delete(run.ID); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete validation run", err)
	}

	return utils.SuccessResponse(c, "Run deleted successfully", nil)
}

// DownloadTemplate generates an empty upload template for one entity type.
func (h *ValidationHandler) DownloadTemplate(c *fiber.Ctx) error {
	entityType := c.Query("type")
	if entityType == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Query parameter 'type' is required", nil)
	}

	fields, err := h.schemaRepo.GetFields(c.Context(), entityType)
	if err != nil {
		if errors.Is(err, validation.ErrEntityTypeNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Entity type not found", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load entity type", err)
	}

	filename := fmt.Sprintf("%s_template.xlsx", validation.NormalizeEntityKey(entityType))
	outputPath := filepath.Join(h.cfg.ArtifactPath, filename)
	if err := h.workbook.GenerateTemplate(entityType, fields, outputPath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}

	return c.Download(outputPath, filename)
}

func (h *ValidationHandler) ListEntityTypes(c *fiber.Ctx) error {
	types, err := h.schemaRepo.ListEntityTypes(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve entity types", err)
	}

	return utils.SuccessResponse(c, "Entity types retrieved successfully", fiber.Map{
		"entity_types": types,
	})
}

// Stats aggregates run counts per status for the dashboard.
func (h *ValidationHandler) Stats(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)
	role := c.Locals("role").(string)

	filterUserID := userID
	if role == "admin" {
		filterUserID = 0
	}

	counts, err := h.runRepo.CountByStatus(filterUserID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve stats", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return utils.SuccessResponse(c, "Stats retrieved successfully", fiber.Map{
		"total_runs": total,
		"by_status":  counts,
	})
}
