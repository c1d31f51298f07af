package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"sheetcheck/internal/config"
	"sheetcheck/internal/models"
	"sheetcheck/internal/validation"
)

type fakeSchemas struct {
	fields map[string][]validation.FieldSchema
}

func (f *fakeSchemas) GetFields(_ context.Context, entityType string) ([]validation.FieldSchema, error) {
	fields, ok := f.fields[validation.NormalizeEntityKey(entityType)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", entityType, validation.ErrEntityTypeNotFound)
	}
	return fields, nil
}

type fakeStore struct {
	records map[string][]string
}

func (f *fakeStore) Exists(_ context.Context, entityType string) (bool, error) {
	_, ok := f.records[validation.NormalizeEntityKey(entityType)]
	return ok, nil
}

func (f *fakeStore) Count(_ context.Context, entityType string) (int, error) {
	return len(f.records[validation.NormalizeEntityKey(entityType)]), nil
}

func (f *fakeStore) ListIDs(_ context.Context, entityType string) ([]string, error) {
	ids := f.records[validation.NormalizeEntityKey(entityType)]
	return append([]string{}, ids...), nil
}

func (f *fakeStore) ExistsRecord(_ context.Context, entityType, id string) (bool, error) {
	for _, known := range f.records[validation.NormalizeEntityKey(entityType)] {
		if validation.NormalizeEntityKey(known) == validation.NormalizeEntityKey(id) {
			return true, nil
		}
	}
	return false, nil
}

func testValidationConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		UploadMaxSizeMB:     5,
		UploadPath:          t.TempDir(),
		ArtifactPath:        t.TempDir(),
		BatchTimeout:        30 * time.Second,
		SheetTimeout:        15 * time.Second,
		ReferenceCacheLimit: 100,
		MaxSuggestions:      3,
		InferSchema:         true,
	}
}

func writeEmployeeWorkbook(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "upload.xlsx")

	f := excelize.NewFile()
	if _, err := f.NewSheet("Employees"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	f.SetCellValue("Employees", "A1", "ID")
	f.SetCellValue("Employees", "B1", "Name")
	f.SetCellValue("Employees", "A2", "E1")
	f.SetCellValue("Employees", "B2", "Ayu")
	f.SetCellValue("Employees", "A3", "E2")
	// B3 left blank: Name is required
	f.DeleteSheet("Sheet1")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()
	return path
}

func TestExecuteProducesReportAndArtifact(t *testing.T) {
	cfg := testValidationConfig(t)
	schemas := &fakeSchemas{fields: map[string][]validation.FieldSchema{
		"employees": {
			{Name: "id", Label: "ID", Type: validation.TypeText, Required: true, PrimaryKey: true},
			{Name: "name", Label: "Name", Type: validation.TypeText, Required: true},
		},
	}}
	// The sheet name must be a registered entity type or the engine falls
	// back to inferred, all-optional fields.
	store := &fakeStore{records: map[string][]string{"employees": {}}}
	svc := NewValidationService(cfg, schemas, store, NewWorkbookService(cfg), nil)

	run := &models.ValidationRun{
		ID:       1,
		RunCode:  "VAL-test0001",
		Filename: "upload.xlsx",
		FilePath: writeEmployeeWorkbook(t, cfg.UploadPath),
	}

	var progressCalls int
	var lastSheet string
	result, err := svc.Execute(context.Background(), run, func(done, total int, sheetName string) {
		progressCalls++
		lastSheet = sheetName
		if total != 1 {
			t.Errorf("progress total = %d, want 1", total)
		}
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	report := result.Report
	if report.TotalSheets != 1 {
		t.Errorf("TotalSheets = %d, want 1", report.TotalSheets)
	}
	if report.TotalErrors == 0 {
		t.Error("TotalErrors = 0, want the blank required Name flagged")
	}
	var foundRequired bool
	for _, e := range report.Errors {
		if e.Code == validation.CodeRequiredFieldEmpty && e.Column == "Name" {
			foundRequired = true
		}
	}
	if !foundRequired {
		t.Errorf("errors = %+v, want REQUIRED_FIELD_EMPTY on Name", report.Errors)
	}
	if report.FileURL != "/api/v1/validations/VAL-test0001/download" {
		t.Errorf("FileURL = %q", report.FileURL)
	}

	if len(result.ReportJSON) == 0 {
		t.Error("ReportJSON is empty")
	}
	if result.ArtifactPath == "" {
		t.Fatal("ArtifactPath is empty")
	}
	if _, err := os.Stat(result.ArtifactPath); err != nil {
		t.Errorf("artifact not written: %v", err)
	}

	if progressCalls != 1 || lastSheet != "Employees" {
		t.Errorf("progress calls = %d (last sheet %q), want 1 call for Employees", progressCalls, lastSheet)
	}
}

func TestExecuteFileFailure(t *testing.T) {
	cfg := testValidationConfig(t)
	svc := NewValidationService(cfg, &fakeSchemas{}, &fakeStore{}, NewWorkbookService(cfg), nil)

	path := filepath.Join(cfg.UploadPath, "locked.xlsx")
	f := excelize.NewFile()
	if err := f.SaveAs(path, excelize.Options{Password: "pw"}); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	run := &models.ValidationRun{ID: 2, RunCode: "VAL-test0002", Filename: "locked.xlsx", FilePath: path}
	result, err := svc.Execute(context.Background(), run, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	report := result.Report
	if report.StructureValid {
		t.Error("StructureValid = true for a rejected file")
	}
	if len(report.Errors) != 1 || report.Errors[0].Code != validation.CodePasswordProtected {
		t.Errorf("Errors = %+v, want a single PASSWORD_PROTECTED entry", report.Errors)
	}
	if result.ArtifactPath != "" {
		t.Errorf("ArtifactPath = %q, want empty for a rejected file", result.ArtifactPath)
	}
	if got := StatusForReport(report); got != models.RunStatusFailed {
		t.Errorf("StatusForReport = %q, want failed", got)
	}
}

func TestStatusForReport(t *testing.T) {
	tests := []struct {
		name   string
		report *validation.BatchReport
		want   string
	}{
		{"file rejected", &validation.BatchReport{TotalSheets: 0}, models.RunStatusFailed},
		{"errors found", &validation.BatchReport{TotalSheets: 2, TotalErrors: 3}, models.RunStatusCompletedWithErrors},
		{"clean", &validation.BatchReport{TotalSheets: 2}, models.RunStatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusForReport(tt.report); got != tt.want {
				t.Errorf("StatusForReport = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileFailureReport(t *testing.T) {
	ferr := &validation.FieldError{
		Column:  FileColumn,
		Code:    validation.CodeInvalidFileType,
		Message: "File type '.csv' is not supported. Upload a .xlsx file.",
		Value:   "data.csv",
	}
	report := FileFailureReport(ferr)

	if report.StructureValid {
		t.Error("StructureValid = true")
	}
	if len(report.Errors) != 1 || report.Errors[0].Code != validation.CodeInvalidFileType {
		t.Errorf("Errors = %+v", report.Errors)
	}
	if report.SheetResults == nil {
		t.Error("SheetResults should be an empty slice, not nil, for stable JSON")
	}
}
