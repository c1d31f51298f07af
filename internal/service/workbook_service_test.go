package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"sheetcheck/internal/config"
	"sheetcheck/internal/models"
	"sheetcheck/internal/validation"
)

func testWorkbookService() *WorkbookService {
	return NewWorkbookService(&config.Config{UploadMaxSizeMB: 1})
}

func TestInspectUpload(t *testing.T) {
	svc := testWorkbookService()

	tests := []struct {
		name     string
		filename string
		size     int64
		wantCode validation.Code
	}{
		{"xlsx passes", "data.xlsx", 100, ""},
		{"xls passes", "data.xls", 100, ""},
		{"uppercase extension passes", "DATA.XLSX", 100, ""},
		{"csv rejected", "data.csv", 100, validation.CodeInvalidFileType},
		{"no extension rejected", "data", 100, validation.CodeInvalidFileType},
		{"oversized rejected", "data.xlsx", 2 * 1024 * 1024, validation.CodeFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ferr := svc.InspectUpload(tt.filename, tt.size)
			if tt.wantCode == "" {
				if ferr != nil {
					t.Fatalf("InspectUpload = %+v, want nil", ferr)
				}
				return
			}
			if ferr == nil {
				t.Fatalf("InspectUpload = nil, want code %s", tt.wantCode)
			}
			if ferr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", ferr.Code, tt.wantCode)
			}
			if ferr.Column != FileColumn || ferr.Row != 0 {
				t.Errorf("Column/Row = %q/%d, want %q/0", ferr.Column, ferr.Row, FileColumn)
			}
			if ferr.Value != tt.filename {
				t.Errorf("Value = %v, want %q", ferr.Value, tt.filename)
			}
		})
	}
}

func TestOpenPasswordProtected(t *testing.T) {
	svc := testWorkbookService()
	path := filepath.Join(t.TempDir(), "locked.xlsx")

	f := excelize.NewFile()
	if err := f.SaveAs(path, excelize.Options{Password: "secret"}); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	_, ferr := svc.Open(path)
	if ferr == nil {
		t.Fatal("Open succeeded on a password protected file")
	}
	if ferr.Code != validation.CodePasswordProtected {
		t.Errorf("Code = %s, want %s", ferr.Code, validation.CodePasswordProtected)
	}
}

func TestOpenUnreadable(t *testing.T) {
	svc := testWorkbookService()
	path := filepath.Join(t.TempDir(), "garbage.xlsx")
	if err := os.WriteFile(path, []byte("this is not a spreadsheet"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, ferr := svc.Open(path)
	if ferr == nil {
		t.Fatal("Open succeeded on garbage bytes")
	}
	if ferr.Code != validation.CodeUnreadableFile {
		t.Errorf("Code = %s, want %s", ferr.Code, validation.CodeUnreadableFile)
	}

	if _, ferr := svc.Open(filepath.Join(t.TempDir(), "missing.xlsx")); ferr == nil {
		t.Error("Open succeeded on a missing file")
	}
}

func TestReadTypedCells(t *testing.T) {
	svc := testWorkbookService()
	path := filepath.Join(t.TempDir(), "typed.xlsx")

	f := excelize.NewFile()
	if _, err := f.NewSheet("Data"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	headers := []string{"Name", "Score", "Active", "When", "Joined"}
	for i, h := range headers {
		f.SetCellValue("Data", getColumnName(i)+"1", h)
	}
	f.SetCellValue("Data", "A2", "Ayu")
	f.SetCellValue("Data", "B2", 42.5)
	f.SetCellValue("Data", "C2", true)
	f.SetCellValue("Data", "D2", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	f.SetCellValue("Data", "E2", "2024-01-10")
	f.DeleteSheet("Sheet1")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	opened, ferr := svc.Open(path)
	if ferr != nil {
		t.Fatalf("Open: %+v", ferr)
	}
	defer opened.Close()

	sheets, err := svc.Read(opened)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(sheets) != 1 || sheets[0].Name != "Data" {
		t.Fatalf("sheets = %+v", sheets)
	}
	if len(sheets[0].Header) != len(headers) || sheets[0].Header[0] != "Name" {
		t.Fatalf("Header = %v", sheets[0].Header)
	}
	if len(sheets[0].Rows) != 1 {
		t.Fatalf("Rows = %d, want 1", len(sheets[0].Rows))
	}

	row := sheets[0].Rows[0]
	if got, ok := row[0].(string); !ok || got != "Ayu" {
		t.Errorf("row[0] = %#v, want string Ayu", row[0])
	}
	if got, ok := row[1].(float64); !ok || got != 42.5 {
		t.Errorf("row[1] = %#v, want float64 42.5", row[1])
	}
	if got, ok := row[2].(bool); !ok || !got {
		t.Errorf("row[2] = %#v, want bool true", row[2])
	}
	when, ok := row[3].(time.Time)
	if !ok {
		t.Fatalf("row[3] = %#v, want time.Time", row[3])
	}
	if when.Year() != 2024 || when.Month() != time.March || when.Day() != 15 {
		t.Errorf("row[3] = %v, want 2024-03-15", when)
	}
	// Text that happens to look like a date stays text; typing it is the
	// validator's job.
	if got, ok := row[4].(string); !ok || got != "2024-01-10" {
		t.Errorf("row[4] = %#v, want string 2024-01-10", row[4])
	}
}

func TestReadBlankCellsAreNil(t *testing.T) {
	svc := testWorkbookService()
	path := filepath.Join(t.TempDir(), "blank.xlsx")

	f := excelize.NewFile()
	if _, err := f.NewSheet("Data"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	f.SetCellValue("Data", "A1", "First")
	f.SetCellValue("Data", "B1", "Second")
	f.SetCellValue("Data", "C1", "Third")
	f.SetCellValue("Data", "A2", "x")
	f.SetCellValue("Data", "C2", "y")
	f.DeleteSheet("Sheet1")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	opened, ferr := svc.Open(path)
	if ferr != nil {
		t.Fatalf("Open: %+v", ferr)
	}
	defer opened.Close()

	sheets, err := svc.Read(opened)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	row := sheets[0].Rows[0]
	if len(row) < 3 {
		t.Fatalf("row = %v, want 3 cells", row)
	}
	if row[1] != nil {
		t.Errorf("row[1] = %#v, want nil for blank cell", row[1])
	}
}

func TestWriteAnnotated(t *testing.T) {
	svc := testWorkbookService()
	path := filepath.Join(t.TempDir(), "annotated.xlsx")

	sheets := []validation.SheetData{
		{Name: "Employees", Header: []string{"ID", "Name"}},
		{Name: "Broken", Header: nil},
	}
	report := &validation.BatchReport{
		SheetResults: []validation.SheetResult{
			{
				SheetName: "Employees",
				State:     validation.SheetCompleted,
				Rows: []validation.AnnotatedRow{
					{Cells: []any{"E1", "Ayu"}},
					{
						HasError:   true,
						ErrorCount: 2,
						Detail:     "Name is required; ID already used",
						Cells:      []any{"E2", nil},
						Flagged:    []int{1},
					},
				},
			},
			{
				SheetName: "Broken",
				State:     validation.SheetFailed,
				Errors:    []validation.FieldError{{Message: "No header row found"}},
			},
		},
	}

	if err := svc.WriteAnnotated(report, sheets, path); err != nil {
		t.Fatalf("WriteAnnotated: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	for _, s := range f.GetSheetList() {
		if s == "Sheet1" {
			t.Error("default Sheet1 was not removed")
		}
	}

	wantHeader := []string{"Error Detected", "No. of Error", "DetailsMessage", "ID", "Name"}
	for i, want := range wantHeader {
		got, _ := f.GetCellValue("Employees", getColumnName(i)+"1")
		if got != want {
			t.Errorf("header[%d] = %q, want %q", i, got, want)
		}
	}

	cells := map[string]string{
		"A2": "No Error",
		"C2": "No Error",
		"D2": "E1",
		"E2": "Ayu",
		"A3": "Error",
		"B3": "2",
		"C3": "Name is required; ID already used",
		"D3": "E2",
	}
	for axis, want := range cells {
		got, _ := f.GetCellValue("Employees", axis)
		if got != want {
			t.Errorf("%s = %q, want %q", axis, got, want)
		}
	}

	// The flagged Name cell carries the error style, its neighbor does not.
	flaggedStyle, _ := f.GetCellStyle("Employees", "E3")
	plainStyle, _ := f.GetCellStyle("Employees", "D3")
	if flaggedStyle == plainStyle {
		t.Error("flagged cell has the same style as a plain cell")
	}

	gotErr, _ := f.GetCellValue("Broken", "A2")
	gotMsg, _ := f.GetCellValue("Broken", "B2")
	if gotErr != "ERROR" || gotMsg != "No header row found" {
		t.Errorf("failed sheet row = %q/%q", gotErr, gotMsg)
	}
}

func TestGenerateTemplate(t *testing.T) {
	svc := testWorkbookService()
	path := filepath.Join(t.TempDir(), "template.xlsx")

	fields := []validation.FieldSchema{
		{Name: "id", Label: "Employee ID", Type: validation.TypeText, Required: true, PrimaryKey: true},
		{Name: "dept", Label: "Department", Type: validation.TypeReference, RefTarget: "departments"},
	}

	if err := svc.GenerateTemplate("Employees", fields, path); err != nil {
		t.Fatalf("GenerateTemplate: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	a1, _ := f.GetCellValue("Employees", "A1")
	b1, _ := f.GetCellValue("Employees", "B1")
	if a1 != "Employee ID" || b1 != "Department" {
		t.Errorf("headers = %q, %q", a1, b1)
	}

	a4, _ := f.GetCellValue("Employees", "A4")
	if a4 != "Instructions:" {
		t.Errorf("A4 = %q, want Instructions:", a4)
	}

	rows, err := f.GetRows("Employees")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	var found bool
	for _, row := range rows {
		if len(row) > 0 && row[0] == "Department: Reference, must match an existing departments" {
			found = true
		}
	}
	if !found {
		t.Error("reference field instruction line missing")
	}
}

func TestExportRunsList(t *testing.T) {
	svc := testWorkbookService()
	path := filepath.Join(t.TempDir(), "runs.xlsx")

	runs := []models.ValidationRun{
		{
			ID:          1,
			RunCode:     "VAL-abc12345",
			UserID:      7,
			Filename:    "upload.xlsx",
			TotalSheets: 2,
			TotalRows:   40,
			TotalErrors: 3,
			Status:      models.RunStatusCompletedWithErrors,
			CreatedAt:   time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		},
	}

	if err := svc.ExportRunsList(runs, path); err != nil {
		t.Fatalf("ExportRunsList: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	got, _ := f.GetCellValue("Validation Runs", "B1")
	if got != "Run Code" {
		t.Errorf("B1 = %q, want Run Code", got)
	}
	code, _ := f.GetCellValue("Validation Runs", "B2")
	if code != "VAL-abc12345" {
		t.Errorf("B2 = %q, want VAL-abc12345", code)
	}
	status, _ := f.GetCellValue("Validation Runs", "H2")
	if status != models.RunStatusCompletedWithErrors {
		t.Errorf("H2 = %q, want %q", status, models.RunStatusCompletedWithErrors)
	}
	summary, _ := f.GetCellValue("Validation Runs", "A4")
	if summary != "Summary:" {
		t.Errorf("A4 = %q, want Summary:", summary)
	}
}
