package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sheetcheck/internal/config"
	"sheetcheck/internal/validation"
)

// FileColumn is the column name used on file-level errors, before any sheet
// is opened.
const FileColumn = "File"

// Annotated artifact styling.
const (
	headerFillColor = "4F81BD"
	headerFontColor = "FFFFFF"
	errorFillColor  = "FFC7CE"
	errorFontColor  = "9C0006"
)

var annotationHeaders = []string{"Error Detected", "No. of Error", "DetailsMessage"}

// WorkbookService handles workbook ingest and the annotated artifact: it
// turns an uploaded file into typed sheet data for the validation engine and
// writes the engine's report back as a styled spreadsheet.
type WorkbookService struct {
	cfg *config.Config
}

func NewWorkbookService(cfg *config.Config) *WorkbookService {
	return &WorkbookService{cfg: cfg}
}

// InspectUpload runs the checks that need no file content: extension and
// size. Returns nil when the upload passes.
func (s *WorkbookService) InspectUpload(filename string, size int64) *validation.FieldError {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".xls" {
		return fileError(validation.CodeInvalidFileType,
			fmt.Sprintf("File type '%s' is not supported. Upload a .xlsx file.", ext), filename)
	}
	if size > int64(s.cfg.UploadMaxSizeBytes()) {
		return fileError(validation.CodeFileTooLarge,
			fmt.Sprintf("File exceeds the %dMB limit", s.cfg.UploadMaxSizeMB), filename)
	}
	return nil
}

// Open opens a stored workbook, mapping open failures onto the file-level
// error codes.
func (s *WorkbookService) Open(path string) (*excelize.File, *validation.FieldError) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, excelize.ErrWorkbookPassword) {
			return nil, fileError(validation.CodePasswordProtected,
				"The file is password protected. Remove the password and upload again.", filepath.Base(path))
		}
		return nil, fileError(validation.CodeUnreadableFile,
			"The file could not be read as a spreadsheet.", filepath.Base(path))
	}
	return f, nil
}

// Read extracts every sheet as headers plus typed cell values. Numbers come
// back as float64, booleans as bool, date-formatted numbers as time.Time,
// everything else as string; empty cells are nil.
func (s *WorkbookService) Read(f *excelize.File) ([]validation.SheetData, error) {
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	var sheets []validation.SheetData
	for _, name := range f.GetSheetList() {
		raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}

		sheet := validation.SheetData{Name: name}
		if len(raw) > 0 {
			sheet.Header = raw[0]
		}
		for i := 1; i < len(raw); i++ {
			row := make([]any, len(raw[i]))
			for j, cell := range raw[i] {
				row[j] = s.typedCell(f, name, j+1, i+1, cell, date1904)
			}
			sheet.Rows = append(sheet.Rows, row)
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// typedCell converts one raw cell value using the cell's declared type and
// number format.
func (s *WorkbookService) typedCell(f *excelize.File, sheet string, col, row int, raw string, date1904 bool) any {
	if raw == "" {
		return nil
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}

	cellType, err := f.GetCellType(sheet, axis)
	if err != nil {
		return raw
	}

	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeDate:
		// Explicit ISO 8601 cell, stored as text.
		if t, perr := parseISODate(raw); perr == nil {
			return t
		}
		return raw
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return raw
	}

	// Number cells carry no type attribute, so anything left is a number
	// candidate: a date-styled serial becomes time.Time, other numerics stay
	// float64, and non-numeric raw values fall back to string.
	serial, perr := strconv.ParseFloat(raw, 64)
	if perr != nil {
		return raw
	}
	if s.isDateStyled(f, sheet, axis) {
		if t, derr := excelize.ExcelDateToTime(serial, date1904); derr == nil {
			return t
		}
	}
	return serial
}

func (s *WorkbookService) isDateStyled(f *excelize.File, sheet, axis string) bool {
	styleID, err := f.GetCellStyle(sheet, axis)
	if err != nil {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if isBuiltInDateFormat(style.NumFmt) {
		return true
	}
	if style.CustomNumFmt != nil {
		return hasDateTokens(*style.CustomNumFmt)
	}
	return false
}

// isBuiltInDateFormat reports whether a built-in number format ID renders
// dates or times (ECMA-376 section 18.8.30).
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// hasDateTokens scans a custom number format for date/time tokens, skipping
// quoted literals and bracketed sections such as colors or locale prefixes.
func hasDateTokens(format string) bool {
	inQuote, inBracket := false, false
	for _, r := range format {
		switch {
		case inQuote:
			if r == '"' {
				inQuote = false
			}
		case inBracket:
			if r == ']' {
				inBracket = false
			}
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		case r == 'y' || r == 'Y' || r == 'd' || r == 'D' || r == 'h' || r == 'H' || r == 's' || r == 'S' || r == 'm' || r == 'M':
			return true
		}
	}
	return false
}

func parseISODate(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05Z07:00", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("not an ISO date")
}

// WriteAnnotated writes the annotated artifact for a finished run: every
// input sheet with three prepended annotation columns, error cells
// highlighted, structurally failed sheets reduced to a single ERROR row.
func (s *WorkbookService) WriteAnnotated(report *validation.BatchReport, sheets []validation.SheetData, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: headerFontColor},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	errorStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: errorFontColor},
		Fill: excelize.Fill{Type: "pattern", Color: []string{errorFillColor}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	headerByName := make(map[string][]string, len(sheets))
	for _, sheet := range sheets {
		headerByName[sheet.Name] = sheet.Header
	}

	for _, result := range report.SheetResults {
		sheetName := result.SheetName
		index, err := f.NewSheet(sheetName)
		if err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", sheetName, err)
		}

		headers := append([]string{}, annotationHeaders...)
		headers = append(headers, headerByName[sheetName]...)
		for i, header := range headers {
			cell := fmt.Sprintf("%s1", getColumnName(i))
			f.SetCellValue(sheetName, cell, header)
		}
		f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

		if result.State == validation.SheetFailed {
			message := ""
			if len(result.Errors) > 0 {
				message = result.Errors[0].Message
			}
			f.SetCellValue(sheetName, "A2", "ERROR")
			f.SetCellValue(sheetName, "B2", message)
			f.SetCellStyle(sheetName, "A2", "B2", errorStyle)
		} else {
			s.writeAnnotatedRows(f, sheetName, result.Rows, errorStyle)
		}

		f.SetColWidth(sheetName, "A", "A", 14)
		f.SetColWidth(sheetName, "B", "B", 12)
		f.SetColWidth(sheetName, "C", "C", 60)
		if len(headers) > 3 {
			f.SetColWidth(sheetName, "D", getColumnName(len(headers)-1), 18)
		}

		f.SetActiveSheet(index)
	}

	f.DeleteSheet("Sheet1")
	return f.SaveAs(outputPath)
}

func (s *WorkbookService) writeAnnotatedRows(f *excelize.File, sheetName string, rows []validation.AnnotatedRow, errorStyle int) {
	for i, row := range rows {
		excelRow := i + 2

		status, detail := "No Error", "No Error"
		if row.HasError {
			status = "Error"
			detail = row.Detail
		}
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", excelRow), status)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", excelRow), row.ErrorCount)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", excelRow), detail)
		if row.HasError {
			f.SetCellStyle(sheetName, fmt.Sprintf("A%d", excelRow), fmt.Sprintf("C%d", excelRow), errorStyle)
		}

		for j, cell := range row.Cells {
			if cell == nil {
				continue
			}
			axis := fmt.Sprintf("%s%d", getColumnName(j+len(annotationHeaders)), excelRow)
			f.SetCellValue(sheetName, axis, cell)
		}
		for _, flagged := range row.Flagged {
			axis := fmt.Sprintf("%s%d", getColumnName(flagged+len(annotationHeaders)), excelRow)
			f.SetCellStyle(sheetName, axis, axis, errorStyle)
		}
	}
}

// GenerateTemplate creates an upload template for one entity type: the
// declared field labels as headers plus an instructions block describing the
// constraints.
func (s *WorkbookService) GenerateTemplate(entityLabel string, fields []validation.FieldSchema, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := entityLabel
	if sheetName == "" {
		sheetName = "Data"
	}
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: headerFontColor},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
	})

	for i, field := range fields {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, field.Label)
		colName := getColumnName(i)
		f.SetColWidth(sheetName, colName, colName, 20)
	}
	if len(fields) > 0 {
		f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(fields)-1)), headerStyle)
	}

	instructions := []string{
		"Instructions:",
		"Fill data starting from row 2. Do not modify the header row.",
	}
	for _, field := range fields {
		var notes []string
		notes = append(notes, string(field.Type))
		if field.Required {
			notes = append(notes, "required")
		}
		if field.PrimaryKey {
			notes = append(notes, "must be unique (ID)")
		} else if field.Unique {
			notes = append(notes, "must be unique")
		}
		if field.Type == validation.TypeReference && field.RefTarget != "" {
			notes = append(notes, fmt.Sprintf("must match an existing %s", field.RefTarget))
		}
		instructions = append(instructions, fmt.Sprintf("%s: %s", field.Label, strings.Join(notes, ", ")))
	}

	startRow := 4
	for i, line := range instructions {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", startRow+i), line)
	}
	instructionStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 10},
	})
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", startRow), fmt.Sprintf("A%d", startRow), instructionStyle)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

func fileError(code validation.Code, message, filename string) *validation.FieldError {
	return &validation.FieldError{
		Row:     0,
		Column:  FileColumn,
		Code:    code,
		Label:   code.Label(),
		Message: message,
		Value:   filename,
	}
}

// getColumnName converts a zero-based column index to its Excel letter name.
func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
