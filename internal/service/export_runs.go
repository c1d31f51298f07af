package service

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sheetcheck/internal/models"
)

// ExportRunsList writes the run history to an Excel file for offline review.
func (s *WorkbookService) ExportRunsList(runs []models.ValidationRun, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Validation Runs"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create export sheet: %w", err)
	}
	f.SetActiveSheet(index)

	// Set headers
	headers := []string{
		"ID", "Run Code", "User ID", "Filename", "Sheets", "Rows",
		"Errors", "Status", "Error Message", "Created At",
	}

	// Style headers
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})

	// Write headers
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	// Status cell fills per terminal state
	statusFills := map[string]string{
		models.RunStatusCompleted:           "#D4EDDA",
		models.RunStatusCompletedWithErrors: "#FFF3CD",
		models.RunStatusFailed:              "#F8D7DA",
	}
	statusStyles := make(map[string]int, len(statusFills))
	for status, color := range statusFills {
		style, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		statusStyles[status] = style
	}

	// Write data
	for i, run := range runs {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), run.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), run.RunCode)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), run.UserID)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), run.Filename)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), run.TotalSheets)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), run.TotalRows)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), run.TotalErrors)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), run.Status)
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), run.ErrorMessage)
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), run.CreatedAt.Format("2006-01-02 15:04:05"))

		if style, ok := statusStyles[run.Status]; ok {
			statusCell := fmt.Sprintf("H%d", row)
			f.SetCellStyle(sheetName, statusCell, statusCell, style)
		}
	}

	// Column widths
	for i := range headers {
		col := getColumnName(i)
		f.SetColWidth(sheetName, col, col, 12)
	}
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "D", "D", 28)
	f.SetColWidth(sheetName, "I", "I", 36)
	f.SetColWidth(sheetName, "J", "J", 20)

	// Add summary at the bottom
	if len(runs) > 0 {
		summaryRow := len(runs) + 3
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "Summary:")
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("Total Runs: %d", len(runs)))

		// Count by status
		statusCounts := make(map[string]int)
		for _, run := range runs {
			statusCounts[run.Status]++
		}

		title := cases.Title(language.English)
		row := summaryRow + 1
		for status, count := range statusCounts {
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), fmt.Sprintf("%s: %d", title.String(status), count))
			row++
		}

		summaryStyle, _ := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{"#F0F0F0"},
				Pattern: 1,
			},
		})
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("A%d", summaryRow), summaryStyle)
	}

	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}
