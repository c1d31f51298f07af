package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func main() {
	// Create new Excel file
	f := excelize.NewFile()
	defer f.Close()

	employeeSheet := "Employees"
	_, err := f.NewSheet(employeeSheet)
	if err != nil {
		fmt.Printf("Error creating sheet: %v\n", err)
		return
	}

	// Set headers
	employeeHeaders := []string{
		"Employee ID", "Full Name", "Department", "Start Date",
		"Annual Salary", "Review Year",
	}

	// Write headers
	for i, header := range employeeHeaders {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(employeeSheet, cell, header)
	}

	// Set header style
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(employeeSheet, "A1", fmt.Sprintf("%s1", getColumnName(len(employeeHeaders)-1)), headerStyle)

	// Sample rows seeded with problems the validator should catch.
	// Assumes the registry defines Employees with Employee ID as primary key,
	// Full Name required, Department referencing Departments.
	employeeData := [][]interface{}{
		// Clean rows
		{"EMP-001", "Ayu Lestari", "Finance", day(2023, time.February, 1), 82000000, 2024},
		{"EMP-002", "Budi Santoso", "Engineering", day(2022, time.August, 15), 95000000, 2024},
		{"EMP-003", "Citra Dewi", "Finance", day(2024, time.January, 10), 78000000, 2024},

		// Blank required name
		{"EMP-004", "", "Engineering", day(2023, time.May, 20), 88000000, 2024},

		// Unknown department (reference miss, suggestions from the cache)
		{"EMP-005", "Dian Paramita", "Enginering", day(2023, time.November, 2), 90000000, 2024},

		// Non-numeric salary
		{"EMP-006", "Eko Prasetyo", "Finance", day(2023, time.March, 14), "about 80m", 2024},

		// Unparseable start date
		{"EMP-007", "Fitri Handayani", "Engineering", "not-a-date", 86000000, 2024},

		// Review year outside the accepted range
		{"EMP-008", "Gilang Ramadhan", "Finance", day(2024, time.April, 1), 81000000, 19999},

		// Duplicate primary key (EMP-002 again)
		{"EMP-002", "Budi S.", "Engineering", day(2022, time.August, 15), 95000000, 2024},

		// Exact duplicate of a clean row
		{"EMP-003", "Citra Dewi", "Finance", day(2024, time.January, 10), 78000000, 2024},
	}

	// Write rows
	for rowIdx, rowData := range employeeData {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(employeeSheet, cell, value)
		}
	}

	// Set column widths
	f.SetColWidth(employeeSheet, "A", "A", 14)
	f.SetColWidth(employeeSheet, "B", "B", 24)
	f.SetColWidth(employeeSheet, "C", "C", 16)
	f.SetColWidth(employeeSheet, "D", "D", 14)
	f.SetColWidth(employeeSheet, "E", "E", 16)
	f.SetColWidth(employeeSheet, "F", "F", 14)

	// Second sheet validated in the same run
	departmentSheet := "Departments"
	_, err = f.NewSheet(departmentSheet)
	if err != nil {
		fmt.Printf("Error creating sheet: %v\n", err)
		return
	}

	departmentHeaders := []string{"Department ID", "Department Name", "Head Count"}
	for i, header := range departmentHeaders {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(departmentSheet, cell, header)
	}
	f.SetCellStyle(departmentSheet, "A1", fmt.Sprintf("%s1", getColumnName(len(departmentHeaders)-1)), headerStyle)

	departmentData := [][]interface{}{
		{"DEP-01", "Finance", 12},
		{"DEP-02", "Engineering", 34},
		// Non-integer head count
		{"DEP-03", "Operations", "a few"},
		// Duplicate primary key
		{"DEP-01", "Finance (old)", 3},
	}
	for rowIdx, rowData := range departmentData {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(departmentSheet, cell, value)
		}
	}

	f.SetColWidth(departmentSheet, "A", "A", 16)
	f.SetColWidth(departmentSheet, "B", "B", 24)
	f.SetColWidth(departmentSheet, "C", "C", 12)

	// Add instructions sheet
	instructionsSheet := "Instructions"
	instIndex, _ := f.NewSheet(instructionsSheet)
	f.SetCellValue(instructionsSheet, "A1", "SAMPLE DATA INSTRUCTIONS")
	f.SetCellValue(instructionsSheet, "A3", "This workbook exercises the validator end to end.")
	f.SetCellValue(instructionsSheet, "A5", "Seeded problems (Employees):")
	f.SetCellValue(instructionsSheet, "A6", "1. EMP-004: required Full Name left blank")
	f.SetCellValue(instructionsSheet, "A7", "2. EMP-005: department 'Enginering' does not exist (expect suggestions)")
	f.SetCellValue(instructionsSheet, "A8", "3. EMP-006: Annual Salary is not a number")
	f.SetCellValue(instructionsSheet, "A9", "4. EMP-007: Start Date cannot be parsed")
	f.SetCellValue(instructionsSheet, "A10", "5. EMP-008: Review Year 19999 is out of range")
	f.SetCellValue(instructionsSheet, "A11", "6. EMP-002 appears twice (duplicate primary key)")
	f.SetCellValue(instructionsSheet, "A12", "7. EMP-003 row repeated verbatim (duplicate row)")
	f.SetCellValue(instructionsSheet, "A14", "Seeded problems (Departments):")
	f.SetCellValue(instructionsSheet, "A15", "1. DEP-03: Head Count is not an integer")
	f.SetCellValue(instructionsSheet, "A16", "2. DEP-01 appears twice (duplicate primary key)")
	f.SetCellValue(instructionsSheet, "A18", "The registry must define the Employees and Departments entity types;")
	f.SetCellValue(instructionsSheet, "A19", "without them, sheets fall back to schema inference and only the")
	f.SetCellValue(instructionsSheet, "A20", "type-level problems are reported.")

	f.SetActiveSheet(instIndex)
	f.DeleteSheet("Sheet1")

	// Save first file
	outputPath1 := filepath.Join("storage", "uploads", "sample_validation_data.xlsx")
	if err := f.SaveAs(outputPath1); err != nil {
		fmt.Printf("Error saving file: %v\n", err)
		return
	}

	fmt.Printf("Sample file 1 created: %s\n", outputPath1)
	fmt.Printf("  Employee rows: %d, department rows: %d\n", len(employeeData), len(departmentData))

	// Create a second, clean file to demonstrate the no-errors path
	f2 := excelize.NewFile()
	defer f2.Close()

	sheetName2 := "Employees"
	_, err = f2.NewSheet(sheetName2)
	if err != nil {
		fmt.Printf("Error creating sheet 2: %v\n", err)
		return
	}

	// Write headers
	for i, header := range employeeHeaders {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f2.SetCellValue(sheetName2, cell, header)
	}

	// Set header style
	cleanHeaderStyle, _ := f2.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f2.SetCellStyle(sheetName2, "A1", fmt.Sprintf("%s1", getColumnName(len(employeeHeaders)-1)), cleanHeaderStyle)

	cleanData := [][]interface{}{
		{"EMP-101", "Hana Wijaya", "Finance", day(2024, time.February, 1), 80000000, 2024},
		{"EMP-102", "Indra Kusuma", "Engineering", day(2024, time.March, 15), 92000000, 2024},
		{"EMP-103", "Joko Susilo", "Engineering", day(2024, time.May, 20), 87000000, 2024},
	}

	for rowIdx, rowData := range cleanData {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f2.SetCellValue(sheetName2, cell, value)
		}
	}

	f2.SetColWidth(sheetName2, "A", "A", 14)
	f2.SetColWidth(sheetName2, "B", "B", 24)
	f2.SetColWidth(sheetName2, "C", "C", 16)
	f2.SetColWidth(sheetName2, "D", "D", 14)
	f2.SetColWidth(sheetName2, "E", "E", 16)
	f2.SetColWidth(sheetName2, "F", "F", 14)

	f2.DeleteSheet("Sheet1")

	// Save second file
	outputPath2 := filepath.Join("storage", "uploads", "sample_validation_clean.xlsx")
	if err := f2.SaveAs(outputPath2); err != nil {
		fmt.Printf("Error saving file 2: %v\n", err)
		return
	}

	fmt.Printf("Sample file 2 created: %s\n", outputPath2)
	fmt.Printf("  Rows: %d (no seeded problems)\n", len(cleanData))
}

func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}
