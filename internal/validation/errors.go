package validation

import "strings"

// Code identifies one validation error kind. The set is closed: every code
// the engine emits is declared here and carries a display label.
type Code string

const (
	// File-level codes, emitted before any sheet is opened.
	CodeNoFile            Code = "NO_FILE"
	CodeInvalidFileType   Code = "INVALID_FILE_TYPE"
	CodeFileTooLarge      Code = "FILE_TOO_LARGE"
	CodePasswordProtected Code = "PASSWORD_PROTECTED"
	CodeUnreadableFile    Code = "UNREADABLE_FILE"

	// Structural codes, terminal for a sheet.
	CodeSheetNotFound      Code = "SHEET_NOT_FOUND"
	CodeNoHeader           Code = "NO_HEADER"
	CodeEmptyHeaders       Code = "EMPTY_HEADERS"
	CodeDuplicateHeaders   Code = "DUPLICATE_HEADERS"
	CodeNoDataRows         Code = "NO_DATA_ROWS"
	CodeEntityTypeNotFound Code = "DOCTYPE_NOT_FOUND"
	CodeEntityTypeError    Code = "DOCTYPE_ERROR"

	// Row-level data codes, accumulated per row.
	CodeEmptyRow            Code = "EMPTY_ROW"
	CodeRequiredFieldEmpty  Code = "REQUIRED_FIELD_EMPTY"
	CodeInvalidInt          Code = "INVALID_INT"
	CodeInvalidFloat        Code = "INVALID_FLOAT"
	CodeInvalidDate         Code = "INVALID_DATE"
	CodeInvalidDateTime     Code = "INVALID_DATETIME"
	CodeInvalidYear         Code = "INVALID_YEAR"
	CodeInvalidYearRange    Code = "INVALID_YEAR_RANGE"
	CodeRefNotFound         Code = "LINK_NOT_FOUND"
	CodeRefConfigError      Code = "LINK_CONFIG_ERROR"
	CodeDuplicateRow        Code = "DUPLICATE_ROW"
	CodeDuplicatePrimaryKey Code = "DUPLICATE_PRIMARY_KEY"
	CodeDuplicateUnique     Code = "DUPLICATE_UNIQUE"

	// Operational codes.
	CodeTimeout         Code = "TIMEOUT_ERROR"
	CodeProcessingError Code = "PROCESSING_ERROR"
)

// Label returns the display name shown to users next to the stable code.
func (c Code) Label() string {
	switch c {
	case CodeNoFile:
		return "No File Uploaded"
	case CodeInvalidFileType:
		return "Invalid File Type (Use .xlsx)"
	case CodeFileTooLarge:
		return "File Too Large"
	case CodePasswordProtected:
		return "Password Protected File"
	case CodeUnreadableFile:
		return "Corrupted File"
	case CodeSheetNotFound:
		return "Worksheet Not Found"
	case CodeNoHeader:
		return "Header Row Missing"
	case CodeEmptyHeaders:
		return "Empty Header Row"
	case CodeDuplicateHeaders:
		return "Duplicate Headers"
	case CodeNoDataRows:
		return "No Data Rows"
	case CodeEntityTypeNotFound:
		return "Entity Type Not Found"
	case CodeEntityTypeError:
		return "Entity Type Error"
	case CodeEmptyRow:
		return "Empty Row"
	case CodeRequiredFieldEmpty:
		return "Required Field Empty"
	case CodeInvalidInt:
		return "Must Be a Number"
	case CodeInvalidFloat:
		return "Must Be a Decimal Number"
	case CodeInvalidDate:
		return "Invalid Date"
	case CodeInvalidDateTime:
		return "Invalid Date/Time"
	case CodeInvalidYear:
		return "Invalid Year Format"
	case CodeInvalidYearRange:
		return "Invalid Year Range"
	case CodeRefNotFound:
		return "Data Not Found"
	case CodeRefConfigError:
		return "Configuration Error"
	case CodeDuplicateRow:
		return "Duplicate Row"
	case CodeDuplicatePrimaryKey:
		return "Duplicate ID"
	case CodeDuplicateUnique:
		return "Duplicate Value"
	case CodeTimeout:
		return "Processing Timeout"
	case CodeProcessingError:
		return "Processing Error"
	}
	return strings.ReplaceAll(string(c), "_", " ")
}

// Class groups codes by how the engine handles them: file codes abort the run
// before any sheet opens, structural codes terminate one sheet, row codes
// accumulate, operational codes flag timeouts and internal failures.
type Class int

const (
	ClassFile Class = iota
	ClassStructural
	ClassRow
	ClassOperational
)

func (c Class) String() string {
	switch c {
	case ClassFile:
		return "file"
	case ClassStructural:
		return "structural"
	case ClassRow:
		return "row"
	case ClassOperational:
		return "operational"
	}
	return "unknown"
}

// Class reports the handling class of the code.
func (c Code) Class() Class {
	switch c {
	case CodeNoFile, CodeInvalidFileType, CodeFileTooLarge, CodePasswordProtected, CodeUnreadableFile:
		return ClassFile
	case CodeSheetNotFound, CodeNoHeader, CodeEmptyHeaders, CodeDuplicateHeaders,
		CodeNoDataRows, CodeEntityTypeNotFound, CodeEntityTypeError:
		return ClassStructural
	case CodeTimeout, CodeProcessingError:
		return ClassOperational
	}
	return ClassRow
}

// sheetLevelError builds the synthetic error attached to a sheet that failed
// before or outside row processing.
func sheetLevelError(sheet string, code Code, message string) FieldError {
	return FieldError{
		Sheet:   sheet,
		Row:     0,
		Column:  SheetColumn,
		Code:    code,
		Label:   code.Label(),
		Message: message,
	}
}

// failedSheet builds the terminal result for a sheet that produced a single
// structural error instead of row-level output.
func failedSheet(sheetName, entityType string, code Code, message string) SheetResult {
	return SheetResult{
		SheetName:  sheetName,
		EntityType: entityType,
		State:      SheetFailed,
		ErrorCount: 1,
		Errors:     []FieldError{sheetLevelError(sheetName, code, message)},
	}
}
