package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// optionalColumns are canonical names whose blank cells are never flagged:
// identifier columns and free-text annotation columns.
var optionalColumns = map[string]struct{}{
	"id":          {},
	"institute":   {},
	"notes":       {},
	"description": {},
	"brief":       {},
	"details":     {},
	"remarks":     {},
	"comments":    {},
}

var yearDigits = regexp.MustCompile(`^\d{4}$`)

// TypeOutcome is the result of evaluating one cell against one rule.
// A zero Code means the value passed.
type TypeOutcome struct {
	Valid   bool
	Code    Code
	Message string
}

var validOutcome = TypeOutcome{Valid: true}

func invalidOutcome(code Code, format string, args ...any) TypeOutcome {
	return TypeOutcome{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsBlank reports whether a raw cell value is blank or a placeholder: nil,
// empty, whitespace-only, or any-case "na"/"n/a".
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	s := strings.TrimSpace(Stringify(v))
	if s == "" {
		return true
	}
	switch strings.ToLower(s) {
	case "na", "n/a":
		return true
	}
	return false
}

// Stringify renders a raw cell value the way it entered the sheet.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// IsOptionalColumn reports whether blanks in the column are silently allowed.
func IsOptionalColumn(label string) bool {
	if _, ok := optionalColumns[CanonicalName(label)]; ok {
		return true
	}
	return strings.HasPrefix(strings.ToLower(label), "id ")
}

// IsYearColumn reports whether the column should be validated as a year:
// its canonical key is "year" or ends in "_year", or a short label mentions
// "year".
func IsYearColumn(key, label string) bool {
	if key == "year" || strings.HasSuffix(key, "_year") {
		return true
	}
	return yearByName(label)
}

// yearByName catches year columns that carry no schema field, e.g. a stray
// "Year Started" header.
func yearByName(label string) bool {
	return strings.Contains(strings.ToLower(label), "year") && len(label) < 15
}

// EvaluateYear validates a year-like cell. Unparseable values give
// INVALID_YEAR; parsed years outside [1900, currentYear+1] give
// INVALID_YEAR_RANGE. now supplies the current year so runs stay
// deterministic under test.
func EvaluateYear(v any, now time.Time) TypeOutcome {
	y, ok := parseYear(v)
	if !ok {
		return invalidOutcome(CodeInvalidYear, "Invalid year: %s", Stringify(v))
	}
	maxYear := now.Year() + 1
	if y < minYear || y > maxYear {
		return invalidOutcome(CodeInvalidYearRange, "Year %d out of allowed range %d-%d", y, minYear, maxYear)
	}
	return validOutcome
}

// parseYear extracts a year from a date cell, a numeric cell, a 4-digit
// string, or an ISO date/datetime string.
func parseYear(v any) (int, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.Year(), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case float32:
		return int(t), true
	case bool, nil:
		return 0, false
	}
	s := strings.TrimSpace(Stringify(v))
	if yearDigits.MatchString(s) {
		y, err := strconv.Atoi(s)
		if err == nil {
			return y, true
		}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Year(), true
		}
	}
	return 0, false
}

// EvaluateType classifies a non-blank cell value against a declared type.
// Reference fields are resolved separately and always pass here; Text and
// unknown types pass with no check. Extend by adding rules, not by relaxing
// the fallthrough.
func EvaluateType(ft FieldType, v any) TypeOutcome {
	switch ft {
	case TypeInteger, TypeBoolean:
		if !isValidInteger(v) {
			return invalidOutcome(CodeInvalidInt, "'%s' is not a valid number", Stringify(v))
		}
	case TypeDecimal:
		if !isValidDecimal(v) {
			return invalidOutcome(CodeInvalidFloat, "'%s' is not a valid number", Stringify(v))
		}
	case TypeDate:
		if !isDateValue(v) {
			return invalidOutcome(CodeInvalidDate, "Invalid date format")
		}
	case TypeDateTime:
		if !isDateValue(v) {
			return invalidOutcome(CodeInvalidDateTime, "Invalid datetime format")
		}
	}
	return validOutcome
}

// isValidInteger accepts integer kinds, bools, integral floats, and strings
// that parse to an integral number. Fractional values are rejected.
func isValidInteger(v any) bool {
	switch t := v.(type) {
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return !math.IsInf(t, 0) && !math.IsNaN(t) && t == math.Trunc(t)
	case float32:
		f := float64(t)
		return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil && !math.IsInf(f, 0) && f == math.Trunc(f)
	}
	return false
}

// isValidDecimal accepts numeric kinds, bools, and strings that parse as a
// number.
func isValidDecimal(v any) bool {
	switch t := v.(type) {
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil
	}
	return false
}

// isDateValue accepts only cells that already carry a date type. Strings are
// never coerced; a mistyped column fails rather than guessing formats.
func isDateValue(v any) bool {
	_, ok := v.(time.Time)
	return ok
}
