package validation

import (
	"regexp"
	"strings"
)

var (
	moneyWords   = regexp.MustCompile(`\b(financial|budget|amount|cost|price|rate)\b`)
	numericWords = regexp.MustCompile(`\b(count|total|value|qty|quantity|ranking|index|strength|position|vacant|ratio|currency)\b`)
)

// InferFields derives a best-effort schema from header names for sheets whose
// entity type is not registered. Heuristics: a "year" header becomes an
// integer, headers mentioning "date" become dates, money and quantity words
// become decimals unless the header reads like a title or name, everything
// else is text. Inferred fields are never required, unique, or
// reference-typed, so inference can only surface format defects.
func InferFields(headers []string) []FieldSchema {
	fields := make([]FieldSchema, 0, len(headers))
	for _, h := range headers {
		key := CanonicalName(h)
		fields = append(fields, FieldSchema{
			Name:  key,
			Label: h,
			Type:  inferType(key, strings.ToLower(h)),
		})
	}
	return fields
}

func inferType(key, lower string) FieldType {
	switch {
	case key == "year":
		return TypeInteger
	case strings.Contains(lower, "date"):
		return TypeDate
	case moneyWords.MatchString(lower):
		return TypeDecimal
	case numericWords.MatchString(lower):
		if strings.Contains(lower, "&") || strings.Contains(lower, "title") ||
			strings.Contains(lower, "case") || strings.Contains(lower, "name") {
			return TypeText
		}
		return TypeDecimal
	}
	return TypeText
}
