package tabular

// classify.go decides the semantic type of one scalar cell value.
//
// The order of checks is fixed and significant: empty-like, then number,
// then boolean, then date, then string. Because the numeric check runs
// before the boolean check, "1" and "0" always classify as number, never
// boolean. Downstream cast logic assumes this precedence; do not reorder.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numberPattern accepts an optional leading minus, digits with optional
// comma thousands grouping, an optional decimal part, and an optional
// exponent.
var numberPattern = regexp.MustCompile(`^-?(\d{1,3}(,\d{3})+|\d+)(\.\d+)?([eE][+-]?\d+)?$`)

// booleanTokens lists the accepted boolean spellings, lowercase. "1" and "0"
// are listed for completeness but are unreachable: the numeric check claims
// them first.
var booleanTokens = map[string]bool{
	"true": true, "yes": true, "y": true, "1": true,
	"false": false, "no": false, "n": false, "0": false,
}

// datePatterns gate the generic date parse so that bare numbers and short
// strings never reach time.Parse. A value must match one of these shapes
// AND parse successfully to classify as a date.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),                                                  // ISO date
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}:?\d{2})?$`), // ISO datetime
	regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),                                              // slash-separated
	regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`),                                              // slash-separated, year first
	regexp.MustCompile(`^[A-Za-z]{3,9} \d{1,2}, \d{4}$`),                                       // Month DD, YYYY
	regexp.MustCompile(`^\d{1,2} [A-Za-z]{3,9} \d{4}$`),                                        // DD Month YYYY
}

// dateLayouts are tried in order by the generic date parse. Unambiguous
// layouts come first.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"1/2/2006",
	"01/02/2006",
	"2006/1/2",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// Classify assigns a semantic type to one scalar value.
func Classify(v any) ColumnType {
	switch val := v.(type) {
	case nil:
		return TypeNull
	case float64:
		return TypeNumber
	case bool:
		return TypeBoolean
	case time.Time:
		return TypeDate
	case string:
		return classifyString(val)
	default:
		return TypeString
	}
}

func classifyString(s string) ColumnType {
	s = strings.TrimSpace(s)
	if isEmptyLike(s) {
		return TypeNull
	}
	if numberPattern.MatchString(s) {
		return TypeNumber
	}
	if _, ok := booleanTokens[strings.ToLower(s)]; ok {
		return TypeBoolean
	}
	if looksLikeDate(s) {
		if _, ok := parseDate(s); ok {
			return TypeDate
		}
	}
	return TypeString
}

// isEmptyLike reports whether a trimmed string should be treated as null.
func isEmptyLike(s string) bool {
	switch strings.ToLower(s) {
	case "", "null", "undefined":
		return true
	}
	return false
}

func looksLikeDate(s string) bool {
	for _, p := range datePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// parseDate runs the generic layout-list parse.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumber converts a numeric string, tolerating comma thousands
// grouping. The pattern check runs first so "1,2,3" is rejected rather
// than silently collapsed.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numberPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseBoolean converts a boolean token. Unlike Classify, this accepts
// "1"/"0" because it is only invoked when the caller explicitly targets a
// boolean (cast and cast validation).
func parseBoolean(s string) (bool, bool) {
	b, ok := booleanTokens[strings.ToLower(strings.TrimSpace(s))]
	return b, ok
}
