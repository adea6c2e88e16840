package tabular

// cast.go converts cell values to an explicit target type and samples a
// column against a candidate cast to recommend an error-handling mode.
//
// Conversion reuses the classifier's number/boolean/date recognizers so a
// value that classifies as a given type always casts to it. Nulls pass
// through every cast untouched and never count as failures.

import (
	"fmt"
	"time"
)

// CastMode is the per-row policy applied when a value cannot be converted.
type CastMode string

const (
	CastFail CastMode = "fail" // abort the whole step on the first bad value
	CastNull CastMode = "null" // replace the bad value with null
	CastSkip CastMode = "skip" // drop the offending row
)

// CastFailure records one value that failed the target-type parse.
type CastFailure struct {
	Value any    `json:"value"`
	Error string `json:"error"`
}

// CastReport summarizes a sampled cast validation run.
type CastReport struct {
	Total           int           `json:"total"`
	Valid           int           `json:"valid"`
	Invalid         int           `json:"invalid"`
	FailureRate     float64       `json:"failureRate"`
	RecommendedMode CastMode      `json:"recommendedMode,omitempty"`
	InvalidSamples  []CastFailure `json:"invalidSamples,omitempty"`
}

// Recommendation thresholds, as failure-rate percentages. The mapping is
// monotonic: more failures never produce a softer recommendation.
const (
	skipRateCeiling = 5  // negligible failures: dropping rows loses little
	nullRateCeiling = 50 // minority failures: nulling keeps the row count
)

// ValidateCast applies the target-type parse rule to up to maxRows values,
// counting successes and failures and collecting up to maxSamples failing
// values. When failures exist it recommends a cast mode based on how common
// they are.
func ValidateCast(values []any, target ColumnType, format string, maxSamples, maxRows int) CastReport {
	if maxRows > 0 && len(values) > maxRows {
		values = values[:maxRows]
	}

	report := CastReport{Total: len(values)}
	for _, v := range values {
		if _, err := ConvertValue(v, target, format); err != nil {
			report.Invalid++
			if maxSamples > 0 && len(report.InvalidSamples) < maxSamples {
				report.InvalidSamples = append(report.InvalidSamples, CastFailure{Value: v, Error: err.Error()})
			}
			continue
		}
		report.Valid++
	}

	if report.Total > 0 {
		report.FailureRate = float64(report.Invalid) / float64(report.Total) * 100
	}

	switch {
	case report.Invalid == 0:
		// Clean cast: no recommendation needed.
	case report.FailureRate <= skipRateCeiling:
		report.RecommendedMode = CastSkip
	case report.FailureRate <= nullRateCeiling:
		report.RecommendedMode = CastNull
	default:
		report.RecommendedMode = CastFail
	}
	return report
}

// ConvertValue converts one cell value to the target type. A null input
// stays null. format is a Go time layout applied to string inputs when the
// target is date; when empty, the generic date layouts are tried.
func ConvertValue(v any, target ColumnType, format string) (any, error) {
	if Classify(v) == TypeNull {
		return nil, nil
	}

	switch target {
	case TypeString:
		return FormatValue(v), nil
	case TypeNumber:
		return convertToNumber(v)
	case TypeBoolean:
		return convertToBoolean(v)
	case TypeDate:
		return convertToDate(v, format)
	default:
		return nil, fmt.Errorf("unsupported cast target %q", string(target))
	}
}

func convertToNumber(v any) (any, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		if n, ok := parseNumber(val); ok {
			return n, nil
		}
		return nil, fmt.Errorf("%q is not a number", val)
	case bool:
		if val {
			return float64(1), nil
		}
		return float64(0), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to number", v)
	}
}

func convertToBoolean(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case float64:
		switch val {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, fmt.Errorf("number %s is not a boolean", formatFloat(val))
	case string:
		if b, ok := parseBoolean(val); ok {
			return b, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", val)
	default:
		return nil, fmt.Errorf("cannot convert %T to boolean", v)
	}
}

func convertToDate(v any, format string) (any, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		if format != "" {
			t, err := time.Parse(format, val)
			if err != nil {
				return nil, fmt.Errorf("%q does not match date format %q", val, format)
			}
			return t, nil
		}
		if t, ok := parseDate(val); ok {
			return t, nil
		}
		return nil, fmt.Errorf("%q is not a date", val)
	default:
		return nil, fmt.Errorf("cannot convert %T to date", v)
	}
}
