package tabular

import (
	"testing"
	"time"
)

func TestConvertValue(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		value   any
		target  ColumnType
		format  string
		want    any
		wantErr bool
	}{
		// Nulls pass through every target untouched.
		{"nil to number", nil, TypeNumber, "", nil, false},
		{"empty string to date", "", TypeDate, "", nil, false},
		{"null literal to boolean", "null", TypeBoolean, "", nil, false},

		// String target renders the display form.
		{"number to string", 42.5, TypeString, "", "42.5", false},
		{"bool to string", true, TypeString, "", "true", false},
		{"date to string", date, TypeString, "", "2024-01-15", false},

		// Number target
		{"float passes", 3.5, TypeNumber, "", 3.5, false},
		{"numeric string", "1,234.5", TypeNumber, "", 1234.5, false},
		{"bool to number true", true, TypeNumber, "", float64(1), false},
		{"bool to number false", false, TypeNumber, "", float64(0), false},
		{"word to number", "abc", TypeNumber, "", nil, true},

		// Boolean target
		{"bool passes", true, TypeBoolean, "", true, false},
		{"one to boolean", float64(1), TypeBoolean, "", true, false},
		{"zero to boolean", float64(0), TypeBoolean, "", false, false},
		{"two to boolean", float64(2), TypeBoolean, "", nil, true},
		{"digit string to boolean", "1", TypeBoolean, "", true, false},
		{"yes to boolean", "yes", TypeBoolean, "", true, false},
		{"word to boolean", "maybe", TypeBoolean, "", nil, true},

		// Date target
		{"time passes", date, TypeDate, "", date, false},
		{"iso string", "2024-01-15", TypeDate, "", date, false},
		{"day-first with format", "15/01/2024", TypeDate, "02/01/2006", date, false},
		{"format mismatch", "2024-01-15", TypeDate, "02/01/2006", nil, true},
		{"day-first without format", "15/13/2024", TypeDate, "", nil, true},
		{"number to date", 3.5, TypeDate, "", nil, true},

		{"unknown target", "x", ColumnType("blob"), "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertValue(tt.value, tt.target, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ConvertValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if wantTime, ok := tt.want.(time.Time); ok {
				gotTime, ok := got.(time.Time)
				if !ok || !gotTime.Equal(wantTime) {
					t.Errorf("ConvertValue() = %v, want %v", got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ConvertValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

// repeat builds n copies of v followed by the extras.
func repeat(v any, n int, extras ...any) []any {
	out := make([]any, 0, n+len(extras))
	for i := 0; i < n; i++ {
		out = append(out, v)
	}
	return append(out, extras...)
}

func TestValidateCast_Recommendations(t *testing.T) {
	tests := []struct {
		name     string
		values   []any
		wantMode CastMode
	}{
		{"clean cast has no recommendation", repeat("1", 10), CastMode("")},
		{"rare failures recommend skip", repeat("1", 99, "x"), CastSkip},
		{"five percent still skip", repeat("1", 95, "x", "x", "x", "x", "x"), CastSkip},
		{"minority failures recommend null", repeat("1", 7, "x", "x", "x"), CastNull},
		{"half failures still null", repeat("1", 5, "x", "x", "x", "x", "x"), CastNull},
		{"majority failures recommend fail", repeat("1", 2, "x", "x", "x", "x", "x", "x", "x", "x"), CastFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := ValidateCast(tt.values, TypeNumber, "", 10, 0)
			if report.RecommendedMode != tt.wantMode {
				t.Errorf("RecommendedMode = %q (rate %.1f%%), want %q",
					report.RecommendedMode, report.FailureRate, tt.wantMode)
			}
		})
	}
}

func TestValidateCast_Counts(t *testing.T) {
	values := []any{"1", "2", "x", nil, "3"}
	report := ValidateCast(values, TypeNumber, "", 10, 0)

	if report.Total != 5 {
		t.Errorf("Total = %d, want 5", report.Total)
	}
	// Nulls convert cleanly, so only "x" fails.
	if report.Valid != 4 || report.Invalid != 1 {
		t.Errorf("Valid/Invalid = %d/%d, want 4/1", report.Valid, report.Invalid)
	}
	if report.FailureRate != 20 {
		t.Errorf("FailureRate = %v, want 20", report.FailureRate)
	}
	if len(report.InvalidSamples) != 1 || report.InvalidSamples[0].Value != "x" {
		t.Errorf("InvalidSamples = %v", report.InvalidSamples)
	}
}

func TestValidateCast_Limits(t *testing.T) {
	// maxRows truncates the scan; maxSamples caps the recorded failures.
	values := repeat("x", 20, repeat("1", 20)...)
	report := ValidateCast(values, TypeNumber, "", 3, 10)

	if report.Total != 10 {
		t.Errorf("Total = %d, want 10", report.Total)
	}
	if report.Invalid != 10 {
		t.Errorf("Invalid = %d, want 10", report.Invalid)
	}
	if len(report.InvalidSamples) != 3 {
		t.Errorf("len(InvalidSamples) = %d, want 3", len(report.InvalidSamples))
	}
}

func TestValidateCast_Empty(t *testing.T) {
	report := ValidateCast(nil, TypeNumber, "", 10, 100)
	if report.Total != 0 || report.FailureRate != 0 || report.RecommendedMode != "" {
		t.Errorf("empty report = %+v", report)
	}
}
