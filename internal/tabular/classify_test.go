package tabular

import (
	"testing"
	"time"
)

func TestClassify_Strings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ColumnType
	}{
		// Empty-like values
		{"empty string", "", TypeNull},
		{"whitespace only", "   ", TypeNull},
		{"null literal", "null", TypeNull},
		{"null uppercase", "NULL", TypeNull},
		{"undefined literal", "undefined", TypeNull},

		// Numbers
		{"integer", "42", TypeNumber},
		{"negative", "-17", TypeNumber},
		{"decimal", "3.14", TypeNumber},
		{"negative decimal", "-3.14", TypeNumber},
		{"thousands grouping", "1,234", TypeNumber},
		{"grouping with decimal", "1,234,567.89", TypeNumber},
		{"exponent", "1.5e10", TypeNumber},
		{"exponent negative", "2E-3", TypeNumber},
		{"padded number", "  42  ", TypeNumber},

		// Numeric strings must never classify as boolean, or a 0/1 flag
		// column would be destroyed by a later round trip.
		{"one is number", "1", TypeNumber},
		{"zero is number", "0", TypeNumber},

		// Booleans
		{"true", "true", TypeBoolean},
		{"false mixed case", "False", TypeBoolean},
		{"yes", "yes", TypeBoolean},
		{"no uppercase", "NO", TypeBoolean},
		{"y", "y", TypeBoolean},
		{"n", "N", TypeBoolean},

		// Dates
		{"iso date", "2024-01-15", TypeDate},
		{"iso datetime", "2024-01-15T10:30:00Z", TypeDate},
		{"iso datetime space", "2024-01-15 10:30:00", TypeDate},
		{"slash date", "1/15/2024", TypeDate},
		{"slash date year first", "2024/1/15", TypeDate},
		{"month name", "Jan 2, 2024", TypeDate},
		{"day first month name", "2 January 2024", TypeDate},

		// Strings
		{"plain word", "hello", TypeString},
		{"bad grouping", "1,23", TypeString},
		{"number with suffix", "123abc", TypeString},
		{"invalid date shape ok parse bad", "2024-13-45", TypeString},
		{"invalid slash date", "99/99/2024", TypeString},
		{"almost boolean", "yess", TypeString},
		{"uuid", "a2f1c9d0-1b2c-4d3e-9f00-000000000000", TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.input); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassify_NativeValues(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  ColumnType
	}{
		{"nil", nil, TypeNull},
		{"float64", 3.5, TypeNumber},
		{"float64 zero", float64(0), TypeNumber},
		{"bool", true, TypeBoolean},
		{"time", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), TypeDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.input); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"42", 42, true},
		{"-3.5", -3.5, true},
		{"1,234.56", 1234.56, true},
		{"1,234,567", 1234567, true},
		{"1e3", 1000, true},
		{"1,23", 0, false},
		{"12,34", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseNumber(tt.input)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseNumber(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseBoolean_AcceptsDigits(t *testing.T) {
	// Explicit boolean casts accept "1"/"0" even though Classify never
	// labels them boolean.
	for _, tt := range []struct {
		input string
		want  bool
	}{
		{"1", true},
		{"0", false},
		{"TRUE", true},
		{" no ", false},
	} {
		got, ok := parseBoolean(tt.input)
		if !ok || got != tt.want {
			t.Errorf("parseBoolean(%q) = (%v, %v), want (%v, true)", tt.input, got, ok, tt.want)
		}
	}

	if _, ok := parseBoolean("2"); ok {
		t.Error("parseBoolean(\"2\") accepted, want rejection")
	}
}

func TestParseDate(t *testing.T) {
	got, ok := parseDate("2024-03-09")
	if !ok {
		t.Fatal("parseDate(\"2024-03-09\") failed")
	}
	want := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseDate(\"2024-03-09\") = %v, want %v", got, want)
	}

	if _, ok := parseDate("not a date"); ok {
		t.Error("parseDate(\"not a date\") succeeded, want failure")
	}
}
