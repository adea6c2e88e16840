package transform

import (
	"reflect"
	"testing"
)

func TestSplitColumn_Delimiter(t *testing.T) {
	base := mustParse(t, "full,id\nJane Smith,1\nCher,2\n")
	cfg := &SplitColumnConfig{
		Column:    "full",
		Method:    SplitByDelimiter,
		Delimiter: " ",
		Into:      []string{"first", "last"},
	}

	out, err := cfg.apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}

	// New columns slot in right after the source.
	want := []string{"full", "first", "last", "id"}
	if got := out.ColumnNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	if out.Rows[0]["first"] != "Jane" || out.Rows[0]["last"] != "Smith" {
		t.Errorf("row 0 = %v", out.Rows[0])
	}
	// Missing parts become null.
	if out.Rows[1]["first"] != "Cher" || out.Rows[1]["last"] != nil {
		t.Errorf("row 1 = %v, want null last", out.Rows[1])
	}
}

func TestSplitColumn_DelimiterLimitsParts(t *testing.T) {
	base := mustParse(t, "path\na/b/c/d\n")
	cfg := &SplitColumnConfig{
		Column:    "path",
		Method:    SplitByDelimiter,
		Delimiter: "/",
		Into:      []string{"head", "rest"},
	}
	out, err := cfg.apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	// SplitN semantics: the last target swallows the remainder.
	if out.Rows[0]["head"] != "a" || out.Rows[0]["rest"] != "b/c/d" {
		t.Errorf("row = %v", out.Rows[0])
	}
}

func TestSplitColumn_Position(t *testing.T) {
	base := mustParse(t, "code\nAB1234X\n")
	cfg := &SplitColumnConfig{
		Column:    "code",
		Method:    SplitByPosition,
		Positions: []int{2, 6},
		Into:      []string{"prefix", "digits", "suffix"},
	}
	out, err := cfg.apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	if out.Rows[0]["prefix"] != "AB" || out.Rows[0]["digits"] != "1234" || out.Rows[0]["suffix"] != "X" {
		t.Errorf("row = %v", out.Rows[0])
	}
}

func TestSplitColumn_RegexCaptureGroups(t *testing.T) {
	base := mustParse(t, "when\n2024-01-15\nnot-a-date\n")
	cfg := &SplitColumnConfig{
		Column:  "when",
		Method:  SplitByRegex,
		Pattern: `^(\d{4})-(\d{2})-(\d{2})$`,
		Into:    []string{"year", "month", "day"},
	}
	out, err := cfg.apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	if out.Rows[0]["year"] != "2024" || out.Rows[0]["month"] != "01" || out.Rows[0]["day"] != "15" {
		t.Errorf("row 0 = %v", out.Rows[0])
	}
	// A non-matching value yields nulls in every target.
	if out.Rows[1]["year"] != nil || out.Rows[1]["month"] != nil {
		t.Errorf("row 1 = %v, want nulls", out.Rows[1])
	}
}

func TestSplitColumn_RegexSeparator(t *testing.T) {
	base := mustParse(t, "tags\nred;  blue ;green\n")
	cfg := &SplitColumnConfig{
		Column:     "tags",
		Method:     SplitByRegex,
		Pattern:    `;`,
		Into:       []string{"t1", "t2", "t3"},
		TrimValues: true,
		DropSource: true,
	}
	out, err := cfg.apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	if out.HasColumn("tags") {
		t.Error("source column kept despite DropSource")
	}
	if out.Rows[0]["t1"] != "red" || out.Rows[0]["t2"] != "blue" || out.Rows[0]["t3"] != "green" {
		t.Errorf("row = %v", out.Rows[0])
	}
}

func TestSplitColumn_Validation(t *testing.T) {
	base := mustParse(t, "a,b\n1,2\n")

	tests := []struct {
		name string
		cfg  SplitColumnConfig
	}{
		{"missing source", SplitColumnConfig{Column: "nope", Method: SplitByDelimiter, Delimiter: ",", Into: []string{"x"}}},
		{"no targets", SplitColumnConfig{Column: "a", Method: SplitByDelimiter, Delimiter: ","}},
		{"target collides", SplitColumnConfig{Column: "a", Method: SplitByDelimiter, Delimiter: ",", Into: []string{"b"}}},
		{"missing delimiter", SplitColumnConfig{Column: "a", Method: SplitByDelimiter, Into: []string{"x"}}},
		{"bad pattern", SplitColumnConfig{Column: "a", Method: SplitByRegex, Pattern: "([", Into: []string{"x"}}},
		{"unknown method", SplitColumnConfig{Column: "a", Method: SplitMethod("chunks"), Into: []string{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.apply(base); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestMergeColumns(t *testing.T) {
	base := mustParse(t, "first,last,id\nJane,Smith,1\nCher,,2\n")

	t.Run("basic merge", func(t *testing.T) {
		cfg := &MergeColumnsConfig{Columns: []string{"first", "last"}, Separator: " ", Into: "full"}
		out, err := cfg.apply(base)
		if err != nil {
			t.Fatalf("apply error = %v", err)
		}
		// Merged column takes the first source's position; sources drop.
		want := []string{"full", "id"}
		if got := out.ColumnNames(); !reflect.DeepEqual(got, want) {
			t.Fatalf("columns = %v, want %v", got, want)
		}
		if out.Rows[0]["full"] != "Jane Smith" {
			t.Errorf("full = %v", out.Rows[0]["full"])
		}
		// A null source renders as empty without SkipNulls.
		if out.Rows[1]["full"] != "Cher " {
			t.Errorf("full = %q, want %q", out.Rows[1]["full"], "Cher ")
		}
	})

	t.Run("skip nulls", func(t *testing.T) {
		cfg := &MergeColumnsConfig{Columns: []string{"first", "last"}, Separator: " ", Into: "full", SkipNulls: true}
		out, err := cfg.apply(base)
		if err != nil {
			t.Fatalf("apply error = %v", err)
		}
		if out.Rows[1]["full"] != "Cher" {
			t.Errorf("full = %q, want %q", out.Rows[1]["full"], "Cher")
		}
	})

	t.Run("keep originals", func(t *testing.T) {
		cfg := &MergeColumnsConfig{Columns: []string{"first", "last"}, Separator: " ", Into: "full", KeepOriginals: true}
		out, err := cfg.apply(base)
		if err != nil {
			t.Fatalf("apply error = %v", err)
		}
		want := []string{"full", "first", "last", "id"}
		if got := out.ColumnNames(); !reflect.DeepEqual(got, want) {
			t.Errorf("columns = %v, want %v", got, want)
		}
		if out.Rows[0]["first"] != "Jane" {
			t.Errorf("first = %v, want kept", out.Rows[0]["first"])
		}
	})

	t.Run("validation", func(t *testing.T) {
		if _, err := (&MergeColumnsConfig{Columns: []string{"first"}, Into: "x"}).apply(base); err == nil {
			t.Error("single source accepted")
		}
		if _, err := (&MergeColumnsConfig{Columns: []string{"first", "last"}, Into: ""}).apply(base); err == nil {
			t.Error("empty target accepted")
		}
		if _, err := (&MergeColumnsConfig{Columns: []string{"first", "last"}, Into: "id"}).apply(base); err == nil {
			t.Error("collision with existing column accepted")
		}
	})
}
