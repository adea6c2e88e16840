package transform

import (
	"reflect"
	"testing"

	"github.com/tabledesk/tabledesk/internal/tabular"
)

func TestSort_Numeric(t *testing.T) {
	base := mustParse(t, "n\n10\n2\n33\n")
	out, err := (&SortConfig{Keys: []SortKey{{Column: "n"}}}).apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	// Numeric comparison, not lexical: 2 < 10 < 33.
	want := []any{"2", "10", "33"}
	if got := column(t, out, "n"); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSort_Descending(t *testing.T) {
	base := mustParse(t, "s\nbanana\napple\ncherry\n")
	out, err := (&SortConfig{Keys: []SortKey{{Column: "s", Direction: "desc"}}}).apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	want := []any{"cherry", "banana", "apple"}
	if got := column(t, out, "s"); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSort_Stable(t *testing.T) {
	// Rows with equal keys keep their input order.
	base := mustParse(t, "k,seq\na,1\nb,2\na,3\nb,4\na,5\n")
	out, err := (&SortConfig{Keys: []SortKey{{Column: "k"}}}).apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	want := []any{"1", "3", "5", "2", "4"}
	if got := column(t, out, "seq"); !reflect.DeepEqual(got, want) {
		t.Errorf("seq order = %v, want %v (stability violated)", got, want)
	}
}

func TestSort_MultiKey(t *testing.T) {
	base := mustParse(t, "dept,salary\nops,50\neng,70\nops,30\neng,90\n")
	cfg := &SortConfig{Keys: []SortKey{
		{Column: "dept"},
		{Column: "salary", Direction: "desc"},
	}}
	out, err := cfg.apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	want := []any{"90", "70", "50", "30"}
	if got := column(t, out, "salary"); !reflect.DeepEqual(got, want) {
		t.Errorf("salary order = %v, want %v", got, want)
	}
}

func TestSort_NullPlacement(t *testing.T) {
	base := &tabular.Table{
		Rows:     []tabular.Row{{"n": "5"}, {"n": nil}, {"n": "1"}},
		Columns:  []tabular.ColumnMetadata{{Name: "n", Type: tabular.TypeNumber}},
		RowCount: 3,
	}

	t.Run("default last", func(t *testing.T) {
		out, err := (&SortConfig{Keys: []SortKey{{Column: "n"}}}).apply(base)
		if err != nil {
			t.Fatalf("apply error = %v", err)
		}
		want := []any{"1", "5", nil}
		if got := column(t, out, "n"); !reflect.DeepEqual(got, want) {
			t.Errorf("order = %v, want %v", got, want)
		}
	})

	t.Run("first", func(t *testing.T) {
		out, err := (&SortConfig{Keys: []SortKey{{Column: "n"}}, NullPlacement: "first"}).apply(base)
		if err != nil {
			t.Fatalf("apply error = %v", err)
		}
		want := []any{nil, "1", "5"}
		if got := column(t, out, "n"); !reflect.DeepEqual(got, want) {
			t.Errorf("order = %v, want %v", got, want)
		}
	})

	t.Run("nulls stay last under desc", func(t *testing.T) {
		out, err := (&SortConfig{Keys: []SortKey{{Column: "n", Direction: "desc"}}}).apply(base)
		if err != nil {
			t.Fatalf("apply error = %v", err)
		}
		want := []any{"5", "1", nil}
		if got := column(t, out, "n"); !reflect.DeepEqual(got, want) {
			t.Errorf("order = %v, want %v", got, want)
		}
	})
}

func TestSort_Validation(t *testing.T) {
	base := mustParse(t, "a\n1\n")
	if _, err := (&SortConfig{}).apply(base); err == nil {
		t.Error("empty key list accepted")
	}
	if _, err := (&SortConfig{Keys: []SortKey{{Column: "nope"}}}).apply(base); err == nil {
		t.Error("missing column accepted")
	}
	if _, err := (&SortConfig{Keys: []SortKey{{Column: "a", Direction: "sideways"}}}).apply(base); err == nil {
		t.Error("bad direction accepted")
	}
	if _, err := (&SortConfig{Keys: []SortKey{{Column: "a"}}, NullPlacement: "middle"}).apply(base); err == nil {
		t.Error("bad null placement accepted")
	}
}
