package transform

import (
	"testing"

	"github.com/tabledesk/tabledesk/internal/tabular"
)

func TestFillDown(t *testing.T) {
	base := mustParse(t, "region,city\nWest,Seattle\n,Portland\n,Boise\nEast,Boston\n,Albany\n")

	out, err := (&FillDownConfig{Columns: []string{"region"}}).apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}

	want := []any{"West", "West", "West", "East", "East"}
	for i, w := range want {
		if out.Rows[i]["region"] != w {
			t.Errorf("row %d region = %v, want %v", i, out.Rows[i]["region"], w)
		}
	}
	// City column untouched.
	if out.Rows[1]["city"] != "Portland" {
		t.Errorf("city = %v", out.Rows[1]["city"])
	}
}

func TestFillDown_LeadingEmptyStaysEmpty(t *testing.T) {
	base := &tabular.Table{
		Rows:     []tabular.Row{{"a": nil}, {"a": nil}, {"a": "x"}},
		Columns:  []tabular.ColumnMetadata{{Name: "a", Type: tabular.TypeString}},
		RowCount: 3,
	}
	out, err := (&FillDownConfig{}).apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	// Nothing above the first row to fill from.
	if out.Rows[0]["a"] != nil {
		t.Errorf("row 0 = %v, want nil", out.Rows[0]["a"])
	}
	if out.Rows[2]["a"] != "x" {
		t.Errorf("row 2 = %v, want x", out.Rows[2]["a"])
	}
}

func TestFillDown_WhitespaceFlag(t *testing.T) {
	base := &tabular.Table{
		Rows:     []tabular.Row{{"a": "x"}, {"a": "   "}},
		Columns:  []tabular.ColumnMetadata{{Name: "a", Type: tabular.TypeString}},
		RowCount: 2,
	}

	out, err := (&FillDownConfig{}).apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	if out.Rows[1]["a"] != "   " {
		t.Errorf("whitespace filled without the flag: %v", out.Rows[1]["a"])
	}

	out, err = (&FillDownConfig{TreatWhitespaceAsEmpty: true}).apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	if out.Rows[1]["a"] != "x" {
		t.Errorf("whitespace not filled with the flag: %v", out.Rows[1]["a"])
	}
}

func TestFillAcross(t *testing.T) {
	base := &tabular.Table{
		Rows: []tabular.Row{
			{"q1": "100", "q2": nil, "q3": nil, "q4": "200"},
		},
		Columns: []tabular.ColumnMetadata{
			{Name: "q1"}, {Name: "q2"}, {Name: "q3"}, {Name: "q4"},
		},
		RowCount: 1,
	}

	out, err := (&FillAcrossConfig{}).apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	row := out.Rows[0]
	if row["q2"] != "100" || row["q3"] != "100" {
		t.Errorf("row = %v, want q2 and q3 filled from q1", row)
	}
	if row["q4"] != "200" {
		t.Errorf("q4 = %v, want untouched", row["q4"])
	}
}

func TestFillAcross_ColumnOrder(t *testing.T) {
	base := &tabular.Table{
		Rows: []tabular.Row{
			{"a": nil, "b": "x", "c": nil},
		},
		Columns:  []tabular.ColumnMetadata{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		RowCount: 1,
	}

	// Carry runs along the selected order, so c fills from b but a stays
	// empty: nothing precedes it.
	out, err := (&FillAcrossConfig{Columns: []string{"a", "b", "c"}}).apply(base)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	if out.Rows[0]["a"] != nil {
		t.Errorf("a = %v, want nil", out.Rows[0]["a"])
	}
	if out.Rows[0]["c"] != "x" {
		t.Errorf("c = %v, want x", out.Rows[0]["c"])
	}
}

func TestFill_MissingColumn(t *testing.T) {
	base := mustParse(t, "a\n1\n")
	if _, err := (&FillDownConfig{Columns: []string{"nope"}}).apply(base); err == nil {
		t.Error("fill_down accepted a missing column")
	}
	if _, err := (&FillAcrossConfig{Columns: []string{"nope"}}).apply(base); err == nil {
		t.Error("fill_across accepted a missing column")
	}
}
