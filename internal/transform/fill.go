package transform

import (
	"strings"

	"github.com/tabledesk/tabledesk/internal/tabular"
)

// fillEmpty reports whether a cell should be filled: nil always, and
// whitespace-only strings when the flag is set. Empty strings count as
// empty either way.
func fillEmpty(v any, whitespaceAsEmpty bool) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	if whitespaceAsEmpty {
		return strings.TrimSpace(s) == ""
	}
	return s == ""
}

// FillDownConfig propagates the last non-empty value forward along rows.
// Columns defaults to all columns.
type FillDownConfig struct {
	Columns                []string `json:"columns,omitempty"`
	TreatWhitespaceAsEmpty bool     `json:"treatWhitespaceAsEmpty,omitempty"`
}

func (c *FillDownConfig) stepType() StepType { return StepFillDown }

func (c *FillDownConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	cols := c.Columns
	if len(cols) == 0 {
		cols = t.ColumnNames()
	} else if err := requireColumns(t, cols...); err != nil {
		return nil, err
	}

	last := make(map[string]any, len(cols))
	rows := make([]tabular.Row, len(t.Rows))
	for i, row := range t.Rows {
		nr := copyRow(row)
		for _, col := range cols {
			if fillEmpty(nr[col], c.TreatWhitespaceAsEmpty) {
				if v, ok := last[col]; ok {
					nr[col] = v
				}
			} else {
				last[col] = nr[col]
			}
		}
		rows[i] = nr
	}
	return derive(t, rows, tabular.CloneColumns(t.Columns)), nil
}

// FillAcrossConfig propagates the last non-empty value along the selected
// column order within each row. Columns defaults to the table's column
// order.
type FillAcrossConfig struct {
	Columns                []string `json:"columns,omitempty"`
	TreatWhitespaceAsEmpty bool     `json:"treatWhitespaceAsEmpty,omitempty"`
}

func (c *FillAcrossConfig) stepType() StepType { return StepFillAcross }

func (c *FillAcrossConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	cols := c.Columns
	if len(cols) == 0 {
		cols = t.ColumnNames()
	} else if err := requireColumns(t, cols...); err != nil {
		return nil, err
	}

	rows := make([]tabular.Row, len(t.Rows))
	for i, row := range t.Rows {
		nr := copyRow(row)
		var last any
		haveLast := false
		for _, col := range cols {
			if fillEmpty(nr[col], c.TreatWhitespaceAsEmpty) {
				if haveLast {
					nr[col] = last
				}
			} else {
				last = nr[col]
				haveLast = true
			}
		}
		rows[i] = nr
	}
	return derive(t, rows, tabular.CloneColumns(t.Columns)), nil
}
