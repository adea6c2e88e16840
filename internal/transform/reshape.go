package transform

// reshape.go implements the classic wide/long reshapes. Group keys and new
// column headers keep first-appearance order so output is deterministic for
// a given input.

import (
	"fmt"

	"github.com/tabledesk/tabledesk/internal/tabular"
)

// AggFunc is the aggregation a pivot applies when multiple source rows map
// to the same (index, new-column) cell.
type AggFunc string

const (
	AggFirst AggFunc = "first"
	AggLast  AggFunc = "last"
	AggSum   AggFunc = "sum"
	AggMean  AggFunc = "mean"
	AggCount AggFunc = "count"
)

// PivotConfig spreads the distinct values of one column into new column
// headers, grouping rows by the index columns and aggregating the value
// column into each cell.
type PivotConfig struct {
	IndexColumns []string `json:"indexColumns"`
	Column       string   `json:"column"`
	ValueColumn  string   `json:"valueColumn"`
	Aggregation  AggFunc  `json:"aggregation,omitempty"`
}

func (c *PivotConfig) stepType() StepType { return StepPivot }

func (c *PivotConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	if len(c.IndexColumns) == 0 {
		return nil, fmt.Errorf("pivot requires at least one index column")
	}
	refs := append(append([]string(nil), c.IndexColumns...), c.Column, c.ValueColumn)
	if err := requireColumns(t, refs...); err != nil {
		return nil, err
	}
	agg := c.Aggregation
	if agg == "" {
		agg = AggFirst
	}

	type group struct {
		index tabular.Row
		cells map[string][]any
	}
	var order []string
	groups := make(map[string]*group)
	var headerOrder []string
	headerSeen := make(map[string]bool)

	for _, row := range t.Rows {
		key := rowKey(row, c.IndexColumns)
		g, ok := groups[key]
		if !ok {
			g = &group{index: make(tabular.Row, len(c.IndexColumns)), cells: make(map[string][]any)}
			for _, col := range c.IndexColumns {
				g.index[col] = row[col]
			}
			groups[key] = g
			order = append(order, key)
		}

		header := tabular.FormatValue(row[c.Column])
		if header == "" {
			header = "(blank)"
		}
		if !headerSeen[header] {
			headerSeen[header] = true
			headerOrder = append(headerOrder, header)
		}
		g.cells[header] = append(g.cells[header], row[c.ValueColumn])
	}

	// Pivoted headers may collide with index column names; disambiguate the
	// same way parsers do.
	names := append(append([]string(nil), c.IndexColumns...), headerOrder...)
	names, _ = dedupeNames(names)
	headerNames := names[len(c.IndexColumns):]

	rows := make([]tabular.Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := copyRow(g.index)
		for i, header := range headerOrder {
			row[headerNames[i]] = aggregate(g.cells[header], agg)
		}
		rows = append(rows, row)
	}

	cols := make([]tabular.ColumnMetadata, 0, len(names))
	for _, name := range names {
		cols = append(cols, tabular.StringColumn(name))
	}
	return derive(t, rows, cols), nil
}

// aggregate folds the collected cell values for one pivot cell.
func aggregate(values []any, agg AggFunc) any {
	if len(values) == 0 {
		return nil
	}
	switch agg {
	case AggFirst:
		return values[0]
	case AggLast:
		return values[len(values)-1]
	case AggCount:
		n := 0
		for _, v := range values {
			if v != nil {
				n++
			}
		}
		return float64(n)
	case AggSum, AggMean:
		sum, n := 0.0, 0
		for _, v := range values {
			if f, ok := asNumber(v); ok {
				sum += f
				n++
			}
		}
		if n == 0 {
			return nil
		}
		if agg == AggMean {
			return sum / float64(n)
		}
		return sum
	default:
		return values[0]
	}
}

// UnpivotConfig melts value columns into row-per-value long form: id columns
// are kept, and each value column contributes one output row naming the
// column and carrying its cell.
type UnpivotConfig struct {
	IDColumns      []string `json:"idColumns"`
	ValueColumns   []string `json:"valueColumns"`
	VariableColumn string   `json:"variableColumn,omitempty"`
	ValueColumn    string   `json:"valueColumn,omitempty"`
}

func (c *UnpivotConfig) stepType() StepType { return StepUnpivot }

func (c *UnpivotConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	if len(c.ValueColumns) == 0 {
		return nil, fmt.Errorf("unpivot requires at least one value column")
	}
	refs := append(append([]string(nil), c.IDColumns...), c.ValueColumns...)
	if err := requireColumns(t, refs...); err != nil {
		return nil, err
	}

	variable := c.VariableColumn
	if variable == "" {
		variable = "variable"
	}
	value := c.ValueColumn
	if value == "" {
		value = "value"
	}
	for _, id := range c.IDColumns {
		if id == variable || id == value {
			return nil, fmt.Errorf("unpivot output column %q collides with an id column", id)
		}
	}
	if variable == value {
		return nil, fmt.Errorf("unpivot variable and value columns must differ")
	}

	rows := make([]tabular.Row, 0, len(t.Rows)*len(c.ValueColumns))
	for _, row := range t.Rows {
		for _, vc := range c.ValueColumns {
			nr := make(tabular.Row, len(c.IDColumns)+2)
			for _, id := range c.IDColumns {
				nr[id] = row[id]
			}
			nr[variable] = vc
			nr[value] = row[vc]
			rows = append(rows, nr)
		}
	}

	cols := make([]tabular.ColumnMetadata, 0, len(c.IDColumns)+2)
	for _, id := range c.IDColumns {
		cols = append(cols, tabular.StringColumn(id))
	}
	cols = append(cols, tabular.StringColumn(variable), tabular.StringColumn(value))
	return derive(t, rows, cols), nil
}

// dedupeNames suffixes repeated names with _1, _2, ... like the parsers'
// header disambiguation.
func dedupeNames(names []string) ([]string, int) {
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	renamed := 0
	for i, name := range names {
		if n, dup := seen[name]; dup {
			candidate := fmt.Sprintf("%s_%d", name, n)
			for {
				if _, taken := seen[candidate]; !taken {
					break
				}
				n++
				candidate = fmt.Sprintf("%s_%d", name, n)
			}
			seen[name] = n + 1
			seen[candidate] = 1
			out[i] = candidate
			renamed++
			continue
		}
		seen[name] = 1
		out[i] = name
	}
	return out, renamed
}
