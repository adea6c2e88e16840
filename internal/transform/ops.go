package transform

// ops.go holds the row- and column-local operators: string normalization,
// deduplication, filtering, renames/removals, and typed casts. Structural
// reshaping lives in reshape.go, value propagation in fill.go, ordering in
// sort.go.
//
// Every operator builds a fresh table; input tables are never mutated. Type
// re-inference is the executor's job, so operators only maintain column
// names and order.

import (
	"fmt"
	"strings"

	"github.com/tabledesk/tabledesk/internal/tabular"
)

// derive builds a successor table carrying the input's warnings forward.
// Operators append their own warnings after calling this.
func derive(t *tabular.Table, rows []tabular.Row, cols []tabular.ColumnMetadata) *tabular.Table {
	out := &tabular.Table{Rows: rows, Columns: cols, RowCount: len(rows)}
	if len(t.Warnings) > 0 {
		out.Warnings = append([]string(nil), t.Warnings...)
	}
	return out
}

// copyRow shallow-copies one row map.
func copyRow(row tabular.Row) tabular.Row {
	out := make(tabular.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// mapStrings applies fn to the string cells of the named columns. Non-string
// cells pass through unchanged.
func mapStrings(t *tabular.Table, columns []string, fn func(string) string) (*tabular.Table, error) {
	if err := requireColumns(t, columns...); err != nil {
		return nil, err
	}
	rows := make([]tabular.Row, len(t.Rows))
	for i, row := range t.Rows {
		nr := copyRow(row)
		for _, col := range columns {
			if s, ok := nr[col].(string); ok {
				nr[col] = fn(s)
			}
		}
		rows[i] = nr
	}
	return derive(t, rows, tabular.CloneColumns(t.Columns)), nil
}

// TrimConfig trims surrounding whitespace from string cells.
type TrimConfig struct {
	Columns []string `json:"columns"`
}

func (c *TrimConfig) stepType() StepType { return StepTrim }

func (c *TrimConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	return mapStrings(t, c.Columns, strings.TrimSpace)
}

// UppercaseConfig upper-cases string cells.
type UppercaseConfig struct {
	Columns []string `json:"columns"`
}

func (c *UppercaseConfig) stepType() StepType { return StepUppercase }

func (c *UppercaseConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	return mapStrings(t, c.Columns, strings.ToUpper)
}

// LowercaseConfig lower-cases string cells.
type LowercaseConfig struct {
	Columns []string `json:"columns"`
}

func (c *LowercaseConfig) stepType() StepType { return StepLowercase }

func (c *LowercaseConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	return mapStrings(t, c.Columns, strings.ToLower)
}

// DeduplicateConfig removes rows that are exact duplicates across the given
// column subset, or across all columns when none are given. The first
// occurrence wins and the order of kept rows is preserved.
type DeduplicateConfig struct {
	Columns []string `json:"columns,omitempty"`
}

func (c *DeduplicateConfig) stepType() StepType { return StepDeduplicate }

func (c *DeduplicateConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	cols := c.Columns
	if len(cols) == 0 {
		cols = t.ColumnNames()
	} else if err := requireColumns(t, cols...); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(t.Rows))
	var rows []tabular.Row
	for _, row := range t.Rows {
		key := rowKey(row, cols)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, copyRow(row))
	}
	return derive(t, rows, tabular.CloneColumns(t.Columns)), nil
}

// rowKey builds a composite key over the given columns. The unit separator
// keeps adjacent values from colliding.
func rowKey(row tabular.Row, cols []string) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		if row[col] == nil {
			parts[i] = "\x00"
			continue
		}
		parts[i] = tabular.FormatValue(row[col])
	}
	return strings.Join(parts, "\x1f")
}

// FilterOperator is the comparison applied by a filter step.
type FilterOperator string

const (
	OpEquals      FilterOperator = "equals"
	OpNotEquals   FilterOperator = "not_equals"
	OpContains    FilterOperator = "contains"
	OpNotContains FilterOperator = "not_contains"
	OpGreaterThan FilterOperator = "greater_than"
	OpLessThan    FilterOperator = "less_than"
)

// FilterConfig keeps rows where `column OP value` holds. Comparison is
// numeric when both operands are numeric, else string/substring.
type FilterConfig struct {
	Column   string         `json:"column"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value"`
}

func (c *FilterConfig) stepType() StepType { return StepFilter }

func (c *FilterConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	if err := requireColumns(t, c.Column); err != nil {
		return nil, err
	}

	var rows []tabular.Row
	for _, row := range t.Rows {
		keep, err := matchFilter(row[c.Column], c.Operator, c.Value)
		if err != nil {
			return nil, err
		}
		if keep {
			rows = append(rows, copyRow(row))
		}
	}
	return derive(t, rows, tabular.CloneColumns(t.Columns)), nil
}

func matchFilter(cell any, op FilterOperator, want any) (bool, error) {
	cellNum, cellIsNum := asNumber(cell)
	wantNum, wantIsNum := asNumber(want)
	numeric := cellIsNum && wantIsNum

	cellStr := tabular.FormatValue(cell)
	wantStr := tabular.FormatValue(want)

	switch op {
	case OpEquals:
		if numeric {
			return cellNum == wantNum, nil
		}
		return cellStr == wantStr, nil
	case OpNotEquals:
		if numeric {
			return cellNum != wantNum, nil
		}
		return cellStr != wantStr, nil
	case OpContains:
		return strings.Contains(cellStr, wantStr), nil
	case OpNotContains:
		return !strings.Contains(cellStr, wantStr), nil
	case OpGreaterThan:
		if numeric {
			return cellNum > wantNum, nil
		}
		return cellStr > wantStr, nil
	case OpLessThan:
		if numeric {
			return cellNum < wantNum, nil
		}
		return cellStr < wantStr, nil
	default:
		return false, fmt.Errorf("unknown filter operator %q", string(op))
	}
}

// asNumber extracts a numeric operand from a cell or a filter value. JSON
// decoding hands filter values over as float64 or string.
func asNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		if out, err := tabular.ConvertValue(val, tabular.TypeNumber, ""); err == nil {
			if f, ok := out.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// RenameColumnConfig renames a column, preserving its position.
type RenameColumnConfig struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (c *RenameColumnConfig) stepType() StepType { return StepRenameColumn }

func (c *RenameColumnConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	if err := requireColumns(t, c.From); err != nil {
		return nil, err
	}
	if c.To == "" {
		return nil, fmt.Errorf("rename target name is empty")
	}
	if c.To != c.From && t.HasColumn(c.To) {
		return nil, fmt.Errorf("column %q already exists", c.To)
	}

	cols := tabular.CloneColumns(t.Columns)
	for i := range cols {
		if cols[i].Name == c.From {
			cols[i].Name = c.To
		}
	}
	rows := make([]tabular.Row, len(t.Rows))
	for i, row := range t.Rows {
		nr := copyRow(row)
		nr[c.To] = nr[c.From]
		if c.To != c.From {
			delete(nr, c.From)
		}
		rows[i] = nr
	}
	return derive(t, rows, cols), nil
}

// RemoveColumnConfig drops a column from the table.
type RemoveColumnConfig struct {
	Column string `json:"column"`
}

func (c *RemoveColumnConfig) stepType() StepType { return StepRemoveColumn }

func (c *RemoveColumnConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	if err := requireColumns(t, c.Column); err != nil {
		return nil, err
	}

	var cols []tabular.ColumnMetadata
	for _, col := range tabular.CloneColumns(t.Columns) {
		if col.Name != c.Column {
			cols = append(cols, col)
		}
	}
	rows := make([]tabular.Row, len(t.Rows))
	for i, row := range t.Rows {
		nr := copyRow(row)
		delete(nr, c.Column)
		rows[i] = nr
	}
	return derive(t, rows, cols), nil
}

// CastColumnConfig converts a column to the target type. OnError selects the
// row-level recovery policy; this is the only operator with one.
type CastColumnConfig struct {
	Column     string             `json:"column"`
	TargetType tabular.ColumnType `json:"targetType"`
	Format     string             `json:"format,omitempty"`
	OnError    tabular.CastMode   `json:"onError,omitempty"`
}

func (c *CastColumnConfig) stepType() StepType { return StepCastColumn }

func (c *CastColumnConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	if err := requireColumns(t, c.Column); err != nil {
		return nil, err
	}
	mode := c.OnError
	if mode == "" {
		mode = tabular.CastFail
	}

	var rows []tabular.Row
	nulled, skipped := 0, 0
	for i, row := range t.Rows {
		converted, err := tabular.ConvertValue(row[c.Column], c.TargetType, c.Format)
		if err != nil {
			switch mode {
			case tabular.CastFail:
				return nil, fmt.Errorf("cast %q to %s failed at row %d: %w", c.Column, c.TargetType, i+1, err)
			case tabular.CastNull:
				converted = nil
				nulled++
			case tabular.CastSkip:
				skipped++
				continue
			default:
				return nil, fmt.Errorf("unknown cast error mode %q", string(mode))
			}
		}
		nr := copyRow(row)
		nr[c.Column] = converted
		rows = append(rows, nr)
	}

	out := derive(t, rows, tabular.CloneColumns(t.Columns))
	if nulled > 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("cast %q to %s: replaced %d unparseable values with null", c.Column, c.TargetType, nulled))
	}
	if skipped > 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("cast %q to %s: dropped %d rows with unparseable values", c.Column, c.TargetType, skipped))
	}
	return out, nil
}
