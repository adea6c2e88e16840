// Package tabular turns raw tabular files (delimited text and spreadsheet
// workbooks) into typed in-memory tables. It covers parsing under a
// caller-specified row/column window and header policy, per-column type
// inference from sampled values, and cast validation against a candidate
// target type.
//
// All operations are pure functions of their inputs: parsing the same bytes
// with the same options twice yields structurally identical results, and no
// state is shared between invocations.
package tabular

import (
	"strconv"
	"time"
)

// ColumnType is the semantic type inferred for a column.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
	TypeNull    ColumnType = "null"
)

// SourceType discriminates which parser handles a byte payload.
type SourceType string

const (
	SourceDelimited SourceType = "delimited"
	SourceWorkbook  SourceType = "workbook"
)

// Row maps column names to cell values. A cell is one of:
// nil, float64, bool, time.Time, or string.
type Row map[string]any

// ColumnMetadata describes one column of a table: its inferred type plus
// null/sample statistics. NonNullCount + NullCount always equals the row
// count of the table the metadata describes.
type ColumnMetadata struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"type"`
	NonNullCount int        `json:"nonNullCount"`
	NullCount    int        `json:"nullCount"`
	SampleValues []any      `json:"sampleValues,omitempty"`
}

// Table is a parsed or transformed table. The order of Columns is the
// authoritative display order; every row holds exactly the keys named there.
// Warnings collect row-level anomalies that did not abort the parse
// (malformed rows, renamed duplicate headers, multi-sheet workbooks).
type Table struct {
	Rows     []Row            `json:"rows"`
	Columns  []ColumnMetadata `json:"columns"`
	RowCount int              `json:"rowCount"`
	Warnings []string         `json:"warnings,omitempty"`
}

// ParseOptions configures a single parse call. Window bounds are 1-based and
// inclusive; zero means "unset". Pointer fields distinguish "unset" from an
// explicit false/zero: InferTypes and HasHeaders default to true, SheetIndex
// defaults to the first sheet.
type ParseOptions struct {
	MaxRows     int    `json:"maxRows,omitempty"`
	InferTypes  *bool  `json:"inferTypes,omitempty"`
	Delimiter   string `json:"delimiter,omitempty"`
	SheetName   string `json:"sheetName,omitempty"`
	SheetIndex  *int   `json:"sheetIndex,omitempty"`
	StartRow    int    `json:"startRow,omitempty"`
	EndRow      int    `json:"endRow,omitempty"`
	StartColumn int    `json:"startColumn,omitempty"`
	EndColumn   int    `json:"endColumn,omitempty"`
	HasHeaders  *bool  `json:"hasHeaders,omitempty"`
}

func (o ParseOptions) inferTypes() bool {
	return o.InferTypes == nil || *o.InferTypes
}

func (o ParseOptions) hasHeaders() bool {
	return o.HasHeaders == nil || *o.HasHeaders
}

// validateRange rejects windows that are malformed regardless of input size.
// Negative bounds are always malformed; zero means "unset".
func (o ParseOptions) validateRange() error {
	if o.StartRow < 0 {
		return newError(CodeInvalidRange, "startRow must be >= 1")
	}
	if o.EndRow < 0 {
		return newError(CodeInvalidRange, "endRow must be >= 1")
	}
	if o.StartRow > 0 && o.EndRow > 0 && o.EndRow < o.StartRow {
		return newError(CodeInvalidRange, "endRow (%d) must be >= startRow (%d)", o.EndRow, o.StartRow)
	}
	if o.StartColumn < 0 {
		return newError(CodeInvalidRange, "startColumn must be >= 1")
	}
	if o.EndColumn < 0 {
		return newError(CodeInvalidRange, "endColumn must be >= 1")
	}
	if o.StartColumn > 0 && o.EndColumn > 0 && o.EndColumn < o.StartColumn {
		return newError(CodeInvalidRange, "endColumn (%d) must be >= startColumn (%d)", o.EndColumn, o.StartColumn)
	}
	return nil
}

// Parse selects a parser by source type and runs it against the raw bytes.
func Parse(data []byte, src SourceType, opts ParseOptions) (*Table, error) {
	switch src {
	case SourceDelimited:
		return ParseDelimited(string(data), opts)
	case SourceWorkbook:
		return ParseWorkbook(data, opts)
	default:
		return nil, newError(CodeUnsupportedType, "unsupported source type %q", string(src))
	}
}

// Clone returns a deep copy of the table. Row maps and metadata slices are
// copied; cell values are immutable scalars and are shared.
func (t *Table) Clone() *Table {
	out := &Table{
		Rows:     make([]Row, len(t.Rows)),
		Columns:  CloneColumns(t.Columns),
		RowCount: t.RowCount,
	}
	for i, row := range t.Rows {
		nr := make(Row, len(row))
		for k, v := range row {
			nr[k] = v
		}
		out.Rows[i] = nr
	}
	if len(t.Warnings) > 0 {
		out.Warnings = append([]string(nil), t.Warnings...)
	}
	return out
}

// ColumnNames returns the column names in display order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ColumnValues returns the values of one column in row order.
func (t *Table) ColumnValues(name string) []any {
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[name]
	}
	return values
}

// CloneColumns deep-copies a column metadata slice, detaching the sample
// value slices so later mutation of the table cannot alter a snapshot.
func CloneColumns(cols []ColumnMetadata) []ColumnMetadata {
	out := make([]ColumnMetadata, len(cols))
	for i, c := range cols {
		out[i] = c
		if len(c.SampleValues) > 0 {
			out[i].SampleValues = append([]any(nil), c.SampleValues...)
		}
	}
	return out
}

// FormatValue renders a cell value for display, CSV export, and string
// comparison. Dates render as ISO dates when they carry no time-of-day.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return formatFloat(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	default:
		return ""
	}
}

// formatFloat renders a number without trailing zeros or exponent noise for
// the typical magnitudes found in tabular data.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
