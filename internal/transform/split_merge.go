package transform

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tabledesk/tabledesk/internal/tabular"
)

// SplitMethod selects how a split_column step cuts the source value.
type SplitMethod string

const (
	SplitByDelimiter SplitMethod = "delimiter"
	SplitByPosition  SplitMethod = "position"
	SplitByRegex     SplitMethod = "regex"
)

// SplitColumnConfig produces new named columns from one source column.
// With the regex method, capture groups populate the new columns when the
// pattern has any; otherwise the pattern acts as a split separator.
// Positions are 0-based character offsets where cuts happen.
type SplitColumnConfig struct {
	Column     string      `json:"column"`
	Method     SplitMethod `json:"method"`
	Delimiter  string      `json:"delimiter,omitempty"`
	Positions  []int       `json:"positions,omitempty"`
	Pattern    string      `json:"pattern,omitempty"`
	Into       []string    `json:"into"`
	TrimValues bool        `json:"trimValues,omitempty"`
	DropSource bool        `json:"dropSource,omitempty"`
}

func (c *SplitColumnConfig) stepType() StepType { return StepSplitColumn }

func (c *SplitColumnConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	if err := requireColumns(t, c.Column); err != nil {
		return nil, err
	}
	if len(c.Into) == 0 {
		return nil, fmt.Errorf("split_column requires at least one target column name")
	}
	for _, name := range c.Into {
		if name == "" {
			return nil, fmt.Errorf("split_column target names must be non-empty")
		}
		if name != c.Column && t.HasColumn(name) {
			return nil, fmt.Errorf("column %q already exists", name)
		}
	}

	splitter, err := c.splitter()
	if err != nil {
		return nil, err
	}

	rows := make([]tabular.Row, len(t.Rows))
	for i, row := range t.Rows {
		nr := copyRow(row)
		parts := splitter(tabular.FormatValue(row[c.Column]))
		for j, name := range c.Into {
			var v any
			if j < len(parts) {
				part := parts[j]
				if c.TrimValues {
					part = strings.TrimSpace(part)
				}
				if part != "" {
					v = part
				}
			}
			nr[name] = v
		}
		if c.DropSource && !contains(c.Into, c.Column) {
			delete(nr, c.Column)
		}
		rows[i] = nr
	}

	// New columns slot in directly after the source column.
	var cols []tabular.ColumnMetadata
	for _, col := range t.Columns {
		if col.Name != c.Column {
			cols = append(cols, col)
			continue
		}
		if !c.DropSource && !contains(c.Into, c.Column) {
			cols = append(cols, col)
		}
		for _, name := range c.Into {
			cols = append(cols, tabular.StringColumn(name))
		}
	}
	return derive(t, rows, cols), nil
}

func (c *SplitColumnConfig) splitter() (func(string) []string, error) {
	switch c.Method {
	case SplitByDelimiter:
		if c.Delimiter == "" {
			return nil, fmt.Errorf("split_column delimiter method requires a delimiter")
		}
		n := len(c.Into)
		return func(s string) []string {
			return strings.SplitN(s, c.Delimiter, n)
		}, nil

	case SplitByPosition:
		if len(c.Positions) == 0 {
			return nil, fmt.Errorf("split_column position method requires positions")
		}
		positions := append([]int(nil), c.Positions...)
		sort.Ints(positions)
		return func(s string) []string {
			runes := []rune(s)
			var parts []string
			prev := 0
			for _, p := range positions {
				if p < prev {
					p = prev
				}
				if p > len(runes) {
					p = len(runes)
				}
				parts = append(parts, string(runes[prev:p]))
				prev = p
			}
			parts = append(parts, string(runes[prev:]))
			return parts
		}, nil

	case SplitByRegex:
		if c.Pattern == "" {
			return nil, fmt.Errorf("split_column regex method requires a pattern")
		}
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("split_column pattern: %w", err)
		}
		n := len(c.Into)
		if re.NumSubexp() > 0 {
			return func(s string) []string {
				m := re.FindStringSubmatch(s)
				if m == nil {
					return nil
				}
				return m[1:]
			}, nil
		}
		return func(s string) []string {
			return re.Split(s, n)
		}, nil

	default:
		return nil, fmt.Errorf("unknown split method %q", string(c.Method))
	}
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

// MergeColumnsConfig concatenates an ordered list of columns with a
// separator into one new column.
type MergeColumnsConfig struct {
	Columns       []string `json:"columns"`
	Separator     string   `json:"separator"`
	Into          string   `json:"into"`
	SkipNulls     bool     `json:"skipNulls,omitempty"`
	KeepOriginals bool     `json:"keepOriginals,omitempty"`
}

func (c *MergeColumnsConfig) stepType() StepType { return StepMergeColumns }

func (c *MergeColumnsConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	if len(c.Columns) < 2 {
		return nil, fmt.Errorf("merge_columns requires at least two source columns")
	}
	if err := requireColumns(t, c.Columns...); err != nil {
		return nil, err
	}
	if c.Into == "" {
		return nil, fmt.Errorf("merge_columns requires a target column name")
	}
	if !contains(c.Columns, c.Into) && t.HasColumn(c.Into) {
		return nil, fmt.Errorf("column %q already exists", c.Into)
	}

	rows := make([]tabular.Row, len(t.Rows))
	for i, row := range t.Rows {
		nr := copyRow(row)
		var parts []string
		for _, col := range c.Columns {
			if row[col] == nil && c.SkipNulls {
				continue
			}
			parts = append(parts, tabular.FormatValue(row[col]))
		}
		merged := strings.Join(parts, c.Separator)
		if !c.KeepOriginals {
			for _, col := range c.Columns {
				delete(nr, col)
			}
		}
		if merged == "" {
			nr[c.Into] = nil
		} else {
			nr[c.Into] = merged
		}
		rows[i] = nr
	}

	// The merged column takes the position of the first source column;
	// originals are dropped unless kept.
	var cols []tabular.ColumnMetadata
	placed := false
	for _, col := range t.Columns {
		if contains(c.Columns, col.Name) {
			if !placed {
				cols = append(cols, tabular.StringColumn(c.Into))
				placed = true
			}
			if c.KeepOriginals && col.Name != c.Into {
				cols = append(cols, col)
			}
			continue
		}
		if col.Name != c.Into {
			cols = append(cols, col)
		}
	}
	return derive(t, rows, cols), nil
}
