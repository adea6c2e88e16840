package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tabledesk/tabledesk/internal/tabular"
)

// SortKey is one column/direction pair of a multi-key sort.
type SortKey struct {
	Column    string `json:"column"`
	Direction string `json:"direction,omitempty"` // "asc" (default) or "desc"
}

// SortConfig sorts rows by an ordered list of keys. The sort is stable:
// rows that compare equal on every key keep their relative input order.
// NullPlacement puts null cells "first" or "last" (default last) regardless
// of direction.
type SortConfig struct {
	Keys          []SortKey `json:"keys"`
	NullPlacement string    `json:"nullPlacement,omitempty"`
}

func (c *SortConfig) stepType() StepType { return StepSort }

func (c *SortConfig) apply(t *tabular.Table) (*tabular.Table, error) {
	if len(c.Keys) == 0 {
		return nil, fmt.Errorf("sort requires at least one key")
	}
	for _, k := range c.Keys {
		if err := requireColumns(t, k.Column); err != nil {
			return nil, err
		}
		switch k.Direction {
		case "", "asc", "desc":
		default:
			return nil, fmt.Errorf("invalid sort direction %q for column %q", k.Direction, k.Column)
		}
	}
	nullsFirst := false
	switch c.NullPlacement {
	case "", "last":
	case "first":
		nullsFirst = true
	default:
		return nil, fmt.Errorf("invalid null placement %q", c.NullPlacement)
	}

	rows := make([]tabular.Row, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = copyRow(row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range c.Keys {
			a, b := rows[i][k.Column], rows[j][k.Column]
			if a == nil || b == nil {
				if a == nil && b == nil {
					continue
				}
				if a == nil {
					return nullsFirst
				}
				return !nullsFirst
			}
			cmp := compareValues(a, b)
			if cmp == 0 {
				continue
			}
			if k.Direction == "desc" {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	return derive(t, rows, tabular.CloneColumns(t.Columns)), nil
}

// compareValues orders two non-null cells: numerically when both are
// numeric, chronologically when both are dates, else lexically on the
// display form.
func compareValues(a, b any) int {
	if af, aok := asNumber(a); aok {
		if bf, bok := asNumber(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(tabular.FormatValue(a), tabular.FormatValue(b))
}
