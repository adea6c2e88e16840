// Package transform applies ordered sequences of table operations to parsed
// tables. Each operator is a pure table-to-table function; the executor
// replays a step list over a base table, optionally stopping early for
// step-by-step preview, and records how column types evolve after each step.
package transform

import (
	"encoding/json"
	"fmt"

	"github.com/tabledesk/tabledesk/internal/tabular"
)

// StepType tags one operator in the fixed catalog.
type StepType string

const (
	StepTrim         StepType = "trim"
	StepUppercase    StepType = "uppercase"
	StepLowercase    StepType = "lowercase"
	StepDeduplicate  StepType = "deduplicate"
	StepFilter       StepType = "filter"
	StepRenameColumn StepType = "rename_column"
	StepRemoveColumn StepType = "remove_column"
	StepCastColumn   StepType = "cast_column"
	StepSplitColumn  StepType = "split_column"
	StepMergeColumns StepType = "merge_columns"
	StepPivot        StepType = "pivot"
	StepUnpivot      StepType = "unpivot"
	StepFillDown     StepType = "fill_down"
	StepFillAcross   StepType = "fill_across"
	StepSort         StepType = "sort"
)

// StepConfig is the operator-specific parameter record. Exactly one concrete
// config type exists per StepType; dispatch is by the concrete type, not a
// string switch.
type StepConfig interface {
	stepType() StepType
	apply(t *tabular.Table) (*tabular.Table, error)
}

// Step is one immutable pipeline entry. Editing a step replaces it whole.
type Step struct {
	ID     string
	Type   StepType
	Config StepConfig
}

// stepEnvelope is the wire shape of a step for JSON persistence and the API.
type stepEnvelope struct {
	ID     string          `json:"id"`
	Type   StepType        `json:"type"`
	Config json.RawMessage `json:"config"`
}

// MarshalJSON encodes the step with its config inlined under "config".
func (s Step) MarshalJSON() ([]byte, error) {
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return nil, fmt.Errorf("marshal step %s config: %w", s.ID, err)
	}
	return json.Marshal(stepEnvelope{ID: s.ID, Type: s.Type, Config: cfg})
}

// UnmarshalJSON decodes the envelope, instantiates the config variant for
// the tag, and decodes the parameters into it.
func (s *Step) UnmarshalJSON(data []byte) error {
	var env stepEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	cfg, err := newConfig(env.Type)
	if err != nil {
		return err
	}
	if len(env.Config) > 0 {
		if err := json.Unmarshal(env.Config, cfg); err != nil {
			return fmt.Errorf("decode %s config: %w", env.Type, err)
		}
	}
	s.ID = env.ID
	s.Type = env.Type
	s.Config = cfg.(StepConfig)
	return nil
}

// newConfig returns a pointer to a zero config struct for the given tag.
func newConfig(t StepType) (any, error) {
	switch t {
	case StepTrim:
		return &TrimConfig{}, nil
	case StepUppercase:
		return &UppercaseConfig{}, nil
	case StepLowercase:
		return &LowercaseConfig{}, nil
	case StepDeduplicate:
		return &DeduplicateConfig{}, nil
	case StepFilter:
		return &FilterConfig{}, nil
	case StepRenameColumn:
		return &RenameColumnConfig{}, nil
	case StepRemoveColumn:
		return &RemoveColumnConfig{}, nil
	case StepCastColumn:
		return &CastColumnConfig{}, nil
	case StepSplitColumn:
		return &SplitColumnConfig{}, nil
	case StepMergeColumns:
		return &MergeColumnsConfig{}, nil
	case StepPivot:
		return &PivotConfig{}, nil
	case StepUnpivot:
		return &UnpivotConfig{}, nil
	case StepFillDown:
		return &FillDownConfig{}, nil
	case StepFillAcross:
		return &FillAcrossConfig{}, nil
	case StepSort:
		return &SortConfig{}, nil
	default:
		return nil, fmt.Errorf("unknown step type %q", string(t))
	}
}

// StepError reports which step of a pipeline run failed and why. The
// executor returns it alongside the partial result of the steps that
// succeeded.
type StepError struct {
	Index    int
	StepID   string
	StepType StepType
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s %s): %v", e.Index, e.StepType, e.StepID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// requireColumns fails with the first referenced column that does not exist.
// A missing column is a hard error that aborts the step.
func requireColumns(t *tabular.Table, names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return fmt.Errorf("column %q not found", name)
		}
	}
	return nil
}
