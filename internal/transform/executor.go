package transform

// executor.go replays an ordered step list over a base table.
//
// Replays are pure: the base table is cloned up front and each operator
// builds a fresh successor, so two concurrent runs over the same base are
// independent. After every step the whole table is re-inferred and a deep
// snapshot of the column metadata is appended to TypeEvolution — snapshot 0
// is always the base table's columns before any step runs.

import (
	"fmt"

	"github.com/tabledesk/tabledesk/internal/tabular"
)

// StepResult is the per-step outcome record of one replay.
type StepResult struct {
	StepID     string   `json:"stepId"`
	Type       StepType `json:"type"`
	RowsBefore int      `json:"rowsBefore"`
	RowsAfter  int      `json:"rowsAfter"`
	Warnings   []string `json:"warnings,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ExecutionResult is the outcome of a pipeline replay. When a step fails,
// Table and StepResults reflect every step that succeeded, so a caller can
// still render a preview up to the last good step.
type ExecutionResult struct {
	Table         *tabular.Table             `json:"table"`
	StepResults   []StepResult               `json:"stepResults"`
	TypeEvolution [][]tabular.ColumnMetadata `json:"typeEvolution"`
}

// Run replays every step over the base table.
func Run(base *tabular.Table, steps []Step) (*ExecutionResult, error) {
	return RunUntil(base, steps, len(steps)-1)
}

// RunUntil replays steps 0..stopIndex inclusive. A stopIndex of -1 returns
// the base table unchanged. A stopIndex past the end is clamped, so
// RunUntil(t, steps, len(steps)-1) and Run(t, steps) are identical.
//
// On step failure the returned error is a *StepError naming the failed step;
// the returned result is still valid and covers the steps that succeeded.
func RunUntil(base *tabular.Table, steps []Step, stopIndex int) (*ExecutionResult, error) {
	if stopIndex >= len(steps) {
		stopIndex = len(steps) - 1
	}

	cur := base.Clone()
	res := &ExecutionResult{
		Table:         cur,
		TypeEvolution: [][]tabular.ColumnMetadata{tabular.CloneColumns(cur.Columns)},
	}

	for i := 0; i <= stopIndex; i++ {
		step := steps[i]
		result := StepResult{StepID: step.ID, Type: step.Type, RowsBefore: cur.RowCount}

		next, err := applyStep(cur, step)
		if err != nil {
			serr := &StepError{Index: i, StepID: step.ID, StepType: step.Type, Err: err}
			result.RowsAfter = result.RowsBefore
			result.Error = err.Error()
			res.StepResults = append(res.StepResults, result)
			return res, serr
		}

		tabular.ReinferColumns(next)
		if len(next.Warnings) > len(cur.Warnings) {
			result.Warnings = append([]string(nil), next.Warnings[len(cur.Warnings):]...)
		}
		result.RowsAfter = next.RowCount

		cur = next
		res.Table = cur
		res.StepResults = append(res.StepResults, result)
		res.TypeEvolution = append(res.TypeEvolution, tabular.CloneColumns(cur.Columns))
	}
	return res, nil
}

func applyStep(t *tabular.Table, step Step) (*tabular.Table, error) {
	if step.Config == nil {
		return nil, fmt.Errorf("step %q has no configuration", string(step.Type))
	}
	return step.Config.apply(t)
}
