package transform

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tabledesk/tabledesk/internal/tabular"
)

func TestStepJSONRoundTrip(t *testing.T) {
	steps := []Step{
		{ID: "s1", Type: StepTrim, Config: &TrimConfig{Columns: []string{"a", "b"}}},
		{ID: "s2", Type: StepFilter, Config: &FilterConfig{Column: "n", Operator: OpGreaterThan, Value: float64(5)}},
		{ID: "s3", Type: StepCastColumn, Config: &CastColumnConfig{Column: "d", TargetType: tabular.TypeDate, Format: "02/01/2006", OnError: tabular.CastNull}},
		{ID: "s4", Type: StepSort, Config: &SortConfig{Keys: []SortKey{{Column: "n", Direction: "desc"}}, NullPlacement: "first"}},
		{ID: "s5", Type: StepUnpivot, Config: &UnpivotConfig{IDColumns: []string{"Name"}, ValueColumns: []string{"Jan"}, VariableColumn: "Month", ValueColumn: "Sales"}},
	}

	data, err := json.Marshal(steps)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}

	var decoded []Step
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if len(decoded) != len(steps) {
		t.Fatalf("decoded %d steps, want %d", len(decoded), len(steps))
	}

	for i, step := range decoded {
		if step.ID != steps[i].ID || step.Type != steps[i].Type {
			t.Errorf("step %d envelope = (%s, %s), want (%s, %s)", i, step.ID, step.Type, steps[i].ID, steps[i].Type)
		}
	}

	// The concrete config variant must be restored, not a generic map.
	cast, ok := decoded[2].Config.(*CastColumnConfig)
	if !ok {
		t.Fatalf("step 2 config = %T, want *CastColumnConfig", decoded[2].Config)
	}
	if cast.Format != "02/01/2006" || cast.OnError != tabular.CastNull {
		t.Errorf("cast config = %+v", cast)
	}

	sortCfg, ok := decoded[3].Config.(*SortConfig)
	if !ok {
		t.Fatalf("step 3 config = %T, want *SortConfig", decoded[3].Config)
	}
	if len(sortCfg.Keys) != 1 || sortCfg.Keys[0].Direction != "desc" {
		t.Errorf("sort config = %+v", sortCfg)
	}
}

func TestStepUnmarshal_UnknownType(t *testing.T) {
	var step Step
	err := json.Unmarshal([]byte(`{"id":"x","type":"teleport","config":{}}`), &step)
	if err == nil {
		t.Fatal("unknown step type accepted")
	}
	if !strings.Contains(err.Error(), "teleport") {
		t.Errorf("error %q does not name the unknown type", err)
	}
}

func TestStepUnmarshal_MissingConfig(t *testing.T) {
	// An absent config decodes to the zero config; validation happens at
	// apply time, not decode time.
	var step Step
	if err := json.Unmarshal([]byte(`{"id":"x","type":"deduplicate"}`), &step); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if _, ok := step.Config.(*DeduplicateConfig); !ok {
		t.Errorf("config = %T, want *DeduplicateConfig", step.Config)
	}
}

func TestStepMarshal_WireShape(t *testing.T) {
	step := Step{ID: "s1", Type: StepRenameColumn, Config: &RenameColumnConfig{From: "a", To: "b"}}
	data, err := json.Marshal(step)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("re-decode error = %v", err)
	}
	for _, key := range []string{"id", "type", "config"} {
		if _, ok := env[key]; !ok {
			t.Errorf("wire shape missing %q: %s", key, data)
		}
	}
}

func TestNewConfig_CoversCatalog(t *testing.T) {
	types := []StepType{
		StepTrim, StepUppercase, StepLowercase, StepDeduplicate, StepFilter,
		StepRenameColumn, StepRemoveColumn, StepCastColumn, StepSplitColumn,
		StepMergeColumns, StepPivot, StepUnpivot, StepFillDown, StepFillAcross,
		StepSort,
	}
	for _, st := range types {
		cfg, err := newConfig(st)
		if err != nil {
			t.Errorf("newConfig(%s) error = %v", st, err)
			continue
		}
		if got := cfg.(StepConfig).stepType(); got != st {
			t.Errorf("newConfig(%s) built config tagged %s", st, got)
		}
	}
}
