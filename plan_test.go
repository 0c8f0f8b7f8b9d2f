package stepgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const researchPlan = `
name: research
description: Summarize a topic
checkpoints:
  - ordinal: 1
    description: write summary
    review_criteria: [cites sources]
    steps:
      - work: echo
        args:
          value: draft
  - ordinal: 0
    description: gather sources
    steps:
      - name: search
        work: tokens
        type: reasoning
        args:
          output: three sources found
      - work: sleep
        args:
          duration: 10ms
`

func TestLoadPlanString(t *testing.T) {
	plan, err := LoadPlanString(researchPlan)
	require.NoError(t, err)
	require.Equal(t, "research", plan.Name)

	specs := plan.Specs()
	require.Equal(t, []CheckpointSpec{
		{Ordinal: 0, Description: "gather sources"},
		{Ordinal: 1, Description: "write summary", ReviewCriteria: []string{"cites sources"}},
	}, specs)

	steps := plan.StepsFor(0)
	require.Len(t, steps, 2)
	require.Equal(t, "search", steps[0].Name)
	require.Equal(t, FunctionTypeReasoning, steps[0].Type)
	require.Equal(t, "10ms", steps[1].Args["duration"])
	require.Nil(t, plan.StepsFor(7))
}

func TestLoadPlanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(researchPlan), 0644))

	plan, err := LoadPlanFile(path)
	require.NoError(t, err)
	require.Len(t, plan.Checkpoints, 2)

	_, err = LoadPlanFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestPlanDefaultOrdinals(t *testing.T) {
	plan, err := LoadPlanString(`
name: defaults
checkpoints:
  - description: first
  - description: second
`)
	require.NoError(t, err)
	specs := plan.Specs()
	require.Equal(t, 0, specs[0].Ordinal)
	require.Equal(t, 1, specs[1].Ordinal)
}

func TestPlanValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "checkpoints: [{description: a}]"},
		{"negative ordinal", "name: p\ncheckpoints: [{ordinal: -1, description: a}]"},
		{"duplicate ordinal", "name: p\ncheckpoints: [{ordinal: 0}, {ordinal: 0}]"},
		{"step without work", "name: p\ncheckpoints: [{description: a, steps: [{name: x}]}]"},
		{"malformed", "name: [p"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPlanString(tt.yaml)
			require.Error(t, err)
		})
	}

	_, err := LoadPlanString("name: p")
	require.ErrorIs(t, err, ErrEmptyInput)
}
