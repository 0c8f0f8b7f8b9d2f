package stepgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStepLogger(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logs := NewFileStepLogger(dir)

	history, err := logs.StepHistory(ctx, "g1")
	require.NoError(t, err)
	require.Empty(t, history)

	step := &Step{ID: "s1", CheckpointID: "ck0", FunctionName: "fetch", FunctionSignature: "(url)", Status: StepStatusSuccess}
	require.NoError(t, logs.LogStep(ctx, NewStepLogEntry("g1", step)))
	require.NoError(t, logs.LogStep(ctx, NewStepLogEntry("g1", &Step{ID: "s2", CheckpointID: "ck0"})))
	require.NoError(t, logs.LogStep(ctx, NewStepLogEntry("g2", &Step{ID: "s3", CheckpointID: "ck0"})))

	// Later changes to the step do not leak into the entry
	step.FunctionName = "changed"

	history, err = logs.StepHistory(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "fetch", history[0].Step.FunctionName)
	require.Equal(t, "s2", history[1].Step.ID)
	require.Contains(t, history[0].EmbeddingText, "fetch(url)")

	_, err = os.Stat(filepath.Join(dir, "g2.jsonl"))
	require.NoError(t, err)
}

func TestNullStepLogger(t *testing.T) {
	ctx := context.Background()
	logs := NewNullStepLogger()
	require.NoError(t, logs.LogStep(ctx, NewStepLogEntry("g1", &Step{ID: "s1"})))
	history, err := logs.StepHistory(ctx, "g1")
	require.NoError(t, err)
	require.Empty(t, history)
}
