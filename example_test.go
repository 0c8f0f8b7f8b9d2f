package stepgraph_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/stepgraph"
)

func ExampleAnalyzer() {
	g := stepgraph.NewGraph()
	if _, err := g.AddCheckpoints([]*stepgraph.Checkpoint{
		{ID: "ck0", Description: "research"},
		{ID: "ck1", Description: "write"},
	}); err != nil {
		panic(err)
	}
	for _, step := range []*stepgraph.Step{
		{ID: "s1", CheckpointID: "ck0"},
		{ID: "s2", CheckpointID: "ck0", PreviousStepID: "s1"},
		{ID: "s3", CheckpointID: "ck1"},
	} {
		if err := g.AddStep(step); err != nil {
			panic(err)
		}
	}

	report := g.Analyzer().Report()
	fmt.Println("acyclic:", report.Acyclic)
	fmt.Println("groups:", report.ExecutionGroups)
	fmt.Println("critical path:", report.CriticalPath)
	fmt.Println("terminal:", report.Roles.Terminal)
	// Output:
	// acyclic: true
	// groups: [[ck0] [ck1 s1] [s2 s3]]
	// critical path: [ck0 s1 s2]
	// terminal: [s2 s3]
}

type countingCallbacks struct {
	stepgraph.BaseTraceCallbacks
	succeeded, failed int
}

func (c *countingCallbacks) AfterStep(ctx context.Context, event *stepgraph.StepEvent) {
	if event.Step.Status == stepgraph.StepStatusError {
		c.failed++
	} else {
		c.succeeded++
	}
}

func TestLibraryWalkthrough(t *testing.T) {
	ctx := context.Background()
	counts := &countingCallbacks{}

	memory, err := stepgraph.NewMemory(stepgraph.MemoryOptions{
		Callbacks: stepgraph.NewCallbackChain(counts),
	})
	require.NoError(t, err)
	checkpoints, err := memory.Build([]stepgraph.CheckpointSpec{
		{Ordinal: 0, Description: "fetch"},
		{Ordinal: 1, Description: "summarize"},
	})
	require.NoError(t, err)

	for _, checkpoint := range checkpoints {
		next, err := memory.NextAvailable()
		require.NoError(t, err)
		require.Equal(t, checkpoint.ID, next.ID)

		ok, err := memory.Trace(ctx, stepgraph.TraceFunc("ok", func(ctx context.Context) (any, error) {
			return map[string]any{"links": []string{"a"}}, nil
		}), stepgraph.StepRef{CheckpointID: next.ID})
		require.NoError(t, err)
		require.True(t, ok.HasMarkdownLikeShape)

		_, err = memory.Trace(ctx, stepgraph.TraceFunc("bad", func(ctx context.Context) (any, error) {
			return nil, errors.New("nope")
		}), stepgraph.StepRef{CheckpointID: next.ID, PreviousStepID: ok.ID})
		require.NoError(t, err)

		require.NoError(t, memory.MarkCompleted(ctx, next.ID))
	}

	_, err = memory.NextAvailable()
	require.Equal(t, stepgraph.NoWorkTaskComplete, stepgraph.NoWorkReasonOf(err))
	require.Equal(t, 2, counts.succeeded)
	require.Equal(t, 2, counts.failed)

	summary := memory.Document().Summary()
	require.Equal(t, 4, summary.Steps)
	require.Equal(t, 2, summary.FailedSteps)
	require.Equal(t, 2, summary.CompletedCheckpoints)
}
