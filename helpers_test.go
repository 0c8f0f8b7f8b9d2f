package stepgraph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// newChain builds a graph with n checkpoints ck0..ck{n-1}
func newChain(t *testing.T, n int) (*Graph, []*Checkpoint) {
	t.Helper()
	checkpoints := make([]*Checkpoint, n)
	for i := range checkpoints {
		checkpoints[i] = &Checkpoint{
			ID:          fmt.Sprintf("ck%d", i),
			Ordinal:     i,
			Description: fmt.Sprintf("checkpoint %d", i),
		}
	}
	g := NewGraph()
	inserted, err := g.AddCheckpoints(checkpoints)
	require.NoError(t, err)
	return g, inserted
}

func addStep(t *testing.T, g *Graph, id, checkpointID, previousID string) {
	t.Helper()
	require.NoError(t, g.AddStep(&Step{
		ID:             id,
		CheckpointID:   checkpointID,
		PreviousStepID: previousID,
		FunctionName:   "work",
		Status:         StepStatusSuccess,
	}))
}
