package stepgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextAvailable(t *testing.T) {
	g, _ := newChain(t, 3)
	tracker := NewStateTracker(g, nil)

	cp, err := tracker.NextAvailable()
	require.NoError(t, err)
	require.Equal(t, "ck0", cp.ID)

	require.NoError(t, tracker.MarkCompleted("ck0"))
	cp, err = tracker.NextAvailable()
	require.NoError(t, err)
	require.Equal(t, "ck1", cp.ID)

	state, err := tracker.State("ck0")
	require.NoError(t, err)
	require.Equal(t, CheckpointCompleted, state)
	state, err = tracker.State("ck2")
	require.NoError(t, err)
	require.Equal(t, CheckpointNotReady, state)

	require.NoError(t, tracker.MarkCompleted("ck1"))
	require.NoError(t, tracker.MarkCompleted("ck2"))

	_, err = tracker.NextAvailable()
	require.ErrorIs(t, err, ErrNoAvailableWork)
	require.Equal(t, NoWorkTaskComplete, NoWorkReasonOf(err))
	require.True(t, tracker.Progress().Done())
}

func TestNextAvailableNothingReady(t *testing.T) {
	tracker := NewStateTracker(NewGraph(), nil)
	_, err := tracker.NextAvailable()
	require.ErrorIs(t, err, ErrNoAvailableWork)
	require.Equal(t, NoWorkNothingReady, NoWorkReasonOf(err))

	g, _ := newChain(t, 2)
	tracker = NewStateTracker(g, nil)
	// completing out of order still finishes the chain
	require.NoError(t, tracker.MarkCompleted("ck1"))
	require.NoError(t, tracker.MarkCompleted("ck0"))
	_, err = tracker.NextAvailable()
	require.Equal(t, NoWorkTaskComplete, NoWorkReasonOf(err))

	g, err = RestoreGraph(&Document{Nodes: []*Node{
		{ID: "a", Kind: NodeKindCheckpoint, Checkpoint: &Checkpoint{ID: "a"}},
	}})
	require.NoError(t, err)
	tracker = NewStateTracker(g, nil)
	_, err = tracker.NextAvailable()
	require.Equal(t, NoWorkNothingReady, NoWorkReasonOf(err))
	require.Equal(t, Progress{Total: 1, NotReady: 1}, tracker.Progress())
}

func TestMarkCompletedIdempotent(t *testing.T) {
	g, _ := newChain(t, 3)
	addStep(t, g, "s0", "ck0", "")
	tracker := NewStateTracker(g, nil)

	require.NoError(t, tracker.MarkCompleted("ck0"))
	once := g.Document("g")
	require.NoError(t, tracker.MarkCompleted("ck0"))
	twice := g.Document("g")

	require.Equal(t, once.Nodes, twice.Nodes)
	require.Equal(t, once.Edges, twice.Edges)
	require.Equal(t, Progress{Total: 3, NotReady: 1, Ready: 1, Completed: 1}, tracker.Progress())
}

func TestMarkCompletedUnknown(t *testing.T) {
	g, _ := newChain(t, 1)
	addStep(t, g, "s0", "ck0", "")
	tracker := NewStateTracker(g, nil)

	require.ErrorIs(t, tracker.MarkCompleted("nope"), ErrUnknownCheckpoint)
	require.ErrorIs(t, tracker.MarkCompleted("s0"), ErrUnknownCheckpoint)
	_, err := tracker.State("s0")
	require.ErrorIs(t, err, ErrUnknownCheckpoint)
}

func TestMarkCompletedIgnoresSteps(t *testing.T) {
	g, _ := newChain(t, 2)
	addStep(t, g, "s0", "ck0", "")
	tracker := NewStateTracker(g, nil)

	// ck0 has two successors but only one is a checkpoint
	require.NoError(t, tracker.MarkCompleted("ck0"))
	state, err := tracker.State("ck1")
	require.NoError(t, err)
	require.Equal(t, CheckpointReady, state)
}

func TestMarkCompletedDoesNotReopen(t *testing.T) {
	g, _ := newChain(t, 2)
	tracker := NewStateTracker(g, nil)

	require.NoError(t, tracker.MarkCompleted("ck1"))
	require.NoError(t, tracker.MarkCompleted("ck0"))

	state, err := tracker.State("ck1")
	require.NoError(t, err)
	require.Equal(t, CheckpointCompleted, state)
}
