package badgerstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/stepgraph"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument(t *testing.T, id string, steps int) *stepgraph.Document {
	t.Helper()
	g := stepgraph.NewGraph()
	_, err := g.AddCheckpoints([]*stepgraph.Checkpoint{{ID: "ck0"}, {ID: "ck1"}})
	require.NoError(t, err)
	previous := ""
	for i := 0; i < steps; i++ {
		step := &stepgraph.Step{
			ID:             stepgraph.NewStepID(),
			CheckpointID:   "ck0",
			PreviousStepID: previous,
			FunctionName:   "work",
			Status:         stepgraph.StepStatusSuccess,
		}
		require.NoError(t, g.AddStep(step))
		previous = step.ID
	}
	return g.Document(id)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.LoadGraph(ctx, "g1")
	require.ErrorIs(t, err, stepgraph.ErrGraphNotFound)

	require.NoError(t, store.SaveGraph(ctx, testDocument(t, "g1", 1)))
	require.NoError(t, store.SaveGraph(ctx, testDocument(t, "g1", 3)))

	doc, err := store.LoadGraph(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, "g1", doc.ID)
	require.Len(t, doc.Nodes, 5)

	g, err := stepgraph.RestoreGraph(doc)
	require.NoError(t, err)
	next, err := stepgraph.NewStateTracker(g, nil).NextAvailable()
	require.NoError(t, err)
	require.Equal(t, "ck0", next.ID)

	require.Error(t, store.SaveGraph(ctx, &stepgraph.Document{}))
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	older := testDocument(t, "older", 1)
	newer := testDocument(t, "newer", 2)
	newer.SavedAt = older.SavedAt.Add(time.Minute)
	require.NoError(t, store.SaveGraph(ctx, older))
	require.NoError(t, store.SaveGraph(ctx, newer))

	summaries, err := store.ListGraphs(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "newer", summaries[0].GraphID)
	require.Equal(t, 2, summaries[0].Steps)
	require.Equal(t, "older", summaries[1].GraphID)

	require.NoError(t, store.DeleteGraph(ctx, "older"))
	_, err = store.LoadGraph(ctx, "older")
	require.ErrorIs(t, err, stepgraph.ErrGraphNotFound)

	summaries, err = store.ListGraphs(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
}

func TestMemoryWithBadger(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	memory, err := stepgraph.NewMemory(stepgraph.MemoryOptions{GraphID: "g1", Store: store, AutoSave: true})
	require.NoError(t, err)
	checkpoints, err := memory.Build([]stepgraph.CheckpointSpec{{Ordinal: 0, Description: "only"}})
	require.NoError(t, err)
	require.NoError(t, memory.MarkCompleted(ctx, checkpoints[0].ID))

	loaded, err := stepgraph.LoadMemory(ctx, "g1", stepgraph.MemoryOptions{Store: store})
	require.NoError(t, err)
	_, err = loaded.NextAvailable()
	require.Equal(t, stepgraph.NoWorkTaskComplete, stepgraph.NoWorkReasonOf(err))
}
