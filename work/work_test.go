package work

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/stepgraph"
	"github.com/deepnoodle-ai/stepgraph/recoverable"
)

func TestDefaultRegistry(t *testing.T) {
	require.Equal(t, []string{"echo", "fail", "http", "print", "script", "sleep", "time", "tokens"}, DefaultRegistry().Names())
}

func TestBind(t *testing.T) {
	registry := NewRegistry(NewEcho())

	work, err := registry.Bind(&stepgraph.PlanStep{
		Work: "echo",
		Type: stepgraph.FunctionTypeDataProcessing,
		Args: map[string]any{"value": 42},
	})
	require.NoError(t, err)
	require.Equal(t, "echo", work.Name)
	require.Equal(t, "(value)", work.Signature)
	require.Equal(t, stepgraph.FunctionTypeDataProcessing, work.Type)

	out, err := work.Fn(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, out)

	_, err = registry.Bind(&stepgraph.PlanStep{Work: "missing"})
	require.Error(t, err)
}

func TestNewFunc(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewFunc("double", "(n)", func(ctx context.Context, args map[string]any) (any, error) {
		return args["n"].(int) * 2, nil
	}))
	work, err := registry.Bind(&stepgraph.PlanStep{Work: "double", Args: map[string]any{"n": 4}})
	require.NoError(t, err)
	out, err := work.Fn(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8, out)
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrint(&buf)

	out, err := p.Execute(context.Background(), map[string]any{"message": "hello"})
	require.NoError(t, err)
	require.Equal(t, "hello", out)
	require.Equal(t, "hello\n", buf.String())

	_, err = p.Execute(context.Background(), map[string]any{})
	require.Error(t, err)

	buf.Reset()
	out, err = p.Execute(context.Background(), map[string]any{"message": "found ${args.count} pages", "count": 3})
	require.NoError(t, err)
	require.Equal(t, "found 3 pages", out)
	require.Equal(t, "found 3 pages\n", buf.String())
}

func TestScript(t *testing.T) {
	s := NewScript(nil)
	out, err := s.Execute(context.Background(), map[string]any{"code": "args.a * args.b", "a": 6, "b": 7})
	require.NoError(t, err)
	require.Equal(t, int64(42), out)

	_, err = s.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
	_, err = s.Execute(context.Background(), map[string]any{"code": "1 +"})
	require.Error(t, err)
}

func TestSleep(t *testing.T) {
	s := NewSleep()
	ctx := context.Background()

	out, err := s.Execute(ctx, map[string]any{"duration": "1ms"})
	require.NoError(t, err)
	require.Equal(t, "slept for 1ms", out)

	_, err = s.Execute(ctx, map[string]any{"duration": 0.001})
	require.NoError(t, err)

	for _, args := range []map[string]any{{}, {"duration": "soon"}, {"duration": "-1s"}, {"duration": true}} {
		_, err = s.Execute(ctx, args)
		require.Error(t, err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Execute(canceled, map[string]any{"duration": time.Hour})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFail(t *testing.T) {
	f := NewFail()

	_, err := f.Execute(context.Background(), map[string]any{"message": "gateway timeout"})
	require.EqualError(t, err, "fail: gateway timeout")
	require.False(t, recoverable.IsRecoverable(err))

	_, err = f.Execute(context.Background(), map[string]any{"recoverable": true})
	require.EqualError(t, err, "fail: intentional failure")
	require.True(t, recoverable.IsRecoverable(err))
}

func TestTime(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	tm := &Time{now: func() time.Time { return fixed }}

	out, err := tm.Execute(context.Background(), map[string]any{"utc": true})
	require.NoError(t, err)
	require.Equal(t, time.UTC, out.(time.Time).Location())
	require.True(t, fixed.Equal(out.(time.Time)))
}

func TestTokens(t *testing.T) {
	out, err := NewTokens().Execute(context.Background(), map[string]any{
		"output":        "three short words",
		"prompt_tokens": 10,
	})
	require.NoError(t, err)

	output, cost := stepgraph.ExtractCost(out)
	require.Equal(t, "three short words", output)
	require.Equal(t, 13, cost.Total())
	require.Equal(t, 3, *cost.CompletionTokens)

	_, err = NewTokens().Execute(context.Background(), map[string]any{"prompt_tokens": "many"})
	require.Error(t, err)
}

func TestTracedBuiltins(t *testing.T) {
	g := stepgraph.NewGraph()
	_, err := g.AddCheckpoints([]*stepgraph.Checkpoint{{ID: "ck0"}})
	require.NoError(t, err)
	tracer, err := stepgraph.NewTracer(stepgraph.TracerOptions{Graph: g})
	require.NoError(t, err)

	registry := DefaultRegistry()
	work, err := registry.Bind(&stepgraph.PlanStep{Work: "fail", Args: map[string]any{"recoverable": true}})
	require.NoError(t, err)

	step, err := tracer.Trace(context.Background(), work, stepgraph.StepRef{CheckpointID: "ck0"})
	require.NoError(t, err)
	require.Equal(t, stepgraph.StepStatusError, step.Status)
	require.True(t, step.Error.Recoverable)
	require.False(t, errors.Is(err, stepgraph.ErrUnknownCheckpoint))
}
