package stepgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/stepgraph/recoverable"
)

func TestGraphError(t *testing.T) {
	err := newGraphError(ErrorTypeUnknownCheckpoint, "ck9", "step checkpoint not found")
	require.Equal(t, `unknown_checkpoint "ck9": step checkpoint not found`, err.Error())
	require.Equal(t, "empty_input", ErrEmptyInput.Error())

	require.True(t, errors.Is(err, ErrUnknownCheckpoint))
	require.False(t, errors.Is(err, ErrUnknownStep))

	wrapped := fmt.Errorf("tracing: %w", err)
	require.ErrorIs(t, wrapped, ErrUnknownCheckpoint)

	var gErr *GraphError
	require.ErrorAs(t, wrapped, &gErr)
	require.Equal(t, "ck9", gErr.NodeID)
}

func TestErrorDetails(t *testing.T) {
	noWork := &GraphError{Type: ErrorTypeNoAvailableWork, Details: NoWorkNothingReady}
	require.Equal(t, NoWorkNothingReady, NoWorkReasonOf(fmt.Errorf("wrapped: %w", noWork)))
	require.Equal(t, NoWorkReason(""), NoWorkReasonOf(ErrCyclicGraph))
	require.Equal(t, NoWorkReason(""), NoWorkReasonOf(nil))

	cycles := [][]string{{"a", "b"}}
	cyclic := &GraphError{Type: ErrorTypeCyclicGraph, Details: cycles}
	require.Equal(t, cycles, CyclesOf(cyclic))
	require.Nil(t, CyclesOf(noWork))
}

func TestClassifyStepError(t *testing.T) {
	require.Nil(t, ClassifyStepError(nil))

	tests := []struct {
		name        string
		err         error
		kind        string
		recoverable bool
	}{
		{"plain", errors.New("bad input"), "errorString", false},
		{"wrapped", fmt.Errorf("reading: %w", io.ErrUnexpectedEOF), "errorString", false},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), "timeout", true},
		{"canceled", context.Canceled, "canceled", false},
		{"panic", &panicError{value: 42}, "panic", false},
		{"marked", recoverable.Mark(errors.New("flaky")), "errorString", true},
		{"permanent", recoverable.Permanent(errors.New("rate limit")), "errorString", false},
		{"transient message", errors.New("connection refused"), "errorString", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stepErr := ClassifyStepError(tt.err)
			require.Equal(t, tt.kind, stepErr.Kind)
			require.Equal(t, tt.err.Error(), stepErr.Message)
			require.Equal(t, tt.recoverable, stepErr.Recoverable)
		})
	}

	given := &StepError{Kind: "quota", Message: "out of credits"}
	require.Same(t, given, ClassifyStepError(fmt.Errorf("work: %w", given)))
	require.Equal(t, "quota: out of credits", given.Error())
}
