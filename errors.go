package stepgraph

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/deepnoodle-ai/stepgraph/recoverable"
)

// Error type constants used to classify graph errors
const (
	// ErrorTypeEmptyInput indicates a bulk insertion received no items
	ErrorTypeEmptyInput = "empty_input"

	// ErrorTypeUnknownCheckpoint indicates an id that does not resolve to a
	// checkpoint node
	ErrorTypeUnknownCheckpoint = "unknown_checkpoint"

	// ErrorTypeUnknownStep indicates an edge or reference to a step that is
	// not in the graph
	ErrorTypeUnknownStep = "unknown_step"

	// ErrorTypeCyclicGraph indicates an ordering operation ran on a graph
	// that contains at least one cycle
	ErrorTypeCyclicGraph = "cyclic_graph"

	// ErrorTypeNoAvailableWork indicates no checkpoint is ready to start
	ErrorTypeNoAvailableWork = "no_available_work"

	// ErrorTypeDuplicateNode indicates an insertion reused an existing id
	ErrorTypeDuplicateNode = "duplicate_node"

	// ErrorTypeAlreadyBuilt indicates the checkpoint chain was already built
	ErrorTypeAlreadyBuilt = "already_built"

	// ErrorTypeNotBuilt indicates an operation requires a built graph
	ErrorTypeNotBuilt = "not_built"

	// ErrorTypeGraphNotFound indicates a store has no saved graph for an id
	ErrorTypeGraphNotFound = "graph_not_found"
)

// Sentinel errors for use with errors.Is. Matching is by error type, so any
// *GraphError with the same Type matches regardless of node or cause.
var (
	ErrEmptyInput        = &GraphError{Type: ErrorTypeEmptyInput}
	ErrUnknownCheckpoint = &GraphError{Type: ErrorTypeUnknownCheckpoint}
	ErrUnknownStep       = &GraphError{Type: ErrorTypeUnknownStep}
	ErrCyclicGraph       = &GraphError{Type: ErrorTypeCyclicGraph}
	ErrNoAvailableWork   = &GraphError{Type: ErrorTypeNoAvailableWork}
	ErrDuplicateNode     = &GraphError{Type: ErrorTypeDuplicateNode}
	ErrAlreadyBuilt      = &GraphError{Type: ErrorTypeAlreadyBuilt}
	ErrNotBuilt          = &GraphError{Type: ErrorTypeNotBuilt}
	ErrGraphNotFound     = &GraphError{Type: ErrorTypeGraphNotFound}
)

// NoWorkReason explains why NextAvailable found nothing to do
type NoWorkReason string

const (
	// NoWorkTaskComplete means every checkpoint has been completed
	NoWorkTaskComplete NoWorkReason = "task_complete"

	// NoWorkNothingReady means checkpoints remain but none is ready. This
	// points at a build defect rather than a finished task.
	NoWorkNothingReady NoWorkReason = "nothing_ready"
)

// GraphError represents a precondition violation reported by the graph,
// analyzer or tracker. It supports errors.Is against the sentinel errors
// above and errors.As for inspecting details.
type GraphError struct {
	Type    string `json:"type"`
	NodeID  string `json:"node_id,omitempty"`
	Cause   string `json:"cause,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *GraphError) Error() string {
	var b strings.Builder
	b.WriteString(e.Type)
	if e.NodeID != "" {
		fmt.Fprintf(&b, " %q", e.NodeID)
	}
	if e.Cause != "" {
		b.WriteString(": ")
		b.WriteString(e.Cause)
	}
	return b.String()
}

// Is reports whether target is a *GraphError of the same type
func (e *GraphError) Is(target error) bool {
	t, ok := target.(*GraphError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

func newGraphError(errorType, nodeID, cause string) *GraphError {
	return &GraphError{Type: errorType, NodeID: nodeID, Cause: cause}
}

// NoWorkReasonOf returns the reason attached to an ErrNoAvailableWork error,
// or an empty string if err is not one.
func NoWorkReasonOf(err error) NoWorkReason {
	var gErr *GraphError
	if !errors.As(err, &gErr) || gErr.Type != ErrorTypeNoAvailableWork {
		return ""
	}
	reason, _ := gErr.Details.(NoWorkReason)
	return reason
}

// CyclesOf returns the cycles attached to an ErrCyclicGraph error
func CyclesOf(err error) [][]string {
	var gErr *GraphError
	if !errors.As(err, &gErr) || gErr.Type != ErrorTypeCyclicGraph {
		return nil
	}
	cycles, _ := gErr.Details.([][]string)
	return cycles
}

// StepError describes why a traced work unit failed
type StepError struct {
	Kind        string `json:"kind" yaml:"kind"`
	Message     string `json:"message" yaml:"message"`
	Recoverable bool   `json:"recoverable,omitempty" yaml:"recoverable,omitempty"`
}

// Error implements the error interface so a StepError can be surfaced as-is
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// panicError carries a recovered panic value from traced work
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("%v", e.value)
}

// ClassifyStepError converts a work failure into a StepError. The kind is
// the concrete Go type of the error, with timeouts and panics given stable
// names so they can be matched without knowing the wrapped type.
func ClassifyStepError(err error) *StepError {
	if err == nil {
		return nil
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr
	}
	kind := errorKind(err)
	var pErr *panicError
	switch {
	case errors.As(err, &pErr):
		kind = "panic"
	case errors.Is(err, context.DeadlineExceeded):
		kind = "timeout"
	case errors.Is(err, context.Canceled):
		kind = "canceled"
	}
	return &StepError{
		Kind:        kind,
		Message:     err.Error(),
		Recoverable: recoverable.IsRecoverable(err),
	}
}

// errorKind names the type of the innermost error in err's chain
func errorKind(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
