package stepgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// WorkFunc is a unit of work to be traced. It should honour ctx for
// cancellation; the tracer never retries it.
type WorkFunc func(ctx context.Context) (any, error)

// Work describes a unit of work and the arguments it was bound with
type Work struct {
	// Name identifies the function performing the work
	Name string

	// Signature is a human readable rendering of the function's parameters,
	// for example "(query string, limit int)"
	Signature string

	// Type optionally labels what the work does
	Type FunctionType

	// Args are the arguments the work was bound with
	Args map[string]any

	// Fn performs the work
	Fn WorkFunc
}

// StepRef places a traced step in the graph
type StepRef struct {
	CheckpointID   string
	StepID         string
	PreviousStepID string
}

// Traceable is implemented by anything that can run a unit of work and
// record it as a step
type Traceable interface {
	Trace(ctx context.Context, work Work, ref StepRef) (*Step, error)
}

// TracerOptions configures a Tracer
type TracerOptions struct {
	Graph          *Graph
	GraphID        string
	Logger         *slog.Logger
	Callbacks      TraceCallbacks
	Formatter      StepFormatter
	StepLogger     StepLogger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// Now overrides the clock used for step timings
	Now func() time.Time
}

// Tracer runs units of work and records each one as a step in a graph.
// Failures of the work itself become error-status steps; only graph
// insertion failures are returned as errors. Tracer is safe for concurrent
// use.
type Tracer struct {
	graph      *Graph
	graphID    string
	logger     *slog.Logger
	callbacks  TraceCallbacks
	formatter  StepFormatter
	stepLogger StepLogger
	telemetry  *telemetry
	now        func() time.Time
}

var _ Traceable = (*Tracer)(nil)

// NewTracer creates a tracer that inserts steps into opts.Graph
func NewTracer(opts TracerOptions) (*Tracer, error) {
	if opts.Graph == nil {
		return nil, errors.New("graph required")
	}
	if opts.Logger == nil {
		opts.Logger = NewDiscardLogger()
	}
	if opts.Callbacks == nil {
		opts.Callbacks = &BaseTraceCallbacks{}
	}
	if opts.StepLogger == nil {
		opts.StepLogger = NewNullStepLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracer{
		graph:      opts.Graph,
		graphID:    opts.GraphID,
		logger:     opts.Logger,
		callbacks:  opts.Callbacks,
		formatter:  opts.Formatter,
		stepLogger: opts.StepLogger,
		telemetry:  newTelemetry(opts.TracerProvider, opts.MeterProvider, opts.Logger),
		now:        opts.Now,
	}, nil
}

// Trace runs the work and inserts the resulting step into the graph. A step
// ID is generated when ref.StepID is empty.
//
// The returned step is never nil. When the work fails the step has status
// error and the error is nil. A non-nil error means the step could not be
// inserted into the graph, for example because the checkpoint is unknown.
func (t *Tracer) Trace(ctx context.Context, work Work, ref StepRef) (*Step, error) {
	if ref.StepID == "" {
		ref.StepID = NewStepID()
	}
	step := &Step{
		ID:                ref.StepID,
		CheckpointID:      ref.CheckpointID,
		PreviousStepID:    ref.PreviousStepID,
		FunctionName:      work.Name,
		FunctionSignature: work.Signature,
		FunctionType:      work.Type,
		Status:            StepStatusPending,
		Args:              maps.Clone(work.Args),
	}

	ctx, finish := t.telemetry.startStep(ctx, work, ref)

	step.StartTime = t.now()
	t.callbacks.BeforeStep(ctx, &StepEvent{
		GraphID:      t.graphID,
		CheckpointID: ref.CheckpointID,
		StepID:       ref.StepID,
		FunctionName: work.Name,
		Args:         step.Args,
		StartTime:    step.StartTime,
	})
	if t.formatter != nil {
		t.formatter.PrintStepStart(ref.CheckpointID, work.Name)
	}

	output, err := t.run(ctx, work)

	step.EndTime = t.now()
	step.Duration = max(step.EndTime.Sub(step.StartTime), 0)
	if err != nil {
		step.Status = StepStatusError
		step.Error = ClassifyStepError(err)
		step.OutputType = "nil"
		step.IsEmpty = true
	} else {
		step.Status = StepStatusSuccess
		var shape OutputShape
		output, step.Cost = ExtractCost(output)
		step.Output, shape = normalizeOutput(output)
		step.OutputType = shape.Type
		step.HasIterable = shape.HasIterable
		step.IsEmpty = shape.IsEmpty
		step.HasMarkdownLikeShape = shape.HasMarkdownLikeShape
		step.IterationCount = shape.IterationCount
	}
	finish(step)

	insertErr := t.graph.AddStep(step)
	t.report(ctx, step, insertErr)
	return step, insertErr
}

// run invokes the work, converting a panic into an error
func (t *Tracer) run(ctx context.Context, work Work) (output any, err error) {
	if work.Fn == nil {
		return nil, fmt.Errorf("work %q has no function", work.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			output, err = nil, &panicError{value: r}
		}
	}()
	return work.Fn(ctx)
}

func (t *Tracer) report(ctx context.Context, step *Step, insertErr error) {
	logger := t.logger.With(
		"step_id", step.ID,
		"checkpoint_id", step.CheckpointID,
		"function", step.FunctionName,
		"duration", step.Duration,
	)
	switch {
	case insertErr != nil:
		logger.Error("failed to record step", "error", insertErr)
	case step.Status == StepStatusError:
		logger.Warn("step failed", "error_kind", step.Error.Kind, "error", step.Error.Message)
	default:
		logger.Info("step completed", "output_type", step.OutputType)
	}

	if t.formatter != nil {
		if step.Status == StepStatusError {
			t.formatter.PrintStepError(step)
		} else {
			t.formatter.PrintStepOutput(step)
		}
	}

	t.callbacks.AfterStep(ctx, &StepEvent{
		GraphID:      t.graphID,
		CheckpointID: step.CheckpointID,
		StepID:       step.ID,
		FunctionName: step.FunctionName,
		Args:         step.Args,
		StartTime:    step.StartTime,
		Step:         step.Copy(),
		Err:          insertErr,
	})

	if insertErr != nil {
		return
	}
	if err := t.stepLogger.LogStep(ctx, NewStepLogEntry(t.graphID, step)); err != nil {
		t.logger.Error("failed to log step", "step_id", step.ID, "error", err)
	}
}

// TraceFunc adapts a plain function into a Work value, so callers can write
// tracer.Trace(ctx, TraceFunc("fetch", fetch), ref).
func TraceFunc(name string, fn func(ctx context.Context) (any, error)) Work {
	return Work{Name: name, Signature: "()", Fn: fn}
}
