package stepgraph

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MemoryOptions configures a Memory
type MemoryOptions struct {
	// GraphID identifies the task graph. One is generated when empty.
	GraphID string

	Logger         *slog.Logger
	Store          GraphStore
	StepLogger     StepLogger
	Callbacks      TraceCallbacks
	Formatter      StepFormatter
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Now            func() time.Time

	// AutoSave saves the graph to Store every time a checkpoint completes
	AutoSave bool
}

// Memory owns the execution graph of one task along with the tracker and
// tracer operating on it. Construct one per task and pass it to whatever
// needs to trace work or query progress.
type Memory struct {
	id       string
	graph    *Graph
	tracker  *StateTracker
	tracer   *Tracer
	store    GraphStore
	logs     StepLogger
	logger   *slog.Logger
	autoSave bool

	mutex sync.Mutex
	built bool
}

var _ Traceable = (*Memory)(nil)

// NewMemory creates a Memory with an empty graph
func NewMemory(opts MemoryOptions) (*Memory, error) {
	return newMemory(opts, NewGraph(), false)
}

// LoadMemory restores a Memory from the latest graph saved in opts.Store
func LoadMemory(ctx context.Context, graphID string, opts MemoryOptions) (*Memory, error) {
	if opts.Store == nil {
		return nil, newGraphError(ErrorTypeGraphNotFound, graphID, "no store configured")
	}
	doc, err := opts.Store.LoadGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	graph, err := RestoreGraph(doc)
	if err != nil {
		return nil, err
	}
	opts.GraphID = doc.ID
	return newMemory(opts, graph, len(graph.Checkpoints()) > 0)
}

func newMemory(opts MemoryOptions, graph *Graph, built bool) (*Memory, error) {
	if opts.GraphID == "" {
		opts.GraphID = NewGraphID()
	}
	if opts.Logger == nil {
		opts.Logger = NewDiscardLogger()
	}
	if opts.Store == nil {
		opts.Store = NewNullStore()
	}
	if opts.StepLogger == nil {
		opts.StepLogger = NewNullStepLogger()
	}
	logger := opts.Logger.With("graph_id", opts.GraphID)

	tracer, err := NewTracer(TracerOptions{
		Graph:          graph,
		GraphID:        opts.GraphID,
		Logger:         logger,
		Callbacks:      opts.Callbacks,
		Formatter:      opts.Formatter,
		StepLogger:     opts.StepLogger,
		TracerProvider: opts.TracerProvider,
		MeterProvider:  opts.MeterProvider,
		Now:            opts.Now,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{
		id:       opts.GraphID,
		graph:    graph,
		tracker:  NewStateTracker(graph, logger),
		tracer:   tracer,
		store:    opts.Store,
		logs:     opts.StepLogger,
		logger:   logger,
		autoSave: opts.AutoSave,
		built:    built,
	}, nil
}

// ID returns the graph identifier
func (m *Memory) ID() string {
	return m.id
}

// Graph returns the underlying graph
func (m *Memory) Graph() *Graph {
	return m.graph
}

// Tracker returns the checkpoint state tracker
func (m *Memory) Tracker() *StateTracker {
	return m.tracker
}

// Build creates the checkpoint chain from the given descriptors. It can only
// succeed once per Memory; later calls fail with ErrAlreadyBuilt.
func (m *Memory) Build(specs []CheckpointSpec) ([]*Checkpoint, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.built {
		return nil, newGraphError(ErrorTypeAlreadyBuilt, m.id, "checkpoints already added")
	}
	checkpoints, err := m.graph.AddCheckpoints(NewCheckpoints(specs))
	if err != nil {
		return nil, err
	}
	m.built = true
	m.logger.Info("graph built", "checkpoints", len(checkpoints))
	return checkpoints, nil
}

// Built reports whether the checkpoint chain exists
func (m *Memory) Built() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.built
}

// Trace runs the work and records it as a step of the task
func (m *Memory) Trace(ctx context.Context, work Work, ref StepRef) (*Step, error) {
	if !m.Built() {
		return nil, newGraphError(ErrorTypeNotBuilt, m.id, "build the graph before tracing")
	}
	return m.tracer.Trace(ctx, work, ref)
}

// NextAvailable returns the checkpoint to work on next
func (m *Memory) NextAvailable() (*Checkpoint, error) {
	if !m.Built() {
		return nil, newGraphError(ErrorTypeNotBuilt, m.id, "")
	}
	return m.tracker.NextAvailable()
}

// MarkCompleted completes a checkpoint, saving the graph afterwards when
// AutoSave is enabled. The returned error only reports the transition: a
// failed autosave is logged and the transition stands. Call Save to retry.
func (m *Memory) MarkCompleted(ctx context.Context, checkpointID string) error {
	if err := m.tracker.MarkCompleted(checkpointID); err != nil {
		return err
	}
	if m.autoSave {
		_ = m.Save(ctx)
	}
	return nil
}

// Analyzer returns an analyzer over the graph as it is now
func (m *Memory) Analyzer() *Analyzer {
	return m.graph.Analyzer()
}

// Report runs the dependency analysis over the graph as it is now
func (m *Memory) Report() *Report {
	return m.Analyzer().Report()
}

// Document captures the graph for persistence or export
func (m *Memory) Document() *Document {
	return m.graph.Document(m.id)
}

// Save persists the graph to the configured store
func (m *Memory) Save(ctx context.Context) error {
	if err := m.store.SaveGraph(ctx, m.Document()); err != nil {
		m.logger.Error("failed to save graph", "error", err)
		return err
	}
	m.logger.Debug("graph saved")
	return nil
}

// StepHistory returns the steps logged for this task
func (m *Memory) StepHistory(ctx context.Context) ([]*StepLogEntry, error) {
	return m.logs.StepHistory(ctx, m.id)
}
