package stepgraph

import (
	"context"
	"time"
)

// TraceCallbacks receives notifications around each traced unit of work
type TraceCallbacks interface {
	BeforeStep(ctx context.Context, event *StepEvent)
	AfterStep(ctx context.Context, event *StepEvent)
}

// StepEvent provides context for step-level trace events. Step and Err are
// only set on AfterStep.
type StepEvent struct {
	GraphID      string
	CheckpointID string
	StepID       string
	FunctionName string
	Args         map[string]any
	StartTime    time.Time
	Step         *Step
	Err          error
}

// BaseTraceCallbacks provides a default implementation that does nothing
type BaseTraceCallbacks struct{}

func (n *BaseTraceCallbacks) BeforeStep(ctx context.Context, event *StepEvent) {
	// noop
}

func (n *BaseTraceCallbacks) AfterStep(ctx context.Context, event *StepEvent) {
	// noop
}

// NewBaseTraceCallbacks creates a new no-op callbacks implementation.
// Embed BaseTraceCallbacks in your own callbacks to only implement the
// events you care about.
func NewBaseTraceCallbacks() TraceCallbacks {
	return &BaseTraceCallbacks{}
}

// CallbackChain fans trace events out to several callbacks in order
type CallbackChain struct {
	callbacks []TraceCallbacks
}

// NewCallbackChain creates a new callback chain
func NewCallbackChain(callbacks ...TraceCallbacks) *CallbackChain {
	return &CallbackChain{callbacks: callbacks}
}

// Add adds a callback to the chain
func (c *CallbackChain) Add(callback TraceCallbacks) {
	c.callbacks = append(c.callbacks, callback)
}

func (c *CallbackChain) BeforeStep(ctx context.Context, event *StepEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeStep(ctx, event)
	}
}

func (c *CallbackChain) AfterStep(ctx context.Context, event *StepEvent) {
	for _, callback := range c.callbacks {
		callback.AfterStep(ctx, event)
	}
}
