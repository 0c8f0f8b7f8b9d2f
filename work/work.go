// Package work provides named units of work that plans can refer to, and a
// registry that binds them to arguments for tracing.
package work

import (
	"context"
	"fmt"
	"sort"

	"github.com/deepnoodle-ai/stepgraph"
)

// Func is a named unit of work taking its arguments as a map
type Func interface {
	// Name returns the name plans use to refer to the work
	Name() string

	// Signature describes the accepted arguments, for example "(message)"
	Signature() string

	// Execute performs the work with the given arguments
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Registry maps work names to implementations
type Registry map[string]Func

// NewRegistry returns a registry holding the given functions
func NewRegistry(funcs ...Func) Registry {
	r := Registry{}
	for _, fn := range funcs {
		r.Register(fn)
	}
	return r
}

// DefaultRegistry returns a registry with every built-in unit of work
func DefaultRegistry() Registry {
	return NewRegistry(
		NewPrint(nil),
		NewEcho(),
		NewSleep(),
		NewFail(),
		NewTime(),
		NewTokens(),
		NewScript(nil),
		NewFetch(nil),
	)
}

// Register adds or replaces a function
func (r Registry) Register(fn Func) {
	r[fn.Name()] = fn
}

// Names returns the registered names in sorted order
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bind resolves a plan step into traceable work
func (r Registry) Bind(step *stepgraph.PlanStep) (stepgraph.Work, error) {
	fn, ok := r[step.Work]
	if !ok {
		return stepgraph.Work{}, fmt.Errorf("unknown work %q", step.Work)
	}
	args := step.Args
	return stepgraph.Work{
		Name:      fn.Name(),
		Signature: fn.Signature(),
		Type:      step.Type,
		Args:      args,
		Fn: func(ctx context.Context) (any, error) {
			return fn.Execute(ctx, args)
		},
	}, nil
}

// function adapts a plain function to Func
type function struct {
	name      string
	signature string
	fn        func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunc returns a Func for the given function
func NewFunc(name, signature string, fn func(ctx context.Context, args map[string]any) (any, error)) Func {
	return &function{name: name, signature: signature, fn: fn}
}

func (f *function) Name() string      { return f.name }
func (f *function) Signature() string { return f.signature }

func (f *function) Execute(ctx context.Context, args map[string]any) (any, error) {
	return f.fn(ctx, args)
}
