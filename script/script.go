// Package script evaluates Risor code on behalf of traced work.
package script

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/compiler"
	"github.com/risor-io/risor/modules/all"
	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/parser"
)

// Engine compiles Risor source. Globals given to the engine are visible to
// every program it compiles.
type Engine struct {
	globals map[string]any
}

// NewEngine returns an engine with the given globals in addition to the
// Risor builtins
func NewEngine(globals map[string]any) *Engine {
	merged := DefaultGlobals()
	maps.Copy(merged, globals)
	return &Engine{globals: merged}
}

// DefaultGlobals returns the Risor builtin modules and functions
func DefaultGlobals() map[string]any {
	globals := map[string]any{}
	for name, value := range all.Builtins() {
		globals[name] = value
	}
	return globals
}

// Program is compiled Risor code
type Program struct {
	engine *Engine
	code   *compiler.Code
}

// Compile parses and compiles code. Names passed later to Evaluate must be
// listed in globalNames so the compiler can resolve them.
func (e *Engine) Compile(ctx context.Context, code string, globalNames ...string) (*Program, error) {
	ast, err := parser.Parse(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	names := slices.Sorted(maps.Keys(e.globals))
	for _, name := range globalNames {
		if _, ok := e.globals[name]; !ok {
			names = append(names, name)
		}
	}
	compiled, err := compiler.Compile(ast, compiler.WithGlobalNames(names))
	if err != nil {
		return nil, fmt.Errorf("failed to compile script: %w", err)
	}
	return &Program{engine: e, code: compiled}, nil
}

// Evaluate runs the program and returns its result as a Go value
func (p *Program) Evaluate(ctx context.Context, globals map[string]any) (any, error) {
	combined := maps.Clone(p.engine.globals)
	maps.Copy(combined, globals)
	value, err := risor.EvalCode(ctx, p.code, risor.WithGlobals(combined))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate script: %w", err)
	}
	return toGo(value), nil
}

// Eval compiles and runs code in one go
func (e *Engine) Eval(ctx context.Context, code string, globals map[string]any) (any, error) {
	program, err := e.Compile(ctx, code, slices.Collect(maps.Keys(globals))...)
	if err != nil {
		return nil, err
	}
	return program.Evaluate(ctx, globals)
}

func toGo(obj object.Object) any {
	switch o := obj.(type) {
	case *object.NilType:
		return nil
	case *object.String:
		return o.Value()
	case *object.Int:
		return o.Value()
	case *object.Float:
		return o.Value()
	case *object.Bool:
		return o.Value()
	case *object.Time:
		return o.Value()
	case *object.List:
		items := make([]any, 0, len(o.Value()))
		for _, item := range o.Value() {
			items = append(items, toGo(item))
		}
		return items
	case *object.Set:
		items := make([]any, 0, len(o.Value()))
		for _, item := range o.Value() {
			items = append(items, toGo(item))
		}
		return items
	case *object.Map:
		m := make(map[string]any, len(o.Value()))
		for key, value := range o.Value() {
			m[key] = toGo(value)
		}
		return m
	default:
		return obj.Inspect()
	}
}
