package work

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/deepnoodle-ai/stepgraph/recoverable"
	"github.com/deepnoodle-ai/stepgraph/script"
)

// Print writes a message to its writer and returns it. A message holding
// ${...} expressions is rendered first, with the step arguments available
// as 'args'.
type Print struct {
	w      io.Writer
	engine *script.Engine
}

// NewPrint returns a Print writing to w, or to stdout when w is nil
func NewPrint(w io.Writer) *Print {
	if w == nil {
		w = os.Stdout
	}
	return &Print{w: w, engine: script.NewEngine(nil)}
}

func (p *Print) Name() string      { return "print" }
func (p *Print) Signature() string { return "(message)" }

func (p *Print) Execute(ctx context.Context, args map[string]any) (any, error) {
	message, ok := args["message"]
	if !ok || message == nil {
		return nil, errors.New("print requires a 'message' argument")
	}
	text := fmt.Sprint(message)
	if script.IsTemplate(text) {
		tmpl, err := script.NewTemplate(ctx, p.engine, text, "args")
		if err != nil {
			return nil, err
		}
		if text, err = tmpl.Render(ctx, map[string]any{"args": args}); err != nil {
			return nil, err
		}
	}
	if _, err := fmt.Fprintln(p.w, text); err != nil {
		return nil, err
	}
	return text, nil
}

// Echo returns its 'value' argument unchanged
type Echo struct{}

func NewEcho() *Echo { return &Echo{} }

func (e *Echo) Name() string      { return "echo" }
func (e *Echo) Signature() string { return "(value)" }

func (e *Echo) Execute(ctx context.Context, args map[string]any) (any, error) {
	return args["value"], nil
}

// Sleep waits for a duration or until the context is done
type Sleep struct{}

func NewSleep() *Sleep { return &Sleep{} }

func (s *Sleep) Name() string      { return "sleep" }
func (s *Sleep) Signature() string { return "(duration)" }

func (s *Sleep) Execute(ctx context.Context, args map[string]any) (any, error) {
	duration, err := durationArg(args, "duration")
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, errors.New("duration must be positive")
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return fmt.Sprintf("slept for %s", duration), nil
	}
}

// Fail always fails. With 'recoverable' set the error is marked as worth
// retrying.
type Fail struct{}

func NewFail() *Fail { return &Fail{} }

func (f *Fail) Name() string      { return "fail" }
func (f *Fail) Signature() string { return "(message, recoverable)" }

func (f *Fail) Execute(ctx context.Context, args map[string]any) (any, error) {
	message, _ := args["message"].(string)
	if message == "" {
		message = "intentional failure"
	}
	err := fmt.Errorf("fail: %s", message)
	if flag, _ := args["recoverable"].(bool); flag {
		return nil, recoverable.Mark(err)
	}
	return nil, recoverable.Permanent(err)
}

// Script evaluates Risor 'code' with the remaining arguments available as
// 'args' and returns the result
type Script struct {
	engine *script.Engine
}

func NewScript(engine *script.Engine) *Script {
	if engine == nil {
		engine = script.NewEngine(nil)
	}
	return &Script{engine: engine}
}

func (s *Script) Name() string      { return "script" }
func (s *Script) Signature() string { return "(code, ...)" }

func (s *Script) Execute(ctx context.Context, args map[string]any) (any, error) {
	code, _ := args["code"].(string)
	if code == "" {
		return nil, errors.New("script requires a 'code' argument")
	}
	rest := make(map[string]any, len(args))
	for k, v := range args {
		if k != "code" {
			rest[k] = v
		}
	}
	return s.engine.Eval(ctx, code, map[string]any{"args": rest})
}

// Time returns the current time
type Time struct {
	now func() time.Time
}

func NewTime() *Time { return &Time{now: time.Now} }

func (t *Time) Name() string      { return "time" }
func (t *Time) Signature() string { return "(utc)" }

func (t *Time) Execute(ctx context.Context, args map[string]any) (any, error) {
	if utc, _ := args["utc"].(bool); utc {
		return t.now().UTC(), nil
	}
	return t.now(), nil
}

// Tokens simulates a model call: it returns its 'output' argument together
// with a token usage report, the way instrumented model clients do.
type Tokens struct{}

func NewTokens() *Tokens { return &Tokens{} }

func (t *Tokens) Name() string      { return "tokens" }
func (t *Tokens) Signature() string { return "(output, prompt_tokens, completion_tokens)" }

func (t *Tokens) Execute(ctx context.Context, args map[string]any) (any, error) {
	output := args["output"]
	prompt, err := intArg(args, "prompt_tokens", 0)
	if err != nil {
		return nil, err
	}
	completion, err := intArg(args, "completion_tokens", len(strings.Fields(fmt.Sprint(output))))
	if err != nil {
		return nil, err
	}
	return []any{output, map[string]any{
		"prompt_tokens":     prompt,
		"completion_tokens": completion,
		"total_tokens":      prompt + completion,
	}}, nil
}

func durationArg(args map[string]any, key string) (time.Duration, error) {
	value, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("'%s' argument required", key)
	}
	switch v := value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration format: %w", err)
		}
		return d, nil
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("'%s' must be a duration string or a number of seconds", key)
}

func intArg(args map[string]any, key string, fallback int) (int, error) {
	value, ok := args[key]
	if !ok || value == nil {
		return fallback, nil
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	return 0, fmt.Errorf("'%s' must be an integer", key)
}
