package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	engine := NewEngine(map[string]any{"limit": 3})
	ctx := context.Background()

	tests := []struct {
		name    string
		code    string
		globals map[string]any
		want    any
	}{
		{"arithmetic", "1 + (2 * 3)", nil, int64(7)},
		{"engine global", "limit * 2", nil, int64(6)},
		{"call global", `args.word + "!"`, map[string]any{"args": map[string]any{"word": "hi"}}, "hi!"},
		{"list", `[1, "two"]`, nil, []any{int64(1), "two"}},
		{"map", `{"a": true}`, nil, map[string]any{"a": true}},
		{"nil", "nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Eval(ctx, tt.code, tt.globals)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := engine.Eval(ctx, "1 +", nil)
	require.Error(t, err)
	_, err = engine.Eval(ctx, "undefined_name + 1", nil)
	require.Error(t, err)
}

func TestTemplate(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(nil)
	globals := map[string]any{"args": map[string]any{"name": "Ada", "n": 2}}

	tmpl, err := NewTemplate(ctx, engine, "Hello ${args.name}, ${args.n + 40} results", "args")
	require.NoError(t, err)
	out, err := tmpl.Render(ctx, globals)
	require.NoError(t, err)
	require.Equal(t, "Hello Ada, 42 results", out)

	plain, err := NewTemplate(ctx, engine, "no expressions")
	require.NoError(t, err)
	out, err = plain.Render(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "no expressions", out)

	require.True(t, IsTemplate("${x}"))
	require.False(t, IsTemplate("$x"))

	_, err = NewTemplate(ctx, engine, "Hello ${args.name", "args")
	require.ErrorContains(t, err, "unclosed")
	_, err = NewTemplate(ctx, engine, "Bad ${1 +}")
	require.Error(t, err)
}
