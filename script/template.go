package script

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var expressionPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Template is text with embedded ${...} Risor expressions
type Template struct {
	raw      string
	literals []string
	programs []*Program
}

// IsTemplate reports whether s contains an expression to expand
func IsTemplate(s string) bool {
	return strings.Contains(s, "${")
}

// NewTemplate compiles every expression in raw. globalNames lists the
// variables the expressions may refer to.
func NewTemplate(ctx context.Context, engine *Engine, raw string, globalNames ...string) (*Template, error) {
	if strings.Count(raw, "${") > strings.Count(raw, "}") {
		return nil, fmt.Errorf("unclosed template expression in %q", raw)
	}
	t := &Template{raw: raw}
	last := 0
	for _, match := range expressionPattern.FindAllStringSubmatchIndex(raw, -1) {
		t.literals = append(t.literals, raw[last:match[0]])
		expr := raw[match[2]:match[3]]
		program, err := engine.Compile(ctx, expr, globalNames...)
		if err != nil {
			return nil, fmt.Errorf("template expression %q: %w", expr, err)
		}
		t.programs = append(t.programs, program)
		last = match[1]
	}
	t.literals = append(t.literals, raw[last:])
	return t, nil
}

// Render evaluates the expressions and joins the results with the
// surrounding text
func (t *Template) Render(ctx context.Context, globals map[string]any) (string, error) {
	if len(t.programs) == 0 {
		return t.raw, nil
	}
	var b strings.Builder
	for i, program := range t.programs {
		b.WriteString(t.literals[i])
		value, err := program.Evaluate(ctx, globals)
		if err != nil {
			return "", err
		}
		if value != nil {
			fmt.Fprint(&b, value)
		}
	}
	b.WriteString(t.literals[len(t.literals)-1])
	return b.String(), nil
}
