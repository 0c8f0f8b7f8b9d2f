package stepgraph

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// StepStatus is the outcome of a traced unit of work
type StepStatus string

const (
	StepStatusPending StepStatus = "pending"
	StepStatusSuccess StepStatus = "success"
	StepStatusError   StepStatus = "error"
)

// FunctionType is an optional label describing what a unit of work does
type FunctionType string

const (
	FunctionTypeReasoning      FunctionType = "reasoning"
	FunctionTypeDataProcessing FunctionType = "data_processing"
	FunctionTypeProcessedData  FunctionType = "processed_data"
)

// Cost records token usage reported by a unit of work
type Cost struct {
	PromptTokens     *int `json:"prompt_tokens,omitempty" yaml:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty" yaml:"completion_tokens,omitempty"`
	TotalTokens      *int `json:"total_tokens,omitempty" yaml:"total_tokens,omitempty"`
}

// Total returns the total token count, falling back to the sum of the
// prompt and completion counts when no total was reported.
func (c *Cost) Total() int {
	if c == nil {
		return 0
	}
	if c.TotalTokens != nil {
		return *c.TotalTokens
	}
	var total int
	if c.PromptTokens != nil {
		total += *c.PromptTokens
	}
	if c.CompletionTokens != nil {
		total += *c.CompletionTokens
	}
	return total
}

// Step is the execution record of one traced unit of work. Steps are
// append-only: once inserted into a graph they are never modified.
type Step struct {
	ID                   string         `json:"id" yaml:"id"`
	CheckpointID         string         `json:"checkpoint_id" yaml:"checkpoint_id"`
	PreviousStepID       string         `json:"previous_step_id,omitempty" yaml:"previous_step_id,omitempty"`
	FunctionName         string         `json:"function_name" yaml:"function_name"`
	FunctionSignature    string         `json:"function_signature" yaml:"function_signature"`
	FunctionType         FunctionType   `json:"function_type,omitempty" yaml:"function_type,omitempty"`
	StartTime            time.Time      `json:"start_time" yaml:"start_time"`
	EndTime              time.Time      `json:"end_time" yaml:"end_time"`
	Duration             time.Duration  `json:"duration" yaml:"duration"`
	Status               StepStatus     `json:"status" yaml:"status"`
	Output               any            `json:"function_output,omitempty" yaml:"function_output,omitempty"`
	OutputType           string         `json:"function_output_type" yaml:"function_output_type"`
	HasIterable          bool           `json:"has_iterable" yaml:"has_iterable"`
	IsEmpty              bool           `json:"is_empty" yaml:"is_empty"`
	HasMarkdownLikeShape bool           `json:"has_markdown_like_shape" yaml:"has_markdown_like_shape"`
	IterationCount       *int           `json:"iteration_count,omitempty" yaml:"iteration_count,omitempty"`
	Error                *StepError     `json:"error,omitempty" yaml:"error,omitempty"`
	Cost                 *Cost          `json:"cost,omitempty" yaml:"cost,omitempty"`
	Args                 map[string]any `json:"args_provided,omitempty" yaml:"args_provided,omitempty"`
}

// Copy returns a copy of the step. The output payload is opaque and shared.
func (s *Step) Copy() *Step {
	cp := *s
	if s.IterationCount != nil {
		n := *s.IterationCount
		cp.IterationCount = &n
	}
	if s.Error != nil {
		e := *s.Error
		cp.Error = &e
	}
	if s.Cost != nil {
		c := *s.Cost
		cp.Cost = &c
	}
	if s.Args != nil {
		cp.Args = maps.Clone(s.Args)
	}
	return &cp
}

// EmbeddingText renders the step as descriptive text for indexing by a
// downstream memory collaborator.
func (s *Step) EmbeddingText() string {
	errorText := "No errors"
	if s.Error != nil {
		errorText = fmt.Sprintf("Error: %s - %s", s.Error.Kind, s.Error.Message)
	}
	costText := "No cost data"
	if s.Cost != nil {
		costText = fmt.Sprintf("Tokens used: %d", s.Cost.Total())
	}
	iterations := "N/A"
	if s.IterationCount != nil {
		iterations = fmt.Sprintf("%d", *s.IterationCount)
	}
	iterable := "Non-iterable"
	if s.HasIterable {
		iterable = "Iterable"
	}
	empty := "Non-empty"
	if s.IsEmpty {
		empty = "Empty"
	}
	markdown := "No Markdown"
	if s.HasMarkdownLikeShape {
		markdown = "Contains Markdown"
	}

	lines := []string{
		fmt.Sprintf("Function execution: %s%s", s.FunctionName, s.FunctionSignature),
		fmt.Sprintf("Status: %s", s.Status),
		fmt.Sprintf("Execution time: %.6f seconds", s.Duration.Seconds()),
		fmt.Sprintf("Output type: %s", s.OutputType),
		fmt.Sprintf("Output: %v", s.Output),
		errorText,
		costText,
		fmt.Sprintf("Iteration count: %s", iterations),
		fmt.Sprintf("Additional characteristics: %s, %s, %s", iterable, empty, markdown),
		fmt.Sprintf("Execution IDs: Step %s, Checkpoint %s", s.ID, s.CheckpointID),
	}
	return strings.Join(lines, "\n")
}
