package stepgraph

import (
	"context"
	"time"
)

// StepLogEntry is a traced step as handed to downstream collaborators, such
// as a memory or indexing layer. Consumers must treat Step as read-only.
type StepLogEntry struct {
	GraphID       string    `json:"graph_id"`
	Step          *Step     `json:"step"`
	EmbeddingText string    `json:"embedding_text,omitempty"`
	LoggedAt      time.Time `json:"logged_at"`
}

// NewStepLogEntry builds the log entry for a step of the given graph
func NewStepLogEntry(graphID string, step *Step) *StepLogEntry {
	return &StepLogEntry{
		GraphID:       graphID,
		Step:          step.Copy(),
		EmbeddingText: step.EmbeddingText(),
		LoggedAt:      time.Now().UTC(),
	}
}

// StepLogger receives every traced step
type StepLogger interface {
	// LogStep records a traced step
	LogStep(ctx context.Context, entry *StepLogEntry) error

	// StepHistory retrieves the steps logged for a graph, oldest first
	StepHistory(ctx context.Context, graphID string) ([]*StepLogEntry, error)
}
