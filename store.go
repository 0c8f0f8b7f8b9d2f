package stepgraph

import (
	"context"
	"time"
)

// GraphSummary provides a summary view of a saved graph
type GraphSummary struct {
	GraphID              string    `json:"graph_id"`
	SavedAt              time.Time `json:"saved_at"`
	Nodes                int       `json:"nodes"`
	Edges                int       `json:"edges"`
	Checkpoints          int       `json:"checkpoints"`
	CompletedCheckpoints int       `json:"completed_checkpoints"`
	Steps                int       `json:"steps"`
	FailedSteps          int       `json:"failed_steps"`
	TotalTokens          int       `json:"total_tokens"`
}

// GraphStore persists graph documents
type GraphStore interface {
	// SaveGraph saves the latest state of a graph
	SaveGraph(ctx context.Context, doc *Document) error

	// LoadGraph loads the latest saved state of a graph. It returns
	// ErrGraphNotFound when nothing was saved under the id.
	LoadGraph(ctx context.Context, graphID string) (*Document, error)

	// DeleteGraph removes all saved state of a graph
	DeleteGraph(ctx context.Context, graphID string) error

	// ListGraphs summarizes every saved graph, most recently saved first
	ListGraphs(ctx context.Context) ([]*GraphSummary, error)
}
