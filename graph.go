package stepgraph

import (
	"fmt"
	"slices"
	"sync"
)

// Graph is the execution graph of a task: checkpoints chained in declaration
// order, with the steps performed for each checkpoint hanging off it.
//
// Graph is safe for concurrent use. Mutations take an exclusive lock for the
// whole validate-then-insert sequence, so a failed insertion leaves the graph
// unchanged. Analysis should run on a Snapshot.
type Graph struct {
	mutex sync.RWMutex
	adj   adjacency
}

// NewGraph returns an empty graph
func NewGraph() *Graph {
	return &Graph{adj: newAdjacency()}
}

// AddCheckpoints inserts one node per checkpoint, chains consecutive
// checkpoints with checkpoint_sequence edges and marks the first one ready to
// start. Checkpoints without an ID are assigned one. The inserted checkpoints
// are returned.
//
// AddCheckpoints has no merge semantics: calling it again adds a second,
// disconnected chain with its own ready checkpoint.
func (g *Graph) AddCheckpoints(ordered []*Checkpoint) ([]*Checkpoint, error) {
	if len(ordered) == 0 {
		return nil, newGraphError(ErrorTypeEmptyInput, "", "no checkpoints given")
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	batch := make([]*Checkpoint, 0, len(ordered))
	seen := make(map[string]bool, len(ordered))
	for i, checkpoint := range ordered {
		if checkpoint == nil {
			return nil, newGraphError(ErrorTypeEmptyInput, "", fmt.Sprintf("checkpoint %d is nil", i))
		}
		cp := checkpoint.Copy()
		if cp.ID == "" {
			cp.ID = NewCheckpointID()
		}
		if seen[cp.ID] || g.adj.has(cp.ID) {
			return nil, newGraphError(ErrorTypeDuplicateNode, cp.ID, "checkpoint id already in use")
		}
		seen[cp.ID] = true
		cp.ReadyToStart = i == 0
		cp.Completed = false
		batch = append(batch, cp)
	}

	inserted := make([]*Checkpoint, 0, len(batch))
	for i, cp := range batch {
		g.adj.insertNode(&Node{ID: cp.ID, Kind: NodeKindCheckpoint, Checkpoint: cp})
		if i > 0 {
			g.adj.insertEdge(Edge{From: batch[i-1].ID, To: cp.ID, Kind: EdgeCheckpointSequence})
		}
		inserted = append(inserted, cp.Copy())
	}
	return inserted, nil
}

// AddStep inserts a step node, linked from its owning checkpoint and, when
// the previous step differs from the checkpoint, from that previous step.
// Nothing is modified if validation fails.
func (g *Graph) AddStep(step *Step) error {
	if step == nil || step.ID == "" {
		return newGraphError(ErrorTypeUnknownStep, "", "step id required")
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	owner, ok := g.adj.nodes[step.CheckpointID]
	if !ok || !owner.IsCheckpoint() {
		return newGraphError(ErrorTypeUnknownCheckpoint, step.CheckpointID, "step checkpoint not found")
	}
	if g.adj.has(step.ID) {
		return newGraphError(ErrorTypeDuplicateNode, step.ID, "step id already in use")
	}
	linkPrevious := step.PreviousStepID != "" && step.PreviousStepID != step.CheckpointID
	if linkPrevious {
		prev, ok := g.adj.nodes[step.PreviousStepID]
		if !ok || !prev.IsStep() {
			return newGraphError(ErrorTypeUnknownStep, step.PreviousStepID, "previous step not found")
		}
	}

	g.adj.insertNode(&Node{ID: step.ID, Kind: NodeKindStep, Step: step.Copy()})
	g.adj.insertEdge(Edge{From: step.CheckpointID, To: step.ID, Kind: EdgeCheckpointOwnsStep})
	if linkPrevious {
		g.adj.insertEdge(Edge{From: step.PreviousStepID, To: step.ID, Kind: EdgeStepSequence})
	}
	return nil
}

// AddEdge adds an edge without the structural checks of AddStep. Only the
// source node must exist: the target may be absent and the edge may close a
// cycle. It is meant for callers that manage their own structure; the
// Analyzer detects what this permits. Adding an edge between endpoints that
// are already connected is a no-op.
func (g *Graph) AddEdge(from, to string, kind EdgeKind) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.adj.has(from) {
		return newGraphError(ErrorTypeUnknownStep, from, "edge source not found")
	}
	g.adj.insertEdge(Edge{From: from, To: to, Kind: kind})
	return nil
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return len(g.adj.order)
}

// Has reports whether a node exists
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return g.adj.has(id)
}

// Node returns a copy of a node
func (g *Graph) Node(id string) (*Node, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	node, ok := g.adj.nodes[id]
	if !ok {
		return nil, false
	}
	return node.Copy(), true
}

// Nodes returns copies of all nodes in insertion order
func (g *Graph) Nodes() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return g.adj.nodeCopies(nil)
}

// Checkpoints returns copies of all checkpoints in insertion order
func (g *Graph) Checkpoints() []*Checkpoint {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var checkpoints []*Checkpoint
	for _, node := range g.adj.nodeCopies((*Node).IsCheckpoint) {
		checkpoints = append(checkpoints, node.Checkpoint)
	}
	return checkpoints
}

// Steps returns copies of all steps in insertion order
func (g *Graph) Steps() []*Step {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var steps []*Step
	for _, node := range g.adj.nodeCopies((*Node).IsStep) {
		steps = append(steps, node.Step)
	}
	return steps
}

// Successors returns the targets of a node's outgoing edges
func (g *Graph) Successors(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return g.adj.successors(id)
}

// Predecessors returns the sources of a node's incoming edges
func (g *Graph) Predecessors(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return g.adj.predecessors(id)
}

// InDegree returns the number of incoming edges
func (g *Graph) InDegree(id string) int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return len(g.adj.pred[id])
}

// OutDegree returns the number of outgoing edges
func (g *Graph) OutDegree(id string) int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return len(g.adj.succ[id])
}

// Edges returns all edges in insertion order
func (g *Graph) Edges() []Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return slices.Clone(g.adj.edges)
}

// Snapshot returns a consistent, independent copy of the graph
func (g *Graph) Snapshot() *Snapshot {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return &Snapshot{adj: g.adj.clone()}
}

// Analyzer returns an analyzer over a snapshot of the graph taken now
func (g *Graph) Analyzer() *Analyzer {
	return NewAnalyzer(g.Snapshot())
}
