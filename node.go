package stepgraph

import "slices"

// NodeKind distinguishes checkpoint nodes from step nodes
type NodeKind string

const (
	NodeKindCheckpoint NodeKind = "checkpoint"
	NodeKindStep       NodeKind = "step"
)

// EdgeKind tags the relationship an edge represents
type EdgeKind string

const (
	// EdgeCheckpointSequence links checkpoint i to checkpoint i+1
	EdgeCheckpointSequence EdgeKind = "checkpoint_sequence"

	// EdgeCheckpointOwnsStep links a checkpoint to a step performed for it
	EdgeCheckpointOwnsStep EdgeKind = "checkpoint_owns_step"

	// EdgeStepSequence links a step to the step that followed it
	EdgeStepSequence EdgeKind = "step_sequence"
)

// Edge is a directed dependency between two nodes
type Edge struct {
	From string   `json:"from" yaml:"from"`
	To   string   `json:"to" yaml:"to"`
	Kind EdgeKind `json:"kind" yaml:"kind"`
}

// Node is a vertex of the execution graph. Exactly one of Checkpoint and
// Step is set, matching Kind.
type Node struct {
	ID         string      `json:"id" yaml:"id"`
	Kind       NodeKind    `json:"kind" yaml:"kind"`
	Checkpoint *Checkpoint `json:"checkpoint,omitempty" yaml:"checkpoint,omitempty"`
	Step       *Step       `json:"step,omitempty" yaml:"step,omitempty"`
}

// IsCheckpoint reports whether the node is a checkpoint
func (n *Node) IsCheckpoint() bool {
	return n.Kind == NodeKindCheckpoint && n.Checkpoint != nil
}

// IsStep reports whether the node is a step
func (n *Node) IsStep() bool {
	return n.Kind == NodeKindStep && n.Step != nil
}

// Copy returns a deep copy of the node's attributes
func (n *Node) Copy() *Node {
	cp := &Node{ID: n.ID, Kind: n.Kind}
	if n.Checkpoint != nil {
		cp.Checkpoint = n.Checkpoint.Copy()
	}
	if n.Step != nil {
		cp.Step = n.Step.Copy()
	}
	return cp
}

// adjacency is the unsynchronized node and edge storage shared by Graph and
// Snapshot. Node order is insertion order and drives every tie-break.
type adjacency struct {
	order []string
	nodes map[string]*Node
	succ  map[string][]Edge
	pred  map[string][]Edge
	edges []Edge
}

func newAdjacency() adjacency {
	return adjacency{
		nodes: map[string]*Node{},
		succ:  map[string][]Edge{},
		pred:  map[string][]Edge{},
	}
}

func (a *adjacency) clone() adjacency {
	cp := adjacency{
		order: slices.Clone(a.order),
		nodes: make(map[string]*Node, len(a.nodes)),
		succ:  make(map[string][]Edge, len(a.succ)),
		pred:  make(map[string][]Edge, len(a.pred)),
		edges: slices.Clone(a.edges),
	}
	for id, node := range a.nodes {
		cp.nodes[id] = node.Copy()
	}
	for id, edges := range a.succ {
		cp.succ[id] = slices.Clone(edges)
	}
	for id, edges := range a.pred {
		cp.pred[id] = slices.Clone(edges)
	}
	return cp
}

func (a *adjacency) has(id string) bool {
	_, ok := a.nodes[id]
	return ok
}

func (a *adjacency) insertNode(node *Node) {
	a.nodes[node.ID] = node
	a.order = append(a.order, node.ID)
}

// insertEdge adds the edge unless an edge between the same endpoints is
// already present. It reports whether the edge was added.
func (a *adjacency) insertEdge(e Edge) bool {
	for _, existing := range a.succ[e.From] {
		if existing.To == e.To {
			return false
		}
	}
	a.succ[e.From] = append(a.succ[e.From], e)
	a.pred[e.To] = append(a.pred[e.To], e)
	a.edges = append(a.edges, e)
	return true
}

func (a *adjacency) successors(id string) []string {
	edges := a.succ[id]
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.To)
	}
	return ids
}

func (a *adjacency) predecessors(id string) []string {
	edges := a.pred[id]
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.From)
	}
	return ids
}

func (a *adjacency) nodeCopies(filter func(*Node) bool) []*Node {
	nodes := make([]*Node, 0, len(a.order))
	for _, id := range a.order {
		node := a.nodes[id]
		if filter == nil || filter(node) {
			nodes = append(nodes, node.Copy())
		}
	}
	return nodes
}
