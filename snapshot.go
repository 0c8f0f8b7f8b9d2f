package stepgraph

import "slices"

// Snapshot is a point-in-time copy of a Graph. It is never modified, so the
// Analyzer can run over it while the live graph keeps growing.
type Snapshot struct {
	adj adjacency
}

// Len returns the number of nodes
func (s *Snapshot) Len() int {
	return len(s.adj.order)
}

// Has reports whether a node exists
func (s *Snapshot) Has(id string) bool {
	return s.adj.has(id)
}

// NodeIDs returns node ids in insertion order
func (s *Snapshot) NodeIDs() []string {
	return slices.Clone(s.adj.order)
}

// Node returns a copy of a node
func (s *Snapshot) Node(id string) (*Node, bool) {
	node, ok := s.adj.nodes[id]
	if !ok {
		return nil, false
	}
	return node.Copy(), true
}

// Nodes returns copies of all nodes in insertion order
func (s *Snapshot) Nodes() []*Node {
	return s.adj.nodeCopies(nil)
}

// Successors returns the targets of a node's outgoing edges
func (s *Snapshot) Successors(id string) []string {
	return s.adj.successors(id)
}

// Predecessors returns the sources of a node's incoming edges
func (s *Snapshot) Predecessors(id string) []string {
	return s.adj.predecessors(id)
}

// InDegree returns the number of incoming edges
func (s *Snapshot) InDegree(id string) int {
	return len(s.adj.pred[id])
}

// OutDegree returns the number of outgoing edges
func (s *Snapshot) OutDegree(id string) int {
	return len(s.adj.succ[id])
}

// Edges returns all edges in insertion order
func (s *Snapshot) Edges() []Edge {
	return slices.Clone(s.adj.edges)
}
