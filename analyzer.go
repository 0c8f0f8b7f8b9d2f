package stepgraph

import (
	"fmt"
	"sync"
)

// maxReportedCycles bounds the cycle listing in a Report. A dense graph can
// hold exponentially many simple cycles.
const maxReportedCycles = 100

// Roles classifies nodes by their position in the graph
type Roles struct {
	// Isolated nodes have no incoming and no outgoing edges
	Isolated []string `json:"isolated"`
	// Initial nodes have no incoming edges and at least one outgoing edge
	Initial []string `json:"initial"`
	// Terminal nodes have no outgoing edges and at least one incoming edge
	Terminal []string `json:"terminal"`
}

// Report aggregates every analysis over one snapshot. Ordering results are
// left empty when the graph is cyclic.
type Report struct {
	Acyclic             bool       `json:"acyclic"`
	Cycles              [][]string `json:"cycles,omitempty"`
	CyclesTruncated     bool       `json:"cycles_truncated,omitempty"`
	MissingDependencies []string   `json:"missing_dependencies,omitempty"`
	ExecutionGroups     [][]string `json:"execution_groups,omitempty"`
	CriticalPath        []string   `json:"critical_path,omitempty"`
	Roles               Roles      `json:"roles"`
}

// Analyzer runs read-only dependency analysis over a Snapshot. Results are
// deterministic: whenever several nodes qualify, insertion order decides.
type Analyzer struct {
	snapshot *Snapshot
	indexed  *indexedGraph

	once   sync.Once
	layers *layering
}

// NewAnalyzer returns an analyzer for the given snapshot
func NewAnalyzer(snapshot *Snapshot) *Analyzer {
	return &Analyzer{
		snapshot: snapshot,
		indexed:  newIndexedGraph(&snapshot.adj),
	}
}

// Snapshot returns the snapshot being analyzed
func (a *Analyzer) Snapshot() *Snapshot {
	return a.snapshot
}

// FindCycles returns every simple cycle. An empty result means the graph is
// a valid DAG. The number of cycles can grow exponentially with the number
// of edges; the ordering operations detect cycles without enumerating them.
func (a *Analyzer) FindCycles() [][]string {
	return a.indexed.simpleCycles(0)
}

// FindMissingDependencies returns successor references that do not resolve
// to a node, in first-seen order.
func (a *Analyzer) FindMissingDependencies() []string {
	var missing []string
	seen := map[string]bool{}
	adj := &a.snapshot.adj
	for _, id := range adj.order {
		for _, e := range adj.succ[id] {
			if adj.has(e.To) || seen[e.To] {
				continue
			}
			seen[e.To] = true
			missing = append(missing, e.To)
		}
	}
	return missing
}

// ExecutionGroups layers the graph with Kahn's algorithm. Group 0 holds the
// nodes without predecessors; every later group holds the nodes whose
// predecessors all sit in earlier groups. Nodes within a group have no
// ordering constraint between them.
func (a *Analyzer) ExecutionGroups() ([][]string, error) {
	if err := a.requireAcyclic(); err != nil {
		return nil, err
	}
	return a.groupIDs(), nil
}

// ParallelExecutionPaths returns the execution groups restricted to nodes
// present in the snapshot, dropping groups left empty.
func (a *Analyzer) ParallelExecutionPaths() ([][]string, error) {
	groups, err := a.ExecutionGroups()
	if err != nil {
		return nil, err
	}
	var paths [][]string
	for _, group := range groups {
		var path []string
		for _, id := range group {
			if a.snapshot.Has(id) {
				path = append(path, id)
			}
		}
		if len(path) > 0 {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// CriticalPath returns the longest dependency chain, measured in edges. Each
// edge has unit cost, so this is the chain that bounds how short the task's
// completion can be. Among equally long chains the one ending at the
// earliest-inserted node wins, and along it each node keeps the first
// predecessor that reached its length.
func (a *Analyzer) CriticalPath() ([]string, error) {
	if err := a.requireAcyclic(); err != nil {
		return nil, err
	}
	return a.longestChain(), nil
}

// ClassifyNodes sorts nodes into isolated, initial and terminal roles.
// Nodes with both incoming and outgoing edges have no role.
func (a *Analyzer) ClassifyNodes() Roles {
	var roles Roles
	s := a.snapshot
	for _, id := range s.adj.order {
		in, out := s.InDegree(id), s.OutDegree(id)
		switch {
		case in == 0 && out == 0:
			roles.Isolated = append(roles.Isolated, id)
		case in == 0:
			roles.Initial = append(roles.Initial, id)
		case out == 0:
			roles.Terminal = append(roles.Terminal, id)
		}
	}
	return roles
}

// Report runs every analysis and collects the results. Cycle listing stops
// at maxReportedCycles and sets CyclesTruncated.
func (a *Analyzer) Report() *Report {
	report := &Report{
		Acyclic:             a.layout().acyclic(),
		MissingDependencies: a.FindMissingDependencies(),
		Roles:               a.ClassifyNodes(),
	}
	if report.Acyclic {
		report.ExecutionGroups = a.groupIDs()
		report.CriticalPath = a.longestChain()
		return report
	}
	report.Cycles = a.indexed.simpleCycles(maxReportedCycles + 1)
	if len(report.Cycles) > maxReportedCycles {
		report.Cycles = report.Cycles[:maxReportedCycles]
		report.CyclesTruncated = true
	}
	return report
}

func (a *Analyzer) layout() *layering {
	a.once.Do(func() {
		a.layers = a.indexed.kahnLayers()
	})
	return a.layers
}

// requireAcyclic attaches a single witness cycle to the error
func (a *Analyzer) requireAcyclic() error {
	l := a.layout()
	if l.acyclic() {
		return nil
	}
	cycle := a.indexed.witnessCycle(l)
	return &GraphError{
		Type:    ErrorTypeCyclicGraph,
		Cause:   fmt.Sprintf("%d node(s) on or behind a cycle, e.g. %v", len(l.remaining)-l.placed, cycle),
		Details: [][]string{cycle},
	}
}

// groupIDs assumes the graph is acyclic
func (a *Analyzer) groupIDs() [][]string {
	l := a.layout()
	if len(l.groups) == 0 {
		return nil
	}
	groups := make([][]string, len(l.groups))
	for i, group := range l.groups {
		groups[i] = make([]string, len(group))
		for j, v := range group {
			groups[i][j] = a.indexed.ids[v]
		}
	}
	return groups
}

// longestChain assumes the graph is acyclic
func (a *Analyzer) longestChain() []string {
	g := a.indexed
	if g.size == 0 {
		return nil
	}

	dist := make([]int, g.size)
	prev := make([]int, g.size)
	for i := range prev {
		prev[i] = -1
	}
	for _, group := range a.layout().groups {
		for _, v := range group {
			for _, u := range g.in[v] {
				if dist[u]+1 > dist[v] {
					dist[v] = dist[u] + 1
					prev[v] = u
				}
			}
		}
	}

	end := 0
	for v := 1; v < g.size; v++ {
		if dist[v] > dist[end] {
			end = v
		}
	}
	path := make([]string, dist[end]+1)
	for i, v := len(path)-1, end; v != -1; i, v = i-1, prev[v] {
		path[i] = g.ids[v]
	}
	return path
}
