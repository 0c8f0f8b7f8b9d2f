package stepgraph

import "slices"

// indexedGraph is the live part of a snapshot as integer adjacency lists.
// Vertex i is the i-th node in insertion order; edges to absent nodes are
// dropped.
type indexedGraph struct {
	ids  []string
	out  [][]int
	in   [][]int
	size int
}

func newIndexedGraph(adj *adjacency) *indexedGraph {
	n := len(adj.order)
	index := make(map[string]int, n)
	for i, id := range adj.order {
		index[id] = i
	}
	g := &indexedGraph{
		ids:  adj.order,
		out:  make([][]int, n),
		in:   make([][]int, n),
		size: n,
	}
	for i, id := range adj.order {
		for _, e := range adj.succ[id] {
			j, ok := index[e.To]
			if !ok {
				continue
			}
			g.out[i] = append(g.out[i], j)
			g.in[j] = append(g.in[j], i)
		}
	}
	return g
}

func (g *indexedGraph) hasSelfLoop(v int) bool {
	return slices.Contains(g.out[v], v)
}

// layering is the result of Kahn's algorithm. Vertices that never reach
// in-degree zero keep a positive remaining count; they sit on a cycle or
// downstream of one.
type layering struct {
	groups    [][]int
	placed    int
	remaining []int
}

func (l *layering) acyclic() bool {
	return l.placed == len(l.remaining)
}

// kahnLayers peels the graph into groups of vertices whose predecessors all
// sit in earlier groups. Each group is in insertion order.
func (g *indexedGraph) kahnLayers() *layering {
	l := &layering{remaining: make([]int, g.size)}
	var current []int
	for v := 0; v < g.size; v++ {
		l.remaining[v] = len(g.in[v])
		if l.remaining[v] == 0 {
			current = append(current, v)
		}
	}
	for len(current) > 0 {
		l.groups = append(l.groups, current)
		l.placed += len(current)
		var next []int
		for _, v := range current {
			for _, w := range g.out[v] {
				l.remaining[w]--
				if l.remaining[w] == 0 {
					next = append(next, w)
				}
			}
		}
		slices.Sort(next)
		current = next
	}
	return l
}

// witnessCycle returns one cycle among the vertices Kahn's algorithm could
// not place, rotated to start at its earliest-inserted vertex. Every such
// vertex has an unplaced predecessor, so walking predecessors must revisit
// a vertex.
func (g *indexedGraph) witnessCycle(l *layering) []string {
	start := slices.IndexFunc(l.remaining, func(n int) bool { return n > 0 })
	if start < 0 {
		return nil
	}
	seen := map[int]int{}
	var walk []int
	v := start
	for {
		if at, ok := seen[v]; ok {
			walk = walk[at:]
			break
		}
		seen[v] = len(walk)
		walk = append(walk, v)
		for _, u := range g.in[v] {
			if l.remaining[u] > 0 {
				v = u
				break
			}
		}
	}
	// The walk follows edges backwards.
	slices.Reverse(walk)
	first := slices.Index(walk, slices.Min(walk))
	cycle := make([]string, len(walk))
	for i := range walk {
		cycle[i] = g.ids[walk[(first+i)%len(walk)]]
	}
	return cycle
}

// simpleCycles enumerates elementary cycles using Johnson's algorithm,
// stopping after limit cycles when limit is positive. Each cycle starts at
// its earliest-inserted vertex and cycles are reported in order of that
// vertex, then in adjacency order.
func (g *indexedGraph) simpleCycles(limit int) [][]string {
	var cycles [][]string
	done := func() bool { return limit > 0 && len(cycles) >= limit }

	scc := newSCCFinder(g)
	global := make([]int, g.size)
	cyclic := make([]bool, g.size)
	components := 0
	for v := 0; v < g.size; v++ {
		if scc.index[v] >= 0 {
			continue
		}
		scc.run(v, func(int) bool { return true }, func(component []int) {
			for _, u := range component {
				global[u] = components
				cyclic[u] = len(component) > 1 || g.hasSelfLoop(u)
			}
			components++
		})
	}

	inComponent := make([]bool, g.size)
	blocked := make([]bool, g.size)
	blockedBy := make([]map[int]bool, g.size)
	var stack []int

	for start := 0; start < g.size && !done(); start++ {
		if !cyclic[start] {
			continue
		}
		// The component of start within the vertices >= start of its own
		// global component. Tarjan emits it last since start is the root.
		var component []int
		scc.reset()
		scc.run(start, func(w int) bool {
			return w >= start && global[w] == global[start]
		}, func(c []int) { component = c })
		if len(component) == 1 && !g.hasSelfLoop(start) {
			continue
		}
		for _, v := range component {
			inComponent[v] = true
			blocked[v] = false
			blockedBy[v] = map[int]bool{}
		}

		var unblock func(u int)
		unblock = func(u int) {
			blocked[u] = false
			for w := range blockedBy[u] {
				delete(blockedBy[u], w)
				if blocked[w] {
					unblock(w)
				}
			}
		}

		var circuit func(v int) bool
		circuit = func(v int) bool {
			found := false
			stack = append(stack, v)
			blocked[v] = true
			for _, w := range g.out[v] {
				if done() {
					break
				}
				if !inComponent[w] {
					continue
				}
				if w == start {
					cycle := make([]string, len(stack))
					for i, u := range stack {
						cycle[i] = g.ids[u]
					}
					cycles = append(cycles, cycle)
					found = true
				} else if !blocked[w] && circuit(w) {
					found = true
				}
			}
			if found {
				unblock(v)
			} else {
				for _, w := range g.out[v] {
					if inComponent[w] {
						blockedBy[w][v] = true
					}
				}
			}
			stack = stack[:len(stack)-1]
			return found
		}
		circuit(start)

		for _, v := range component {
			inComponent[v] = false
		}
	}
	return cycles
}

// sccFinder runs Tarjan's algorithm without recursion so long chains do not
// grow the goroutine stack. State is reused across runs; reset clears only
// the vertices the previous runs touched.
type sccFinder struct {
	g       *indexedGraph
	index   []int
	lowlink []int
	onStack []bool
	stack   []int
	visited []int
	counter int
}

func newSCCFinder(g *indexedGraph) *sccFinder {
	f := &sccFinder{
		g:       g,
		index:   make([]int, g.size),
		lowlink: make([]int, g.size),
		onStack: make([]bool, g.size),
	}
	for v := range f.index {
		f.index[v] = -1
	}
	return f
}

func (f *sccFinder) reset() {
	for _, v := range f.visited {
		f.index[v] = -1
		f.onStack[v] = false
	}
	f.visited = f.visited[:0]
	f.stack = f.stack[:0]
	f.counter = 0
}

func (f *sccFinder) visit(v int) {
	f.index[v] = f.counter
	f.lowlink[v] = f.counter
	f.counter++
	f.stack = append(f.stack, v)
	f.onStack[v] = true
	f.visited = append(f.visited, v)
}

// run explores from root through vertices accepted by keep and calls emit
// once per strongly connected component, in completion order.
func (f *sccFinder) run(root int, keep func(int) bool, emit func([]int)) {
	type frame struct{ v, next int }
	f.visit(root)
	calls := []frame{{v: root}}
	for len(calls) > 0 {
		top := &calls[len(calls)-1]
		v := top.v
		if top.next < len(f.g.out[v]) {
			w := f.g.out[v][top.next]
			top.next++
			if !keep(w) {
				continue
			}
			if f.index[w] < 0 {
				f.visit(w)
				calls = append(calls, frame{v: w})
			} else if f.onStack[w] {
				f.lowlink[v] = min(f.lowlink[v], f.index[w])
			}
			continue
		}

		calls = calls[:len(calls)-1]
		if len(calls) > 0 {
			parent := calls[len(calls)-1].v
			f.lowlink[parent] = min(f.lowlink[parent], f.lowlink[v])
		}
		if f.lowlink[v] != f.index[v] {
			continue
		}
		var component []int
		for {
			w := f.stack[len(f.stack)-1]
			f.stack = f.stack[:len(f.stack)-1]
			f.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		emit(component)
	}
}
