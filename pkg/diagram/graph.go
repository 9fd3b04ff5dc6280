package diagram

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Topology summarises how requests can flow through a diagram.
type Topology struct {
	// Order is a topological order of node ids. Empty when the diagram
	// has a cycle.
	Order []string
	// Loops are groups of nodes that can reach each other, including
	// single nodes with an edge to themselves. Ids are sorted.
	Loops [][]string
	// Sources have no incoming edges, Sinks no outgoing ones.
	Sources []string
	Sinks   []string
}

// Acyclic reports whether the diagram has no loops.
func (t Topology) Acyclic() bool { return len(t.Loops) == 0 }

// Analyze builds the topology of the resolvable edges. Dangling edges are
// ignored.
func (d *Diagram) Analyze() Topology {
	g := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(d.Nodes))
	for i, n := range d.Nodes {
		ids[n.ID] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}

	var t Topology
	selfLoops := make(map[int64]bool)
	for _, e := range d.Edges {
		from, ok1 := ids[e.Source]
		to, ok2 := ids[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		if from == to {
			selfLoops[from] = true
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
	}

	name := func(n graph.Node) string { return d.Nodes[n.ID()].ID }
	byName := func(nodes []graph.Node) {
		sort.Slice(nodes, func(i, j int) bool { return name(nodes[i]) < name(nodes[j]) })
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) == 1 && !selfLoops[scc[0].ID()] {
			continue
		}
		loop := make([]string, len(scc))
		for i, n := range scc {
			loop[i] = name(n)
		}
		sort.Strings(loop)
		t.Loops = append(t.Loops, loop)
	}
	sort.Slice(t.Loops, func(i, j int) bool { return t.Loops[i][0] < t.Loops[j][0] })

	if len(t.Loops) == 0 {
		sorted, err := topo.SortStabilized(g, byName)
		if err == nil {
			for _, n := range sorted {
				t.Order = append(t.Order, name(n))
			}
		}
	}

	for _, n := range d.Nodes {
		id := ids[n.ID]
		if g.To(id).Len() == 0 && !selfLoops[id] {
			t.Sources = append(t.Sources, n.ID)
		}
		if g.From(id).Len() == 0 && !selfLoops[id] {
			t.Sinks = append(t.Sinks, n.ID)
		}
	}
	return t
}
