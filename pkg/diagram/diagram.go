// Package diagram provides the node and edge types of an architecture diagram.
//
// Diagrams are owned by the editor; the animation engine only reads them.
package diagram

import (
	"fmt"
)

// Node is a box on the diagram. X and Y locate its top-left corner in
// world units.
type Node struct {
	ID     string  `json:"id"`
	Label  string  `json:"label,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Edge is a directed connector between two nodes, identified by id.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// View is the pan/zoom state the diagram was last shown with.
type View struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Diagram is a snapshot of nodes and edges.
type Diagram struct {
	Name  string
	Nodes []Node
	Edges []Edge
	View  View
}

// New creates an empty diagram.
func New(name string) *Diagram {
	return &Diagram{
		Name:  name,
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
		View:  View{Scale: 1},
	}
}

// AddNode adds a node, replacing any node with the same id.
func (d *Diagram) AddNode(n Node) {
	for i, existing := range d.Nodes {
		if existing.ID == n.ID {
			d.Nodes[i] = n
			return
		}
	}
	d.Nodes = append(d.Nodes, n)
}

// AddEdge adds an edge, replacing any edge with the same id.
func (d *Diagram) AddEdge(e Edge) {
	for i, existing := range d.Edges {
		if existing.ID == e.ID {
			d.Edges[i] = e
			return
		}
	}
	d.Edges = append(d.Edges, e)
}

// RemoveNode deletes a node by id. Edges touching it are left alone; they
// simply stop resolving.
func (d *Diagram) RemoveNode(id string) bool {
	for i, n := range d.Nodes {
		if n.ID == id {
			d.Nodes = append(d.Nodes[:i], d.Nodes[i+1:]...)
			return true
		}
	}
	return false
}

// NodeByID looks up a node.
func (d *Diagram) NodeByID(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// EdgeByID looks up an edge.
func (d *Diagram) EdgeByID(id string) (Edge, bool) {
	for _, e := range d.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// NodeIndex returns the nodes keyed by id.
func (d *Diagram) NodeIndex() map[string]Node {
	idx := make(map[string]Node, len(d.Nodes))
	for _, n := range d.Nodes {
		idx[n.ID] = n
	}
	return idx
}

// Bounds returns the smallest box containing every node.
func (d *Diagram) Bounds() (minX, minY, maxX, maxY float64) {
	if len(d.Nodes) == 0 {
		return 0, 0, 0, 0
	}
	first := d.Nodes[0]
	minX, minY = first.X, first.Y
	maxX, maxY = first.X+first.Width, first.Y+first.Height
	for _, n := range d.Nodes[1:] {
		if n.X < minX {
			minX = n.X
		}
		if n.Y < minY {
			minY = n.Y
		}
		if n.X+n.Width > maxX {
			maxX = n.X + n.Width
		}
		if n.Y+n.Height > maxY {
			maxY = n.Y + n.Height
		}
	}
	return minX, minY, maxX, maxY
}

// Validate checks the diagram is well-formed. Edges pointing at unknown
// nodes are allowed; they fail later when an animation is started on them.
func (d *Diagram) Validate() error {
	seen := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node with empty id")
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
		if n.Width <= 0 || n.Height <= 0 {
			return fmt.Errorf("node %q has non-positive size %gx%g", n.ID, n.Width, n.Height)
		}
	}

	edges := make(map[string]bool, len(d.Edges))
	for _, e := range d.Edges {
		if e.ID == "" {
			return fmt.Errorf("edge with empty id")
		}
		if edges[e.ID] {
			return fmt.Errorf("duplicate edge id %q", e.ID)
		}
		edges[e.ID] = true
		if e.Source == "" || e.Target == "" {
			return fmt.Errorf("edge %q has an empty endpoint", e.ID)
		}
	}

	if d.View.Scale < 0 {
		return fmt.Errorf("negative view scale %g", d.View.Scale)
	}
	return nil
}

// Copy returns a deep copy.
func (d *Diagram) Copy() *Diagram {
	c := &Diagram{
		Name:  d.Name,
		Nodes: make([]Node, len(d.Nodes)),
		Edges: make([]Edge, len(d.Edges)),
		View:  d.View,
	}
	copy(c.Nodes, d.Nodes)
	copy(c.Edges, d.Edges)
	return c
}

// String returns a short summary.
func (d *Diagram) String() string {
	name := d.Name
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s: %d nodes, %d edges", name, len(d.Nodes), len(d.Edges))
}
