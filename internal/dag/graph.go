package dag

import (
	"slices"

	"github.com/gyaneshwarpardhi/towerroot/internal/nodeline"
)

// Graph maps each identifier to its parsed node. Edges point parent → child
// and are stored as identifiers, never as pointers between nodes.
// It is immutable once built.
type Graph struct {
	nodes map[nodeline.Identifier]*nodeline.Node
}

// New assembles a Graph from already-parsed nodes. A later node with the
// same ID replaces an earlier one.
func New(nodes ...*nodeline.Node) *Graph {
	g := newGraph(len(nodes))
	for _, n := range nodes {
		g.add(n)
	}
	return g
}

func newGraph(size int) *Graph {
	return &Graph{nodes: make(map[nodeline.Identifier]*nodeline.Node, size)}
}

func (g *Graph) add(n *nodeline.Node) {
	g.nodes[n.ID] = n
}

// Node returns a node by ID (nil if not found).
func (g *Graph) Node(id nodeline.Identifier) *nodeline.Node {
	return g.nodes[id]
}

// Has reports whether id is a key of the graph.
func (g *Graph) Has(id nodeline.Identifier) bool {
	_, ok := g.nodes[id]
	return ok
}

// Children returns the direct successors of a node, sorted.
func (g *Graph) Children(id nodeline.Identifier) []nodeline.Identifier {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.SortedNeighbors()
}

// IDs returns every key in ascending order.
func (g *Graph) IDs() []nodeline.Identifier {
	out := make([]nodeline.Identifier, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Len returns the total number of registered nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Roots returns, sorted, the nodes that no other node lists as a child.
// A well-formed tree has exactly one.
func (g *Graph) Roots() []nodeline.Identifier {
	hasParent := make(map[nodeline.Identifier]bool, len(g.nodes))
	for _, n := range g.nodes {
		if n.Neighbors == nil {
			continue
		}
		n.Neighbors.Each(func(child nodeline.Identifier) bool {
			hasParent[child] = true
			return false
		})
	}
	var roots []nodeline.Identifier
	for _, id := range g.IDs() {
		if !hasParent[id] {
			roots = append(roots, id)
		}
	}
	return roots
}

// Leaves returns, sorted, the nodes without children.
func (g *Graph) Leaves() []nodeline.Identifier {
	var leaves []nodeline.Identifier
	for _, id := range g.IDs() {
		if g.nodes[id].Degree() == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}
