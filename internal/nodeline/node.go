package nodeline

import (
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Identifier names a node. Two identifiers are equal when their bytes are.
type Identifier string

// Weight is the payload carried by each node.
type Weight uint32

// Node is one parsed line: a name, a weight and the set of children it points at.
type Node struct {
	ID        Identifier
	Weight    Weight
	Neighbors mapset.Set[Identifier]
}

// NewNode builds a Node. Repeated neighbors collapse into one.
func NewNode(id Identifier, weight Weight, neighbors ...Identifier) *Node {
	return &Node{
		ID:        id,
		Weight:    weight,
		Neighbors: mapset.NewThreadUnsafeSet(neighbors...),
	}
}

// Degree returns the number of distinct children.
func (n *Node) Degree() int {
	if n.Neighbors == nil {
		return 0
	}
	return n.Neighbors.Cardinality()
}

// SortedNeighbors returns the children in ascending order.
func (n *Node) SortedNeighbors() []Identifier {
	if n.Neighbors == nil {
		return nil
	}
	out := n.Neighbors.ToSlice()
	slices.Sort(out)
	return out
}

// Equal reports whether both nodes carry the same id, weight and neighbor set.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.ID != o.ID || n.Weight != o.Weight || n.Degree() != o.Degree() {
		return false
	}
	return slices.Equal(n.SortedNeighbors(), o.SortedNeighbors())
}

// String renders the node in its canonical line form.
func (n *Node) String() string {
	return Format(n)
}

// Format renders n as "id (weight)" followed by " -> a, b" when it has children.
// Children are written in sorted order so the output is stable.
func Format(n *Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)", n.ID, n.Weight)
	if kids := n.SortedNeighbors(); len(kids) > 0 {
		b.WriteString(" -> ")
		for i, k := range kids {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(string(k))
		}
	}
	return b.String()
}
