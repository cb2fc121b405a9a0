package report

import (
	"io"

	"github.com/gyaneshwarpardhi/towerroot/internal/dag"
)

// Row describes one node at its place in the leaf-to-root order.
type Row struct {
	Position    int      `json:"position"` // 1-based
	ID          string   `json:"id"`
	Weight      uint32   `json:"weight"`
	TotalWeight uint64   `json:"total_weight"` // own weight plus all descendants
	Children    []string `json:"children,omitempty"`
}

// Report is the rendered outcome of sorting one graph.
type Report struct {
	Name  string `json:"name,omitempty"`
	Root  string `json:"root"`
	Count int    `json:"count"`
	Nodes []Row  `json:"nodes"`
}

// Renderer is the interface every output format implements.
type Renderer interface {
	// Format returns the name this renderer is registered under.
	Format() string
	// Render writes r to w.
	Render(w io.Writer, r *Report) error
}

// New builds a Report from a graph and its leaf-to-root order.
func New(name string, g *dag.Graph, order dag.Order) *Report {
	totals := dag.SubtreeWeights(g, order)
	r := &Report{
		Name:  name,
		Root:  string(order.Root()),
		Count: len(order),
		Nodes: make([]Row, 0, len(order)),
	}
	for i, id := range order {
		n := g.Node(id)
		row := Row{
			Position:    i + 1,
			ID:          string(id),
			TotalWeight: totals[id],
		}
		if n != nil {
			row.Weight = uint32(n.Weight)
			for _, c := range n.SortedNeighbors() {
				row.Children = append(row.Children, string(c))
			}
		}
		r.Nodes = append(r.Nodes, row)
	}
	return r
}
