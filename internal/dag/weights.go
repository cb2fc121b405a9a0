package dag

import "github.com/gyaneshwarpardhi/towerroot/internal/nodeline"

// SubtreeWeights returns, for every node in order, its own weight plus the
// weights of all its descendants. order must be leaf-to-root as produced by
// Sort, so each child total is final before its parent is visited.
func SubtreeWeights(g *Graph, order Order) map[nodeline.Identifier]uint64 {
	totals := make(map[nodeline.Identifier]uint64, len(order))
	for _, id := range order {
		n := g.Node(id)
		if n == nil {
			continue
		}
		sum := uint64(n.Weight)
		for _, child := range n.SortedNeighbors() {
			sum += totals[child]
		}
		totals[id] = sum
	}
	return totals
}
