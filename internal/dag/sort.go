package dag

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gyaneshwarpardhi/towerroot/internal/nodeline"
)

// Order is a leaf-to-root sequence: every node appears after all of its
// children and the root is last.
type Order []nodeline.Identifier

// Root returns the last entry, or "" for an empty order.
func (o Order) Root() nodeline.Identifier {
	if len(o) == 0 {
		return ""
	}
	return o[len(o)-1]
}

// Index maps each identifier to its position in the order.
func (o Order) Index() map[nodeline.Identifier]int {
	idx := make(map[nodeline.Identifier]int, len(o))
	for i, id := range o {
		idx[id] = i
	}
	return idx
}

// Sort orders g from leaves to root with Kahn's algorithm, counting
// outgoing edges and releasing a parent once all of its children are out.
// Dangling neighbors, zero or several roots and cycles are reported as
// a *StructuralError; a short order is never returned.
func Sort(g *Graph) (Order, error) {
	if g.Len() == 0 {
		return nil, &StructuralError{Kind: KindEmpty}
	}
	if err := checkNeighbors(g); err != nil {
		return nil, err
	}
	switch roots := g.Roots(); len(roots) {
	case 0:
		return nil, &StructuralError{Kind: KindNoRoot}
	case 1:
	default:
		return nil, &StructuralError{Kind: KindMultipleRoots, IDs: idStrings(roots)}
	}

	ids := g.IDs()
	outgoing := make(map[nodeline.Identifier]int, len(ids))
	incoming := make(map[nodeline.Identifier]mapset.Set[nodeline.Identifier], len(ids))
	var queue []nodeline.Identifier
	for _, id := range ids {
		n := g.Node(id)
		outgoing[id] = n.Degree()
		if n.Degree() == 0 {
			queue = append(queue, id)
			continue
		}
		n.Neighbors.Each(func(child nodeline.Identifier) bool {
			parents, ok := incoming[child]
			if !ok {
				parents = mapset.NewThreadUnsafeSet[nodeline.Identifier]()
				incoming[child] = parents
			}
			parents.Add(id)
			return false
		})
	}

	sorted := make(Order, 0, len(ids))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		parents, ok := incoming[id]
		if !ok {
			continue
		}
		released := parents.ToSlice()
		slices.Sort(released)
		for _, p := range released {
			outgoing[p]--
			if outgoing[p] == 0 {
				queue = append(queue, p)
			}
		}
	}

	if len(sorted) != len(ids) {
		stuck := mapset.NewThreadUnsafeSet[nodeline.Identifier]()
		for _, id := range ids {
			if outgoing[id] > 0 {
				stuck.Add(id)
			}
		}
		return nil, &StructuralError{Kind: KindCycle, IDs: idStrings(cycleMembers(g, stuck))}
	}
	return sorted, nil
}

// cycleMembers returns, sorted, the nodes of stuck that lie on a cycle.
// Ancestors that are only blocked by a cycle are left out. It runs
// Tarjan's strongly connected components over the stuck subgraph.
func cycleMembers(g *Graph, stuck mapset.Set[nodeline.Identifier]) []nodeline.Identifier {
	index := make(map[nodeline.Identifier]int, stuck.Cardinality())
	low := make(map[nodeline.Identifier]int, stuck.Cardinality())
	onStack := mapset.NewThreadUnsafeSet[nodeline.Identifier]()
	var stack, members []nodeline.Identifier
	next := 0

	var visit func(id nodeline.Identifier)
	visit = func(id nodeline.Identifier) {
		index[id], low[id] = next, next
		next++
		stack = append(stack, id)
		onStack.Add(id)

		for _, child := range g.Children(id) {
			if !stuck.Contains(child) {
				continue
			}
			if _, seen := index[child]; !seen {
				visit(child)
				low[id] = min(low[id], low[child])
			} else if onStack.Contains(child) {
				low[id] = min(low[id], index[child])
			}
		}

		if low[id] != index[id] {
			return
		}
		var scc []nodeline.Identifier
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack.Remove(top)
			scc = append(scc, top)
			if top == id {
				break
			}
		}
		if len(scc) > 1 || g.Node(id).Neighbors.Contains(id) {
			members = append(members, scc...)
		}
	}

	roots := stuck.ToSlice()
	slices.Sort(roots)
	for _, id := range roots {
		if _, seen := index[id]; !seen {
			visit(id)
		}
	}
	slices.Sort(members)
	return members
}

// checkNeighbors reports every neighbor reference that is not a graph key.
func checkNeighbors(g *Graph) error {
	var dangling []string
	for _, id := range g.IDs() {
		for _, child := range g.Children(id) {
			if !g.Has(child) {
				dangling = append(dangling, fmt.Sprintf("%s->%s", id, child))
			}
		}
	}
	if len(dangling) > 0 {
		return &StructuralError{Kind: KindDanglingNeighbor, IDs: dangling}
	}
	return nil
}
