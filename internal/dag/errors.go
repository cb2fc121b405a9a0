package dag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/towerroot/internal/nodeline"
)

// ErrStructural matches every *StructuralError via errors.Is.
var ErrStructural = errors.New("structural inconsistency")

// Kind classifies a StructuralError.
type Kind string

const (
	KindEmpty            Kind = "empty"
	KindDanglingNeighbor Kind = "dangling_neighbor"
	KindNoRoot           Kind = "no_root"
	KindMultipleRoots    Kind = "multiple_roots"
	KindCycle            Kind = "cycle"
	KindDuplicateNode    Kind = "duplicate_node"
)

// StructuralError reports input that parses but does not describe a single tree.
type StructuralError struct {
	Kind Kind
	// IDs lists the offending nodes: the roots, the nodes left on a cycle,
	// the duplicated id, or "parent->child" pairs for dangling references.
	IDs  []string
	Line int // set for KindDuplicateNode
}

func (e *StructuralError) Error() string {
	switch e.Kind {
	case KindEmpty:
		return "graph has no nodes"
	case KindDanglingNeighbor:
		return fmt.Sprintf("undefined neighbors: %s", strings.Join(e.IDs, ", "))
	case KindNoRoot:
		return "no root: every node has a parent"
	case KindMultipleRoots:
		return fmt.Sprintf("%d roots: %s", len(e.IDs), strings.Join(e.IDs, ", "))
	case KindCycle:
		return fmt.Sprintf("cycle through %s", strings.Join(e.IDs, ", "))
	case KindDuplicateNode:
		return fmt.Sprintf("line %d: duplicate node %s", e.Line, strings.Join(e.IDs, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.IDs, ", "))
}

// Is lets callers test with errors.Is(err, ErrStructural).
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

func idStrings(ids []nodeline.Identifier) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
