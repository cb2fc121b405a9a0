package dag

import (
	"errors"

	"github.com/gyaneshwarpardhi/towerroot/internal/nodeline"
)

// BuildOption tunes Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	strictDuplicates bool
}

// WithStrictDuplicates makes Build reject a second line for an id already
// seen instead of letting the later line win.
func WithStrictDuplicates() BuildOption {
	return func(o *buildOptions) { o.strictDuplicates = true }
}

// Build parses every line and assembles the graph. The first line that
// fails to parse aborts the whole build.
func Build(lines []string, opts ...BuildOption) (*Graph, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	g := newGraph(len(lines))
	firstSeen := make(map[nodeline.Identifier]int, len(lines))
	for i, line := range lines {
		n, err := nodeline.Parse(line)
		if err != nil {
			var pe *nodeline.ParseError
			if errors.As(err, &pe) {
				pe.Line = i + 1
			}
			return nil, err
		}
		if _, dup := firstSeen[n.ID]; dup && o.strictDuplicates {
			return nil, &StructuralError{Kind: KindDuplicateNode, IDs: []string{string(n.ID)}, Line: i + 1}
		}
		firstSeen[n.ID] = i + 1
		g.add(n)
	}
	return g, nil
}
