package nodeline

import (
	"errors"
	"fmt"
)

// ErrParse matches every *ParseError via errors.Is.
var ErrParse = errors.New("parse error")

// ParseError reports a line that does not match the grammar.
// Line is 0 when the parser was called outside of a multi-line build.
type ParseError struct {
	Line  int    // 1-based line number, 0 if unknown
	Pos   int    // 1-based column of the offending token
	Input string // the raw line
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d col %d: %s in %q", e.Line, e.Pos, e.Msg, e.Input)
	}
	return fmt.Sprintf("col %d: %s in %q", e.Pos, e.Msg, e.Input)
}

// Is lets callers test with errors.Is(err, ErrParse).
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
