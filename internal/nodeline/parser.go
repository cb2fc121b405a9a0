package nodeline

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// -----------------------------------------------------------------------
// Tokenizer
// -----------------------------------------------------------------------

type tokenKind int

const (
	tokWord   tokenKind = iota // maximal ASCII alphanumeric run
	tokLParen                  // (
	tokRParen                  // )
	tokArrow                   // ->
	tokComma                   // ,
	tokEOF
)

func (k tokenKind) String() string {
	switch k {
	case tokWord:
		return "identifier"
	case tokLParen:
		return `"("`
	case tokRParen:
		return `")"`
	case tokArrow:
		return `"->"`
	case tokComma:
		return `","`
	default:
		return "end of line"
	}
}

type token struct {
	kind tokenKind
	val  string
	pos  int // 1-based column
}

func isAlnum(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func tokenize(line string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(line) {
		ch := line[i]
		if ch < utf8.RuneSelf && unicode.IsSpace(rune(ch)) {
			i++
			continue
		}
		switch {
		case ch == '(':
			tokens = append(tokens, token{tokLParen, "(", i + 1})
			i++
		case ch == ')':
			tokens = append(tokens, token{tokRParen, ")", i + 1})
			i++
		case ch == ',':
			tokens = append(tokens, token{tokComma, ",", i + 1})
			i++
		case ch == '-':
			if i+1 >= len(line) || line[i+1] != '>' {
				return nil, &ParseError{Pos: i + 1, Input: line, Msg: `expected "->"`}
			}
			tokens = append(tokens, token{tokArrow, "->", i + 1})
			i += 2
		case isAlnum(ch):
			j := i
			for j < len(line) && isAlnum(line[j]) {
				j++
			}
			tokens = append(tokens, token{tokWord, line[i:j], i + 1})
			i = j
		default:
			return nil, &ParseError{Pos: i + 1, Input: line, Msg: fmt.Sprintf("unexpected character %q", ch)}
		}
	}
	tokens = append(tokens, token{tokEOF, "", len(line) + 1})
	return tokens, nil
}

// -----------------------------------------------------------------------
// Recursive-descent parser
// -----------------------------------------------------------------------

type parser struct {
	line   string
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) consume() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) fail(t token, format string, args ...any) error {
	return &ParseError{Pos: t.pos, Input: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.peek()
	if t.kind != kind {
		return t, p.fail(t, "expected %s but got %s", kind, describe(t))
	}
	return p.consume(), nil
}

func describe(t token) string {
	if t.kind == tokEOF {
		return t.kind.String()
	}
	return fmt.Sprintf("%q", t.val)
}

// Parse turns one line into a Node. The whole line must match; leftover
// tokens after the weight or the neighbor list are an error.
func Parse(line string) (*Node, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return nil, err
	}
	p := &parser{line: line, tokens: tokens}
	n, err := p.parseLine()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.fail(t, "unexpected %s after node", describe(t))
	}
	return n, nil
}

// line = identifier "(" weight ")" [ "->" neighbor_list ]
func (p *parser) parseLine() (*Node, error) {
	id, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	w, err := p.parseWeight()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	n := NewNode(id, w)
	if p.peek().kind != tokArrow {
		return n, nil
	}
	p.consume()
	kids, err := p.parseNeighbors()
	if err != nil {
		return nil, err
	}
	n.Neighbors.Append(kids...)
	return n, nil
}

// identifier = alnum+
func (p *parser) parseIdentifier() (Identifier, error) {
	t, err := p.expect(tokWord)
	if err != nil {
		return "", err
	}
	return Identifier(t.val), nil
}

// weight = digit+
func (p *parser) parseWeight() (Weight, error) {
	t := p.peek()
	if t.kind != tokWord || !isDigits(t.val) {
		return 0, p.fail(t, "expected decimal weight but got %s", describe(t))
	}
	p.consume()
	v, err := strconv.ParseUint(t.val, 10, 32)
	if err != nil {
		return 0, p.fail(t, "weight %s out of range", t.val)
	}
	return Weight(v), nil
}

// neighbor_list = identifier ( "," identifier )*
func (p *parser) parseNeighbors() ([]Identifier, error) {
	first, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	out := []Identifier{first}
	for p.peek().kind == tokComma {
		p.consume()
		id, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
