package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxLineBytes bounds a single line read by ReadLines.
const maxLineBytes = 1 << 20

// Batch is one collected set of node lines, ready to be built into a graph.
type Batch struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"` // file path, request label, etc.
	Lines      []string  `json:"lines"`
	ReceivedAt time.Time `json:"-"`
}

// NewBatch wraps already-collected lines with a fresh id.
func NewBatch(name string, lines []string) *Batch {
	return &Batch{
		ID:         uuid.New().String(),
		Name:       name,
		Lines:      lines,
		ReceivedAt: time.Now(),
	}
}

// Normalize trims surrounding whitespace from each line and drops blank
// ones, so lines sent as a list match lines read from a stream.
func Normalize(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ReadLines collects every non-blank line from r with surrounding
// whitespace trimmed.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	lines = Normalize(lines)
	return lines, nil
}

// ReadFile loads path into a Batch. "-" reads standard input.
func ReadFile(path string) (*Batch, error) {
	if path == "-" {
		return Read("stdin", os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()
	return Read(path, f)
}

// Read loads r into a Batch labelled name.
func Read(name string, r io.Reader) (*Batch, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return NewBatch(name, lines), nil
}
