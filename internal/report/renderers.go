package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Plain writes one identifier per line, leaves first and the root last.
type Plain struct{}

func (Plain) Format() string { return "plain" }

func (Plain) Render(w io.Writer, r *Report) error {
	for _, row := range r.Nodes {
		if _, err := fmt.Fprintln(w, row.ID); err != nil {
			return err
		}
	}
	return nil
}

// RootOnly writes just the root identifier.
type RootOnly struct{}

func (RootOnly) Format() string { return "root" }

func (RootOnly) Render(w io.Writer, r *Report) error {
	_, err := fmt.Fprintln(w, r.Root)
	return err
}

// JSON encodes the whole report.
type JSON struct {
	Indent string
}

func (JSON) Format() string { return "json" }

func (j JSON) Render(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", j.Indent)
	return enc.Encode(r)
}

// Table renders a rounded table with one row per node.
type Table struct {
	color bool
}

// NewTable returns a table renderer; color adds ANSI colors to the header and root row.
func NewTable(color bool) *Table {
	return &Table{color: color}
}

func (*Table) Format() string { return "table" }

func (t *Table) Render(w io.Writer, r *Report) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	if r.Name != "" {
		tw.SetTitle(r.Name)
	}
	tw.AppendHeader(table.Row{
		t.paint(text.FgHiCyan, "#"),
		t.paint(text.FgHiCyan, "ID"),
		t.paint(text.FgHiCyan, "WEIGHT"),
		t.paint(text.FgHiCyan, "TOTAL"),
		t.paint(text.FgHiCyan, "CHILDREN"),
	})
	for _, row := range r.Nodes {
		id := row.ID
		if id == r.Root {
			id = t.paint(text.FgGreen, id)
		}
		tw.AppendRow(table.Row{row.Position, id, row.Weight, row.TotalWeight, strings.Join(row.Children, ", ")})
	}
	tw.AppendFooter(table.Row{"", "root", r.Root, "", fmt.Sprintf("%d nodes", r.Count)})
	_, err := fmt.Fprintln(w, tw.Render())
	return err
}

func (t *Table) paint(c text.Color, s string) string {
	if !t.color {
		return s
	}
	return c.Sprint(s)
}
