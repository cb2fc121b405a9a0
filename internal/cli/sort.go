package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/towerroot/internal/dag"
	"github.com/gyaneshwarpardhi/towerroot/internal/engine"
	"github.com/gyaneshwarpardhi/towerroot/internal/input"
	"github.com/gyaneshwarpardhi/towerroot/internal/report"
)

type sortOptions struct {
	format string
	strict bool
	color  bool
}

func (o *sortOptions) buildOptions() []dag.BuildOption {
	if o.strict {
		return []dag.BuildOption{dag.WithStrictDuplicates()}
	}
	return nil
}

func newSortCmd() *cobra.Command {
	opts := &sortOptions{}
	cmd := &cobra.Command{
		Use:   "sort [FILE|-]",
		Short: "Print the nodes from the leaves up to the root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd, inputArg(args), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "plain",
		"output format: "+strings.Join(report.Default().Formats(), ", "))
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "reject duplicate node names")
	cmd.Flags().BoolVar(&opts.color, "color", false, "color table output")
	return cmd
}

func newRootOnlyCmd() *cobra.Command {
	opts := &sortOptions{format: "root"}
	cmd := &cobra.Command{
		Use:   "root [FILE|-]",
		Short: "Print only the root node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd, inputArg(args), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "reject duplicate node names")
	return cmd
}

func newCheckCmd() *cobra.Command {
	opts := &sortOptions{}
	cmd := &cobra.Command{
		Use:   "check [FILE|-]",
		Short: "Validate that the input describes a single tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := readBatch(cmd, inputArg(args))
			if err != nil {
				return err
			}
			g, order, err := engine.Compute(b.Lines, opts.buildOptions()...)
			if err != nil {
				return fmt.Errorf("%s: %w", b.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d nodes, root %s\n", g.Len(), order.Root())
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "reject duplicate node names")
	return cmd
}

func runSort(cmd *cobra.Command, path string, opts *sortOptions) error {
	reg := report.Default()
	if opts.color {
		reg.Replace(report.NewTable(true))
	}
	rd, err := reg.Get(opts.format)
	if err != nil {
		return err
	}
	b, err := readBatch(cmd, path)
	if err != nil {
		return err
	}
	g, order, err := engine.Compute(b.Lines, opts.buildOptions()...)
	if err != nil {
		return fmt.Errorf("%s: %w", b.Name, err)
	}
	return rd.Render(cmd.OutOrStdout(), report.New(b.Name, g, order))
}

func readBatch(cmd *cobra.Command, path string) (*input.Batch, error) {
	if path == "-" {
		return input.Read("stdin", cmd.InOrStdin())
	}
	return input.ReadFile(path)
}
