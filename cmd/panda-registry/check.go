package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pandablocks/panda-registry/pkg/layout"
	"github.com/pandablocks/panda-registry/pkg/model"
)

func newCheckCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "check [layout.yaml]",
		Short: "Validate a layout file and print its structure",
		Long: `check builds a registry from the layout, running every validation
that serve would, and lists the resulting blocks. Without an argument the
built-in layout is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runCheck(cmd.OutOrStdout(), path, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every field")
	return cmd
}

// ErrInvalidLayout is returned by check when the layout does not build.
var ErrInvalidLayout = errors.New("invalid layout")

func runCheck(w io.Writer, path string, verbose bool) error {
	l, err := loadLayout(path)
	if err != nil {
		return err
	}

	reg, err := l.Build(model.Config{})
	if err != nil {
		fmt.Fprintf(w, "Layout %s has errors:\n", layoutName(path))
		count := 0
		for _, e := range unjoin(err) {
			fmt.Fprintf(w, "  %v\n", e)
			count++
		}
		return fmt.Errorf("%w: %d errors", ErrInvalidLayout, count)
	}
	defer reg.Close()

	printLayout(w, path, l, reg, verbose)
	return nil
}

// unjoin flattens an errors.Join result.
func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, unjoin(e)...)
		}
		return out
	}
	return []error{err}
}

func printLayout(w io.Writer, path string, l *layout.Layout, reg *model.Registry, verbose bool) {
	fields := 0
	for _, b := range reg.Blocks() {
		fields += len(b.Fields())
	}
	fmt.Fprintf(w, "Layout %s: %d blocks, %d fields, %d metadata keys\n",
		layoutName(path), len(reg.Blocks()), fields, len(l.Metadata))

	for _, b := range reg.Blocks() {
		base, _ := b.Base()
		fmt.Fprintf(w, "  %-12s x%-3d base %-3d %s\n", b.Name(), b.Count(), base, b.Description())
		if !verbose {
			continue
		}
		for _, f := range b.Fields() {
			fmt.Fprintf(w, "    %-14s %s\n", f.Name(), f.Info())
		}
	}
}
