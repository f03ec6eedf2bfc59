package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/danmuck/litelog/internal/header"
	"github.com/spf13/cobra"
)

func newSchemaCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the levels, types and record layouts found in the header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := g.definitions()
			if err != nil {
				return err
			}
			return printSchema(cmd.OutOrStdout(), defs)
		},
	}
}

func printSchema(w io.Writer, defs *header.Definitions) error {
	if err := printConstants(w, "levels", defs.Levels); err != nil {
		return err
	}
	if err := printConstants(w, "types", defs.Types); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "records:"); err != nil {
		return err
	}
	for _, r := range defs.Schemas.Records() {
		if _, err := fmt.Fprintf(w, "  %s\n", r); err != nil {
			return err
		}
	}
	if len(defs.Diagnostics) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "skipped:"); err != nil {
		return err
	}
	for _, d := range defs.Diagnostics {
		if _, err := fmt.Fprintf(w, "  %s\n", d); err != nil {
			return err
		}
	}
	return nil
}

func printConstants(w io.Writer, title string, c header.Constants) error {
	codes := make([]int, 0, len(c))
	for code := range c {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	if _, err := fmt.Fprintf(w, "%s:\n", title); err != nil {
		return err
	}
	for _, code := range codes {
		if _, err := fmt.Fprintf(w, "  %d: %s\n", code, c[code]); err != nil {
			return err
		}
	}
	return nil
}
