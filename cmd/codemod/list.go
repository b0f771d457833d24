package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/deixis/codemod/internal/transform"
	"github.com/spf13/cobra"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available transforms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			for _, d := range transform.Builtin().All() {
				fmt.Fprintf(tw, "%s\t%s\n", d.ID, d.DisplayName)
			}
			return tw.Flush()
		},
	}
}
