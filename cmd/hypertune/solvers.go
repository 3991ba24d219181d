package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/hypertune/internal/losses"
)

func (a *app) solversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "solvers",
		Short: "List solver backends and builtin losses",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range a.registry.List() {
				marker := ""
				if name == a.cfg.Solver.Default {
					marker = " (default)"
				}
				fmt.Fprintf(out, "%s%s\n", name, marker)
			}
			fmt.Fprintf(out, "\nlosses:\n")
			for _, name := range losses.Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
}
