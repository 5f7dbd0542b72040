package cli

import (
	"fmt"

	"github.com/me/gosched/pkg/model"
	"github.com/spf13/cobra"
)

func newSchemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "List the supported scheduling disciplines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-6s  %-10s  %s\n", "SCHEME", "PREEMPTIVE", "DESCRIPTION")
			fmt.Fprintf(out, "%-6s  %-10s  %s\n", "------", "----------", "-----------")
			for _, d := range model.Disciplines() {
				preemptive := "no"
				if d.IsPreemptive() {
					preemptive = "yes"
				}
				fmt.Fprintf(out, "%-6s  %-10s  %s\n", d, preemptive, d.Description())
			}
			return nil
		},
	}
}
