package cli

import (
	"fmt"

	"github.com/me/gosched/internal/report"
	"github.com/me/gosched/internal/simulator"
	"github.com/me/gosched/internal/workload"
	"github.com/spf13/cobra"
)

func newCompareCmd() *cobra.Command {
	var flags simFlags

	cmd := &cobra.Command{
		Use:   "compare <workload>",
		Short: "Simulate a workload under every discipline and compare averages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			if cfg.Quantum < 1 {
				return fmt.Errorf("quantum must be at least 1 to compare RR, got %d", cfg.Quantum)
			}
			format, err := report.ParseFormat(cfg.Output)
			if err != nil {
				return err
			}

			wl, err := workload.Load(args[0])
			if err != nil {
				return err
			}

			results, err := simulator.RunAll(cmd.Context(), wl, cfg.Cores, cfg.Quantum, logger)
			if err != nil {
				return fmt.Errorf("compare %s: %w", wl.Name, err)
			}
			return report.WriteResults(cmd.OutOrStdout(), results, format)
		},
	}

	flags.register(cmd, false)
	return cmd
}
