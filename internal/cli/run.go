package cli

import (
	"fmt"

	"github.com/me/gosched/internal/config"
	"github.com/me/gosched/internal/logging"
	"github.com/me/gosched/internal/report"
	"github.com/me/gosched/internal/simulator"
	"github.com/me/gosched/internal/workload"
	"github.com/spf13/cobra"
)

// simFlags are the simulation flags shared by run and compare.
type simFlags struct {
	configPath string
	cores      int
	scheme     string
	quantum    int
	output     string
	gantt      bool
	ganttWidth int
}

func (f *simFlags) register(cmd *cobra.Command, withScheme bool) {
	defaults := config.DefaultSimConfig()
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "YAML file with simulation settings")
	cmd.Flags().IntVarP(&f.cores, "cores", "n", defaults.Cores, "Number of cores")
	cmd.Flags().IntVarP(&f.quantum, "quantum", "q", defaults.Quantum, "Round-robin time slice in ticks")
	cmd.Flags().StringVarP(&f.output, "output", "o", defaults.Output, "Output format (text, json, yaml)")
	if withScheme {
		cmd.Flags().StringVarP(&f.scheme, "scheme", "s", defaults.Scheme, "Scheduling discipline (see 'gosched schemes')")
		cmd.Flags().BoolVar(&f.gantt, "gantt", false, "Append a Gantt chart to text output")
		cmd.Flags().IntVar(&f.ganttWidth, "gantt-width", report.DefaultGanttWidth, "Maximum Gantt chart width in columns")
	}
}

// resolve layers the config file, then explicitly set flags, over the defaults.
func (f *simFlags) resolve(cmd *cobra.Command) (config.SimConfig, error) {
	cfg := config.DefaultSimConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(f.configPath, cfg); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("cores") {
		cfg.Cores = f.cores
	}
	if flags.Changed("scheme") {
		cfg.Scheme = f.scheme
	}
	if flags.Changed("quantum") {
		cfg.Quantum = f.quantum
	}
	if flags.Changed("output") {
		cfg.Output = f.output
	}
	if flags.Changed("gantt") {
		cfg.Gantt = f.gantt
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if f.configPath != "" && !flags.Changed("log-level") && !flags.Changed("log-format") && !flagDebug {
		logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
	}
	return cfg, nil
}

func newRunCmd() *cobra.Command {
	var flags simFlags

	cmd := &cobra.Command{
		Use:   "run <workload>",
		Short: "Simulate a workload under one scheduling discipline",
		Long: `Simulate a workload file (.yaml, .yml or .csv) and print per-job
timings and the average waiting, turnaround and response times.

Settings come from the defaults, then --config, then explicit flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			discipline, err := cfg.Discipline()
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(cfg.Output)
			if err != nil {
				return err
			}

			wl, err := workload.Load(args[0])
			if err != nil {
				return err
			}
			logger.Debug("workload loaded", "name", wl.Name, "jobs", len(wl.Jobs), "total_run", wl.TotalRun())

			sim, err := simulator.New(simulator.Config{
				Cores:      cfg.Cores,
				Discipline: discipline,
				Quantum:    cfg.Quantum,
			}, logger)
			if err != nil {
				return err
			}
			res, err := sim.Run(cmd.Context(), wl)
			if err != nil {
				return fmt.Errorf("simulate %s: %w", wl.Name, err)
			}

			return report.Write(cmd.OutOrStdout(), res, format, report.Options{
				Gantt:      cfg.Gantt,
				GanttWidth: flags.ganttWidth,
			})
		},
	}

	flags.register(cmd, true)
	return cmd
}
