package cli

import (
	"log/slog"

	"github.com/me/gosched/internal/config"
	"github.com/me/gosched/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the gosched CLI.
func NewRootCmd() *cobra.Command {
	defaults := config.DefaultSimConfig()

	root := &cobra.Command{
		Use:     "gosched",
		Short:   "gosched: multi-core CPU scheduling simulator",
		Long:    "gosched replays job arrivals against FCFS, SJF, PSJF, PRI, PPRI and RR schedulers and reports waiting, turnaround and response times.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagDebug {
				flagLogLevel = "debug"
			}
			if err := logging.ValidateFormat(flagLogFormat); err != nil {
				return err
			}
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(flagLogLevel), flagLogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error) (or GOSCHED_LOG_LEVEL env)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", defaults.LogFormat, "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newCompareCmd(),
		newSchemesCmd(),
		newVersionCmd(),
	)

	return root
}
