package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/secretval/internal/config"
	"github.com/systmms/secretval/internal/logging"
)

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigFile  string
	NoColor     bool
	Debug       bool
	MetricsFile string
}

// NewRootCommand builds the command tree around cfg. The logger is
// created once the flags are parsed.
func NewRootCommand(cfg *config.Config, flags *GlobalFlags, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "secretval",
		Short: "Wrap, redact and reveal secret values",
		Long: `secretval wraps sensitive values so they can pass through pipelines,
logs and terminals without being printed. Wrapped values render through
configurable redaction templates; revealing one is an explicit, audited
step.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(flags.Debug, flags.NoColor)

			cfg.Path = flags.ConfigFile
			cfg.Logger = logger
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "Config file path (default $SECRETVAL_CONFIG or the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flags.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		NewWrapCommand(cfg),
		NewWrapWithCommand(cfg),
		NewUnwrapCommand(cfg),
		NewValidateCommand(cfg),
		NewTypeOfCommand(cfg),
		NewRenderCommand(cfg),
		NewConfigCommand(cfg),
		NewDoctorCommand(cfg),
		NewCompletionCommand(cfg),
	)

	return rootCmd
}
