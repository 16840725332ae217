package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/secretval/internal/config"
	sverrors "github.com/systmms/secretval/internal/errors"
)

func NewConfigCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the redaction configuration",
		Long: `Inspect and change the redaction configuration.

The effective configuration is built from the built-in defaults, the
configuration file, SECRETVAL_* environment variables and runtime changes,
in that order. Environment overrides are never written back to the file.`,
	}

	cmd.AddCommand(
		newConfigShowCommand(cfg),
		newConfigSetCommand(cfg),
		newConfigResetCommand(cfg),
		newConfigValidateCommand(cfg),
		newConfigExportCommand(cfg),
		newConfigImportCommand(cfg),
		newConfigPathCommand(cfg),
	)
	return cmd
}

func newConfigShowCommand(cfg *config.Config) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.ParseFormat(format)
			if err != nil {
				return sverrors.UserError{
					Message:    err.Error(),
					Suggestion: "Use --format toml, yaml or json",
				}
			}
			m, err := cfg.Load()
			if err != nil {
				return err
			}
			data, err := config.EncodeDocument(m.Current().Redacted(), f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", string(config.FormatTOML), "Output format: toml, yaml or json")
	return cmd
}

func newConfigSetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting and save it",
		Long: `Change one setting, validate the result and save it to the
configuration file. An invalid change is rejected and nothing is written.

Examples:
  secretval config set redaction.style masked
  secretval config set redaction.types.int '<number>'
  secretval config set security.level paranoid`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cfg.Load()
			if err != nil {
				return err
			}
			if err := m.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := m.Persist(); err != nil {
				return err
			}
			cfg.Logger.Info("Set %s in %s", args[0], m.Location())
			return nil
		},
	}
}

func newConfigResetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the built-in defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := cfg.Manager()
			if err := m.Reset(); err != nil {
				return err
			}
			cfg.Logger.Info("Restored defaults in %s", m.Location())
			return nil
		},
	}
}

func newConfigValidateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate the configuration file or another document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			target := ""
			if len(args) == 1 {
				target = args[0]
				err = cfg.Manager().ValidateFile(target)
			} else {
				var m *config.Manager
				m, err = cfg.Load()
				if m != nil {
					target = m.Location()
				}
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", target)
			return err
		},
	}
}

func newConfigExportCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "export PATH",
		Short: "Write the configuration to a file",
		Long: `Write the persisted configuration to PATH. The format follows the
extension (.toml, .yaml, .yml or .json). Environment overrides and salts
resolved from a reference are not written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cfg.Load()
			if err != nil {
				return err
			}
			if err := m.Export(args[0]); err != nil {
				return err
			}
			cfg.Logger.Info("Exported configuration to %s", args[0])
			return nil
		},
	}
}

func newConfigImportCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import PATH",
		Short: "Replace the configuration with a file",
		Long: `Validate the document at PATH and, if it is valid, make it the
configuration and save it. Runtime changes are discarded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := cfg.Manager()
			if err := m.Import(args[0]); err != nil {
				return err
			}
			cfg.Logger.Info("Imported configuration from %s", args[0])
			return nil
		},
	}
}

func newConfigPathCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), cfg.Manager().Location())
			return err
		},
	}
}
