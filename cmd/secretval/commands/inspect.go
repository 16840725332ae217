package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/secretval/internal/config"
)

func NewValidateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [INPUT]",
		Short: "Report whether the input is a secret envelope",
		Long: `Print true when the input is a well-formed secret envelope that the
current policy accepts, false otherwise. The exit status is zero either way.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRenderer(cfg)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), r.IsEnvelope(data))
			return err
		},
	}
}

func NewTypeOfCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "type-of [ENVELOPE]",
		Short: "Print the kind of a wrapped secret",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _, err := readSecret(cmd, cfg, args)
			if err != nil {
				return err
			}
			defer v.Destroy()

			_, err = fmt.Fprintln(cmd.OutOrStdout(), v.TypeName())
			return err
		},
	}
}

func NewRenderCommand(cfg *config.Config) *cobra.Command {
	var occasion string

	cmd := &cobra.Command{
		Use:   "render [ENVELOPE]",
		Short: "Print the redacted form of a wrapped secret",
		Long: `Render a secret envelope with the configured redaction templates.

The occasion selects the per-context template: display (default), debug
or log.

Examples:
  secretval wrap '"hunter2"' | secretval render
  secretval render --occasion log < secret.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			occ, err := config.ParseOccasion(occasion)
			if err != nil {
				return err
			}
			v, r, err := readSecret(cmd, cfg, args)
			if err != nil {
				return err
			}
			defer v.Destroy()

			out, err := r.Render(v, occ)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVar(&occasion, "occasion", string(config.OccasionDisplay), "Render occasion: display, debug or log")
	return cmd
}
