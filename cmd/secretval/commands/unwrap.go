package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/secretval/internal/config"
)

func NewUnwrapCommand(cfg *config.Config) *cobra.Command {
	var tagged bool

	cmd := &cobra.Command{
		Use:   "unwrap [ENVELOPE]",
		Short: "Reveal a wrapped secret",
		Long: `Reveal the value inside a secret envelope and print it as JSON.

Every reveal is recorded on the audit channel (stderr). The audit line
names the kind of the secret, never its content.

Examples:
  secretval wrap '"hunter2"' | secretval unwrap
  secretval unwrap --tagged < secret.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, r, err := readSecret(cmd, cfg, args)
			if err != nil {
				return err
			}
			defer v.Destroy()

			payload, err := r.Reveal(v)
			if err != nil {
				return err
			}
			data, err := encodeHost(payload, tagged)
			if err != nil {
				return fmt.Errorf("failed to encode value: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().BoolVar(&tagged, "tagged", false, "Print the value in tagged JSON form")
	return cmd
}
