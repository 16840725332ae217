package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/secretval/internal/config"
	"github.com/systmms/secretval/pkg/secret"
)

type wrapOptions struct {
	template string
	display  bool
	tagged   bool
	proto    bool
}

func (o *wrapOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.display, "display", false, "Print the redacted form instead of the envelope")
	cmd.Flags().BoolVar(&o.tagged, "tagged", false, "Read the value in tagged JSON form")
	cmd.Flags().BoolVar(&o.proto, "proto", false, "Write the envelope as protobuf instead of JSON")
}

func NewWrapCommand(cfg *config.Config) *cobra.Command {
	var opts wrapOptions

	cmd := &cobra.Command{
		Use:   "wrap [VALUE]",
		Short: "Wrap a value as a secret",
		Long: `Wrap a JSON value as a secret and print its data-channel envelope.

The value is read from the argument or from stdin. Plain JSON covers
strings, numbers, booleans, arrays and objects; use --tagged for binary and
date values.

Examples:
  secretval wrap '"hunter2"'
  echo '{"user":"admin","password":"hunter2"}' | secretval wrap
  secretval wrap --display --template '{{replicate(character="*", length=secret_length)}}' '"abc"'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrap(cmd, cfg, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.template, "template", "", "Redaction template for this secret")
	opts.bind(cmd)
	return cmd
}

func NewWrapWithCommand(cfg *config.Config) *cobra.Command {
	var opts wrapOptions

	cmd := &cobra.Command{
		Use:   "wrap-with TEMPLATE [VALUE]",
		Short: "Wrap a value with its own redaction template",
		Long: `Wrap a JSON value as a secret that always renders with TEMPLATE.

The template must pass the configured security policy: its length is
limited by security.max_custom_text_length and secret_string is only
available when redaction.allow_secret_string is set.

Examples:
  secretval wrap-with '<{{secret_type}}:{{secret_length}}>' '"hunter2"'
  secretval wrap-with --display '{{mask_partial(secret_string, left=2)}}' '"hunter2"'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.template = args[0]
			return runWrap(cmd, cfg, args[1:], opts)
		},
	}

	opts.bind(cmd)
	return cmd
}

func runWrap(cmd *cobra.Command, cfg *config.Config, args []string, opts wrapOptions) error {
	r, err := loadRenderer(cfg)
	if err != nil {
		return err
	}
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	payload, err := decodeHost(data, opts.tagged)
	if err != nil {
		return err
	}

	var v *secret.Value
	if opts.template != "" {
		v, err = r.WrapWith(payload, opts.template)
	} else {
		v, err = r.Wrap(payload)
	}
	if err != nil {
		return err
	}
	defer v.Destroy()

	out := cmd.OutOrStdout()
	if opts.display {
		_, err = fmt.Fprintln(out, v)
		return err
	}

	var encoded []byte
	if opts.proto {
		encoded, err = v.MarshalProto()
	} else {
		encoded, err = json.Marshal(v)
		encoded = append(encoded, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to encode secret: %w", err)
	}
	_, err = out.Write(encoded)
	return err
}
