package commands

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/systmms/secretval/internal/config"
	sverrors "github.com/systmms/secretval/internal/errors"
	"github.com/systmms/secretval/internal/hostval"
	"github.com/systmms/secretval/pkg/secret"
)

// maxInput bounds what a command reads from stdin.
const maxInput = 16 << 20

// readInput returns args[0] when given, stdin otherwise. Stdin is passed
// through untrimmed since it may carry a protobuf envelope.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 0 {
		return []byte(args[0]), nil
	}
	data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxInput))
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, sverrors.UserError{
			Message:    "No input",
			Suggestion: "Pass the value as an argument or pipe it on stdin",
		}
	}
	return data, nil
}

// decodeHost parses a host value from plain or tagged JSON.
func decodeHost(data []byte, tagged bool) (any, error) {
	var (
		v   any
		err error
	)
	if tagged {
		v, err = hostval.DecodeJSON(data)
	} else {
		v, err = hostval.DecodePlainJSON(data)
	}
	if err != nil {
		return nil, sverrors.UserError{
			Message:    "Input is not a valid JSON value",
			Details:    err.Error(),
			Suggestion: `Quote strings ("s3cr3t"); use --tagged for binary and date values`,
			Err:        err,
		}
	}
	return v, nil
}

// encodeHost is the inverse of decodeHost.
func encodeHost(v any, tagged bool) ([]byte, error) {
	if tagged {
		return hostval.EncodeJSON(v)
	}
	return hostval.EncodePlainJSON(v)
}

// loadRenderer loads the configuration and returns a renderer bound to it.
func loadRenderer(cfg *config.Config) (*secret.Renderer, error) {
	m, err := cfg.Load()
	if err != nil {
		return nil, err
	}
	return secret.NewRenderer(m, cfg.Logger), nil
}

// readSecret decodes a data-channel envelope from the command input.
func readSecret(cmd *cobra.Command, cfg *config.Config, args []string) (*secret.Value, *secret.Renderer, error) {
	r, err := loadRenderer(cfg)
	if err != nil {
		return nil, nil, err
	}
	data, err := readInput(cmd, args)
	if err != nil {
		return nil, nil, err
	}
	v, err := r.Decode(data)
	if err != nil {
		return nil, nil, sverrors.UserError{
			Message:    "Input is not a secret",
			Details:    err.Error(),
			Suggestion: "Produce the input with 'secretval wrap'",
			Err:        err,
		}
	}
	return v, r, nil
}
