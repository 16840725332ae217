package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/awnumar/memguard"

	"github.com/systmms/secretval/cmd/secretval/commands"
	"github.com/systmms/secretval/internal/config"
	sverrors "github.com/systmms/secretval/internal/errors"
	"github.com/systmms/secretval/internal/metrics"
	"github.com/systmms/secretval/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Wipe live secret buffers before memguard exits on a signal.
	memguard.CatchSignal(func(os.Signal) { secure.Purge() }, os.Interrupt, syscall.SIGTERM)
	defer secure.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", sverrors.SimplifyError(err))
		secure.Purge()
		os.Exit(1)
	}
}

func run() error {
	// Values in ./.env apply as environment overrides; real variables win.
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	metrics.Init()

	cfg := &config.Config{}
	flags := &commands.GlobalFlags{}
	rootCmd := commands.NewRootCommand(cfg, flags, fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date))

	err := rootCmd.Execute()
	if flags.MetricsFile != "" {
		if merr := metrics.WriteTextfile(flags.MetricsFile); merr != nil && err == nil {
			err = merr
		}
	}
	return err
}
