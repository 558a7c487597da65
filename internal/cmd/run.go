// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/enclaverun/enclaverun/internal/launcher"
)

// killTimeout bounds the forced teardown once the run context is
// canceled.
const killTimeout = 10 * time.Second

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// loadFlags parses the command line with defaults merged in from the
// local config file.
func loadFlags(args []string, cfg IO) (*flags, error) {
	defaults, err := loadLocalConfig(os.DirFS("."), localConfigFile)
	if err != nil {
		return nil, err
	}

	flags, err := parseArgs(args, defaults, cfg.Stderr)
	if err != nil {
		return nil, err
	}

	return flags, nil
}

func run(ctx context.Context, flags *flags, cfg IO) (int, error) {
	err := flags.validate()
	if err != nil {
		return -1, err
	}

	inst, handle, err := launcher.Launch(ctx, flags.launcherConfig())
	if err != nil {
		return -1, fmt.Errorf("launch: %w", err)
	}

	defer handle.Close()

	if flags.exchangeEvidence {
		slog.Debug("Received attestation evidence",
			slog.String("guest", inst.ID()),
			slog.Int("bytes", len(inst.Evidence())))
	}

	state, err := inst.Wait(ctx)
	if err != nil {
		// The run context is gone, so tear down on a fresh one.
		killCtx, cancel := context.WithTimeout(
			context.Background(),
			killTimeout,
		)
		defer cancel()

		_, killErr := inst.Kill(killCtx)
		if killErr != nil {
			slog.Error("Failed to kill guest instance",
				slog.String("guest", inst.ID()),
				slog.Any("error", killErr))
		}

		return -1, fmt.Errorf("wait for guest monitor: %w", err)
	}

	slog.Info("Guest monitor terminated",
		slog.String("guest", inst.ID()),
		slog.Int("exitcode", state.ExitCode()))

	return state.ExitCode(), nil
}

func handleParseArgsError(err error) int {
	// [flag.ErrHelp] is returned when help is requested. So exit without
	// error in this case.
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}

	slog.Error(err.Error())

	return -1
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, args []string, cfg IO) int {
	setupLogging(cfg.Stderr, false)

	flags, err := loadFlags(args, cfg)
	if err != nil {
		return handleParseArgsError(err)
	}

	setupLogging(cfg.Stderr, flags.debug)

	if flags.version {
		buildInfo, err := getBuildInfo()
		if err != nil {
			slog.Error(err.Error())
			return -1
		}

		fmt.Fprintf(cfg.Stdout, "Version: %s\n", buildInfo.Main.Version)

		return 0
	}

	exitCode, err := run(ctx, flags, cfg)
	if err != nil {
		slog.Error(err.Error())
	}

	return exitCode
}

func getBuildInfo() (*debug.BuildInfo, error) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, ErrReadBuildInfo
	}

	return buildInfo, nil
}
