// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/enclaverun/enclaverun/internal/initialdata"
	"github.com/enclaverun/enclaverun/internal/launcher"
)

type flags struct {
	vmmBinary          FilePath
	kernel             FilePath
	appBinary          FilePath
	firmware           FilePath
	initrd             FilePath
	memory             string
	gdbPort            uint
	pciPassthrough     string
	initialDataVersion initialdata.Version
	exchangeEvidence   bool
	handshakeTimeout   time.Duration
	debug              bool
	version            bool
}

func newFlags() *flags {
	return &flags{
		handshakeTimeout: launcher.DefaultHandshakeTimeout,
	}
}

func (f *flags) newFlagSet(name string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name+" [flags...]", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.Var(
		&f.vmmBinary,
		"vmm",
		"path to the guest monitor binary to execute",
	)

	fs.Var(
		&f.kernel,
		"kernel",
		"path to the kernel to load into the guest",
	)

	fs.Var(
		&f.appBinary,
		"app",
		"path to the application binary to load into the guest",
	)

	fs.Var(
		&f.firmware,
		"firmware",
		"path to the firmware image the guest boots from",
	)

	fs.Var(
		&f.initrd,
		"initrd",
		"path to the initrd image to use",
	)

	fs.StringVar(
		&f.memory,
		"memory",
		f.memory,
		"memory for the guest, e.g. 256M or 8G",
	)

	fs.UintVar(
		&f.gdbPort,
		"gdb",
		f.gdbPort,
		"TCP port to wait on for a gdb connection before booting",
	)

	fs.StringVar(
		&f.pciPassthrough,
		"pci-passthrough",
		f.pciPassthrough,
		"host PCI device address to pass through using VFIO",
	)

	fs.TextVar(
		&f.initialDataVersion,
		"initial-data-version",
		f.initialDataVersion,
		"initial data format: v0, v1",
	)

	fs.BoolVar(
		&f.exchangeEvidence,
		"exchange-evidence",
		f.exchangeEvidence,
		"await attestation evidence after delivering the application",
	)

	fs.DurationVar(
		&f.handshakeTimeout,
		"handshake-timeout",
		f.handshakeTimeout,
		"bound for the bootstrap handshake",
	)

	fs.BoolVar(
		&f.debug,
		"debug",
		f.debug,
		"enable debug output",
	)

	fs.BoolVar(
		&f.version,
		"version",
		f.version,
		"show version and exit",
	)

	return fs
}

// parseArgs parses the command line, seeded with defaults from the local
// config file.
func parseArgs(
	args []string,
	defaults *fileConfig,
	output io.Writer,
) (*flags, error) {
	flags := newFlags()

	err := defaults.apply(flags)
	if err != nil {
		return nil, &ParseArgsError{msg: "config defaults", err: err}
	}

	fs := flags.newFlagSet(args[0], output)

	err = fs.Parse(args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}

		return nil, &ParseArgsError{msg: "parse args", err: err}
	}

	return flags, nil
}

// validate checks the required paths and value ranges. Path existence is
// checked here once, the launcher itself treats the config as opaque.
func (f *flags) validate() error {
	required := map[string]FilePath{
		"vmm":      f.vmmBinary,
		"kernel":   f.kernel,
		"firmware": f.firmware,
		"initrd":   f.initrd,
	}

	for name, path := range required {
		if path == "" {
			return &ParseArgsError{msg: "flag -" + name + " is required"}
		}
	}

	optional := map[string]FilePath{
		"app": f.appBinary,
	}

	for name, path := range required {
		optional[name] = path
	}

	for name, path := range optional {
		if path == "" {
			continue
		}

		err := ValidateFilePath(string(path))
		if err != nil {
			return &ParseArgsError{
				msg: fmt.Sprintf("flag -%s: %s", name, path),
				err: err,
			}
		}
	}

	if f.gdbPort > math.MaxUint16 {
		return &ParseArgsError{
			msg: fmt.Sprintf("flag -gdb: %d", f.gdbPort),
			err: ErrGDBPortInvalid,
		}
	}

	return nil
}

// launcherConfig compiles the launcher configuration from the flags.
func (f *flags) launcherConfig() launcher.Config {
	return launcher.Config{
		VMMExecutable:      string(f.vmmBinary),
		Kernel:             string(f.kernel),
		AppBinary:          string(f.appBinary),
		Firmware:           string(f.firmware),
		Initrd:             string(f.initrd),
		MemorySize:         f.memory,
		GDBPort:            uint16(f.gdbPort),
		PCIPassthrough:     f.pciPassthrough,
		InitialDataVersion: f.initialDataVersion,
		ExchangeEvidence:   f.exchangeEvidence,
		HandshakeTimeout:   f.handshakeTimeout,
	}
}
