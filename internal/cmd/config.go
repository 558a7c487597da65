// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// localConfigFile is looked up in the working directory and provides
// defaults for the corresponding flags. Flags given on the command line
// take precedence.
const localConfigFile = ".enclaverun.toml"

// fileConfig is the local config file key mapping.
type fileConfig struct {
	VMM                string `toml:"vmm"`
	Kernel             string `toml:"kernel"`
	AppBinary          string `toml:"app_binary"`
	Firmware           string `toml:"firmware"`
	Initrd             string `toml:"initrd"`
	Memory             string `toml:"memory"`
	GDBPort            uint   `toml:"gdb_port"`
	PCIPassthrough     string `toml:"pci_passthrough"`
	InitialDataVersion string `toml:"initial_data_version"`
	ExchangeEvidence   bool   `toml:"exchange_evidence"`
	HandshakeTimeout   string `toml:"handshake_timeout"`
	Debug              bool   `toml:"debug"`
}

// loadLocalConfig reads the local config file. A missing file is not an
// error, it just yields empty defaults.
func loadLocalConfig(fsys fs.FS, name string) (*fileConfig, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &fileConfig{}, nil
		}

		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig

	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", name, err)
	}

	return &cfg, nil
}

// apply seeds the flag defaults with the file values.
func (c *fileConfig) apply(flags *flags) error {
	for flagValue, fileValue := range map[*FilePath]string{
		&flags.vmmBinary: c.VMM,
		&flags.kernel:    c.Kernel,
		&flags.appBinary: c.AppBinary,
		&flags.firmware:  c.Firmware,
		&flags.initrd:    c.Initrd,
	} {
		if fileValue == "" {
			continue
		}

		err := flagValue.Set(fileValue)
		if err != nil {
			return fmt.Errorf("config file: %w", err)
		}
	}

	if c.Memory != "" {
		flags.memory = c.Memory
	}

	if c.GDBPort != 0 {
		flags.gdbPort = c.GDBPort
	}

	if c.PCIPassthrough != "" {
		flags.pciPassthrough = c.PCIPassthrough
	}

	if c.InitialDataVersion != "" {
		err := flags.initialDataVersion.UnmarshalText(
			[]byte(c.InitialDataVersion),
		)
		if err != nil {
			return fmt.Errorf("config file: %w", err)
		}
	}

	if c.ExchangeEvidence {
		flags.exchangeEvidence = true
	}

	if c.HandshakeTimeout != "" {
		timeout, err := time.ParseDuration(c.HandshakeTimeout)
		if err != nil {
			return fmt.Errorf("config file: handshake timeout: %w", err)
		}

		flags.handshakeTimeout = timeout
	}

	if c.Debug {
		flags.debug = true
	}

	return nil
}
