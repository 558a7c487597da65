// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

// Package cmd implements the enclaverun command line interface.
//
// It parses flags, optionally seeded with defaults from a local config
// file, validates the configured file paths and runs a guest instance
// until it terminates, propagating the guest monitor's exit code.
package cmd
