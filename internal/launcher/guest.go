// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"context"
	"io"
	"os"
)

// Channel is a duplex byte stream into a guest.
type Channel interface {
	io.Reader
	io.Writer
	io.Closer
}

// GuestInstance is a launched guest. It standardizes the interface of
// different backends, e.g. a guest running in a VM or a guest running
// directly as a host process. Callers hold only this interface.
type GuestInstance interface {
	// Wait blocks until the guest monitor process terminates. Safe to
	// call repeatedly once terminated, the terminal status is cached.
	Wait(ctx context.Context) (*os.ProcessState, error)

	// Kill tears the guest down: it shuts down the console socket,
	// forcefully terminates the monitor process and awaits its exit.
	// Killing an already exited guest is not an error.
	Kill(ctx context.Context) (*os.ProcessState, error)

	// Connect returns a new independent handle onto the comms channel.
	// All handles refer to the same underlying stream, so only one
	// reader must be active at a time.
	Connect() (Channel, error)

	// ID identifies the guest, e.g. for tagging its log output.
	ID() string

	// Evidence returns the attestation evidence received during the
	// bootstrap handshake, or nil if evidence exchange was disabled.
	Evidence() []byte
}
