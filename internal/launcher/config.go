// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"time"

	"github.com/enclaverun/enclaverun/internal/initialdata"
)

// DefaultHandshakeTimeout bounds the bootstrap handshake if
// [Config.HandshakeTimeout] is not set. The handshake is all synchronous
// socket IO, without a bound a silently stuck guest monitor would block
// the launcher forever.
const DefaultHandshakeTimeout = 30 * time.Second

// Config defines the parameters for launching a guest instance.
//
// All paths must be validated by the caller before use. The launcher
// treats them as opaque.
type Config struct {
	// Path to the guest monitor binary to execute.
	VMMExecutable string

	// Path to the kernel to load into the guest.
	Kernel string

	// Path to the application binary to be loaded into the guest. If
	// empty, no bootstrap handshake is performed.
	AppBinary string

	// Path to the firmware image the guest boots from.
	Firmware string

	// Path to the initrd image to use.
	Initrd string

	// Memory to give to the guest, e.g. "256M" or "8G". Monitor default
	// if empty.
	MemorySize string

	// GDBPort makes the guest monitor wait for a gdb connection on the
	// given TCP port before booting.
	GDBPort uint16

	// PCIPassthrough passes the host PCI device with the given address
	// through to the guest using VFIO.
	PCIPassthrough string

	// InitialDataVersion selects the bootstrap payload format. Defaults
	// to the legacy raw format [initialdata.V0].
	InitialDataVersion initialdata.Version

	// ExchangeEvidence makes the handshake wait for the guest's
	// attestation evidence after the application was delivered. The
	// evidence bytes are available via [Instance.Evidence] afterwards.
	ExchangeEvidence bool

	// HandshakeTimeout bounds the bootstrap handshake. Defaults to
	// [DefaultHandshakeTimeout].
	HandshakeTimeout time.Duration
}

func (c *Config) handshakeTimeout() time.Duration {
	if c.HandshakeTimeout == 0 {
		return DefaultHandshakeTimeout
	}

	return c.HandshakeTimeout
}
