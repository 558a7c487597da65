// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

// Package vmm compiles the command line for the guest monitor process.
//
// The guest monitor is a QEMU style VMM that boots the confidential guest
// from firmware, kernel and initrd and connects two host provided sockets:
// one as serial console and one as the virtio comms port used for the
// bootstrap handshake and all later traffic. Both sockets are referenced
// by the file descriptor numbers they are inherited under.
package vmm
