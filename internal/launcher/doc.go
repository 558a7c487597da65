// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

// Package launcher manages the lifecycle of confidential guest instances.
//
// [Start] spawns the guest monitor process with two inherited sockets, a
// serial console and a comms channel, and performs the one-time bootstrap
// handshake that delivers the application binary into the guest. The
// returned [Instance] exposes wait, kill and channel duplication. An
// instance that goes out of scope without an explicit kill takes its
// guest monitor process down with it.
//
// [Launch] is the composed entry point: it additionally forwards the
// guest console into the log and bridges the comms channel with a
// connector handle for higher-level transport consumers.
package launcher
