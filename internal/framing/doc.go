// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

// Package framing implements the length-prefixed message format spoken on
// the guest communication channel.
//
// One framed message is a fixed-width length prefix followed by exactly
// that many payload bytes. The prefix width and byte order are dictated by
// the channel implementation compiled into the guest image and must not be
// changed independently.
package framing
