// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

// Package initialdata builds the bootstrap payload that is sent to the
// guest right after it booted.
//
// Two wire versions exist. V0 is the legacy format: the raw application
// binary without any wrapping. V1 prefixes a magic header and wraps the
// application in an envelope that has room for endorsement bytes. The
// version to use is dictated by the guest image.
package initialdata
