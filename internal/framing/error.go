// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package framing

import "errors"

var (
	// ErrPayloadTooLarge is returned if a message declares a payload length
	// beyond the codec's limit. Receiving fails before the payload is read
	// so a misbehaving peer cannot force unbounded allocations.
	ErrPayloadTooLarge = errors.New("payload length exceeds limit")

	// ErrConnectionClosed is returned if the peer closed the stream before
	// a complete message was transferred.
	ErrConnectionClosed = errors.New("connection closed")
)
