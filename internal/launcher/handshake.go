// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"io"
	"time"

	"github.com/enclaverun/enclaverun/internal/framing"
)

// deadlineConn is the subset of [net.Conn] the handshake needs.
type deadlineConn interface {
	io.ReadWriter
	SetReadDeadline(t time.Time) error
}

// runHandshake delivers the initial-data payload to the guest and, if
// exchangeEvidence is set, receives the attestation evidence frame back.
//
// The handshake requires exclusive access to conn, an interleaved reader
// or writer would corrupt the framing. A read deadline bounds the whole
// exchange so a silently stuck guest monitor cannot block the launcher.
// On success the deadline is removed again so later channel users are
// unaffected. Timeouts satisfy errors.Is(err, os.ErrDeadlineExceeded).
func runHandshake(
	conn deadlineConn,
	payload []byte,
	exchangeEvidence bool,
	timeout time.Duration,
) ([]byte, error) {
	err := conn.SetReadDeadline(time.Now().Add(timeout))
	if err != nil {
		return nil, &HandshakeError{Step: "set deadline", Err: err}
	}

	err = framing.Send(conn, payload)
	if err != nil {
		return nil, &HandshakeError{Step: "send initial data", Err: err}
	}

	var evidence []byte

	if exchangeEvidence {
		evidence, err = framing.Receive(conn)
		if err != nil {
			return nil, &HandshakeError{Step: "receive evidence", Err: err}
		}
	}

	err = conn.SetReadDeadline(time.Time{})
	if err != nil {
		return nil, &HandshakeError{Step: "clear deadline", Err: err}
	}

	return evidence, nil
}
