// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package launcher

import "errors"

// ErrNotUnixSocket is returned if a descriptor expected to be a unix
// stream socket turns out to be something else.
var ErrNotUnixSocket = errors.New("not a unix stream socket")

// StartError wraps errors spawning the guest monitor process. No partial
// instance exists when it is returned.
type StartError struct {
	Err error
}

// Error implements the [error] interface.
func (e *StartError) Error() string {
	return "start guest monitor: " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*StartError) Is(other error) bool {
	_, ok := other.(*StartError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *StartError) Unwrap() error {
	return e.Err
}

// HandshakeError wraps errors during the bootstrap handshake. The guest
// was torn down when it is returned, no half-initialized instance leaks
// to the caller. Timeouts satisfy errors.Is(err, os.ErrDeadlineExceeded).
type HandshakeError struct {
	Step string
	Err  error
}

// Error implements the [error] interface.
func (e *HandshakeError) Error() string {
	return "bootstrap handshake: " + e.Step + ": " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*HandshakeError) Is(other error) bool {
	_, ok := other.(*HandshakeError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *HandshakeError) Unwrap() error {
	return e.Err
}
