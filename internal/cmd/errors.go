// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyFilePath is returned if a file path flag is set to an
	// empty string.
	ErrEmptyFilePath = errors.New("file path must not be empty")

	// ErrNotRegularFile is returned if a configured path does not name a
	// regular file.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrGDBPortInvalid is returned if the gdb port is out of the TCP
	// port range.
	ErrGDBPortInvalid = errors.New("gdb port out of range")

	// ErrReadBuildInfo is returned if build info cannot be read from the
	// binary.
	ErrReadBuildInfo = errors.New("failed to read build info")
)

// ParseArgsError wraps errors that occur during argument parsing.
type ParseArgsError struct {
	err error
	msg string
}

func (e *ParseArgsError) Error() string {
	if e.err == nil {
		return e.msg
	}

	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (e *ParseArgsError) Is(other error) bool {
	_, ok := other.(*ParseArgsError)
	return ok
}

func (e *ParseArgsError) Unwrap() error {
	return e.err
}
