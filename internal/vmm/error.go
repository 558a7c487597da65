// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package vmm

import "errors"

// ErrArgumentCollision is returned if two [Argument]s are considered equal.
var ErrArgumentCollision = errors.New("colliding args")

// SpecError indicates an issue with a [CommandSpec] field.
type SpecError struct {
	msg string
}

// Error implements the [error] interface.
func (e *SpecError) Error() string {
	return "command spec: " + e.msg
}

// Is implements the [errors.Is] interface.
func (*SpecError) Is(other error) bool {
	_, ok := other.(*SpecError)
	return ok
}
