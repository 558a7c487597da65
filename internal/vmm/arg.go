// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package vmm

import (
	"fmt"
	"slices"
	"strings"
)

// Argument is a single guest monitor argument with an optional value.
//
// An argument is either unique, allowed once per invocation regardless of
// its value, or repeatable, allowed multiple times as long as the values
// differ.
type Argument struct {
	name       string
	value      string
	repeatable bool
}

// UniqueArg returns a unique [Argument]. Multiple values are joined with
// "," like the monitor's option parser expects.
func UniqueArg(name string, value ...string) Argument {
	return Argument{
		name:  name,
		value: strings.Join(value, ","),
	}
}

// RepeatableArg returns a repeatable [Argument].
func RepeatableArg(name string, value ...string) Argument {
	return Argument{
		name:       name,
		value:      strings.Join(value, ","),
		repeatable: true,
	}
}

// String implements [fmt.Stringer].
func (a Argument) String() string {
	s := "-" + a.name
	if a.value != "" {
		s += " " + a.value
	}

	return s
}

// collidesWith reports whether the two arguments cannot appear in the
// same invocation. Repeatable arguments collide only on equal values, any
// other same-name pairing collides outright.
func (a Argument) collidesWith(other Argument) bool {
	if a.name != other.name {
		return false
	}

	if a.repeatable && other.repeatable {
		return a.value == other.value
	}

	return true
}

// Arguments is a guest monitor argument list.
type Arguments []Argument

// Build compiles the list into the strings handed to [os/exec.Command].
//
// It fails with [ErrArgumentCollision] if the list violates an argument's
// uniqueness constraint.
func (args Arguments) Build() ([]string, error) {
	argStrings := make([]string, 0, 2*len(args))

	for idx, arg := range args {
		if i := slices.IndexFunc(args[:idx], arg.collidesWith); i != -1 {
			return nil, fmt.Errorf(
				"%w: %s, %s",
				ErrArgumentCollision,
				arg.String(),
				args[i].String(),
			)
		}

		argStrings = append(argStrings, "-"+arg.name)

		if arg.value != "" {
			argStrings = append(argStrings, arg.value)
		}
	}

	return argStrings, nil
}
