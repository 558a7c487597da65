// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package initialdata

import "fmt"

const (
	// V0 is the legacy format, sending the raw application binary.
	V0 Version = iota
	// V1 wraps the application binary in a header-tagged [Envelope].
	V1
)

// Version selects the initial-data wire format. The zero value is [V0].
type Version int

// String implements [fmt.Stringer].
func (v Version) String() string {
	switch v {
	case V0:
		return "v0"
	case V1:
		return "v1"
	default:
		return fmt.Sprintf("unknown (%d)", int(v))
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (v Version) MarshalText() ([]byte, error) {
	switch v {
	case V0, V1:
		return []byte(v.String()), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrVersionUnknown, v)
	}
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (v *Version) UnmarshalText(text []byte) error {
	switch string(text) {
	case "v0", "V0":
		*v = V0
	case "v1", "V1":
		*v = V1
	default:
		return fmt.Errorf("%w: %s", ErrVersionUnknown, text)
	}

	return nil
}
