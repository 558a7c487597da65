// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package initialdata

import (
	"bytes"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// v1Header is the magic constant identifying a V1 initial-data payload.
// The value must match the one compiled into the guest image.
var v1Header = []byte{'I', 'D', 'V', '1'}

// Envelope field numbers on the wire.
const (
	fieldApplication  = 1
	fieldEndorsements = 2
)

// Envelope is the structured V1 initial-data payload.
type Envelope struct {
	// ApplicationBytes is the application binary loaded into the guest.
	ApplicationBytes []byte
	// EndorsementBytes are optional endorsements for the application.
	// They are empty in the launch flow, endorsements are supplied
	// through a different path.
	EndorsementBytes []byte
}

// Build creates the initial-data payload for the given version.
//
// For [V0] the payload is exactly the application bytes. For [V1] it is
// the magic header followed by the serialized [Envelope] without
// endorsements.
func Build(version Version, application []byte) ([]byte, error) {
	switch version {
	case V0:
		return application, nil
	case V1:
		envelope := Envelope{ApplicationBytes: application}
		return envelope.encode(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrVersionUnknown, version)
	}
}

// encode serializes the envelope prefixed with the magic header. Empty
// fields are omitted, like the guest's decoder expects.
func (e *Envelope) encode() []byte {
	buf := bytes.Clone(v1Header)

	if len(e.ApplicationBytes) > 0 {
		buf = protowire.AppendTag(buf, fieldApplication, protowire.BytesType)
		buf = protowire.AppendBytes(buf, e.ApplicationBytes)
	}

	if len(e.EndorsementBytes) > 0 {
		buf = protowire.AppendTag(buf, fieldEndorsements, protowire.BytesType)
		buf = protowire.AppendBytes(buf, e.EndorsementBytes)
	}

	return buf
}

// Parse decodes a V1 initial-data payload.
//
// It fails with [ErrHeaderMissing] if the payload does not start with the
// magic header and with [ErrEnvelopeMalformed] if the remainder is not a
// valid envelope. Unknown fields are skipped.
func Parse(data []byte) (*Envelope, error) {
	body, found := bytes.CutPrefix(data, v1Header)
	if !found {
		return nil, ErrHeaderMissing
	}

	envelope := &Envelope{
		ApplicationBytes: []byte{},
		EndorsementBytes: []byte{},
	}

	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return nil, wrapParseError(protowire.ParseError(n))
		}

		body = body[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return nil, wrapParseError(protowire.ParseError(n))
			}

			body = body[n:]

			continue
		}

		value, n := protowire.ConsumeBytes(body)
		if n < 0 {
			return nil, wrapParseError(protowire.ParseError(n))
		}

		body = body[n:]

		switch num {
		case fieldApplication:
			envelope.ApplicationBytes = bytes.Clone(value)
		case fieldEndorsements:
			envelope.EndorsementBytes = bytes.Clone(value)
		}
	}

	return envelope, nil
}

func wrapParseError(err error) error {
	return fmt.Errorf("%w: %w", ErrEnvelopeMalformed, err)
}
