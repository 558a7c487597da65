// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// lengthPrefixSize is the width of the length prefix in bytes. The prefix
// encodes the payload length as an unsigned integer in little endian byte
// order, matching the guest image's channel implementation.
const lengthPrefixSize = 4

// DefaultMaxPayloadSize is the receive-side payload size limit used by the
// zero value [Codec].
const DefaultMaxPayloadSize = 16 << 20

var byteOrder = binary.LittleEndian

// Codec reads and writes framed messages on a duplex byte stream.
//
// The zero value is ready to use and limits received payloads to
// [DefaultMaxPayloadSize] bytes.
type Codec struct {
	// MaxPayloadSize limits the declared payload length accepted by
	// [Codec.Receive]. If zero, [DefaultMaxPayloadSize] applies.
	MaxPayloadSize uint32
}

func (c Codec) maxPayloadSize() uint32 {
	if c.MaxPayloadSize == 0 {
		return DefaultMaxPayloadSize
	}

	return c.MaxPayloadSize
}

// Send writes payload as a single framed message.
//
// Prefix and payload are written with a single call to the writer, so
// messages are not interleaved as long as no other sender writes to the
// same stream concurrently.
func (c Codec) Send(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf(
			"%w: %d bytes do not fit the length prefix",
			ErrPayloadTooLarge,
			len(payload),
		)
	}

	msg := make([]byte, lengthPrefixSize+len(payload))
	byteOrder.PutUint32(msg, uint32(len(payload)))
	copy(msg[lengthPrefixSize:], payload)

	_, err := w.Write(msg)
	if err != nil {
		return fmt.Errorf("write message: %w", translateClosed(err))
	}

	return nil
}

// Receive reads exactly one framed message and returns its payload.
//
// A declared length above the codec's limit fails with
// [ErrPayloadTooLarge] before any payload byte is read. A stream that
// closes before the prefix is complete fails with [ErrConnectionClosed].
func (c Codec) Receive(r io.Reader) ([]byte, error) {
	var prefix [lengthPrefixSize]byte

	_, err := io.ReadFull(r, prefix[:])
	if err != nil {
		return nil, fmt.Errorf("read length prefix: %w", translateClosed(err))
	}

	length := byteOrder.Uint32(prefix[:])
	if length > c.maxPayloadSize() {
		return nil, fmt.Errorf(
			"%w: %d bytes declared, limit is %d",
			ErrPayloadTooLarge,
			length,
			c.maxPayloadSize(),
		)
	}

	payload := make([]byte, length)

	_, err = io.ReadFull(r, payload)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", translateClosed(err))
	}

	return payload, nil
}

// Send writes payload as a single framed message using the default codec.
func Send(w io.Writer, payload []byte) error {
	return Codec{}.Send(w, payload)
}

// Receive reads one framed message using the default codec.
func Receive(r io.Reader) ([]byte, error) {
	return Codec{}.Receive(r)
}

func translateClosed(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}

	return err
}
