// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package initialdata_test

import (
	"bytes"
	"testing"

	"github.com/enclaverun/enclaverun/internal/initialdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildV0(t *testing.T) {
	tests := []struct {
		name        string
		application []byte
	}{
		{
			name: "empty",
		},
		{
			name:        "plain",
			application: []byte("some application binary"),
		},
		{
			name:        "looks like a header",
			application: []byte("IDV1 but actually raw"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := initialdata.Build(initialdata.V0, tt.application)
			require.NoError(t, err)

			assert.True(t, bytes.Equal(tt.application, payload),
				"V0 payload must be the unmodified application bytes")
		})
	}
}

func TestBuildV1(t *testing.T) {
	application := []byte("ELF\x7fsome application binary")

	payload, err := initialdata.Build(initialdata.V1, application)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(payload, []byte("IDV1")),
		"V1 payload must start with the magic header")

	envelope, err := initialdata.Parse(payload)
	require.NoError(t, err)

	assert.Equal(t, application, envelope.ApplicationBytes)
	assert.Empty(t, envelope.EndorsementBytes)
}

func TestBuildVersionUnknown(t *testing.T) {
	_, err := initialdata.Build(initialdata.Version(42), []byte("app"))
	assert.ErrorIs(t, err, initialdata.ErrVersionUnknown)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		expectedErr error
	}{
		{
			name:        "empty",
			expectedErr: initialdata.ErrHeaderMissing,
		},
		{
			name:        "no header",
			input:       []byte("raw bytes"),
			expectedErr: initialdata.ErrHeaderMissing,
		},
		{
			name:        "truncated body",
			input:       []byte{'I', 'D', 'V', '1', 0x0a, 0xff},
			expectedErr: initialdata.ErrEnvelopeMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := initialdata.Parse(tt.input)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestParseSkipsUnknownFields(t *testing.T) {
	// Field 3 (varint 7) precedes the application field.
	input := []byte{
		'I', 'D', 'V', '1',
		0x18, 0x07,
		0x0a, 0x03, 'a', 'p', 'p',
	}

	envelope, err := initialdata.Parse(input)
	require.NoError(t, err)
	assert.Equal(t, []byte("app"), envelope.ApplicationBytes)
}

func TestVersionText(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    initialdata.Version
		expectedErr error
	}{
		{
			name:     "v0",
			input:    "v0",
			expected: initialdata.V0,
		},
		{
			name:     "v1",
			input:    "v1",
			expected: initialdata.V1,
		},
		{
			name:     "upper case",
			input:    "V1",
			expected: initialdata.V1,
		},
		{
			name:        "unknown",
			input:       "v2",
			expectedErr: initialdata.ErrVersionUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var version initialdata.Version

			err := version.UnmarshalText([]byte(tt.input))
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, version)
		})
	}
}

func TestVersionDefault(t *testing.T) {
	var version initialdata.Version
	assert.Equal(t, initialdata.V0, version, "default version must be V0")
}
