// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package initialdata

import "errors"

var (
	// ErrVersionUnknown is returned for initial-data versions this
	// launcher does not speak.
	ErrVersionUnknown = errors.New("unknown initial data version")

	// ErrHeaderMissing is returned if a V1 payload does not start with the
	// magic header.
	ErrHeaderMissing = errors.New("initial data header missing")

	// ErrEnvelopeMalformed is returned if a V1 envelope cannot be decoded.
	ErrEnvelopeMalformed = errors.New("malformed initial data envelope")
)
