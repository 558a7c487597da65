// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package connector

import "errors"

// ErrHandleClosed is returned for operations on a closed [Handle].
var ErrHandleClosed = errors.New("connector handle closed")
