// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"bufio"
	"io"
	"log/slog"
)

// ForwardConsole drains the guest console stream line by line into the
// given logger and blocks until the stream ends.
//
// The guest closing its end is normal shutdown and ends forwarding
// quietly. Errors are swallowed as well: console forwarding is fire and
// forget and must never interfere with guest execution.
func ForwardConsole(console io.Reader, logger *slog.Logger) {
	scanner := bufio.NewScanner(console)
	for scanner.Scan() {
		logger.Info("Guest console", slog.String("line", scanner.Text()))
	}

	_ = scanner.Err()
}
