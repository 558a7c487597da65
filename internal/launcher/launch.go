// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/enclaverun/enclaverun/internal/connector"
)

// Launch starts a guest instance and wires it up completely: the guest
// console is forwarded into the log and the comms channel is handed to a
// connector bridge.
//
// The returned handle owns its channel duplicate exclusively. Callers
// wanting raw channel access can still duplicate via
// [GuestInstance.Connect], but must coordinate reads themselves.
func Launch(
	ctx context.Context,
	cfg Config,
) (GuestInstance, *connector.Handle, error) {
	// Two linked consoles. Technically both ends can read and write, but
	// they are used as a one way channel: the guest writes, the host
	// side forwarder reads.
	consoleRead, consoleWrite, err := socketPair()
	if err != nil {
		return nil, nil, fmt.Errorf("create console socket pair: %w", err)
	}

	slog.Info("Launching guest instance")

	inst, err := Start(ctx, cfg, consoleWrite)
	if err != nil {
		_ = consoleRead.Close()
		_ = consoleWrite.Close()

		return nil, nil, err
	}

	logger := slog.With(slog.String("guest", inst.ID()))

	go func() {
		defer consoleRead.Close()
		ForwardConsole(consoleRead, logger)
	}()

	channel, err := inst.Connect()
	if err != nil {
		_, _ = inst.Kill(ctx)
		return nil, nil, err
	}

	return inst, connector.Spawn(channel), nil
}
