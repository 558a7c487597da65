// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enclaverun/enclaverun/internal/initialdata"
	"github.com/enclaverun/enclaverun/internal/vmm"
)

// Inherited descriptor numbers in the guest monitor process. Determined
// by the position in [os/exec.Cmd.ExtraFiles].
const (
	consoleFD = 3
	commsFD   = 4
)

// teardownTimeout bounds reaping a guest monitor that is torn down after
// a failed start. The process was already killed at that point, so this
// should never be hit.
const teardownTimeout = 10 * time.Second

// Instance is a guest running in a virtualized environment, together with
// its host side resources: the retained console socket, the comms socket
// and the guest monitor process.
type Instance struct {
	id       uuid.UUID
	console  *net.UnixConn
	comms    *net.UnixConn
	proc     *process
	cleanup  runtime.Cleanup
	killOnce sync.Once
	killErr  error
	evidence []byte
}

var _ GuestInstance = (*Instance)(nil)

// Start spawns the guest monitor for the given config and performs the
// bootstrap handshake if an application binary is configured.
//
// The console socket is duplicated: one copy is inherited by the monitor
// process, the caller-owned original is retained for shutdown signalling
// on [Instance.Kill]. The context bounds the lifetime of the monitor
// process, cancelling it kills the guest.
//
// The returned instance kills its guest monitor automatically when it is
// garbage collected without an explicit kill, so hold onto it for as long
// as the guest should keep running.
func Start(
	ctx context.Context,
	cfg Config,
	console *net.UnixConn,
) (*Instance, error) {
	var appBytes []byte

	if cfg.AppBinary != "" {
		var err error

		appBytes, err = os.ReadFile(cfg.AppBinary)
		if err != nil {
			return nil, fmt.Errorf("read application binary: %w", err)
		}

		slog.Info("Read application binary from disk",
			slog.String("path", cfg.AppBinary),
			slog.Int("bytes", len(appBytes)))
	}

	guestComms, hostComms, err := socketPair()
	if err != nil {
		return nil, fmt.Errorf("create comms socket pair: %w", err)
	}

	// Extract inheritable duplicates for the child process. The parent
	// copies are closed again right after spawning.
	commsFile, err := guestComms.File()

	_ = guestComms.Close()

	if err != nil {
		_ = hostComms.Close()
		return nil, fmt.Errorf("duplicate comms socket: %w", err)
	}

	consoleFile, err := console.File()
	if err != nil {
		_ = commsFile.Close()
		_ = hostComms.Close()

		return nil, fmt.Errorf("duplicate console socket: %w", err)
	}

	closeSpawnFiles := func() {
		_ = consoleFile.Close()
		_ = commsFile.Close()
	}

	spec := vmm.CommandSpec{
		Executable:     cfg.VMMExecutable,
		Kernel:         cfg.Kernel,
		Firmware:       cfg.Firmware,
		Initrd:         cfg.Initrd,
		Memory:         cfg.MemorySize,
		GDBPort:        cfg.GDBPort,
		PCIPassthrough: cfg.PCIPassthrough,
		ConsoleFD:      consoleFD,
		CommsFD:        commsFD,
	}

	args, err := spec.BuildArgs()
	if err != nil {
		closeSpawnFiles()
		_ = hostComms.Close()

		return nil, fmt.Errorf("build monitor args: %w", err)
	}

	cmd := exec.CommandContext(ctx, cfg.VMMExecutable, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{consoleFile, commsFile}

	slog.Debug("Starting guest monitor", slog.String("command", cmd.String()))

	err = cmd.Start()

	// The child has its own duplicates now (or was never created), the
	// parent copies are not needed in either case.
	closeSpawnFiles()

	if err != nil {
		_ = hostComms.Close()
		return nil, &StartError{Err: err}
	}

	proc := &process{cmd: cmd, done: make(chan struct{})}
	go proc.reap()

	inst := &Instance{
		id:      uuid.New(),
		console: console,
		comms:   hostComms,
		proc:    proc,
	}

	// Safety net against orphaned guest monitors: an instance that is
	// dropped without Kill takes its process down on garbage collection.
	// Kill disarms this via [runtime.Cleanup.Stop].
	inst.cleanup = runtime.AddCleanup(inst, killAbandoned, cmd.Process)

	if cfg.AppBinary != "" {
		payload, err := initialdata.Build(cfg.InitialDataVersion, appBytes)
		if err != nil {
			inst.teardown()
			return nil, fmt.Errorf("build initial data: %w", err)
		}

		evidence, err := runHandshake(
			hostComms,
			payload,
			cfg.ExchangeEvidence,
			cfg.handshakeTimeout(),
		)
		if err != nil {
			inst.teardown()
			return nil, err
		}

		inst.evidence = evidence

		if cfg.ExchangeEvidence {
			slog.Info("Received attestation evidence",
				slog.String("guest", inst.ID()),
				slog.Int("bytes", len(evidence)))
		}
	}

	return inst, nil
}

// killAbandoned is the drop safety net. It runs as [runtime.Cleanup] and
// so must not reference the instance itself.
func killAbandoned(proc *os.Process) {
	_ = proc.Kill()
}

// Wait blocks until the guest monitor process terminates and returns its
// status. Once terminated, repeated calls return the cached status.
func (inst *Instance) Wait(ctx context.Context) (*os.ProcessState, error) {
	slog.Debug("Waiting for guest monitor to terminate",
		slog.String("guest", inst.ID()))

	return inst.proc.wait(ctx)
}

// Kill tears the guest down and returns its terminal status.
//
// It shuts down both directions of the console socket, forcefully
// terminates the monitor process, awaits its exit and closes both socket
// handles. The teardown runs once, repeated calls just return the cached
// status. A monitor that already exited on its own is not an error.
func (inst *Instance) Kill(ctx context.Context) (*os.ProcessState, error) {
	inst.killOnce.Do(func() {
		slog.Info("Killing guest instance", slog.String("guest", inst.ID()))

		inst.cleanup.Stop()

		err := shutdownConn(inst.console)
		if err != nil {
			// The console may be gone already, e.g. on a guest that
			// exited. Not a reason to leave the process running.
			slog.Debug("Console shutdown failed",
				slog.String("guest", inst.ID()),
				slog.Any("error", err))
		}

		err = inst.proc.cmd.Process.Kill()
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			inst.killErr = fmt.Errorf("kill guest monitor: %w", err)
		}
	})

	if inst.killErr != nil {
		inst.closeSockets()
		return nil, inst.killErr
	}

	state, err := inst.proc.wait(ctx)
	if err != nil {
		return nil, err
	}

	inst.closeSockets()

	return state, nil
}

// closeSockets releases both socket handles. Closing an already closed
// conn is harmless, so repeated kills stay safe.
func (inst *Instance) closeSockets() {
	_ = inst.console.Close()
	_ = inst.comms.Close()
}

// Connect returns a new independent handle onto the comms socket.
//
// Each handle duplicates the descriptor but all of them share the same
// underlying stream, so only a single reader must be active at a time.
func (inst *Instance) Connect() (Channel, error) {
	file, err := inst.comms.File()
	if err != nil {
		return nil, fmt.Errorf("duplicate comms socket: %w", err)
	}

	defer file.Close()

	conn, err := net.FileConn(file)
	if err != nil {
		return nil, fmt.Errorf("comms conn: %w", err)
	}

	return conn, nil
}

// ID returns the identity of the guest instance.
func (inst *Instance) ID() string {
	return inst.id.String()
}

// Evidence returns the attestation evidence received during the bootstrap
// handshake, or nil if evidence exchange was disabled. Verification is up
// to the caller.
func (inst *Instance) Evidence() []byte {
	return inst.evidence
}

// teardown disposes a half-initialized instance that must not be handed
// to the caller.
func (inst *Instance) teardown() {
	inst.cleanup.Stop()

	_ = inst.proc.cmd.Process.Kill()

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	_, _ = inst.proc.wait(ctx)

	_ = inst.comms.Close()
}

// process owns the guest monitor child process. It is deliberately not
// referencing the instance so the instance stays collectable while the
// reaper goroutine runs.
type process struct {
	cmd     *exec.Cmd
	done    chan struct{}
	state   *os.ProcessState
	waitErr error
}

// reap waits for the child exactly once and caches the terminal status.
func (p *process) reap() {
	err := p.cmd.Wait()

	// A non-zero exit code or a forceful kill is a valid terminal
	// status, not a wait failure.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		err = nil
	}

	p.state = p.cmd.ProcessState
	p.waitErr = err

	close(p.done)
}

func (p *process) wait(ctx context.Context) (*os.ProcessState, error) {
	select {
	case <-p.done:
		return p.state, p.waitErr
	case <-ctx.Done():
		return nil, fmt.Errorf("wait: %w", ctx.Err())
	}
}
