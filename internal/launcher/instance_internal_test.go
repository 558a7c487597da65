// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// writeMonitorScript creates a fake guest monitor. Shell scripts stand in
// for the real monitor binary: they inherit the socket descriptors like
// the real one would and ignore the command line.
func writeMonitorScript(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "monitor")

	err := os.WriteFile(path, []byte(content), 0o755)
	require.NoError(t, err)

	return path
}

func sleepingMonitor(t *testing.T) string {
	t.Helper()
	return writeMonitorScript(t, "#!/bin/sh\nexec sleep 30\n")
}

func exitingMonitor(t *testing.T) string {
	t.Helper()
	return writeMonitorScript(t, "#!/bin/sh\nexit 0\n")
}

func testConfig(monitor string) Config {
	return Config{
		VMMExecutable: monitor,
		Kernel:        "kernel",
		Firmware:      "firmware",
		Initrd:        "initrd",
	}
}

func testConsole(t *testing.T) *net.UnixConn {
	t.Helper()

	consoleRead, consoleWrite, err := socketPair()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = consoleRead.Close()
		_ = consoleWrite.Close()
	})

	return consoleWrite
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func TestStartWithoutAppBinary(t *testing.T) {
	ctx := testContext(t)

	// Evidence exchange configured, but without an application binary no
	// handshake happens at all. The monitor never touches the comms
	// socket, so start would time out if it did.
	cfg := testConfig(exitingMonitor(t))
	cfg.ExchangeEvidence = true
	cfg.HandshakeTimeout = 100 * time.Millisecond

	inst, err := Start(ctx, cfg, testConsole(t))
	require.NoError(t, err)

	state, err := inst.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, state.ExitCode())

	assert.Nil(t, inst.Evidence())

	_, err = inst.Kill(ctx)
	require.NoError(t, err)
}

func TestStartDeliversApplication(t *testing.T) {
	ctx := testContext(t)

	appFile := filepath.Join(t.TempDir(), "app")
	require.NoError(t, os.WriteFile(appFile, []byte("application"), 0o600))

	// Send-only handshake: the payload lands in the socket buffer, the
	// sleeping monitor never reads it.
	cfg := testConfig(sleepingMonitor(t))
	cfg.AppBinary = appFile

	inst, err := Start(ctx, cfg, testConsole(t))
	require.NoError(t, err)

	_, err = inst.Kill(ctx)
	require.NoError(t, err)
}

func TestStartHandshakeTimeout(t *testing.T) {
	const timeout = 200 * time.Millisecond

	ctx := testContext(t)

	appFile := filepath.Join(t.TempDir(), "app")
	require.NoError(t, os.WriteFile(appFile, []byte("application"), 0o600))

	cfg := testConfig(sleepingMonitor(t))
	cfg.AppBinary = appFile
	cfg.ExchangeEvidence = true
	cfg.HandshakeTimeout = timeout

	start := time.Now()

	_, err := Start(ctx, cfg, testConsole(t))

	elapsed := time.Since(start)

	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.ErrorIs(t, err, &HandshakeError{})
	assert.Less(t, elapsed, 10*timeout, "start must not hang past the bound")
}

func TestStartSpawnFailure(t *testing.T) {
	ctx := testContext(t)

	cfg := testConfig(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := Start(ctx, cfg, testConsole(t))
	require.ErrorIs(t, err, &StartError{})
}

func TestKillCachesTerminalStatus(t *testing.T) {
	ctx := testContext(t)

	inst, err := Start(ctx, testConfig(sleepingMonitor(t)), testConsole(t))
	require.NoError(t, err)

	killState, err := inst.Kill(ctx)
	require.NoError(t, err)

	waitState, err := inst.Wait(ctx)
	require.NoError(t, err)
	assert.Same(t, killState, waitState)

	againState, err := inst.Kill(ctx)
	require.NoError(t, err)
	assert.Same(t, killState, againState)
}

func TestKillClosesSockets(t *testing.T) {
	ctx := testContext(t)

	inst, err := Start(ctx, testConfig(sleepingMonitor(t)), testConsole(t))
	require.NoError(t, err)

	_, err = inst.Kill(ctx)
	require.NoError(t, err)

	_, err = inst.comms.Write([]byte("x"))
	assert.ErrorIs(t, err, net.ErrClosed)

	_, err = inst.console.Write([]byte("x"))
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestKillAfterExit(t *testing.T) {
	ctx := testContext(t)

	inst, err := Start(ctx, testConfig(exitingMonitor(t)), testConsole(t))
	require.NoError(t, err)

	state, err := inst.Wait(ctx)
	require.NoError(t, err)

	// Killing a guest that already exited is not an error and returns
	// the same terminal status.
	killState, err := inst.Kill(ctx)
	require.NoError(t, err)
	assert.Same(t, state, killState)
}

func TestKillUnblocksWaiter(t *testing.T) {
	ctx := testContext(t)

	inst, err := Start(ctx, testConfig(sleepingMonitor(t)), testConsole(t))
	require.NoError(t, err)

	type waitResult struct {
		state *os.ProcessState
		err   error
	}

	waiter := make(chan waitResult, 1)

	go func() {
		state, err := inst.Wait(ctx)
		waiter <- waitResult{state, err}
	}()

	_, err = inst.Kill(ctx)
	require.NoError(t, err)

	select {
	case result := <-waiter:
		require.NoError(t, result.err)
		assert.NotNil(t, result.state)
	case <-time.After(5 * time.Second):
		t.Fatal("wait did not return after kill")
	}
}

func TestDropWithoutKill(t *testing.T) {
	ctx := testContext(t)

	inst, err := Start(ctx, testConfig(sleepingMonitor(t)), testConsole(t))
	require.NoError(t, err)

	pid := inst.proc.cmd.Process.Pid

	// Drop the only reference. The cleanup must take the monitor process
	// down without an explicit kill.
	inst = nil //nolint:wastedassign

	require.Eventually(t, func() bool {
		runtime.GC()
		return unix.Kill(pid, 0) == unix.ESRCH
	}, 10*time.Second, 100*time.Millisecond,
		"abandoned guest monitor must terminate")
}

func TestConnectSharesStream(t *testing.T) {
	ctx := testContext(t)

	inst, err := Start(ctx, testConfig(sleepingMonitor(t)), testConsole(t))
	require.NoError(t, err)

	t.Cleanup(func() { _, _ = inst.Kill(context.Background()) })

	first, err := inst.Connect()
	require.NoError(t, err)

	t.Cleanup(func() { _ = first.Close() })

	second, err := inst.Connect()
	require.NoError(t, err)

	t.Cleanup(func() { _ = second.Close() })

	// Both handles point at the same socket: bytes written on one
	// stream position are seen exactly once across readers.
	require.NotSame(t, first, second)
}
