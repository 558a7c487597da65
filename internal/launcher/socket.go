// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// socketPair creates a connected pair of unix stream sockets.
//
// Both ends are close-on-exec. Ends handed to a child process go through
// [os/exec.Cmd.ExtraFiles], which duplicates them without the flag.
func socketPair() (*net.UnixConn, *net.UnixConn, error) {
	fds, err := unix.Socketpair(
		unix.AF_UNIX,
		unix.SOCK_STREAM|unix.SOCK_CLOEXEC,
		0,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}

	first, err := fdConn(fds[0])
	if err != nil {
		_ = unix.Close(fds[1])
		return nil, nil, err
	}

	second, err := fdConn(fds[1])
	if err != nil {
		_ = first.Close()
		return nil, nil, err
	}

	return first, second, nil
}

// fdConn wraps the raw descriptor in a [net.UnixConn]. The descriptor is
// duplicated into the net runtime, the original is closed either way.
func fdConn(fd int) (*net.UnixConn, error) {
	file := os.NewFile(uintptr(fd), "socketpair")
	defer file.Close()

	conn, err := net.FileConn(file)
	if err != nil {
		return nil, fmt.Errorf("fd %d conn: %w", fd, err)
	}

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("fd %d: %w", fd, ErrNotUnixSocket)
	}

	return unixConn, nil
}

// shutdownConn shuts down both directions of the socket, unblocking peers
// on the other end, including duplicated descriptors in child processes.
// A plain close would not do that as long as duplicates exist.
func shutdownConn(conn *net.UnixConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("raw conn: %w", err)
	}

	var shutdownErr error

	err = raw.Control(func(fd uintptr) {
		shutdownErr = unix.Shutdown(int(fd), unix.SHUT_RDWR)
	})
	if err != nil {
		return fmt.Errorf("control: %w", err)
	}

	if shutdownErr != nil {
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}

	return nil
}
