// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package vmm

import (
	"fmt"
	"strconv"
)

// minInheritedFileDescriptor is the lowest file descriptor number a socket
// handed to the guest monitor may be inherited under. FDs 0, 1, 2 are
// standard in, out, err.
const minInheritedFileDescriptor = 3

const (
	// machineType is the QEMU machine the guest image is built for. ACPI
	// stays enabled as the guest kernel relies on it.
	machineType = "microvm,acpi=on"

	// cpuType exposes the advanced CPU features the guest needs.
	// Specifically RDRAND, which is required for remote attestation.
	cpuType = "IvyBridge-IBRS"

	// debugItems are the QEMU debug log items that surface guest errors
	// on stderr.
	debugItems = "int,unimp,guest_errors"
)

// CommandSpec defines the parameters for a guest monitor invocation.
type CommandSpec struct {
	// Path to the guest monitor binary to execute.
	Executable string

	// Path to the kernel to load into the guest.
	Kernel string

	// Path to the firmware image the guest boots from.
	Firmware string

	// Path to the initrd image to use.
	Initrd string

	// Memory for the guest, e.g. "256M" or "8G". Uses the monitor's
	// default if empty.
	Memory string

	// GDBPort makes the monitor listen for a gdb connection on the given
	// TCP port and halt the guest until the debugger continues it.
	GDBPort uint16

	// PCIPassthrough passes the host PCI device with the given address
	// through to the guest using VFIO.
	PCIPassthrough string

	// ConsoleFD is the inherited file descriptor number of the serial
	// console socket in the monitor process.
	ConsoleFD int

	// CommsFD is the inherited file descriptor number of the comms socket
	// in the monitor process.
	CommsFD int

	// ExtraArgs are additional arguments passed to the monitor. They must
	// not collide with the essential arguments set by the spec itself.
	ExtraArgs Arguments
}

// Validate checks that the spec is complete enough to spawn a monitor.
func (s *CommandSpec) Validate() error {
	for name, value := range map[string]string{
		"executable": s.Executable,
		"kernel":     s.Kernel,
		"firmware":   s.Firmware,
		"initrd":     s.Initrd,
	} {
		if value == "" {
			return &SpecError{name + " path must be set"}
		}
	}

	for name, fd := range map[string]int{
		"console": s.ConsoleFD,
		"comms":   s.CommsFD,
	} {
		if fd < minInheritedFileDescriptor {
			return &SpecError{fmt.Sprintf(
				"%s fd %d is not an inheritable descriptor",
				name, fd,
			)}
		}
	}

	if s.ConsoleFD == s.CommsFD {
		return &SpecError{"console and comms fd must differ"}
	}

	return nil
}

// Arguments compiles the argument list for the guest monitor.
func (s *CommandSpec) Arguments() Arguments {
	args := Arguments{
		UniqueArg("enable-kvm"),
		// Log guest errors and other interesting events to stderr.
		RepeatableArg("d", debugItems),
		UniqueArg("cpu", cpuType),
	}

	if s.Memory != "" {
		args = append(args, UniqueArg("m", s.Memory))
	}

	args = append(args,
		// Disable all devices and outputs we don't need.
		UniqueArg("nodefaults"),
		UniqueArg("nographic"),
		// Any guest restart is a failure, don't paper over it.
		UniqueArg("no-reboot"),
		UniqueArg("machine", machineType),
		// Route the first serial port to the console socket.
		RepeatableArg("chardev", "socket", "id=consock", fdOpt(s.ConsoleFD)),
		RepeatableArg("serial", "chardev:consock"),
		// The comms socket is the single virtio serial port.
		RepeatableArg("chardev", "socket", "id=commsock", fdOpt(s.CommsFD)),
		RepeatableArg("device", "virtio-serial-device", "max_ports=1"),
		RepeatableArg("device", "virtconsole", "chardev=commsock"),
	)

	if s.PCIPassthrough != "" {
		args = append(args,
			RepeatableArg("device", "vfio-pci", "host="+s.PCIPassthrough),
		)
	}

	args = append(args,
		UniqueArg("bios", s.Firmware),
		UniqueArg("kernel", s.Kernel),
	)

	if s.GDBPort != 0 {
		port := strconv.FormatUint(uint64(s.GDBPort), 10)
		args = append(args,
			UniqueArg("gdb", "tcp::"+port),
			// Halt the guest until the debugger attached.
			UniqueArg("S"),
		)
	}

	args = append(args, UniqueArg("initrd", s.Initrd))

	return append(args, s.ExtraArgs...)
}

// BuildArgs validates the spec and compiles the final argument strings.
func (s *CommandSpec) BuildArgs() ([]string, error) {
	err := s.Validate()
	if err != nil {
		return nil, err
	}

	return s.Arguments().Build()
}

func fdOpt(fd int) string {
	return "fd=" + strconv.Itoa(fd)
}
