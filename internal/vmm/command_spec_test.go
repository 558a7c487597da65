// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

package vmm_test

import (
	"strings"
	"testing"

	"github.com/enclaverun/enclaverun/internal/vmm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalSpec() vmm.CommandSpec {
	return vmm.CommandSpec{
		Executable: "qemu-system-x86_64",
		Kernel:     "/images/kernel",
		Firmware:   "/images/stage0",
		Initrd:     "/images/initrd",
		ConsoleFD:  3,
		CommsFD:    4,
	}
}

func TestCommandSpecBuildArgs(t *testing.T) {
	spec := minimalSpec()

	args, err := spec.BuildArgs()
	require.NoError(t, err)

	argString := strings.Join(args, " ")

	assert.Contains(t, argString, "-enable-kvm")
	assert.Contains(t, argString, "-chardev socket,id=consock,fd=3")
	assert.Contains(t, argString, "-serial chardev:consock")
	assert.Contains(t, argString, "-chardev socket,id=commsock,fd=4")
	assert.Contains(t, argString, "-device virtio-serial-device,max_ports=1")
	assert.Contains(t, argString, "-device virtconsole,chardev=commsock")
	assert.Contains(t, argString, "-bios /images/stage0")
	assert.Contains(t, argString, "-kernel /images/kernel")
	assert.Contains(t, argString, "-initrd /images/initrd")
	assert.Contains(t, argString, "-no-reboot")

	assert.NotContains(t, argString, "-m ")
	assert.NotContains(t, argString, "-gdb")
	assert.NotContains(t, argString, "vfio-pci")
}

func TestCommandSpecOptionalArgs(t *testing.T) {
	spec := minimalSpec()
	spec.Memory = "8G"
	spec.GDBPort = 3333
	spec.PCIPassthrough = "0000:01:00.0"

	args, err := spec.BuildArgs()
	require.NoError(t, err)

	argString := strings.Join(args, " ")

	assert.Contains(t, argString, "-m 8G")
	assert.Contains(t, argString, "-gdb tcp::3333")
	assert.Contains(t, argString, "-S")
	assert.Contains(t, argString, "-device vfio-pci,host=0000:01:00.0")
}

func TestCommandSpecValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*vmm.CommandSpec)
	}{
		{
			name:   "missing kernel",
			mutate: func(s *vmm.CommandSpec) { s.Kernel = "" },
		},
		{
			name:   "missing firmware",
			mutate: func(s *vmm.CommandSpec) { s.Firmware = "" },
		},
		{
			name:   "missing initrd",
			mutate: func(s *vmm.CommandSpec) { s.Initrd = "" },
		},
		{
			name:   "missing executable",
			mutate: func(s *vmm.CommandSpec) { s.Executable = "" },
		},
		{
			name:   "stdio console fd",
			mutate: func(s *vmm.CommandSpec) { s.ConsoleFD = 1 },
		},
		{
			name:   "unset comms fd",
			mutate: func(s *vmm.CommandSpec) { s.CommsFD = 0 },
		},
		{
			name: "same fd twice",
			mutate: func(s *vmm.CommandSpec) {
				s.ConsoleFD = 3
				s.CommsFD = 3
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := minimalSpec()
			tt.mutate(&spec)

			_, err := spec.BuildArgs()
			assert.ErrorIs(t, err, &vmm.SpecError{})
		})
	}
}

func TestCommandSpecExtraArgsCollision(t *testing.T) {
	spec := minimalSpec()
	spec.ExtraArgs = vmm.Arguments{vmm.UniqueArg("kernel", "/other/kernel")}

	_, err := spec.BuildArgs()
	assert.ErrorIs(t, err, vmm.ErrArgumentCollision)
}

func TestCommandSpecExtraArgs(t *testing.T) {
	spec := minimalSpec()
	spec.ExtraArgs = vmm.Arguments{vmm.RepeatableArg("d", "cpu_reset")}

	args, err := spec.BuildArgs()
	require.NoError(t, err)

	assert.Contains(t, strings.Join(args, " "), "-d cpu_reset")
}
