package utils

import (
	"bytes"

	"golang.org/x/sys/unix"
)

const (
	ArchitectureX86 = "x86_64"
	ArchitectureArm = "arm64"
)

// RuntimeArchitecture reports the Lambda host architecture the way the
// deployment metric expects it, falling back to x86_64 when uname is
// unavailable.
func RuntimeArchitecture() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return ArchitectureX86
	}
	machine := uname.Machine[:]
	if i := bytes.IndexByte(machine, 0); i >= 0 {
		machine = machine[:i]
	}
	if string(machine) == "aarch64" {
		return ArchitectureArm
	}
	return ArchitectureX86
}
