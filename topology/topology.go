// Package topology reports how many logical CPUs the scheduler should size
// its per-CPU run queues for, and the host's architecture, so a driver
// (the CLI or the UI) can spin up one kernel.CPUState per real core.
package topology

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"
)

const UnknownKey = "UNKNOWN"

// Info describes the host a Kernel is scheduling on.
type Info struct {
	Architecture string
	NumCPU       int
}

// Detector retrieves host topology details. LinuxDetector is the only
// implementation today; the interface exists so tests and other platforms
// can substitute a fake.
type Detector interface {
	Detect() (*Info, error)
}

// LinuxDetector is the Linux-specific [Detector].
type LinuxDetector struct {
	// AffinityPid, when non-zero, restricts NumCPU to the CPUs in that
	// pid's scheduling affinity mask rather than every CPU on the host.
	// Zero means "the calling process" (spec.md §7: size one CPUState
	// per CPU actually available to this process).
	AffinityPid int
}

// Detect reports the host's architecture (via uname, like the teacher's
// getArch) and the number of logical CPUs actually schedulable by this
// process (via its affinity mask, a finer-grained answer than a bare CPU
// count when running under a container CPU limit).
func (d LinuxDetector) Detect() (*Info, error) {
	return &Info{
		Architecture: getArch(),
		NumCPU:       d.getSchedulableCPUCount(),
	}, nil
}

// getSchedulableCPUCount asks the kernel for this process's affinity mask
// and counts the set bits, falling back to runtime.NumCPU if the syscall
// fails (e.g. non-Linux or restricted sandbox).
func (d LinuxDetector) getSchedulableCPUCount() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(d.AffinityPid, &set); err != nil {
		return runtime.NumCPU()
	}
	n := 0
	for cpu := 0; cpu < runtime.NumCPU()*4 && cpu < len(set)*64; cpu++ {
		if set.IsSet(cpu) {
			n++
		}
	}
	if n == 0 {
		return runtime.NumCPU()
	}
	return n
}

// getArch calls the equivalent of uname -m to get the architecture (e.g.
// x86_64 or aarch64).
func getArch() string {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return UnknownKey
	}
	return strings.TrimRight(string(utsname.Machine[:]), "\x00")
}

// String renders Info for CLI/log output.
func (i Info) String() string {
	return fmt.Sprintf("%s (%d schedulable CPUs)", i.Architecture, i.NumCPU)
}
