// Package kernel implements the hybrid MLFQ/Stride scheduler, the process
// table, process/thread lifecycle (fork, exit, wait, kill, thread_create,
// thread_join, thread_exit) and the sleep/wakeup mechanism the blocking
// synchronization primitives in ksync are built on.
//
// Virtual memory, the file system, trap frames and the low-level context
// switch are out of scope (spec.md §1) and are carried here only as opaque
// fields on proc.PCB (PageTable, KernelStack, TrapFrame, Context).
package kernel

import (
	"fmt"
	"sync"

	"github.com/arctir/ksched/proc"
	"github.com/arctir/ksched/stride"
)

// MaxStrideTickets is the hard cap on stride_tickets (spec.md §3, §4.5):
// stride may never claim more than 80% of the CPU, reserving the rest for
// MLFQ.
const MaxStrideTickets = 80

// MLFQ level count, allotments and quanta (spec.md §4.4).
const (
	NumLevels = 3
)

// Allotment is the total runtime an MLFQ entity may spend at a level before
// demotion. Level 2 has no allotment (stays forever, until a priority
// boost).
var Allotment = [NumLevels]int{20, 40, -1}

// Quantum is the per-level time-slice before round-robin rotation.
var Quantum = [NumLevels]int{5, 10, 20}

// DefaultBoostCadence is the number of ticks between priority_boost sweeps
// when Config.BoostCadence is left at zero. spec.md §9 leaves the cadence
// as an implementation parameter and suggests 100 as reasonable.
const DefaultBoostCadence = 100

// Config configures a Kernel; it is passed to New.
type Config struct {
	// NumProcs is the process-table capacity. Defaults to 64.
	NumProcs int
	// BoostCadence is the number of ticks between priority_boost sweeps.
	// Defaults to DefaultBoostCadence.
	BoostCadence int
}

func (c Config) withDefaults() Config {
	if c.NumProcs <= 0 {
		c.NumProcs = 64
	}
	if c.BoostCadence <= 0 {
		c.BoostCadence = DefaultBoostCadence
	}
	return c
}

// Kernel owns the process table, the ptable lock, the stride heap and the
// global scheduling counters (spec.md §3 "Global state"). All mutation goes
// through Kernel's methods, which take the lock internally; exactly one
// lock protects the table, the heap and stride_tickets together, since
// they are covariant (spec.md §5).
//
// The ptable lock is represented here with a plain sync.Mutex. spec.md
// treats "the kernel lock primitive" as an out-of-scope collaborator with a
// named interface only; sync.Mutex is the idiomatic Go stand-in for that
// collaborator and is what this repo's teacher material reaches for
// wherever it guards shared state (ui.go's refreshLock, tasks.go's
// waitingMutex).
type Kernel struct {
	mu    sync.Mutex
	cond  *sync.Cond
	table []proc.PCB
	heap  *stride.Heap

	strideTickets int
	nextPid       int
	initproc      int // table index of PID 1, -1 before Boot

	ticks        int
	boostCadence int
}

// New allocates a Kernel with the given configuration but does not boot it;
// call Boot to create initproc.
func New(cfg Config) *Kernel {
	cfg = cfg.withDefaults()
	k := &Kernel{
		table:        make([]proc.PCB, cfg.NumProcs),
		heap:         stride.New(cfg.NumProcs),
		nextPid:      1,
		initproc:     -1,
		boostCadence: cfg.BoostCadence,
	}
	k.cond = sync.NewCond(&k.mu)
	return k
}

// Boot allocates PID 1 (initproc), marks it RUNNABLE directly (bypassing
// fork, mirroring xv6's userinit()), and returns its table index. Boot may
// only be called once.
func (k *Kernel) Boot(name string) (int, error) {
	k.mu.Lock()
	if k.initproc != -1 {
		k.mu.Unlock()
		return -1, fmt.Errorf("kernel: Boot called more than once")
	}
	k.mu.Unlock()

	idx, err := k.allocproc()
	if err != nil {
		return -1, fmt.Errorf("kernel: failed allocating initproc: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	p := &k.table[idx]
	p.Name = name
	p.Parent = -1
	p.Manager = idx
	p.State = proc.Runnable
	k.initproc = idx
	return idx, nil
}

// Uptime returns the current tick counter (the uptime syscall, spec.md
// §6).
func (k *Kernel) Uptime() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ticks
}

// StrideTickets returns the current value of stride_tickets.
func (k *Kernel) StrideTickets() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.strideTickets
}

// PCB returns a copy of the PCB at index idx. Intended for introspection
// (CLI, UI, tests) — callers must not mutate scheduling state this way.
func (k *Kernel) PCB(idx int) (proc.PCB, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if idx < 0 || idx >= len(k.table) {
		return proc.PCB{}, fmt.Errorf("kernel: index %d out of range", idx)
	}
	return k.table[idx], nil
}

// Snapshot returns a copy of every live (non-UNUSED) PCB, paired with its
// table index, in table order. Used by trace, ui and the CLI.
func (k *Kernel) Snapshot() []IndexedPCB {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]IndexedPCB, 0, len(k.table))
	for i := range k.table {
		if k.table[i].State == proc.Unused {
			continue
		}
		out = append(out, IndexedPCB{Index: i, PCB: k.table[i]})
	}
	return out
}

// IndexedPCB pairs a process-table index with the PCB living there.
type IndexedPCB struct {
	Index int
	PCB   proc.PCB
}

// findByPidLocked returns the table index of the PCB with the given pid, or -1.
// Must be called with k.mu held.
func (k *Kernel) findByPidLocked(pid int) int {
	for i := range k.table {
		if k.table[i].State != proc.Unused && k.table[i].Pid == pid {
			return i
		}
	}
	return -1
}

// allocproc scans for a free slot, reserves it as EMBRYO with pid and
// zeroed scheduling fields, and returns its index (spec.md §4.2). The
// (out of scope) kernel-stack allocation step is modeled as always
// succeeding, since it has no counterpart in this simulated kernel.
func (k *Kernel) allocproc() (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	idx := -1
	for i := range k.table {
		if k.table[i].State == proc.Unused {
			idx = i
			break
		}
	}
	if idx == -1 {
		return -1, fmt.Errorf("kernel: allocproc: no free process slot")
	}

	pid := k.nextPid
	k.nextPid++

	k.table[idx] = proc.PCB{
		State:     proc.Embryo,
		Pid:       pid,
		Level:     0,
		Ticks:     0,
		Runtime:   0,
		PassValue: proc.NotUnderStride,
		Stride:    0,
		Portion:   0,
		Tid:       0,
		NextTid:   1,
		Manager:   idx,
	}
	return idx, nil
}
