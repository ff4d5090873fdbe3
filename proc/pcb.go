// Package proc defines the process control block shared by every entity the
// scheduler knows how to run, whether a manager process or a thread (LWP)
// sharing a manager's address space.
package proc

import "fmt"

// State is the lifecycle state of a PCB.
type State int

const (
	Unused State = iota
	Embryo
	Sleeping
	Runnable
	Running
	Zombie
)

func (s State) String() string {
	switch s {
	case Unused:
		return "UNUSED"
	case Embryo:
		return "EMBRYO"
	case Sleeping:
		return "SLEEPING"
	case Runnable:
		return "RUNNABLE"
	case Running:
		return "RUNNING"
	case Zombie:
		return "ZOMBIE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// NotUnderStride is the pass_value sentinel meaning "scheduled by MLFQ, not
// stride."
const NotUnderStride = -1

// PCB is one process control block: one per schedulable entity. A manager
// (Tid == 0) owns an address space; an LWP (Tid > 0) shares its manager's
// PageTable, file state and Size, and carries its own KernelStack,
// TrapFrame/Context and scheduling fields.
type PCB struct {
	State State
	Pid   int

	// Parent is the index, into the owning Kernel's process table, of the
	// PCB that forked this one. -1 for initproc.
	Parent int

	// PageTable is an opaque address-space handle, shared across a thread
	// group. Owned, allocated and freed by the (out of scope) virtual
	// memory subsystem; this package only carries the handle.
	PageTable any
	// Size is the address-space high-water mark. The authoritative copy
	// lives on the manager; LWPs never read/write their own.
	Size int

	// KernelStack is a per-entity opaque handle, allocated at Embryo and
	// freed at reap.
	KernelStack any
	// TrapFrame and Context are opaque saved user/kernel state, owned by
	// the (out of scope) trap-frame/context-switch subsystem.
	TrapFrame any
	Context   any

	// Killed is advisory: polled at return-to-user.
	Killed bool

	// Chan is the opaque sleep channel. Non-nil iff State == Sleeping.
	Chan any

	// MLFQ fields. Only meaningful while PassValue == NotUnderStride.
	Level   int
	Ticks   int
	Runtime int

	// Stride fields. PassValue == NotUnderStride means "under MLFQ."
	PassValue int
	Stride    int
	Portion   int

	// Thread-group fields.
	Tid     int
	Manager int // index of the manager PCB; self-index when Tid == 0
	NextTid int // manager-only: next tid to assign

	// Stack is the manager-only recycle list of freed user-stack base
	// addresses, available for the next ThreadCreate in the group.
	Stack []uintptr

	// UserStackBase is the base address of this entity's own user stack,
	// assigned by ThreadCreate (or, for a manager, implicit in its
	// initial address space). Pushed onto the manager's Stack recycle
	// list when this entity is reaped.
	UserStackBase uintptr

	// Retval is stashed by ThreadExit and read by ThreadJoin.
	Retval any

	// Name is a short human-readable label (argv[0] equivalent), carried
	// for debugging and CLI display only.
	Name string
}

// IsManager reports whether p is the tid==0 owner of its thread group.
func (p *PCB) IsManager() bool { return p.Tid == 0 }

// UnderStride reports whether p participates in stride scheduling. Only
// managers may be under stride (spec invariant: pass_value != -1 implies
// tid == 0).
func (p *PCB) UnderStride() bool { return p.PassValue != NotUnderStride }
