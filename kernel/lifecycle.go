package kernel

import (
	"fmt"

	"github.com/arctir/ksched/proc"
)

// Fork allocates a new manager PCB that is a copy of self's address space
// (at self's manager's Size), marks it RUNNABLE, and returns its table
// index (spec.md §4.6). Open files/cwd inheritance and trap-frame
// copying are out of scope collaborators; this carries their effect
// (TrapFrame is copied byte-for-byte by convention, with the return value
// left for the caller to zero) without implementing them.
func (k *Kernel) Fork(self int) (int, error) {
	child, err := k.allocproc()
	if err != nil {
		return -1, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	parent := &k.table[self]
	mgr := &k.table[parent.Manager]
	c := &k.table[child]
	c.Parent = self
	c.Manager = child
	c.Size = mgr.Size
	c.PageTable = mgr.PageTable // copy-on-write / deep copy is VM's job
	c.TrapFrame = parent.TrapFrame
	c.Name = parent.Name
	c.State = proc.Runnable
	return child, nil
}

// Yield charges a tick to self at its current MLFQ level (spec.md §6:
// "accounts a tick to MLFQ first"), then transitions it RUNNING ->
// RUNNABLE. Mirrors xv6's yield(), which calls chargeTick via the trap
// path before entering sched().
func (k *Kernel) Yield(self int) {
	k.mu.Lock()
	k.chargeTickLocked(self)
	k.table[self].State = proc.Runnable
	k.mu.Unlock()
}

// GetPid returns self's pid.
func (k *Kernel) GetPid(self int) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.table[self].Pid
}

// GetPPid returns self's parent's pid, or 0 if self has no parent
// (initproc).
func (k *Kernel) GetPPid(self int) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	p := &k.table[self]
	if p.Parent < 0 {
		return 0
	}
	return k.table[p.Parent].Pid
}

// GrowProc grows (n > 0) or shrinks (n < 0, never below zero) self's
// manager's address-space Size by n bytes and returns the old break (the
// sbrk syscall, spec.md §4.7, §9). n == 0 is a no-op that still returns
// the old break.
func (k *Kernel) GrowProc(self int, n int) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	mgr := &k.table[k.table[self].Manager]
	old := mgr.Size
	newSize := mgr.Size + n
	if newSize < 0 {
		newSize = 0
	}
	mgr.Size = newSize
	return old, nil
}

// SyscallSleep blocks self until at least n ticks have elapsed (the
// sleep(n) syscall, spec.md §6), waking once per clock tick to recheck
// its deadline (see Tick's wakeup of &k.ticks). n <= 0 returns immediately.
func (k *Kernel) SyscallSleep(self int, n int) error {
	if n <= 0 {
		return nil
	}
	k.mu.Lock()
	target := k.ticks + n
	for k.ticks < target {
		if k.table[self].Killed {
			k.mu.Unlock()
			return fmt.Errorf("kernel: sleep: killed")
		}
		k.SleepLocked(self, &k.ticks)
	}
	k.mu.Unlock()
	return nil
}

// Kill sets pid's killed flag and, if it is SLEEPING, wakes it so it
// observes killed on its next scheduling opportunity (spec.md §4.6). It
// never otherwise touches the target's state: a RUNNING/RUNNABLE/ZOMBIE
// target dies (or is already dead) on its own schedule.
func (k *Kernel) Kill(pid int) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	idx := k.findByPidLocked(pid)
	if idx < 0 {
		return fmt.Errorf("kernel: kill: no such pid %d", pid)
	}

	k.table[idx].Killed = true
	if k.table[idx].State == proc.Sleeping {
		k.table[idx].State = proc.Runnable
		k.table[idx].Chan = nil
		k.condVar().Broadcast()
	}
	return nil
}

// Wait blocks self until some child (a PCB with Parent == self; only
// managers are forked, so only managers are ever "children" for wait's
// purposes) becomes ZOMBIE, reaps it, and returns its pid. It returns an
// error immediately if self has no children, or if self is killed while
// waiting (spec.md §4.6).
func (k *Kernel) Wait(self int) (int, error) {
	k.mu.Lock()
	for {
		if k.table[self].Killed {
			k.mu.Unlock()
			return -1, fmt.Errorf("kernel: wait: killed")
		}

		haveChildren := false
		for i := range k.table {
			if k.table[i].State == proc.Unused || k.table[i].Parent != self {
				continue
			}
			haveChildren = true
			if k.table[i].State == proc.Zombie {
				pid := k.table[i].Pid
				k.reapChildLocked(i)
				k.mu.Unlock()
				return pid, nil
			}
		}
		if !haveChildren {
			k.mu.Unlock()
			return -1, fmt.Errorf("kernel: wait: no children")
		}

		k.SleepLocked(self, &k.table[self])
	}
}

// reapChildLocked reaps a ZOMBIE child found by Wait: frees its kernel
// stack (out of scope; modeled as clearing the opaque handle), frees its
// page table if it is the last surviving member of its own thread group
// (spec.md §9 Open Question: the manager slot owns the page table, freed
// exactly once by the reaper of the last survivor), and resets the slot to
// UNUSED. Must be called with k.mu held.
func (k *Kernel) reapChildLocked(idx int) {
	p := &k.table[idx]
	p.KernelStack = nil
	if groupSizeLocked(k.table, idx) == 1 {
		p.PageTable = nil
	}
	k.table[idx] = proc.PCB{State: proc.Unused}
}

// groupSizeLocked counts live (non-UNUSED) members of mgrIdx's thread
// group, including the manager itself. Must be called with k.mu held.
func groupSizeLocked(table []proc.PCB, mgrIdx int) int {
	n := 0
	for i := range table {
		if table[i].State != proc.Unused && table[i].Manager == mgrIdx {
			n++
		}
	}
	return n
}

// Exit tears down self (spec.md §4.6). self may be a manager or a thread;
// either way every other member of self's thread group is notified and,
// if already ZOMBIE, reaped here rather than waiting for a wait()/
// ThreadJoin() that will never come for a sibling. Exit always returns
// (there is no real context switch to not return from); the caller must
// treat a returned Exit as "this entity never runs again."
func (k *Kernel) Exit(self int) error {
	k.mu.Lock()

	k.exitStrideLocked(self)

	mgr := k.table[self].Manager
	isManager := k.table[self].IsManager()

	// Tear down (or notify) every other member of the thread group.
	for i := range k.table {
		if i == self || k.table[i].State == proc.Unused || k.table[i].Manager != mgr {
			continue
		}
		if k.table[i].State != proc.Zombie {
			k.table[i].Killed = true
			if k.table[i].State == proc.Sleeping {
				k.table[i].State = proc.Runnable
				k.table[i].Chan = nil
			}
			continue
		}
		// Peer already ZOMBIE: reap it now, since no ThreadJoin will
		// run for it. When self is a thread this includes the manager
		// itself (i == mgr) if it is already ZOMBIE; it is reaped here
		// rather than by its parent's Wait.
		k.reapGroupPeerLocked(i, mgr)
	}

	// File descriptors and cwd release belong to the (out of scope)
	// file-system layer; there is nothing to do here.

	if isManager {
		if parent := k.table[self].Parent; parent >= 0 {
			k.wakeup1Locked(&k.table[parent])
		}
	} else {
		k.table[mgr].Killed = true
		k.wakeup1Locked(&k.table[mgr])
	}

	// Reparent surviving children (only managers fork, so only managers
	// have children) to initproc.
	if isManager {
		for i := range k.table {
			if k.table[i].State == proc.Unused || k.table[i].Parent != self {
				continue
			}
			k.table[i].Parent = k.initproc
			if k.table[i].State == proc.Zombie {
				k.wakeup1Locked(&k.table[k.initproc])
			}
		}
	}

	k.table[self].State = proc.Zombie
	k.condVar().Broadcast()
	k.mu.Unlock()
	return nil
}

// reapGroupPeerLocked reaps a thread-group peer encountered ZOMBIE during
// a sibling's Exit (spec.md §3 invariant 5, third case): frees its kernel
// stack, pushes its user-stack base onto mgrIdx's recycle list for the next
// ThreadCreate, and decrements mgrIdx.NextTid (spec.md §4.6 step 3, §4.7;
// original_source/xv6-public/proc.c:399,842), if it is an LWP rather than
// the manager. Must be called with k.mu held.
func (k *Kernel) reapGroupPeerLocked(idx, mgrIdx int) {
	p := &k.table[idx]
	p.KernelStack = nil
	if p.Tid > 0 {
		k.table[mgrIdx].Stack = append(k.table[mgrIdx].Stack, p.UserStackBase)
		k.table[mgrIdx].NextTid--
	}
	k.table[idx] = proc.PCB{State: proc.Unused}
}
