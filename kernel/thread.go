package kernel

import (
	"fmt"

	"github.com/arctir/ksched/proc"
)

// userStackSize is the two pages (a guard page plus the stack itself) a new
// LWP's address space grows by when its user stack isn't being recycled
// (spec.md §4.7 step 5). There is no real virtual memory here (spec.md §1
// out of scope), so this only needs to keep distinct stacks from
// overlapping in the synthetic address space carried on PCB.Size.
const userStackSize = 2 * 4096

// allocUserStackLocked returns a user-stack base for a new LWP in mgr's
// group: the top of mgr's recycle list if non-empty, otherwise the old top
// of mgr's address space, grown by 2 pages to make room for the new stack
// (spec.md §4.7, "else allocate by extending manager.size by 2 pages and
// use the old top as base"; original_source/xv6-public/proc.c:705-709).
// Must be called with k.mu held.
func (k *Kernel) allocUserStackLocked(mgr *proc.PCB) uintptr {
	if n := len(mgr.Stack); n > 0 {
		base := mgr.Stack[n-1]
		mgr.Stack = mgr.Stack[:n-1]
		return base
	}
	base := uintptr(mgr.Size)
	mgr.Size += userStackSize
	return base
}

// findFreeSlotLocked scans for an UNUSED table slot. Must be called with
// k.mu held. Unlike allocproc, it does not touch nextPid or initialize the
// slot, since ThreadCreate's caller already holds the lock and needs to
// set thread-specific fields atomically with reservation.
func (k *Kernel) findFreeSlotLocked() int {
	for i := range k.table {
		if k.table[i].State == proc.Unused {
			return i
		}
	}
	return -1
}

// ThreadCreate adds a new LWP to mgrSelf's thread group (the thread_create
// syscall, spec.md §4.7) and returns its tid. mgrSelf must be a manager
// (Tid == 0).
//
// If mgrSelf is already Killed — a concurrent Exit raced this call — the
// new LWP is still allocated and marked RUNNABLE with Killed pre-set
// (spec.md §9 Open Question: "observe-killed"): it will be scheduled
// exactly once, observe killed, and immediately self-exit, rather than
// ThreadCreate failing or silently discarding a slot mid-teardown.
func (k *Kernel) ThreadCreate(mgrSelf int, name string) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	mgr := &k.table[mgrSelf]
	if !mgr.IsManager() {
		return -1, fmt.Errorf("kernel: thread_create: caller is not a manager (tid != 0)")
	}
	if mgr.State == proc.Zombie || mgr.State == proc.Unused {
		return -1, fmt.Errorf("kernel: thread_create: manager is not live")
	}

	idx := k.findFreeSlotLocked()
	if idx == -1 {
		return -1, fmt.Errorf("kernel: thread_create: no free process slot")
	}

	tid := mgr.NextTid
	mgr.NextTid++
	base := k.allocUserStackLocked(mgr)

	k.table[idx] = proc.PCB{
		State:         proc.Runnable,
		Pid:           k.nextPid,
		Parent:        mgrSelf,
		PageTable:     mgr.PageTable,
		Size:          mgr.Size,
		Tid:           tid,
		Manager:       mgrSelf,
		NextTid:       0,
		UserStackBase: base,
		PassValue:     proc.NotUnderStride,
		Killed:        mgr.Killed,
		Name:          name,
	}
	k.nextPid++
	return tid, nil
}

// ThreadJoin blocks mgrSelf until the LWP identified by tid in its own
// thread group exits, reaps it, and returns its retval (spec.md §4.7). It
// returns an error if no such tid exists in a live or zombie state.
func (k *Kernel) ThreadJoin(mgrSelf int, tid int) (any, error) {
	k.mu.Lock()
	for {
		idx := -1
		for i := range k.table {
			if k.table[i].State != proc.Unused && k.table[i].Manager == mgrSelf && k.table[i].Tid == tid {
				idx = i
				break
			}
		}
		if idx == -1 {
			k.mu.Unlock()
			return nil, fmt.Errorf("kernel: thread_join: no such tid %d", tid)
		}
		if k.table[idx].State == proc.Zombie {
			retval := k.table[idx].Retval
			k.reapGroupPeerLocked(idx, mgrSelf)
			k.mu.Unlock()
			return retval, nil
		}
		if k.table[mgrSelf].Killed {
			k.mu.Unlock()
			return nil, fmt.Errorf("kernel: thread_join: killed")
		}
		k.SleepLocked(mgrSelf, &k.table[mgrSelf])
	}
}

// ThreadExit stashes retval for a future ThreadJoin, marks self ZOMBIE and
// wakes self's manager (the thread_exit syscall, spec.md §4.7). self must
// be an LWP (Tid > 0); a manager exits via Exit instead.
func (k *Kernel) ThreadExit(self int, retval any) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	p := &k.table[self]
	if p.Tid == 0 {
		return fmt.Errorf("kernel: thread_exit: called by a manager, use Exit")
	}

	p.Retval = retval
	p.State = proc.Zombie
	k.wakeup1Locked(&k.table[p.Manager])
	return nil
}
