package kernel

import (
	"sync"

	"github.com/arctir/ksched/proc"
)

// cond is lazily created the first time it's needed so that Kernel's
// zero-initialized-in-tests form still works; New always sets it, this is
// only a defensive fallback.
func (k *Kernel) condVar() *sync.Cond {
	if k.cond == nil {
		k.cond = sync.NewCond(&k.mu)
	}
	return k.cond
}

// SleepLocked implements the kernel-internal sleep(chan) contract for
// callers that already hold the ptable lock (spec.md §4.8 "if lk is not
// ptable lock" — this is the branch where it is). The calling goroutine
// blocks until some other goroutine calls Wakeup/wakeup1Locked with a
// matching channel token, which stands in for the abstract "context switch
// back to the scheduler, then back to this entity" of spec.md §4.8/§9: a
// real preemptive kernel suspends the entity's execution context and
// resumes it later; sync.Cond.Wait does the equivalent for a goroutine.
func (k *Kernel) SleepLocked(idx int, chanv any) {
	p := &k.table[idx]
	p.Chan = chanv
	p.State = proc.Sleeping
	for k.table[idx].State == proc.Sleeping {
		k.condVar().Wait()
	}
	k.table[idx].Chan = nil
	// By the time a real kernel's sleep() returns, the scheduler has
	// already dispatched the woken entity back to RUNNING (it set that
	// state before the context switch that resumes this call). Mirror
	// that here since there is no separate context switch step.
	k.table[idx].State = proc.Running
}

// Sleep implements sleep(chan, lk) for callers holding a lock other than
// the ptable lock (spec.md §4.8): it acquires the ptable lock, releases lk,
// blocks until woken, then releases the ptable lock and reacquires lk. Used
// by the ksync primitives (condition variable, semaphore) via the Sleeper
// interface.
func (k *Kernel) Sleep(idx int, chanv any, lk sync.Locker) {
	k.mu.Lock()
	lk.Unlock()
	k.SleepLocked(idx, chanv)
	k.mu.Unlock()
	lk.Lock()
}

// wakeup1Locked sets every SLEEPING PCB with a matching chan to RUNNABLE.
// Must be called with k.mu held (spec.md §9 "wakeup1").
func (k *Kernel) wakeup1Locked(chanv any) {
	for i := range k.table {
		if k.table[i].State == proc.Sleeping && k.table[i].Chan == chanv {
			k.table[i].State = proc.Runnable
			k.table[i].Chan = nil
		}
	}
	k.condVar().Broadcast()
}

// Wakeup acquires the ptable lock and wakes every SLEEPING PCB on chanv.
func (k *Kernel) Wakeup(chanv any) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.wakeup1Locked(chanv)
}

// WakeupOne wakes at most one SLEEPING PCB whose chan matches chanv,
// mirroring xv6 Cond_signal's scan that breaks after the first match
// rather than wakeup's "every matching sleeper." It reports whether a
// waiter was found. Used by ksync's condition variable, whose signal
// (unlike the kernel-internal wakeup used by exit/kill) must only release
// one waiter.
func (k *Kernel) WakeupOne(chanv any) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.table {
		if k.table[i].State == proc.Sleeping && k.table[i].Chan == chanv {
			k.table[i].State = proc.Runnable
			k.table[i].Chan = nil
			k.condVar().Broadcast()
			return true
		}
	}
	return false
}
