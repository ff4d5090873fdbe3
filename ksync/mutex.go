// Package ksync implements the blocking synchronization primitives layered
// on top of the kernel's sleep/wakeup mechanism (spec.md §4.8): a
// test-and-set spin mutex, a condition variable with an explicit
// waiting-thread count, a counting semaphore, and a reader/writer lock.
// Exact wire semantics (waiting_threads bookkeeping, binary-semaphore-backed
// rwlock) are taken from xv6-public's semaphore.c/rwlock.c, since spec.md
// leaves them as prose and the original resolves any ambiguity.
package ksync

import "sync/atomic"

// Mutex is a test-and-set spin mutex (spec.md §4.8 "flag"). It busy-waits
// rather than blocking, so it is only appropriate for the very short
// critical sections the higher-level primitives in this package use it
// for — never hold one across a call into Kernel.Sleep.
//
// Mutex implements sync.Locker so it can be passed directly to
// kernel.Kernel.Sleep as the caller's lock.
type Mutex struct {
	flag int32
}

// Lock spins until it wins the test-and-set on flag. Mirrors xv6's
// Mutex_lock: `while(TestAndSet(&lock->flag, 1) == 1);`, implemented here
// with an atomic swap rather than a bare read-then-write so it is actually
// race-free across goroutines.
func (m *Mutex) Lock() {
	for atomic.SwapInt32(&m.flag, 1) == 1 {
	}
}

// Unlock clears flag. Not fair, not recursive, no owner check — matching
// the spin mutex this is grounded on.
func (m *Mutex) Unlock() {
	atomic.StoreInt32(&m.flag, 0)
}
