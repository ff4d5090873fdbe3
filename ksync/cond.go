package ksync

import "github.com/arctir/ksched/kernel"

// Cond is a condition variable with an explicit waiting-thread count
// (spec.md §4.8 "waiting_threads", xv6 thread_cond_t). The zero value is a
// ready-to-use condition variable with zero waiters.
type Cond struct {
	WaitingThreads int
	lock           Mutex
}

// Wait atomically increments WaitingThreads under cond's own lock, releases
// userLock, sleeps self on cond until a matching Signal, then reacquires
// userLock. userLock must already be held by the caller.
//
// This is Cond_wait from xv6's semaphore.c: the "release lock before going
// to sleep, reacquire on wake" contract is exactly kernel.Kernel.Sleep's
// sleep(chan, lk) contract (spec.md §4.8), so Wait delegates to it directly
// with cond itself as the sleep channel.
func (c *Cond) Wait(k *kernel.Kernel, self int, userLock *Mutex) {
	c.lock.Lock()
	c.WaitingThreads++
	c.lock.Unlock()

	k.Sleep(self, c, userLock)
}

// Signal decrements WaitingThreads (a no-op if already zero) and wakes at
// most one SLEEPING entity whose chan is cond. Mirrors xv6's Cond_signal.
func (c *Cond) Signal(k *kernel.Kernel) {
	c.lock.Lock()
	if c.WaitingThreads == 0 {
		c.lock.Unlock()
		return
	}
	c.WaitingThreads--
	c.lock.Unlock()

	k.WakeupOne(c)
}
