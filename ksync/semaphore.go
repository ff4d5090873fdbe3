package ksync

import "github.com/arctir/ksched/kernel"

// Semaphore is a counting semaphore (spec.md §4.8 "value", built on a cond
// var and a mutex, xv6's xem_t). NewSemaphore's initial value generalizes
// xv6's xem_init, which always starts at 1 (a binary semaphore used to
// implement Mutex-like exclusion inside rwlock) — spec.md's "counting
// semaphore" widens that to an arbitrary non-negative starting value.
type Semaphore struct {
	Value int
	cond  Cond
	lock  Mutex
}

// NewSemaphore returns a Semaphore initialized to value.
func NewSemaphore(value int) *Semaphore {
	return &Semaphore{Value: value}
}

// Wait blocks self while Value <= 0, then decrements it (xv6 xem_wait).
func (s *Semaphore) Wait(k *kernel.Kernel, self int) {
	s.lock.Lock()
	for s.Value <= 0 {
		s.cond.Wait(k, self, &s.lock)
	}
	s.Value--
	s.lock.Unlock()
}

// Post increments Value and wakes one waiter (xv6 xem_unlock).
func (s *Semaphore) Post(k *kernel.Kernel) {
	s.lock.Lock()
	s.Value++
	s.cond.Signal(k)
	s.lock.Unlock()
}
