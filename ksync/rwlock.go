package ksync

import "github.com/arctir/ksched/kernel"

// RWLock is a reader/writer lock built from two binary semaphores and a
// readers count (spec.md §4.8, §6 wire layout "embedded sem, embedded
// write-sem, readers"), grounded on xv6-public's rwlock.c: the first
// reader acquires the write semaphore on readers' behalf, the last reader
// releases it, and writers acquire the write semaphore directly.
type RWLock struct {
	entry   *Semaphore // guards the readers count update
	write   *Semaphore // held by a writer, or by the first reader on behalf of all readers
	readers int
}

// NewRWLock returns a ready-to-use RWLock with no readers and no writer.
func NewRWLock() *RWLock {
	return &RWLock{entry: NewSemaphore(1), write: NewSemaphore(1)}
}

// AcquireRead increments readers under entry; the first reader additionally
// acquires write, which blocks until any current writer releases it.
func (rw *RWLock) AcquireRead(k *kernel.Kernel, self int) {
	rw.entry.Wait(k, self)
	rw.readers++
	if rw.readers == 1 {
		rw.write.Wait(k, self)
	}
	rw.entry.Post(k)
}

// AcquireWrite acquires the write semaphore directly, excluding both
// concurrent writers and (via the first/last-reader protocol) readers.
func (rw *RWLock) AcquireWrite(k *kernel.Kernel, self int) {
	rw.write.Wait(k, self)
}

// ReleaseRead decrements readers under entry; the last reader releases
// write, letting a blocked writer (or a new first reader) proceed.
func (rw *RWLock) ReleaseRead(k *kernel.Kernel, self int) {
	rw.entry.Wait(k, self)
	rw.readers--
	if rw.readers == 0 {
		rw.write.Post(k)
	}
	rw.entry.Post(k)
}

// ReleaseWrite releases the write semaphore. It never blocks, so unlike
// the other three operations it needs no self index.
func (rw *RWLock) ReleaseWrite(k *kernel.Kernel) {
	rw.write.Post(k)
}
