package ksync

import "testing"

// scenario (h), spec.md §8: two readers hold the lock concurrently; a
// writer acquire blocks until both release; after the last reader
// releases, the writer proceeds before any new reader.
func TestScenarioRWLockExclusion(t *testing.T) {
	k, self := bootedKernel(t)
	selves := multiSelf(t, k, self, 2)
	reader1, reader2, writer := selves[0], selves[1], self
	rw := NewRWLock()

	rw.AcquireRead(k, reader1)
	rw.AcquireRead(k, reader2)
	if rw.readers != 2 {
		t.Fatalf("readers = %d, want 2 concurrent readers", rw.readers)
	}

	writerDone := make(chan struct{})
	go func() {
		rw.AcquireWrite(k, writer)
		close(writerDone)
	}()

	select {
	case <-writerDone:
		t.Fatalf("writer proceeded while two readers still held the lock")
	default:
	}

	rw.ReleaseRead(k, reader1)
	select {
	case <-writerDone:
		t.Fatalf("writer proceeded after only one of two readers released")
	default:
	}

	rw.ReleaseRead(k, reader2)
	<-writerDone

	rw.ReleaseWrite(k)
}
