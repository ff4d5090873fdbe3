package ksync

import (
	"testing"

	"github.com/arctir/ksched/kernel"
)

// multiSelf boots extra PCBs via Fork so each concurrent actor in a test
// gets its own table index; sharing one index across concurrent sleepers
// would make two goroutines fight over a single PCB's Chan/State fields.
func multiSelf(t *testing.T, k *kernel.Kernel, base int, n int) []int {
	t.Helper()
	out := make([]int, n)
	for i := range out {
		idx, err := k.Fork(base)
		if err != nil {
			t.Fatalf("Fork() error: %v", err)
		}
		out[i] = idx
	}
	return out
}

func TestRWLockReadersCanOverlap(t *testing.T) {
	k, self := bootedKernel(t)
	selves := multiSelf(t, k, self, 2)
	rw := NewRWLock()

	rw.AcquireRead(k, selves[0])
	rw.AcquireRead(k, selves[1])

	if rw.readers != 2 {
		t.Fatalf("readers = %d, want 2 overlapping readers", rw.readers)
	}

	rw.ReleaseRead(k, selves[0])
	rw.ReleaseRead(k, selves[1])

	if rw.readers != 0 {
		t.Fatalf("readers = %d after both released, want 0", rw.readers)
	}
}

func TestRWLockAcquireReleaseIsIdentity(t *testing.T) {
	k, self := bootedKernel(t)
	rw := NewRWLock()

	rw.AcquireRead(k, self)
	rw.ReleaseRead(k, self)
	if rw.write.Value != 1 {
		t.Fatalf("write semaphore Value = %d after one reader's acquire/release, want 1 (released)", rw.write.Value)
	}
}

func TestRWLockWriterExcludesReaders(t *testing.T) {
	k, self := bootedKernel(t)
	selves := multiSelf(t, k, self, 1)
	writer, reader := self, selves[0]
	rw := NewRWLock()

	rw.AcquireWrite(k, writer)

	readAcquired := make(chan struct{})
	go func() {
		rw.AcquireRead(k, reader)
		close(readAcquired)
	}()

	select {
	case <-readAcquired:
		t.Fatalf("AcquireRead() proceeded while a writer held the lock")
	default:
	}

	for {
		p, err := k.PCB(reader)
		if err != nil {
			t.Fatalf("PCB() error: %v", err)
		}
		if p.Chan != nil {
			break
		}
	}

	rw.ReleaseWrite(k)
	<-readAcquired

	rw.ReleaseRead(k, reader)
}
