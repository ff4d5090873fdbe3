package ksync

import (
	"sync"
	"testing"
)

func TestMutexLockUnlockIsIdentityOnFlag(t *testing.T) {
	var m Mutex
	m.Lock()
	if m.flag != 1 {
		t.Fatalf("flag = %d after Lock(), want 1", m.flag)
	}
	m.Unlock()
	if m.flag != 0 {
		t.Fatalf("flag = %d after Unlock(), want 0", m.flag)
	}
}

func TestMutexExcludesConcurrentCriticalSections(t *testing.T) {
	var m Mutex
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock()
			counter++
			m.Unlock()
		}()
	}
	wg.Wait()
	if counter != 100 {
		t.Fatalf("counter = %d, want 100 (mutex failed to exclude)", counter)
	}
}
