package kernel

import (
	"testing"

	"github.com/arctir/ksched/proc"
)

func bootedKernel(t *testing.T) (*Kernel, int) {
	t.Helper()
	k := New(Config{NumProcs: 16})
	initIdx, err := k.Boot("init")
	if err != nil {
		t.Fatalf("Boot() error: %v", err)
	}
	return k, initIdx
}

func TestForkCopiesAddressSpaceAndParent(t *testing.T) {
	k, initIdx := bootedKernel(t)

	k.mu.Lock()
	k.table[initIdx].Size = 4096
	k.mu.Unlock()

	child, err := k.Fork(initIdx)
	if err != nil {
		t.Fatalf("Fork() error: %v", err)
	}

	p, err := k.PCB(child)
	if err != nil {
		t.Fatalf("PCB() error: %v", err)
	}
	if p.State != proc.Runnable {
		t.Fatalf("child State = %v, want RUNNABLE", p.State)
	}
	if p.Size != 4096 {
		t.Fatalf("child Size = %d, want 4096 (copied from parent)", p.Size)
	}
	if p.Parent != initIdx {
		t.Fatalf("child Parent = %d, want %d", p.Parent, initIdx)
	}
	if !p.IsManager() {
		t.Fatalf("forked child should be a manager (tid == 0)")
	}
}

func TestWaitReturnsErrorWithNoChildren(t *testing.T) {
	k, initIdx := bootedKernel(t)
	if _, err := k.Wait(initIdx); err == nil {
		t.Fatalf("Wait() with no children should return an error")
	}
}

func TestWaitReapsZombieChildImmediately(t *testing.T) {
	k, initIdx := bootedKernel(t)
	child, err := k.Fork(initIdx)
	if err != nil {
		t.Fatalf("Fork() error: %v", err)
	}
	childPid := k.GetPid(child)

	if err := k.Exit(child); err != nil {
		t.Fatalf("Exit() error: %v", err)
	}

	pid, err := k.Wait(initIdx)
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if pid != childPid {
		t.Fatalf("Wait() pid = %d, want %d", pid, childPid)
	}

	p, err := k.PCB(child)
	if err != nil {
		t.Fatalf("PCB() error: %v", err)
	}
	if p.State != proc.Unused {
		t.Fatalf("reaped child State = %v, want UNUSED", p.State)
	}
}

func TestWaitBlocksUntilChildExits(t *testing.T) {
	k, initIdx := bootedKernel(t)
	child, err := k.Fork(initIdx)
	if err != nil {
		t.Fatalf("Fork() error: %v", err)
	}
	childPid := k.GetPid(child)

	done := make(chan int, 1)
	go func() {
		pid, err := k.Wait(initIdx)
		if err != nil {
			t.Errorf("Wait() error: %v", err)
		}
		done <- pid
	}()

	// Give the waiter a chance to actually block before the child exits.
	k.mu.Lock()
	for k.table[initIdx].State != proc.Sleeping {
		k.mu.Unlock()
		k.mu.Lock()
	}
	k.mu.Unlock()

	if err := k.Exit(child); err != nil {
		t.Fatalf("Exit() error: %v", err)
	}

	if pid := <-done; pid != childPid {
		t.Fatalf("Wait() woke with pid = %d, want %d", pid, childPid)
	}
}

func TestExitReparentsSurvivingChildrenToInit(t *testing.T) {
	k, initIdx := bootedKernel(t)
	parent, err := k.Fork(initIdx)
	if err != nil {
		t.Fatalf("Fork(parent) error: %v", err)
	}
	grandchild, err := k.Fork(parent)
	if err != nil {
		t.Fatalf("Fork(grandchild) error: %v", err)
	}

	if err := k.Exit(parent); err != nil {
		t.Fatalf("Exit(parent) error: %v", err)
	}

	p, err := k.PCB(grandchild)
	if err != nil {
		t.Fatalf("PCB() error: %v", err)
	}
	if p.Parent != initIdx {
		t.Fatalf("grandchild Parent = %d, want initIdx %d after reparenting", p.Parent, initIdx)
	}
}

func TestKillWakesSleepingTargetButNotOthers(t *testing.T) {
	k, initIdx := bootedKernel(t)
	pid := k.GetPid(initIdx)

	k.mu.Lock()
	k.table[initIdx].State = proc.Sleeping
	k.table[initIdx].Chan = "some-channel"
	k.mu.Unlock()

	if err := k.Kill(pid); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}

	p, err := k.PCB(initIdx)
	if err != nil {
		t.Fatalf("PCB() error: %v", err)
	}
	if !p.Killed {
		t.Fatalf("Killed flag not set after Kill()")
	}
	if p.State != proc.Runnable {
		t.Fatalf("State = %v, want RUNNABLE after killing a SLEEPING target", p.State)
	}
}

func TestKillDoesNotDisturbRunnableState(t *testing.T) {
	k, initIdx := bootedKernel(t)
	pid := k.GetPid(initIdx)

	if err := k.Kill(pid); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}

	p, err := k.PCB(initIdx)
	if err != nil {
		t.Fatalf("PCB() error: %v", err)
	}
	if p.State != proc.Runnable {
		t.Fatalf("State = %v, want unchanged RUNNABLE", p.State)
	}
}

func TestGrowProcNeverGoesNegative(t *testing.T) {
	k, initIdx := bootedKernel(t)

	old, err := k.GrowProc(initIdx, 100)
	if err != nil {
		t.Fatalf("GrowProc(+100) error: %v", err)
	}
	if old != 0 {
		t.Fatalf("GrowProc(+100) old = %d, want 0", old)
	}

	old, err = k.GrowProc(initIdx, -1000)
	if err != nil {
		t.Fatalf("GrowProc(-1000) error: %v", err)
	}
	if old != 100 {
		t.Fatalf("GrowProc(-1000) old = %d, want 100", old)
	}

	p, err := k.PCB(initIdx)
	if err != nil {
		t.Fatalf("PCB() error: %v", err)
	}
	if p.Size != 0 {
		t.Fatalf("Size = %d after shrinking past zero, want floored to 0", p.Size)
	}
}

func TestSyscallSleepWakesAfterElapsedTicks(t *testing.T) {
	k, initIdx := bootedKernel(t)

	done := make(chan struct{})
	go func() {
		if err := k.SyscallSleep(initIdx, 3); err != nil {
			t.Errorf("SyscallSleep() error: %v", err)
		}
		close(done)
	}()

	k.mu.Lock()
	for k.table[initIdx].State != proc.Sleeping {
		k.mu.Unlock()
		k.mu.Lock()
	}
	k.mu.Unlock()

	for i := 0; i < 3; i++ {
		k.Tick(-1)
	}

	<-done
}
