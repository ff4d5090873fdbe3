package kernel

import "testing"

func TestSetCPUShareComputesStrideFromPercent(t *testing.T) {
	k, initIdx := bootedKernel(t)
	if err := k.SetCPUShare(initIdx, 25); err != nil {
		t.Fatalf("SetCPUShare() error: %v", err)
	}

	p, err := k.PCB(initIdx)
	if err != nil {
		t.Fatalf("PCB() error: %v", err)
	}
	if !p.UnderStride() {
		t.Fatalf("PCB should be under stride after SetCPUShare")
	}
	if p.Stride != 1000/25 {
		t.Fatalf("Stride = %d, want %d", p.Stride, 1000/25)
	}
	if p.Portion != 25 {
		t.Fatalf("Portion = %d, want 25", p.Portion)
	}
	if got := k.StrideTickets(); got != 25 {
		t.Fatalf("StrideTickets() = %d, want 25", got)
	}
}

func TestSetCPUShareRejectsNonPositivePercent(t *testing.T) {
	k, initIdx := bootedKernel(t)
	if err := k.SetCPUShare(initIdx, 0); err == nil {
		t.Fatalf("SetCPUShare(0) should be rejected")
	}
	if err := k.SetCPUShare(initIdx, -5); err == nil {
		t.Fatalf("SetCPUShare(-5) should be rejected")
	}
}

func TestSetCPUShareEnforcesEightyPercentCap(t *testing.T) {
	k, initIdx := bootedKernel(t)
	if err := k.SetCPUShare(initIdx, 60); err != nil {
		t.Fatalf("SetCPUShare(60) error: %v", err)
	}

	child, err := k.Fork(initIdx)
	if err != nil {
		t.Fatalf("Fork() error: %v", err)
	}
	if err := k.SetCPUShare(child, 21); err == nil {
		t.Fatalf("SetCPUShare(21) on top of 60 should exceed the %d%% cap", MaxStrideTickets)
	}
	if err := k.SetCPUShare(child, 20); err != nil {
		t.Fatalf("SetCPUShare(20) on top of 60 should exactly hit the cap: %v", err)
	}
}

func TestSetCPUShareRejectsThreads(t *testing.T) {
	k, initIdx := bootedKernel(t)
	tid, err := k.ThreadCreate(initIdx, "worker")
	if err != nil {
		t.Fatalf("ThreadCreate() error: %v", err)
	}

	k.mu.Lock()
	var lwpIdx int
	for i := range k.table {
		if k.table[i].Manager == initIdx && k.table[i].Tid == tid {
			lwpIdx = i
			break
		}
	}
	k.mu.Unlock()

	if err := k.SetCPUShare(lwpIdx, 10); err == nil {
		t.Fatalf("SetCPUShare() on an LWP should be rejected")
	}
}

func TestExitOfStrideManagerFreesItsPortion(t *testing.T) {
	k, initIdx := bootedKernel(t)
	child, err := k.Fork(initIdx)
	if err != nil {
		t.Fatalf("Fork() error: %v", err)
	}
	if err := k.SetCPUShare(child, 30); err != nil {
		t.Fatalf("SetCPUShare() error: %v", err)
	}
	if err := k.Exit(child); err != nil {
		t.Fatalf("Exit() error: %v", err)
	}
	if got := k.StrideTickets(); got != 0 {
		t.Fatalf("StrideTickets() after exit = %d, want 0", got)
	}
}
