package kernel

import "testing"

func TestChargeTickPromotesAtAllotmentBoundary(t *testing.T) {
	k, initIdx := bootedKernel(t)

	for i := 0; i < Allotment[0]; i++ {
		k.mu.Lock()
		k.chargeTickLocked(initIdx)
		k.mu.Unlock()
	}

	if lev := k.GetLev(initIdx); lev != 1 {
		t.Fatalf("GetLev() after %d ticks = %d, want 1 (promoted)", Allotment[0], lev)
	}
}

func TestChargeTickNeverPromotesPastLastLevel(t *testing.T) {
	k, initIdx := bootedKernel(t)

	total := Allotment[0] + Allotment[1] + 5
	for i := 0; i < total; i++ {
		k.mu.Lock()
		k.chargeTickLocked(initIdx)
		k.mu.Unlock()
	}

	if lev := k.GetLev(initIdx); lev != NumLevels-1 {
		t.Fatalf("GetLev() = %d, want capped at %d", lev, NumLevels-1)
	}
}

func TestChargeTickIgnoresStrideEntities(t *testing.T) {
	k, initIdx := bootedKernel(t)
	if err := k.SetCPUShare(initIdx, 10); err != nil {
		t.Fatalf("SetCPUShare() error: %v", err)
	}

	for i := 0; i < Allotment[0]+1; i++ {
		k.mu.Lock()
		k.chargeTickLocked(initIdx)
		k.mu.Unlock()
	}

	if lev := k.GetLev(initIdx); lev != -1 {
		t.Fatalf("GetLev() for a stride entity = %d, want -1", lev)
	}
}

func TestPriorityBoostResetsEveryLiveEntity(t *testing.T) {
	k, initIdx := bootedKernel(t)
	child, err := k.Fork(initIdx)
	if err != nil {
		t.Fatalf("Fork() error: %v", err)
	}

	for i := 0; i < Allotment[0]+Allotment[1]+1; i++ {
		k.mu.Lock()
		k.chargeTickLocked(initIdx)
		k.chargeTickLocked(child)
		k.mu.Unlock()
	}
	if k.GetLev(initIdx) == 0 {
		t.Fatalf("setup failed: initIdx never left level 0")
	}

	k.PriorityBoost()

	if lev := k.GetLev(initIdx); lev != 0 {
		t.Fatalf("GetLev(init) after boost = %d, want 0", lev)
	}
	if lev := k.GetLev(child); lev != 0 {
		t.Fatalf("GetLev(child) after boost = %d, want 0", lev)
	}
}

func TestTickRunsBoostAtConfiguredCadence(t *testing.T) {
	k := New(Config{NumProcs: 4, BoostCadence: 25})
	initIdx, err := k.Boot("init")
	if err != nil {
		t.Fatalf("Boot() error: %v", err)
	}

	for i := 0; i < Allotment[0]+1; i++ {
		k.Tick(initIdx)
	}
	if lev := k.GetLev(initIdx); lev != 1 {
		t.Fatalf("setup failed: GetLev() = %d, want promoted to 1", lev)
	}

	// Advance ticks until the next multiple of the cadence; the boost
	// sweep on that tick must reset the promotion back to level 0.
	for k.Uptime()%25 != 0 {
		k.Tick(initIdx)
	}

	if lev := k.GetLev(initIdx); lev != 0 {
		t.Fatalf("GetLev() after a boost-cadence tick = %d, want reset to 0", lev)
	}
}
