package kernel

import "github.com/arctir/ksched/proc"

// chargeTickLocked accounts one timer tick to idx's current MLFQ level
// (spec.md §4.4). Only MLFQ entities (PassValue == proc.NotUnderStride)
// participate; stride managers and their threads are untouched. Must be
// called with k.mu held.
func (k *Kernel) chargeTickLocked(idx int) {
	p := &k.table[idx]
	mgr := p
	if p.Tid > 0 {
		mgr = &k.table[p.Manager]
	}
	if mgr.UnderStride() {
		return
	}
	p.Ticks++
	p.Runtime++

	allot := Allotment[p.Level]
	if allot >= 0 && p.Level < NumLevels-1 && p.Runtime >= allot {
		p.Level++
		p.Ticks = 0
		p.Runtime = 0
	}
}

// quantumExpiredLocked reports whether idx has used up its level's
// quantum and should be preempted back to RUNNABLE. Must be called with
// k.mu held.
func (k *Kernel) quantumExpiredLocked(idx int) bool {
	p := &k.table[idx]
	if p.UnderStride() {
		return false
	}
	return p.Ticks >= Quantum[p.Level]
}

// PriorityBoost resets every PCB (regardless of state) to level 0 with
// ticks and runtime cleared (spec.md §4.4). Only MLFQ fields are touched;
// stride scheduling is unaffected. Invoked by the timer at Kernel's
// configured BoostCadence, or directly (e.g. by the `ksched boost` CLI
// command or a test).
func (k *Kernel) PriorityBoost() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.table {
		if k.table[i].State == proc.Unused {
			continue
		}
		k.table[i].Level = 0
		k.table[i].Ticks = 0
		k.table[i].Runtime = 0
	}
}

// Tick advances the uptime counter by one and charges the tick to idx, the
// entity currently RUNNING on some CPU, running the priority_boost sweep
// whenever the configured cadence is reached. Intended to be called once
// per timer interrupt by the driver of a per-CPU loop (see RunScheduler);
// idx may be -1 if no entity is currently running on any CPU.
func (k *Kernel) Tick(idx int) {
	k.mu.Lock()
	k.ticks++
	boost := k.boostCadence > 0 && k.ticks%k.boostCadence == 0
	if idx >= 0 {
		k.chargeTickLocked(idx)
	}
	// Wake every ticks-based sleeper (the sleep(n) syscall) so it can
	// recheck whether its deadline has elapsed, mirroring xv6's trap()
	// calling wakeup(&ticks) on every clock interrupt.
	k.wakeup1Locked(&k.ticks)
	k.mu.Unlock()

	if boost {
		k.PriorityBoost()
	}
}

// GetLev returns idx's MLFQ level (0-2), or -1 if idx is under stride
// scheduling (the getlev syscall, spec.md §6).
func (k *Kernel) GetLev(idx int) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	p := &k.table[idx]
	if p.UnderStride() {
		return -1
	}
	return p.Level
}
