package kernel

import (
	"fmt"
	"time"

	"github.com/arctir/ksched/proc"
)

// CPUState is the per-CPU state a single scheduler loop carries between
// invocations of ScheduleNext: the 100-slot wheel position, the
// round-robin scan cursor and the anti-starvation counter (spec.md §4.3).
// One CPUState must not be shared between goroutines.
type CPUState struct {
	ID         int
	count      int // cycles 1..100
	scanIndex  int // round-robin cursor into the process table
	schedTicks int // anti-starvation counter: inspections since the last dispatch
}

// NewCPU returns a fresh CPUState for the given logical CPU id.
func NewCPU(id int) *CPUState {
	return &CPUState{ID: id}
}

// ScheduleNext applies the hybrid stride/MLFQ policy (spec.md §4.3) to pick
// one RUNNABLE entity and dispatch it (mark RUNNING). It returns the
// dispatched index and true, or (-1, false) if no entity is RUNNABLE.
//
// This models one per-CPU scheduler-loop iteration: the caller (typically
// RunScheduler) is expected to run the dispatched entity to its next
// suspension point (yield/sleep/exit) and then call ScheduleNext again.
func (k *Kernel) ScheduleNext(cpu *CPUState) (int, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	n := len(k.table)
	if n == 0 {
		return -1, false
	}

	anyRunnable := false
	for i := range k.table {
		if k.table[i].State == proc.Runnable {
			anyRunnable = true
			break
		}
	}
	if !anyRunnable {
		return -1, false
	}

	minLevel := k.minRunnableMLFQLevelLocked()

	idx := cpu.scanIndex
	for {
		p := &k.table[idx]
		if p.State != proc.Runnable {
			idx = (idx + 1) % n
			continue
		}

		cpu.schedTicks++
		if cpu.schedTicks > 1000 {
			cpu.schedTicks = 0
			k.dispatchLocked(idx, cpu)
			return idx, true
		}

		// A thread inherits scheduling via its manager (spec.md §4.5):
		// resolve mgr to the candidate itself if it is a manager, or to
		// its manager PCB if it is an LWP, and test/mutate pass_value
		// there rather than on the (always non-stride) thread PCB.
		mgr := p
		if p.Tid > 0 {
			mgr = &k.table[p.Manager]
		}

		prevCount := cpu.count
		cpu.count++
		if cpu.count > 100 {
			cpu.count = 1
		}

		if cpu.count <= k.strideTickets {
			if mgr.UnderStride() && k.heap.Len() > 0 && mgr.PassValue == k.heap.Peek() {
				k.heap.Pop()
				mgr.PassValue += mgr.Stride
				k.heap.Push(mgr.PassValue)
				k.dispatchLocked(idx, cpu)
				return idx, true
			}
			// Not a qualifying stride candidate: undo the count
			// increment and keep scanning (spec.md §4.3).
			cpu.count = prevCount
		} else {
			if mgr.UnderStride() {
				// Stride-scheduled; not eligible for an MLFQ slot.
			} else if minLevel != -1 && p.Level > minLevel {
				// A strictly-lower-level RUNNABLE MLFQ candidate
				// exists elsewhere; strict priority defers to it.
			} else {
				k.dispatchLocked(idx, cpu)
				return idx, true
			}
			// Skipped candidate: undo the count increment so the
			// wheel advances once per dispatch, not per inspection.
			cpu.count = prevCount
		}

		idx = (idx + 1) % n
	}
}

// minRunnableMLFQLevelLocked returns the lowest level among RUNNABLE MLFQ
// (non-stride) candidates, or -1 if there are none. Must be called with
// k.mu held.
func (k *Kernel) minRunnableMLFQLevelLocked() int {
	min := -1
	for i := range k.table {
		p := &k.table[i]
		mgr := p
		if p.Tid > 0 {
			mgr = &k.table[p.Manager]
		}
		if p.State == proc.Runnable && !mgr.UnderStride() {
			if min == -1 || p.Level < min {
				min = p.Level
			}
		}
	}
	return min
}

// dispatchLocked marks idx RUNNING, advances cpu's round-robin cursor and
// clears the anti-starvation counter. Must be called with k.mu held.
func (k *Kernel) dispatchLocked(idx int, cpu *CPUState) {
	k.table[idx].State = proc.Running
	cpu.scanIndex = (idx + 1) % len(k.table)
	cpu.schedTicks = 0
}

// RunScheduler drives cpu's per-CPU loop: it repeatedly calls
// ScheduleNext, charges a tick to whatever it dispatches, and invokes run
// (the caller-supplied stand-in for "resume the entity's saved context")
// with the dispatched index. run is expected to return once the entity
// reaches its next suspension point, at which point its State must already
// reflect that (RUNNABLE via Yield, SLEEPING via Sleep, ZOMBIE via Exit) —
// RunScheduler does not change state on run's behalf.
//
// RunScheduler returns when stop is closed. idleDelay bounds how long the
// loop waits before retrying when nothing is RUNNABLE, standing in for the
// real kernel's "enable interrupts and wait for the next one."
func (k *Kernel) RunScheduler(cpu *CPUState, run func(idx int), stop <-chan struct{}, idleDelay time.Duration) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		idx, ok := k.ScheduleNext(cpu)
		if !ok {
			select {
			case <-stop:
				return
			case <-time.After(idleDelay):
			}
			continue
		}

		k.Tick(idx)
		run(idx)
	}
}

// CPUID validates an APIC-style CPU identifier against numCPU, per spec.md
// §7 ("unknown APIC id" is a fatal programming-invariant violation, not a
// recoverable error).
func CPUID(id, numCPU int) {
	if id < 0 || id >= numCPU {
		panic(fmt.Sprintf("kernel: unknown CPU id %d (numCPU=%d)", id, numCPU))
	}
}
