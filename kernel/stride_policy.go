package kernel

import "fmt"

// SetCPUShare reserves percent of the CPU for idx under stride scheduling
// (the set_cpu_share syscall, spec.md §4.5, §6). Only a manager (Tid == 0)
// may hold a stride portion; threads inherit scheduling via their manager.
func (k *Kernel) SetCPUShare(idx int, percent int) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if percent <= 0 {
		return fmt.Errorf("kernel: set_cpu_share: percent must be positive, got %d", percent)
	}
	if percent+k.strideTickets > MaxStrideTickets {
		return fmt.Errorf("kernel: set_cpu_share: %d%% would push stride_tickets to %d%%, exceeding the %d%% cap",
			percent, percent+k.strideTickets, MaxStrideTickets)
	}

	p := &k.table[idx]
	if !p.IsManager() {
		return fmt.Errorf("kernel: set_cpu_share: only a manager (tid==0) may hold a stride portion")
	}

	k.strideTickets += percent

	var seed int
	if k.heap.Len() == 0 {
		seed = 0
	} else {
		// Push the current minimum (not a fresh 0) so the new manager
		// doesn't immediately starve existing stride managers.
		seed = k.heap.Peek()
	}
	k.heap.Push(seed)

	p.PassValue = k.heap.Peek()
	p.Stride = 1000 / percent
	p.Portion = percent

	return nil
}

// exitStrideLocked pops one entry from the heap and subtracts idx's
// portion from stride_tickets, if idx is a stride manager (spec.md §4.5
// "On exit of a stride manager"). Must be called with k.mu held.
func (k *Kernel) exitStrideLocked(idx int) {
	p := &k.table[idx]
	if !p.UnderStride() {
		return
	}
	if k.heap.Len() > 0 {
		k.heap.Pop()
	}
	k.strideTickets -= p.Portion
}
