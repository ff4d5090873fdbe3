// Package stride implements the fixed-capacity min-heap of stride pass
// values used to pick the next stride-scheduled manager.
//
// The heap stores pass values only, not PCB references: the scheduler
// matches a heap entry back to a manager PCB by equality of pass_value.
// That is sound because only managers participate, each manager
// increments its own pass_value by its own stride before re-insertion,
// and when several managers share a pass_value any one of them is an
// acceptable pick (work-conserving under proportional share).
package stride

import "container/heap"

// Heap is a 1-indexed-in-spirit (stdlib container/heap is 0-indexed
// internally) min-heap over integer pass values, capped at a fixed
// capacity equal to the process-table size.
type Heap struct {
	h        intHeap
	capacity int
}

// New returns an empty Heap with the given capacity.
func New(capacity int) *Heap {
	return &Heap{h: make(intHeap, 0, capacity), capacity: capacity}
}

// Len returns the number of entries currently in the heap.
func (s *Heap) Len() int { return s.h.Len() }

// Push inserts v. Push panics if the heap is already at capacity: the
// caller (the stride policy) is responsible for never holding more
// stride managers than there are process-table slots.
func (s *Heap) Push(v int) {
	if s.h.Len() >= s.capacity {
		panic("stride: heap push exceeds process-table capacity")
	}
	heap.Push(&s.h, v)
}

// Pop removes and returns the minimum pass value. Pop panics on an empty
// heap; callers must check Len() first.
func (s *Heap) Pop() int {
	if s.h.Len() == 0 {
		panic("stride: pop of empty heap")
	}
	return heap.Pop(&s.h).(int)
}

// Peek returns the minimum pass value without removing it. Peek panics on
// an empty heap; callers must check Len() first.
func (s *Heap) Peek() int {
	if s.h.Len() == 0 {
		panic("stride: peek of empty heap")
	}
	return s.h[0]
}

// intHeap is the container/heap.Interface implementation backing Heap.
type intHeap []int

func (h intHeap) Len() int            { return len(h) }
func (h intHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
