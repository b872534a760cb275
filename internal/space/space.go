// Package space implements the sparse linear container that underlies every
// level of a register map: bits inside a register, words inside a component,
// bytes inside a memory map. Children occupy disjoint contiguous sub-ranges;
// anything not covered by a child is a gap.
package space

import (
	"fmt"
	"sort"
)

// Slot is one occupied sub-range.
type Slot[T any] struct {
	Child T
	Start int
	Size  int
}

// End returns the first position after the slot.
func (s Slot[T]) End() int { return s.Start + s.Size }

// Region is either an occupied slot or a gap. For a gap, Child is the zero
// value and Gap is true.
type Region[T any] struct {
	Child T
	Gap   bool
	Start int
	Size  int
}

// OverflowError reports a placement that does not fit the declared range.
type OverflowError struct {
	Start, Size int
	Lo, Hi      int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("placement [%d,%d) outside declared range [%d,%d)",
		e.Start, e.Start+e.Size, e.Lo, e.Hi)
}

// OverlapError reports a placement that collides with an existing slot.
type OverlapError struct {
	Start, Size int
	Other       int // start of the colliding slot
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("placement [%d,%d) overlaps slot at %d",
		e.Start, e.Start+e.Size, e.Other)
}

// Space is an ordered set of non-overlapping slots over the range [lo,hi).
// A freshly built space starts at zero; slices keep the absolute positions
// of their parent.
type Space[T any] struct {
	lo, hi int
	slots  []Slot[T]
}

// New returns an empty space covering [0,size).
func New[T any](size int) *Space[T] {
	return &Space[T]{lo: 0, hi: size}
}

// Size returns the declared extent of the space.
func (s *Space[T]) Size() int { return s.hi - s.lo }

// Lo returns the first position of the space.
func (s *Space[T]) Lo() int { return s.lo }

// Len returns the number of occupied slots.
func (s *Space[T]) Len() int { return len(s.slots) }

// Add places child at the next free position after the last slot and returns
// the position chosen.
func (s *Space[T]) Add(child T, size int) (int, error) {
	start := s.lo
	if n := len(s.slots); n > 0 {
		start = s.slots[n-1].End()
	}
	return start, s.AddAt(child, start, size)
}

// AddAt places child at a fixed position. Placements must be made in
// declaration order; a placement before an existing slot is rejected as an
// overlap even when the range itself is free, so that slot order always
// matches declaration order.
func (s *Space[T]) AddAt(child T, start, size int) error {
	if size <= 0 || start < s.lo || start+size > s.hi {
		return &OverflowError{Start: start, Size: size, Lo: s.lo, Hi: s.hi}
	}
	if n := len(s.slots); n > 0 {
		last := s.slots[n-1]
		if start < last.End() {
			return &OverlapError{Start: start, Size: size, Other: last.Start}
		}
	}
	s.slots = append(s.slots, Slot[T]{Child: child, Start: start, Size: size})
	return nil
}

// Items returns the occupied slots in position order, ignoring gaps.
func (s *Space[T]) Items() []Slot[T] {
	out := make([]Slot[T], len(s.slots))
	copy(out, s.slots)
	return out
}

// Regions returns slots and gaps in position order, together covering the
// whole of [lo,hi) exactly once.
func (s *Space[T]) Regions() []Region[T] {
	var out []Region[T]
	pos := s.lo
	for _, sl := range s.slots {
		if sl.Start > pos {
			out = append(out, Region[T]{Gap: true, Start: pos, Size: sl.Start - pos})
		}
		out = append(out, Region[T]{Child: sl.Child, Start: sl.Start, Size: sl.Size})
		pos = sl.End()
	}
	if pos < s.hi {
		out = append(out, Region[T]{Gap: true, Start: pos, Size: s.hi - pos})
	}
	return out
}

// HasGaps reports whether any part of the range is unoccupied.
func (s *Space[T]) HasGaps() bool {
	pos := s.lo
	for _, sl := range s.slots {
		if sl.Start > pos {
			return true
		}
		pos = sl.End()
	}
	return pos < s.hi
}

// Slice returns a new space restricted to [lo,hi). Slots intersecting the
// window are clipped to it but keep their absolute positions, so a child
// straddling the window edge appears with only its intersecting portion.
// The result shares no state with the receiver.
func (s *Space[T]) Slice(lo, hi int) *Space[T] {
	if lo < s.lo {
		lo = s.lo
	}
	if hi > s.hi {
		hi = s.hi
	}
	out := &Space[T]{lo: lo, hi: hi}
	i := sort.Search(len(s.slots), func(i int) bool { return s.slots[i].End() > lo })
	for ; i < len(s.slots) && s.slots[i].Start < hi; i++ {
		sl := s.slots[i]
		start := sl.Start
		if start < lo {
			start = lo
		}
		end := sl.End()
		if end > hi {
			end = hi
		}
		out.slots = append(out.slots, Slot[T]{Child: sl.Child, Start: start, Size: end - start})
	}
	return out
}
