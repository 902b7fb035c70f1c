package model

import "fmt"

// ItemsSet holds one FIFO queue per side. A side without a port is disabled and
// must never be read or written; doing so is a construction bug and panics.
type ItemsSet struct {
	ports  SideMask
	queues [4][]Item
}

func NewItemsSet(ports SideMask) ItemsSet {
	return ItemsSet{ports: ports & AllSides}
}

func (s *ItemsSet) Ports() SideMask        { return s.ports }
func (s *ItemsSet) Enabled(side Side) bool { return s.ports.Has(side) }

func (s *ItemsSet) mustEnabled(side Side) {
	if !side.Valid() || !s.ports.Has(side) {
		panic(fmt.Sprintf("items set: side %s is disabled (ports=%s)", side, s.ports))
	}
}

func (s *ItemsSet) Len(side Side) int {
	s.mustEnabled(side)
	return len(s.queues[side])
}

func (s *ItemsSet) Front(side Side) (Item, bool) {
	s.mustEnabled(side)
	q := s.queues[side]
	if len(q) == 0 {
		return Item{}, false
	}
	return q[0], true
}

func (s *ItemsSet) Pop(side Side) (Item, bool) {
	s.mustEnabled(side)
	q := s.queues[side]
	if len(q) == 0 {
		return Item{}, false
	}
	it := q[0]
	if len(q) == 1 {
		s.queues[side] = nil
	} else {
		s.queues[side] = q[1:]
	}
	return it, true
}

func (s *ItemsSet) Push(side Side, it Item) {
	s.mustEnabled(side)
	s.queues[side] = append(s.queues[side], it)
}

// Items returns a copy of the queue on side.
func (s *ItemsSet) Items(side Side) []Item {
	s.mustEnabled(side)
	q := s.queues[side]
	if len(q) == 0 {
		return nil
	}
	return append([]Item(nil), q...)
}

// Set replaces the queue on side.
func (s *ItemsSet) Set(side Side, items []Item) {
	s.mustEnabled(side)
	if len(items) == 0 {
		s.queues[side] = nil
		return
	}
	s.queues[side] = append([]Item(nil), items...)
}

func (s *ItemsSet) Clear(side Side) {
	s.mustEnabled(side)
	s.queues[side] = nil
}

// Count is the total number of items across all sides.
func (s *ItemsSet) Count() int {
	n := 0
	for _, q := range s.queues {
		n += len(q)
	}
	return n
}

func (s *ItemsSet) CountItem(t ItemType) int {
	n := 0
	for _, q := range s.queues {
		for _, it := range q {
			if it.Type == t {
				n++
			}
		}
	}
	return n
}

// ExactlyOne returns the single enabled side. Single-port machines rely on it;
// any other port layout is an invariant violation.
func (s *ItemsSet) ExactlyOne() Side {
	if s.ports.Count() != 1 {
		panic(fmt.Sprintf("items set: expected exactly one port, have %s", s.ports))
	}
	return s.ports.Sides()[0]
}

// All returns every queued item in N,E,S,W order.
func (s *ItemsSet) All() []Item {
	out := make([]Item, 0, s.Count())
	for _, side := range Sides {
		out = append(out, s.queues[side]...)
	}
	return out
}

func (s *ItemsSet) ResetMoved() {
	for side := range s.queues {
		for i := range s.queues[side] {
			s.queues[side][i].Moved = false
		}
	}
}

func (s ItemsSet) Clone() ItemsSet {
	out := ItemsSet{ports: s.ports}
	for side, q := range s.queues {
		if len(q) > 0 {
			out.queues[side] = append([]Item(nil), q...)
		}
	}
	return out
}

// Equal compares ports and queue contents; empty and nil queues are equal.
func (s ItemsSet) Equal(o ItemsSet) bool {
	if s.ports != o.ports {
		return false
	}
	for side := range s.queues {
		a, b := s.queues[side], o.queues[side]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}
