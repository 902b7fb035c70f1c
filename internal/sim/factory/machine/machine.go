package machine

import (
	"errors"
	"reflect"

	"beltgrid.ai/internal/sim/factory/model"
)

// Behavior is the per-variant tick contract. Implementations live in this
// package only.
type Behavior interface {
	Kind() Kind
	// PerformAction mutates the queues in place. ground is nil when the cell
	// has no deposit under it. The scheduler calls it at most once per tick.
	PerformAction(in, out *model.ItemsSet, ground *model.Resource)
	// CanAccept reports whether it may be pushed into input side right now.
	// It must not mutate anything.
	CanAccept(it model.Item, in, out *model.ItemsSet, side model.Side) bool
	Selectable() bool
	Clone() Behavior

	sealed()
}

var (
	ErrNotSelectable   = errors.New("machine has no recipe selection")
	ErrStationMismatch = errors.New("recipe belongs to another station")
	ErrBusy            = errors.New("machine is mid-job")
)

// Machine is the full simulated state of one grid cell.
type Machine struct {
	Behavior Behavior
	Input    model.ItemsSet
	Output   model.ItemsSet
}

func (m *Machine) Kind() Kind { return m.Behavior.Kind() }

func (m *Machine) PerformAction(ground *model.Resource) {
	m.Behavior.PerformAction(&m.Input, &m.Output, ground)
}

func (m *Machine) CanAccept(it model.Item, side model.Side) bool {
	if !m.Input.Enabled(side) {
		return false
	}
	return m.Behavior.CanAccept(it, &m.Input, &m.Output, side)
}

// Accept pushes it into input side when CanAccept allows it.
func (m *Machine) Accept(it model.Item, side model.Side) bool {
	if !m.CanAccept(it, side) {
		return false
	}
	m.Input.Push(side, it)
	return true
}

func (m Machine) Clone() Machine {
	var b Behavior
	if m.Behavior != nil {
		b = m.Behavior.Clone()
	}
	return Machine{Behavior: b, Input: m.Input.Clone(), Output: m.Output.Clone()}
}

// ResetMoved clears the per-tick moved marker on every queued item.
func (m *Machine) ResetMoved() {
	m.Input.ResetMoved()
	m.Output.ResetMoved()
}

// SetRecipe assigns r to a crafter or furnace. The same recipe is a no-op;
// switching is refused while a job is running.
func (m *Machine) SetRecipe(r *Recipe) error {
	if r == nil {
		return errors.New("nil recipe")
	}
	if r.Station != m.Kind() {
		return ErrStationMismatch
	}
	switch b := m.Behavior.(type) {
	case *Crafter:
		if b.Recipe != nil && b.Recipe.ID == r.ID {
			return nil
		}
		if b.InProgress {
			return ErrBusy
		}
		b.Recipe = r
	case *Furnace:
		if b.Recipe != nil && b.Recipe.ID == r.ID {
			return nil
		}
		if b.InProgress {
			return ErrBusy
		}
		b.Recipe = r
	default:
		return ErrNotSelectable
	}
	return nil
}

// Equal reports whether a and b match in behavior state and both queue sets.
func Equal(a, b Machine) bool {
	if !a.Input.Equal(b.Input) || !a.Output.Equal(b.Output) {
		return false
	}
	return reflect.DeepEqual(a.Behavior, b.Behavior)
}
